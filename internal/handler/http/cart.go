package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/utafrali/cartsync/pkg/errors"
	"github.com/utafrali/cartsync/pkg/validator"

	"github.com/utafrali/cartsync/internal/domain"
	"github.com/utafrali/cartsync/internal/store"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	manager *store.Manager
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(manager *store.Manager, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		manager: manager,
		logger:  logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding an item to the cart.
type AddItemRequest struct {
	ID         string            `json:"id" validate:"required"`
	Name       string            `json:"name" validate:"required,min=1,max=500"`
	ImageURL   string            `json:"image_url"`
	UnitPrice  int64             `json:"unit_price" validate:"gte=0"`
	Quantity   int               `json:"quantity"`
	Attributes map[string]string `json:"attributes"`
}

// SetQuantityRequest is the JSON request body for setting an item's quantity.
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// --- Response envelope ---

type response struct {
	Data  any            `json:"data,omitempty"`
	Error *errorResponse `json:"error,omitempty"`
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	st, ok := h.sessionStore(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, response{Data: st.Snapshot()})
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	st, ok := h.sessionStore(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	snap, err := st.AddItem(r.Context(), domain.LineItem{
		ID:         req.ID,
		Name:       req.Name,
		ImageURL:   req.ImageURL,
		UnitPrice:  req.UnitPrice,
		Quantity:   req.Quantity,
		Attributes: req.Attributes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: snap})
}

// SetQuantity handles PUT /api/v1/cart/items/{itemId}
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	st, ok := h.sessionStore(w, r)
	if !ok {
		return
	}

	itemID := chi.URLParam(r, "itemId")
	if itemID == "" {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "itemId is required"},
		})
		return
	}

	var req SetQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	snap, err := st.SetQuantity(r.Context(), itemID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: snap})
}

// RemoveItem handles DELETE /api/v1/cart/items/{itemId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	st, ok := h.sessionStore(w, r)
	if !ok {
		return
	}

	itemID := chi.URLParam(r, "itemId")
	if itemID == "" {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "itemId is required"},
		})
		return
	}

	snap, err := st.RemoveItem(r.Context(), itemID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: snap})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	st, ok := h.sessionStore(w, r)
	if !ok {
		return
	}

	snap, err := st.Clear(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: snap})
}

// --- Helpers ---

// sessionStore resolves the session's store and binds it to the request's
// identity. A failed remote subscription is logged, not surfaced; the cart
// keeps working against the local cache.
func (h *CartHandler) sessionStore(w http.ResponseWriter, r *http.Request) (*store.Store, bool) {
	sid, ok := sessionIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "X-Session-ID header is required"},
		})
		return nil, false
	}

	st, err := h.manager.Session(r.Context(), sid)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}

	uid, _ := userIDFromContext(r.Context())
	if err := st.SetIdentity(r.Context(), uid); err != nil {
		h.logger.WarnContext(r.Context(), "remote cart subscription failed",
			slog.String("session_id", sid),
			slog.String("error", err.Error()),
		)
	}

	return st, true
}

func (h *CartHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.Status, response{
			Error: &errorResponse{Code: appErr.Code, Message: appErr.Message},
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	message := "an internal error occurred"

	if errors.Is(err, apperrors.ErrNotFound) {
		code = "NOT_FOUND"
		message = "resource not found"
		status = http.StatusNotFound
	} else if errors.Is(err, apperrors.ErrInvalidInput) {
		code = "INVALID_INPUT"
		message = err.Error()
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	writeJSON(w, status, response{
		Error: &errorResponse{Code: code, Message: message},
	})
}

func (h *CartHandler) writeValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "request validation failed",
				Fields:  valErr.Fields(),
			},
		})
		return
	}

	writeJSON(w, http.StatusBadRequest, response{
		Error: &errorResponse{Code: "INVALID_INPUT", Message: err.Error()},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
