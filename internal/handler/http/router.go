package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/cartsync/pkg/health"
	"github.com/utafrali/cartsync/pkg/middleware"

	"github.com/utafrali/cartsync/internal/identity"
	"github.com/utafrali/cartsync/internal/store"
)

// NewRouter creates a chi router with all cart sync routes registered.
// verifier may be nil when no identity provider is configured; carts then
// stay anonymous and session-local.
func NewRouter(
	manager *store.Manager,
	verifier identity.Verifier,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("cartsync"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Cart API endpoints
	cartHandler := NewCartHandler(manager, logger)

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(SessionID)
		r.Use(Identity(verifier, logger))

		r.Get("/", cartHandler.GetCart)
		r.Delete("/", cartHandler.ClearCart)

		r.Post("/items", cartHandler.AddItem)
		r.Put("/items/{itemId}", cartHandler.SetQuantity)
		r.Delete("/items/{itemId}", cartHandler.RemoveItem)
	})

	return r
}
