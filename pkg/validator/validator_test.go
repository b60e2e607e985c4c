package validator

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineItemRequest struct {
	ID        string `validate:"required"`
	Name      string `validate:"required,min=1,max=500"`
	UnitPrice int64  `validate:"gte=0"`
	Quantity  int    `validate:"lte=999"`
}

func TestValidate_Success(t *testing.T) {
	s := lineItemRequest{ID: "sku-1", Name: "Blue mug", UnitPrice: 1200, Quantity: 2}
	err := Validate(s)
	assert.NoError(t, err)
}

func TestValidate_MissingRequired(t *testing.T) {
	s := lineItemRequest{Name: "Blue mug"}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "ID")
	assert.Equal(t, "is required", fields["ID"])
}

func TestValidate_OutOfRange(t *testing.T) {
	s := lineItemRequest{ID: "sku-1", Name: "Blue mug", UnitPrice: -1, Quantity: 2}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "UnitPrice")
	assert.Contains(t, fields["UnitPrice"], "0")
}

func TestValidate_MultipleErrors(t *testing.T) {
	s := lineItemRequest{} // missing ID and Name
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields, "ID")
	assert.Contains(t, fields, "Name")
}

func TestValidationError_ErrorString(t *testing.T) {
	s := lineItemRequest{}
	err := Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'ID'")
	assert.Contains(t, err.Error(), "is required")
}

type minMaxStruct struct {
	Short string `validate:"min=3"`
	Long  string `validate:"max=5"`
}

func TestValidate_MinMax(t *testing.T) {
	s := minMaxStruct{Short: "ab", Long: "toolongstring"}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields["Short"], "at least 3")
	assert.Contains(t, fields["Long"], "at most 5")
}

func TestValidate_QuantityCap(t *testing.T) {
	s := lineItemRequest{ID: "sku-1", Name: "Blue mug", Quantity: 1000}
	err := Validate(s)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Contains(t, fields["Quantity"], "999")
}

func TestDecodeAndValidate_Success(t *testing.T) {
	body := `{"ID":"sku-1","Name":"Blue mug","UnitPrice":1200,"Quantity":2}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var s lineItemRequest
	err := DecodeAndValidate(req, &s)

	require.NoError(t, err)
	assert.Equal(t, "sku-1", s.ID)
	assert.Equal(t, "Blue mug", s.Name)
	assert.Equal(t, int64(1200), s.UnitPrice)
}

func TestDecodeAndValidate_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{invalid"))

	var s lineItemRequest
	err := DecodeAndValidate(req, &s)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}

func TestDecodeAndValidate_ValidationFails(t *testing.T) {
	body := `{"ID":"","Name":"Blue mug","Quantity":2}`
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))

	var s lineItemRequest
	err := DecodeAndValidate(req, &s)

	require.Error(t, err)
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}
