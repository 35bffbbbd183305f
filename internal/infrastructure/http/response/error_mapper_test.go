package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/yuzvak/checkout-service/internal/domain/errors"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   Status
	}{
		{"not found", domainErrors.ErrSessionNotFound, http.StatusNotFound, StatusNotFound},
		{"in progress", domainErrors.ErrCheckoutInProgress, http.StatusConflict, StatusConflict},
		{"locked", domainErrors.ErrSubmissionLocked, http.StatusConflict, StatusConflict},
		{"invalid step", domainErrors.ErrInvalidStep, http.StatusConflict, StatusConflict},
		{"wrapped payment type", fmt.Errorf("%w: %q", domainErrors.ErrInvalidPaymentType, "x"), http.StatusBadRequest, StatusValidationError},
		{"validation", domainErrors.NewValidationError("expiry", "Fecha de expiración inválida"), http.StatusUnprocessableEntity, StatusValidationError},
		{"auth", domainErrors.ErrAuthExpired, http.StatusUnauthorized, StatusUnauthorized},
		{"gateway", &domainErrors.GatewayError{StatusCode: 500, Message: "HTTP error! status: 500"}, http.StatusBadGateway, StatusBadGateway},
		{"protocol", &domainErrors.ProtocolViolationError{Expected: "direct", Got: "intent"}, http.StatusBadGateway, StatusBadGateway},
		{"network", &domainErrors.NetworkError{Op: "create_checkout", Err: errors.New("refused")}, http.StatusServiceUnavailable, StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, StatusInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := MapDomainError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.kind, resp.Status)
		})
	}
}

func TestWriteDomainError_CarriesField(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteDomainError(rec, domainErrors.NewValidationError("number", "Número de tarjeta inválido"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "number", body.Field)
	assert.Equal(t, "Número de tarjeta inválido", body.Message)
}
