package response

import (
	"errors"
	"net/http"

	domainErrors "github.com/yuzvak/checkout-service/internal/domain/errors"
)

type ErrorMapping struct {
	HTTPStatus int
	Status     Status
	Message    string
}

var errorMappings = []struct {
	err     error
	mapping ErrorMapping
}{
	{domainErrors.ErrSessionNotFound, ErrorMapping{http.StatusNotFound, StatusNotFound, "Checkout session not found"}},
	{domainErrors.ErrCheckoutInProgress, ErrorMapping{http.StatusConflict, StatusConflict, "Checkout submission already in progress"}},
	{domainErrors.ErrSubmissionLocked, ErrorMapping{http.StatusConflict, StatusConflict, "Checkout submission already in progress"}},
	{domainErrors.ErrInvalidStep, ErrorMapping{http.StatusConflict, StatusConflict, "Checkout is not on the summary step"}},
	{domainErrors.ErrReferenceConflict, ErrorMapping{http.StatusConflict, StatusConflict, "Checkout reference already used"}},
	{domainErrors.ErrEmptyCart, ErrorMapping{http.StatusUnprocessableEntity, StatusValidationError, "Tu carrito está vacío"}},
	{domainErrors.ErrUnknownField, ErrorMapping{http.StatusBadRequest, StatusValidationError, "Unknown form field"}},
	{domainErrors.ErrInvalidPaymentType, ErrorMapping{http.StatusBadRequest, StatusValidationError, "Payment type must be intent or direct"}},
	{domainErrors.ErrMissingPaymentToken, ErrorMapping{http.StatusUnprocessableEntity, StatusValidationError, "Payment method token is required"}},
	{domainErrors.ErrAuthExpired, ErrorMapping{http.StatusUnauthorized, StatusUnauthorized, "Sesión expirada"}},
}

func MapDomainError(err error) (int, *ErrorResponse) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.mapping.HTTPStatus, Error(m.mapping.Status, m.mapping.Message, err.Error())
		}
	}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp := Error(StatusValidationError, validationErr.Message, err.Error())
		resp.Field = validationErr.Field
		return http.StatusUnprocessableEntity, resp
	}

	var gatewayErr *domainErrors.GatewayError
	if errors.As(err, &gatewayErr) {
		return http.StatusBadGateway, Error(StatusBadGateway, gatewayErr.Message, err.Error())
	}

	var protocolErr *domainErrors.ProtocolViolationError
	if errors.As(err, &protocolErr) {
		return http.StatusBadGateway, Error(StatusBadGateway, "Unexpected payment backend response", err.Error())
	}

	var networkErr *domainErrors.NetworkError
	if errors.As(err, &networkErr) {
		return http.StatusServiceUnavailable, Error(StatusServiceUnavailable, "Payment backend unreachable", err.Error())
	}

	return http.StatusInternalServerError, Error(StatusInternalError, "Internal server error", err.Error())
}

func WriteDomainError(w http.ResponseWriter, err error) {
	statusCode, errorResponse := MapDomainError(err)
	WriteJSON(w, statusCode, errorResponse)
}
