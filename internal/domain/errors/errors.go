package errors

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound    = errors.New("checkout session not found")
	ErrCheckoutInProgress = errors.New("checkout submission already in progress")
	ErrInvalidStep        = errors.New("checkout can only be submitted from the summary step")
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")

	ErrUnknownField       = errors.New("unknown form field")
	ErrInvalidPaymentType = errors.New("invalid payment type")

	ErrMissingPaymentToken = errors.New("payment method token is required for direct payment")
	ErrReferenceConflict   = errors.New("checkout reference already used")
	ErrSubmissionLocked    = errors.New("another submission holds the lock for this session")

	ErrAuthExpired = errors.New("session expired")
)

// ValidationError is a local input problem. It never reaches the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// GatewayError is a non-2xx or malformed reply from the payment backend.
type GatewayError struct {
	StatusCode int
	Message    string
}

func (e *GatewayError) Error() string {
	return e.Message
}

// ProtocolViolationError means the backend answered for a different payment flow than requested.
type ProtocolViolationError struct {
	Expected string
	Got      string
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("unexpected gateway response: expected %s payment, got %q", e.Expected, e.Got)
}

type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
