package response

import (
	"encoding/json"
	"net/http"
)

type Status string

const (
	StatusSuccess            Status = "success"
	StatusError              Status = "error"
	StatusValidationError    Status = "validation_error"
	StatusNotFound           Status = "not_found"
	StatusUnauthorized       Status = "unauthorized"
	StatusConflict           Status = "conflict"
	StatusBadGateway         Status = "bad_gateway"
	StatusInternalError      Status = "internal_error"
	StatusServiceUnavailable Status = "service_unavailable"
)

type BaseResponse struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

type DataResponse[T any] struct {
	BaseResponse
	Data T `json:"data"`
}

type ErrorResponse struct {
	BaseResponse
	Error string `json:"error,omitempty"`
	Field string `json:"field,omitempty"`
}

type ValidationErrorResponse struct {
	BaseResponse
	Errors map[string]string `json:"errors,omitempty"`
}

func Success[T any](data T, message ...string) *DataResponse[T] {
	resp := &DataResponse[T]{
		BaseResponse: BaseResponse{Status: StatusSuccess},
		Data:         data,
	}
	if len(message) > 0 {
		resp.Message = message[0]
	}
	return resp
}

func Error(status Status, message string, errorDetails ...string) *ErrorResponse {
	resp := &ErrorResponse{
		BaseResponse: BaseResponse{
			Status:  status,
			Message: message,
		},
	}
	if len(errorDetails) > 0 {
		resp.Error = errorDetails[0]
	}
	return resp
}

func ValidationError(message string, errors map[string]string) *ValidationErrorResponse {
	return &ValidationErrorResponse{
		BaseResponse: BaseResponse{
			Status:  StatusValidationError,
			Message: message,
		},
		Errors: errors,
	}
}

func WriteJSON(w http.ResponseWriter, statusCode int, response interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

func WriteSuccess[T any](w http.ResponseWriter, data T, message ...string) {
	WriteJSON(w, http.StatusOK, Success(data, message...))
}

func WriteCreated[T any](w http.ResponseWriter, data T, message ...string) {
	WriteJSON(w, http.StatusCreated, Success(data, message...))
}

func WriteError(w http.ResponseWriter, statusCode int, status Status, message string, errorDetails ...string) {
	WriteJSON(w, statusCode, Error(status, message, errorDetails...))
}

func WriteValidationError(w http.ResponseWriter, message string, errors map[string]string) {
	WriteJSON(w, http.StatusBadRequest, ValidationError(message, errors))
}
