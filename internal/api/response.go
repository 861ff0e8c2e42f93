package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/archiva-labs/doclib/internal/domain"
)

// SuccessResponse is the envelope for successful API responses.
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse is the envelope for error API responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON encodes data with the given status code. A nil body writes the
// status line only.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes data wrapped in the success envelope.
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes message wrapped in the error envelope.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps a domain error code to an HTTP status.
// Non-domain errors map to 500.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var derr *domain.DomainError
	if !errors.As(err, &derr) {
		return http.StatusInternalServerError
	}

	switch derr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeAlreadyExists, domain.ErrCodeInvalidOperation:
		return http.StatusConflict
	case domain.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleError maps err to a status code and writes the error envelope.
func HandleError(w http.ResponseWriter, err error) {
	Error(w, DomainErrorToHTTP(err), err.Error())
}
