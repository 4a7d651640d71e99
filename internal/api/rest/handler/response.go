package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/taskfi/marketplace/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSONResponse writes a JSON response with the given status code and data
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteErrorResponse writes an error response with the given status code and message
func WriteErrorResponse(w http.ResponseWriter, statusCode int, err, message string) {
	response := ErrorResponse{
		Error:   err,
		Message: message,
	}
	WriteJSONResponse(w, statusCode, response)
}

// WriteDomainError maps a business-rule failure onto its HTTP status.
// Anything that is not a *domain.Error is logged and reported as a generic
// internal error without leaking detail.
func WriteDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.Error("request_failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "internal_error", "An internal error occurred while processing your request")
		return
	}

	status := http.StatusBadRequest
	switch de.Kind {
	case domain.ErrUnauthorized:
		status = http.StatusUnauthorized
	case domain.ErrNotFound:
		status = http.StatusNotFound
	case domain.ErrInternal:
		logger.Error("request_failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "internal_error", "An internal error occurred while processing your request")
		return
	}

	WriteJSONResponse(w, status, ErrorResponse{
		Error:   de.Kind.String(),
		Message: de.Message,
		Details: de.Fields,
	})
}
