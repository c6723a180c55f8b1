// Package api implements the admin HTTP surface and the proxy server wiring
// for llm-router.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/omarluq/llm-router/internal/registry"
	"github.com/omarluq/llm-router/internal/settings"
	"github.com/omarluq/llm-router/internal/store"
)

// ErrorResponse is the JSON envelope for every error reply.
type ErrorResponse struct {
	Type  string      `json:"type"`
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error type and message.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, errorType, message string) {
	response := ErrorResponse{
		Type: "error",
		Error: ErrorDetail{
			Type:    errorType,
			Message: message,
		},
	}

	writeJSON(w, statusCode, response)
}

// WriteDomainError maps registry, settings and store errors onto HTTP
// statuses. Unrecognized errors become 500s.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, settings.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found_error", err.Error())
	case errors.Is(err, registry.ErrDuplicate):
		WriteError(w, http.StatusConflict, "duplicate_error", err.Error())
	case errors.Is(err, registry.ErrImmutable):
		WriteError(w, http.StatusConflict, "immutable_field_error", err.Error())
	case errors.Is(err, registry.ErrInvalidSpec), errors.Is(err, settings.ErrInvalidValue):
		WriteError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
	case errors.Is(err, store.ErrUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "storage_error", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// IsBodyTooLargeError checks if an error is from http.MaxBytesReader.
func IsBodyTooLargeError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

// WriteBodyTooLargeError writes a 413 Request Entity Too Large response.
func WriteBodyTooLargeError(w http.ResponseWriter) {
	WriteError(w, http.StatusRequestEntityTooLarge, "request_too_large",
		"Request body exceeds the maximum allowed size")
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if IsBodyTooLargeError(err) {
			WriteBodyTooLargeError(w)
			return false
		}
		WriteError(w, http.StatusBadRequest, "invalid_request_error",
			"request body is not valid JSON: "+err.Error())
		return false
	}
	return true
}
