package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/smartegg/smartegg-core/internal/actuator"
	"github.com/smartegg/smartegg-core/internal/alert"
	"github.com/smartegg/smartegg-core/internal/auth"
	"github.com/smartegg/smartegg-core/internal/incubation"
	"github.com/smartegg/smartegg-core/internal/ingest"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps a domain sentinel to its HTTP status. Anything
// unrecognised is logged and reported as a generic 500 with fallback.
func (s *Server) writeDomainError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ingest.ErrUnauthorized),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrTokenInvalid):
		writeUnauthorized(w, err.Error())

	case errors.Is(err, incubation.ErrIncubationNotFound),
		errors.Is(err, incubation.ErrNoReadings),
		errors.Is(err, actuator.ErrActuatorNotFound),
		errors.Is(err, alert.ErrAlertNotFound),
		errors.Is(err, auth.ErrUserNotFound):
		writeNotFound(w, err.Error())

	case errors.Is(err, ingest.ErrInvalidReading),
		errors.Is(err, incubation.ErrInvalidIncubation),
		errors.Is(err, incubation.ErrInvalidHistoryRange),
		errors.Is(err, auth.ErrInvalidUser):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())

	case errors.Is(err, auth.ErrEmailExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())

	default:
		s.logger.Error(fallback, "error", err)
		writeInternalError(w, fallback)
	}
}
