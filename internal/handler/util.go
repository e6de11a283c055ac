package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/relaydesk-ai/support-orchestrator/internal/apperr"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps domain errors onto HTTP statuses. Unclassified
// errors are reported as 500 without leaking internals.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, apperr.ErrUpstreamTimeout):
		writeError(w, http.StatusGatewayTimeout, "upstream timeout")
	case errors.Is(err, apperr.ErrUpstream):
		writeError(w, http.StatusBadGateway, "upstream error")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
