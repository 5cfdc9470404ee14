// Package api wires the HTTP surface described in spec §6: pulse ingestion,
// config upsert, maintenance windows, and read-only status, routed with
// chi the way albapepper-scoracle-data's internal/api/server.go lays out
// its router and middleware chain.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/watchdog-hq/sentinel/internal/watchdog"
)

// errorResponse is the standard error shape for every API error.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps a core sentinel error (§7) to its HTTP status code.
// Anything else is an io_error, surfaced as 500; the underlying error is
// not logged here or by the handlers that call this.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, watchdog.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, watchdog.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, watchdog.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, watchdog.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errInvalidf("malformed request body: %v", err)
	}
	return nil
}
