package watchdog

import "errors"

// Sentinel errors surfaced by core operations. The API layer maps these to
// HTTP status codes; the sweeper and pruner have no caller to report to and
// log them instead.
var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	ErrConflict       = errors.New("conflict")
)
