package api

import (
	"fmt"

	"github.com/watchdog-hq/sentinel/internal/watchdog"
)

// errInvalidf wraps watchdog.ErrInvalidRequest with a formatted detail, the
// same way the ingestor and registry build their invalid_request errors.
func errInvalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", watchdog.ErrInvalidRequest, fmt.Sprintf(format, args...))
}
