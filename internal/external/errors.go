package external

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when a client has no base URL or API key.
var ErrNotConfigured = errors.New("external service not configured")

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.Code)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}
