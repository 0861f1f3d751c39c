package m2m

import (
	"errors"
	"fmt"
)

// ErrNotLoggedIn is returned by calls that need an API key before Login.
var ErrNotLoggedIn = errors.New("M2M: not logged in")

// APIError is an M2M failure, either an errorCode in the envelope or an
// HTTP error status.
type APIError struct {
	Endpoint   string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("M2M %s: %s - %s", e.Endpoint, e.Code, e.Message)
	}
	return fmt.Sprintf("M2M %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}
