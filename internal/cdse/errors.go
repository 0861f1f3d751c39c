package cdse

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnsupportedCollection is returned for product types and collections
	// the catalogue search does not handle.
	ErrUnsupportedCollection = errors.New("unsupported data collection")

	// ErrNoCredentials is returned when a download is attempted without a
	// username and password.
	ErrNoCredentials = errors.New("CDSE credentials not configured")
)

// StatusError is a non-2xx response from one of the CDSE endpoints.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: CDSE returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: CDSE returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout,
		http.StatusTooManyRequests:
		return true
	}
	return false
}
