package grid

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingCredentials means the username/access key pair is not configured
	ErrMissingCredentials = errors.New("grid credentials not configured")
	// ErrSessionNotFound means the grid does not (yet) know the session
	ErrSessionNotFound = errors.New("session not found")
)

// StatusError is a non-2xx answer from the grid other than 404
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: grid returned %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: grid returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err means the session is not visible on the grid
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}

// IsUnauthorized reports whether the grid rejected the credentials
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && (se.StatusCode == http.StatusUnauthorized || se.StatusCode == http.StatusForbidden)
}
