package salesapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized       = errors.New("sales api: unauthorized")
	ErrForbidden          = errors.New("sales api: forbidden")
	ErrServiceUnavailable = errors.New("sales api: service unavailable")
)

// APIError is a non-2xx answer from the sales API. Message is the
// human-readable text the API put in its error body, if any.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("sales api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("sales api: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case e.StatusCode >= http.StatusInternalServerError:
		return ErrServiceUnavailable
	default:
		return nil
	}
}

// Message extracts the API's error text from err, if it carries one.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
