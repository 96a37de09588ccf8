package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized   = errors.New("backend: unauthorized")
	ErrForbidden      = errors.New("backend: forbidden")
	ErrNotFound       = errors.New("backend: not found")
	ErrInvalidRequest = errors.New("backend: invalid request")
)

// APIError is a non-2xx backend response. Detail carries the FastAPI
// "detail" string when the body has one.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
}

// Unwrap maps the status onto a package sentinel so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrInvalidRequest
	default:
		return nil
	}
}
