package client

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated is returned on any 401: the session cookie is missing or
// expired and the caller should send the user back through login.
var ErrUnauthenticated = errors.New("session expired or missing")

// APIError is a non-2xx response from the inventory backend, surfaced
// verbatim. The cache is never touched when one is returned.
type APIError struct {
	HTTPStatus int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error: http %d code %d: %s", e.HTTPStatus, e.Code, e.Message)
}
