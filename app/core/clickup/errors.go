package clickup

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the requested team/space/folder/list/task does not exist.
	ErrNotFound = errors.New("clickup: not found")
	// ErrAuth means the API token was rejected.
	ErrAuth = errors.New("clickup: authentication failed")
	// ErrRateLimited means the API asked us to back off.
	ErrRateLimited = errors.New("clickup: rate limited")
)

// APIError is a non-2xx response that does not map to a sentinel error.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clickup: api status=%d body=%s", e.Status, e.Body)
}

// TransportError wraps a network-level failure reaching the API.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("clickup: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
