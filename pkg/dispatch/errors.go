package dispatch

import (
	"context"
	"errors"
	"fmt"
)

// Error is a failed origin call: the origin was unreachable, timed out,
// or its response could not be read.
type Error struct {
	Method string
	URL    string
	Err    error
}

// NewError creates a dispatch error.
func NewError(method, url string, err error) *Error {
	return &Error{Method: method, URL: url, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("dispatch %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call hit a deadline.
func (e *Error) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}
