package secrets

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a provider has no value for a name.
var ErrNotFound = errors.New("secret not found")

// ResolveError reports a reference that no provider could satisfy.
type ResolveError struct {
	Name string
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("failed to resolve secret %q: %v", e.Name, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
