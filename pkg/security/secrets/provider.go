package secrets

import "context"

// Provider retrieves secrets from one backend.
type Provider interface {
	// GetSecret returns the named secret or ErrNotFound.
	GetSecret(ctx context.Context, name string) (string, error)

	// Name identifies the provider in logs.
	Name() string
}
