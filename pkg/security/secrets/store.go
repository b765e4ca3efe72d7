package secrets

import (
	"context"

	"mercator-hq/apigate/pkg/credentials"
	"mercator-hq/apigate/pkg/schema"
)

// CredentialStore resolves secret references in the authentications
// returned by an underlying store.
type CredentialStore struct {
	store   credentials.Store
	manager *Manager
}

// NewCredentialStore wraps store.
func NewCredentialStore(store credentials.Store, manager *Manager) *CredentialStore {
	return &CredentialStore{store: store, manager: manager}
}

// ListAuthentications implements credentials.Store. The returned slice is
// a copy; the wrapped store's values are never modified.
func (s *CredentialStore) ListAuthentications(ctx context.Context, clientID string) ([]schema.ClientAuthentication, error) {
	auths, err := s.store.ListAuthentications(ctx, clientID)
	if err != nil {
		return nil, err
	}

	resolved := make([]schema.ClientAuthentication, len(auths))
	for i, auth := range auths {
		if auth.Username, err = s.resolve(ctx, auth.Username); err != nil {
			return nil, err
		}
		if auth.Password, err = s.resolve(ctx, auth.Password); err != nil {
			return nil, err
		}
		resolved[i] = auth
	}
	return resolved, nil
}

func (s *CredentialStore) resolve(ctx context.Context, value string) (string, error) {
	if !HasReference(value) {
		return value, nil
	}
	return s.manager.ResolveReferences(ctx, value)
}

var _ credentials.Store = (*CredentialStore)(nil)
