// Package credentials matches an operation's security requirements against
// the credentials a project stored for an HTTP client and turns the match
// into outbound authentication headers.
package credentials

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/apigate/pkg/schema"
)

// UserAgent is sent on every outbound call that went through credential
// resolution.
const UserAgent = "APIHeroGateway/1.0-beta"

// Store lists the stored authentications for an HTTP client.
// Implementations must be safe for concurrent use.
type Store interface {
	ListAuthentications(ctx context.Context, clientID string) ([]schema.ClientAuthentication, error)
}

// Credential is a stored authentication paired with the scheme it satisfies.
type Credential struct {
	Scheme schema.SecurityScheme
	Auth   schema.ClientAuthentication
}

// Resolver finds the credential to use for an operation.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

// NewResolver creates a Resolver backed by store.
func NewResolver(store Store) *Resolver {
	return &Resolver{
		store:  store,
		logger: slog.Default().With("component", "credentials"),
	}
}

// ResolveCredential returns the first stored authentication matching one of
// the operation's security requirements, in requirement order. A nil
// Credential with a nil error means none matched and the call proceeds
// unauthenticated.
func (r *Resolver) ResolveCredential(ctx context.Context, clientID string, s *schema.Schema, op *schema.Operation) (*Credential, error) {
	if len(op.Security) == 0 {
		return nil, nil
	}

	auths, err := r.store.ListAuthentications(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list authentications for client %s: %w", clientID, err)
	}

	for _, req := range op.Security {
		for _, auth := range auths {
			if auth.SecuritySchemeID != req.SchemeID {
				continue
			}
			scheme, ok := s.SecurityScheme(req.SchemeID)
			if !ok {
				r.logger.Warn("authentication references unknown security scheme",
					"client_id", clientID,
					"scheme_id", req.SchemeID,
				)
				continue
			}
			return &Credential{Scheme: *scheme, Auth: auth}, nil
		}
	}

	r.logger.Debug("no stored authentication matched operation",
		"client_id", clientID,
		"operation_id", op.ID,
	)
	return nil, nil
}

// BuildAuthHeaders returns the outbound headers for a credential. Only HTTP
// basic and bearer schemes produce an Authorization header; User-Agent and
// Accept are always set.
func BuildAuthHeaders(cred *Credential) http.Header {
	h := http.Header{}
	h.Set("User-Agent", UserAgent)
	h.Set("Accept", "*/*")

	if cred == nil || cred.Scheme.Type != schema.SecurityTypeHTTP {
		return h
	}

	switch strings.ToLower(cred.Scheme.HTTPScheme) {
	case "basic":
		raw := cred.Auth.Username + ":" + cred.Auth.Password
		h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(raw)))
	case "bearer":
		if cred.Auth.Password != "" {
			h.Set("Authorization", "Bearer "+cred.Auth.Password)
		}
	}

	return h
}
