package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/apigate/pkg/schema"
)

type fakeStore struct {
	auths map[string][]schema.ClientAuthentication
	err   error
}

func (f *fakeStore) ListAuthentications(ctx context.Context, clientID string) ([]schema.ClientAuthentication, error) {
	return f.auths[clientID], f.err
}

func testSchema() *schema.Schema {
	return &schema.Schema{
		ID: "github",
		SecuritySchemes: []schema.SecurityScheme{
			{ID: "basicAuth", Type: schema.SecurityTypeHTTP, HTTPScheme: "basic"},
			{ID: "bearerAuth", Type: schema.SecurityTypeHTTP, HTTPScheme: "bearer"},
			{ID: "apiKey", Type: schema.SecurityTypeAPIKey},
		},
	}
}

func TestResolveCredentialFirstSatisfiedRequirement(t *testing.T) {
	store := &fakeStore{auths: map[string][]schema.ClientAuthentication{
		"c1": {
			{ClientID: "c1", SecuritySchemeID: "basicAuth", Username: "u", Password: "p"},
			{ClientID: "c1", SecuritySchemeID: "bearerAuth", Password: "tok"},
		},
	}}
	op := &schema.Operation{
		ID: "op",
		Security: []schema.SecurityRequirement{
			{SchemeID: "oauth"},
			{SchemeID: "bearerAuth"},
			{SchemeID: "basicAuth"},
		},
	}

	cred, err := NewResolver(store).ResolveCredential(context.Background(), "c1", testSchema(), op)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "bearerAuth", cred.Scheme.ID)
	assert.Equal(t, "tok", cred.Auth.Password)
}

func TestResolveCredentialNoMatch(t *testing.T) {
	store := &fakeStore{}
	op := &schema.Operation{Security: []schema.SecurityRequirement{{SchemeID: "basicAuth"}}}

	cred, err := NewResolver(store).ResolveCredential(context.Background(), "c1", testSchema(), op)
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestResolveCredentialStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	op := &schema.Operation{Security: []schema.SecurityRequirement{{SchemeID: "basicAuth"}}}

	_, err := NewResolver(store).ResolveCredential(context.Background(), "c1", testSchema(), op)
	assert.ErrorContains(t, err, "db down")
}

func TestBuildAuthHeaders(t *testing.T) {
	tests := []struct {
		name     string
		cred     *Credential
		wantAuth string
	}{
		{
			name: "basic",
			cred: &Credential{
				Scheme: schema.SecurityScheme{Type: schema.SecurityTypeHTTP, HTTPScheme: "basic"},
				Auth:   schema.ClientAuthentication{Username: "user", Password: "pass"},
			},
			wantAuth: "Basic dXNlcjpwYXNz",
		},
		{
			name: "bearer",
			cred: &Credential{
				Scheme: schema.SecurityScheme{Type: schema.SecurityTypeHTTP, HTTPScheme: "bearer"},
				Auth:   schema.ClientAuthentication{Password: "tok"},
			},
			wantAuth: "Bearer tok",
		},
		{
			name: "bearer without token",
			cred: &Credential{
				Scheme: schema.SecurityScheme{Type: schema.SecurityTypeHTTP, HTTPScheme: "bearer"},
			},
		},
		{
			name: "non http scheme",
			cred: &Credential{
				Scheme: schema.SecurityScheme{Type: schema.SecurityTypeAPIKey},
				Auth:   schema.ClientAuthentication{Password: "k"},
			},
		},
		{
			name: "no credential",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := BuildAuthHeaders(tt.cred)
			assert.Equal(t, tt.wantAuth, h.Get("Authorization"))
			assert.Equal(t, UserAgent, h.Get("User-Agent"))
			assert.Equal(t, "*/*", h.Get("Accept"))
		})
	}
}
