package request

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/apigate/pkg/credentials"
	"mercator-hq/apigate/pkg/params"
	"mercator-hq/apigate/pkg/schema"
)

func githubSchema() *schema.Schema {
	return &schema.Schema{
		ID:      "github",
		Servers: []schema.Server{{URL: "https://api.github.com/"}, {URL: "https://backup.example.com"}},
	}
}

func TestBuildGetWithPathAndQuery(t *testing.T) {
	op := &schema.Operation{
		ID:     "getRepo",
		Method: "get",
		Path:   "/items/{id}",
		Parameters: []schema.Parameter{
			{Name: "id", In: schema.LocationPath, Required: true},
			{Name: "tags", In: schema.LocationQuery, Style: schema.StyleForm, Explode: true},
		},
	}

	out, err := NewBuilder(nil).Build(githubSchema(), op, params.Values{
		"id":   "42",
		"tags": []interface{}{"a", "b"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "GET", out.Method)
	assert.Equal(t, "https://api.github.com/items/42?tags=a&tags=b", out.URL())
	assert.Nil(t, out.Body)
	assert.Empty(t, out.Header.Get("Content-Type"))
	assert.Equal(t, credentials.UserAgent, out.Header.Get("User-Agent"))
	assert.Equal(t, "*/*", out.Header.Get("Accept"))
}

func TestBuildWithBodyAndCredential(t *testing.T) {
	op := &schema.Operation{
		ID:          "createIssue",
		Method:      "POST",
		Path:        "/issues",
		RequestBody: &schema.RequestBodyMapping{Name: "body"},
		Mappings:    []schema.Mapping{{Name: "body", MappedName: "issue"}},
	}
	cred := &credentials.Credential{
		Scheme: schema.SecurityScheme{ID: "bearerAuth", Type: schema.SecurityTypeHTTP, HTTPScheme: "bearer"},
		Auth:   schema.ClientAuthentication{Password: "tok"},
	}

	out, err := NewBuilder(nil).Build(githubSchema(), op, params.Values{
		"issue": map[string]interface{}{"title": "hi"},
	}, cred)
	require.NoError(t, err)

	assert.Equal(t, `{"title":"hi"}`, string(out.Body))
	assert.Equal(t, JSONContentType, out.Header.Get("Content-Type"))
	assert.Equal(t, "Bearer tok", out.Header.Get("Authorization"))

	req, err := out.HTTPRequest(context.Background())
	require.NoError(t, err)
	got, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"hi"}`, string(got))
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
}

func TestBuildMissingPathParameter(t *testing.T) {
	op := &schema.Operation{
		Method:     "GET",
		Path:       "/items/{id}",
		Parameters: []schema.Parameter{{Name: "id", In: schema.LocationPath, Required: true}},
	}

	_, err := NewBuilder(nil).Build(githubSchema(), op, params.Values{}, nil)
	var missing *params.MissingParameterError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "id", missing.Name)
}

func TestBuildNoServer(t *testing.T) {
	op := &schema.Operation{Method: "GET", Path: "/"}

	_, err := NewBuilder(nil).Build(&schema.Schema{ID: "empty"}, op, nil, nil)
	assert.ErrorIs(t, err, ErrNoServerConfigured)
}

func TestBuildCustomSelector(t *testing.T) {
	op := &schema.Operation{Method: "GET", Path: "/ping"}
	last := ServerSelectorFunc(func(s *schema.Schema, _ *schema.Operation) (*schema.Server, error) {
		return &s.Servers[len(s.Servers)-1], nil
	})

	out, err := NewBuilder(last).Build(githubSchema(), op, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://backup.example.com/ping", out.URL())
}
