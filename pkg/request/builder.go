// Package request composes a fully formed outbound HTTP request from an
// operation descriptor, the caller's params and a resolved credential.
package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mercator-hq/apigate/pkg/credentials"
	"mercator-hq/apigate/pkg/params"
	"mercator-hq/apigate/pkg/schema"
)

// JSONContentType is set on outbound requests that carry a body.
const JSONContentType = "application/json; charset=utf-8"

// ErrNoServerConfigured is returned when a schema lists no servers.
var ErrNoServerConfigured = errors.New("no server configured for schema")

// ServerSelector picks the base server an operation is sent to.
type ServerSelector interface {
	SelectServer(s *schema.Schema, op *schema.Operation) (*schema.Server, error)
}

// ServerSelectorFunc adapts a function to ServerSelector.
type ServerSelectorFunc func(s *schema.Schema, op *schema.Operation) (*schema.Server, error)

// SelectServer calls f(s, op).
func (f ServerSelectorFunc) SelectServer(s *schema.Schema, op *schema.Operation) (*schema.Server, error) {
	return f(s, op)
}

// FirstServer selects the first server the schema declares.
var FirstServer ServerSelector = ServerSelectorFunc(func(s *schema.Schema, _ *schema.Operation) (*schema.Server, error) {
	if len(s.Servers) == 0 || strings.TrimSpace(s.Servers[0].URL) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoServerConfigured, s.ID)
	}
	return &s.Servers[0], nil
})

// OutboundRequest is the request the gateway sends to the origin.
type OutboundRequest struct {
	Method  string
	BaseURL string
	Path    string
	Query   string // encoded, without the leading "?"
	Header  http.Header
	Body    []byte
}

// URL returns the absolute request URL.
func (r *OutboundRequest) URL() string {
	u := r.BaseURL + r.Path
	if r.Query != "" {
		u += "?" + r.Query
	}
	return u
}

// HTTPRequest materializes the outbound request bound to ctx.
func (r *OutboundRequest) HTTPRequest(ctx context.Context) (*http.Request, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = r.Header.Clone()
	return req, nil
}

// Builder builds outbound requests.
type Builder struct {
	selector ServerSelector
}

// NewBuilder creates a Builder. A nil selector means FirstServer.
func NewBuilder(selector ServerSelector) *Builder {
	if selector == nil {
		selector = FirstServer
	}
	return &Builder{selector: selector}
}

// Build combines the selected server with the serialized path, query,
// headers and body. Errors are caller-input errors: a
// *params.MissingParameterError or ErrNoServerConfigured.
func (b *Builder) Build(s *schema.Schema, op *schema.Operation, values params.Values, cred *credentials.Credential) (*OutboundRequest, error) {
	server, err := b.selector.SelectServer(s, op)
	if err != nil {
		return nil, err
	}

	path, err := params.BuildPath(op, values)
	if err != nil {
		return nil, err
	}

	query, err := params.BuildQuery(op, values)
	if err != nil {
		return nil, err
	}

	body, err := params.BuildBody(op, values)
	if err != nil {
		return nil, err
	}

	header := params.BuildHeaders(op, values)
	for name, vals := range credentials.BuildAuthHeaders(cred) {
		header[name] = vals
	}
	if body != nil {
		header.Set("Content-Type", JSONContentType)
	}

	return &OutboundRequest{
		Method:  op.UpperMethod(),
		BaseURL: strings.TrimRight(server.URL, "/"),
		Path:    path,
		Query:   query.Encode(),
		Header:  header,
		Body:    body,
	}, nil
}
