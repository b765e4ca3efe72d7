package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/apigate/pkg/dispatch"
	"mercator-hq/apigate/pkg/params"
	"mercator-hq/apigate/pkg/proxy/types"
	"mercator-hq/apigate/pkg/request"
	"mercator-hq/apigate/pkg/requestlog"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		err    error
	}{
		{"valid", "Bearer pk_123", "pk_123", nil},
		{"lowercase scheme", "bearer pk_123", "pk_123", nil},
		{"missing", "", "", ErrMissingAuthorization},
		{"basic", "Basic abc", "", ErrMalformedAuthorization},
		{"no token", "Bearer ", "", ErrMalformedAuthorization},
		{"no space", "Bearerpk", "", ErrMalformedAuthorization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.header != "" {
				req.Header.Set(AuthorizationHeader, tt.header)
			}
			got, err := ExtractBearerToken(req)
			assert.Equal(t, tt.want, got)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestReadBodyLimit(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
	body, err := ReadBody(req, 10)
	require.NoError(t, err)
	assert.Len(t, body, 10)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789X"))
	_, err = ReadBody(req, 10)
	require.Error(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, HandleError(err).HTTPStatusCode())
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"missing auth", ErrMissingAuthorization, http.StatusUnauthorized},
		{"missing parameter", fmt.Errorf("build: %w", params.NewMissingParameterError("id", "id")), http.StatusBadRequest},
		{"no server", request.ErrNoServerConfigured, http.StatusBadRequest},
		{"log not found", requestlog.NewNotFoundError("p", "x"), http.StatusNotFound},
		{"dispatch failure", dispatch.NewError("GET", "http://o", errors.New("refused")), http.StatusBadGateway},
		{"dispatch timeout", dispatch.NewError("GET", "http://o", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"responder", &RequestError{Message: "bad", Code: types.CodeInvalidJSON}, http.StatusBadRequest},
		{"unknown", errors.New("secret detail"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := HandleError(tt.err)
			assert.Equal(t, tt.status, resp.HTTPStatusCode())
			assert.NotContains(t, resp.Message, "secret detail")
		})
	}
}

func TestWriteErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteErrorResponse(rec, types.NewUnauthorizedError("Missing authorization header")))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Missing authorization header", body["message"])
	assert.NotContains(t, body, "Status")
}
