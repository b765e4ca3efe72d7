package relay

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/apigate/pkg/dispatch"
)

func TestRelayStripsAndAnnotates(t *testing.T) {
	origin := &dispatch.Result{
		StatusCode: http.StatusCreated,
		Header: http.Header{
			"Content-Type":      {"application/json"},
			"Content-Encoding":  {"gzip"},
			"Content-Length":    {"999"},
			"Server":            {"nginx"},
			"Location":          {"https://origin/items/1"},
			"X-Ratelimit-Limit": {"10"},
			"X-Fh-Cache-Status": {"MISS"},
		},
		Body: []byte(`{"id":1}`),
	}

	final := Relay(origin, "req_123", "http://app/debug")

	assert.Equal(t, http.StatusCreated, final.StatusCode)
	assert.Equal(t, `{"id":1}`, string(final.Body))
	assert.Equal(t, "req_123", final.Header.Get(RequestIDHeader))
	assert.Equal(t, "http://app/debug", final.Header.Get(DebugURIHeader))
	assert.Equal(t, "10", final.Header.Get("X-Ratelimit-Limit"))
	assert.Equal(t, "MISS", final.Header.Get("X-Fh-Cache-Status"))
	for _, h := range []string{"Content-Encoding", "Content-Length", "Server", "Location"} {
		assert.Empty(t, final.Header.Values(h), h)
	}

	// origin headers are untouched
	assert.Equal(t, "gzip", origin.Header.Get("Content-Encoding"))
}

func TestFinalResponseWriteTo(t *testing.T) {
	final := &FinalResponse{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"application/json"}, RequestIDHeader: {"abc"}},
		Body:       []byte(`{"ok":true}`),
	}

	rec := httptest.NewRecorder()
	require.NoError(t, final.WriteTo(rec))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "11", rec.Header().Get("Content-Length"))
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
}

func TestFinalResponseWriteToEmptyBody(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, (&FinalResponse{StatusCode: http.StatusNoContent, Header: http.Header{}}).WriteTo(rec))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestDebugURI(t *testing.T) {
	got := DebugURI("http://localhost:3000/", "acme", "store", "github", "get", "getRepo")
	assert.Equal(t, "http://localhost:3000/workspaces/acme/projects/store/github/GET/getRepo", got)

	got = DebugURI("https://app.example", "my ws", "p", "c", "POST", "op/1")
	assert.Equal(t, "https://app.example/workspaces/my%20ws/projects/p/c/POST/op%2F1", got)
}
