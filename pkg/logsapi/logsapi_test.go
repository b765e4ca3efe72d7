package logsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/apigate/pkg/config"
	"mercator-hq/apigate/pkg/requestlog"
	"mercator-hq/apigate/pkg/requestlog/storage"
)

var baseTime = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T, token string) (*Handler, requestlog.Storage) {
	t.Helper()
	store := storage.NewMemoryStorage(0)
	t.Cleanup(func() { _ = store.Close() })

	h := NewHandler(store, config.LogsConfig{
		Token: token,
		Query: config.QueryConfig{DefaultLimit: 2, MaxLimit: 10},
	})
	h.now = func() time.Time { return baseTime }
	return h, store
}

func seed(t *testing.T, store requestlog.Storage, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		status := 200
		if i%2 == 1 {
			status = 502
		}
		require.NoError(t, store.Store(context.Background(), &requestlog.RequestLog{
			ID:           fmt.Sprintf("log-%d", i),
			ProjectID:    "proj_1",
			ClientID:     "petstore",
			Method:       "GET",
			StatusCode:   status,
			BaseURL:      "https://petstore.example.com",
			Path:         "/pets",
			ResponseBody: json.RawMessage(`{}`),
			IsCacheHit:   i == 0,
			CreatedAt:    baseTime.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func do(h *Handler, method, target, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestIngestStoresLog(t *testing.T) {
	h, store := newTestHandler(t, "ingest-secret")

	rec := do(h, http.MethodPost, "/proj_1", "ingest-secret",
		`{"method":"GET","statusCode":200,"baseUrl":"https://a.example.com","path":"/x","responseBody":{"ok":true}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created["id"])

	log, err := store.Get(context.Background(), "proj_1", created["id"])
	require.NoError(t, err)
	assert.Equal(t, "proj_1", log.ProjectID)
	assert.Equal(t, baseTime, log.CreatedAt.UTC())
	assert.JSONEq(t, `{"ok":true}`, string(log.ResponseBody))
}

func TestIngestKeepsSuppliedID(t *testing.T) {
	h, store := newTestHandler(t, "")

	rec := do(h, http.MethodPost, "/proj_1", "", `{"id":"fixed","method":"POST","statusCode":201}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	_, err := store.Get(context.Background(), "proj_1", "fixed")
	assert.NoError(t, err)
}

func TestIngestRejections(t *testing.T) {
	h, _ := newTestHandler(t, "ingest-secret")

	tests := []struct {
		name   string
		token  string
		body   string
		status int
	}{
		{"missing token", "", `{"method":"GET","statusCode":200}`, http.StatusUnauthorized},
		{"wrong token", "nope", `{"method":"GET","statusCode":200}`, http.StatusUnauthorized},
		{"invalid json", "ingest-secret", `{`, http.StatusBadRequest},
		{"missing fields", "ingest-secret", `{"path":"/x"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/proj_1", tt.token, tt.body)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestListPaginatesAndFilters(t *testing.T) {
	h, store := newTestHandler(t, "")
	seed(t, store, 5)

	rec := do(h, http.MethodGet, "/proj_1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(5), resp.Total)
	assert.Equal(t, 2, resp.Limit)
	require.Len(t, resp.Logs, 2)
	assert.Equal(t, "log-4", resp.Logs[0].ID, "newest first")

	rec = do(h, http.MethodGet, "/proj_1?status=error&sort=asc&limit=10", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.Total)
	require.Len(t, resp.Logs, 2)
	assert.Equal(t, "log-1", resp.Logs[0].ID)

	rec = do(h, http.MethodGet, "/proj_1?cache_hit=true", "", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Logs, 1)
	assert.Equal(t, "log-0", resp.Logs[0].ID)

	rec = do(h, http.MethodGet, "/other", "", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Logs)
	assert.Empty(t, resp.Logs)
}

func TestListRejectsBadQuery(t *testing.T) {
	h, _ := newTestHandler(t, "")

	for _, q := range []string{"limit=abc", "limit=11", "cache_hit=maybe", "start_time=yesterday", "status=meh", "sort=up"} {
		rec := do(h, http.MethodGet, "/proj_1?"+q, "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestGetLog(t *testing.T) {
	h, store := newTestHandler(t, "")
	seed(t, store, 2)

	rec := do(h, http.MethodGet, "/proj_1/log-1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var log requestlog.RequestLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &log))
	assert.Equal(t, 502, log.StatusCode)

	rec = do(h, http.MethodGet, "/proj_1/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(h, http.MethodGet, "/other/log-1", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportFormats(t *testing.T) {
	h, store := newTestHandler(t, "")
	seed(t, store, 3)

	rec := do(h, http.MethodGet, "/proj_1/export", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var logs []*requestlog.RequestLog
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	assert.Len(t, logs, 3, "export is not capped by the default page size")

	rec = do(h, http.MethodGet, "/proj_1/export?format=csv", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 4)

	rec = do(h, http.MethodGet, "/proj_1/export?format=xml", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
