package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/apigate/pkg/config"
	"mercator-hq/apigate/pkg/requestlog"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleLog(i int, projectID string) *requestlog.RequestLog {
	status := 200
	if i%3 == 0 {
		status = 500
	}
	return &requestlog.RequestLog{
		ID:              fmt.Sprintf("%s-%02d", projectID, i),
		ProjectID:       projectID,
		ClientID:        "github",
		OperationID:     "getRepo",
		Method:          "GET",
		StatusCode:      status,
		BaseURL:         "https://api.github.com",
		Path:            fmt.Sprintf("/repos/%d", i),
		Search:          "per_page=10",
		RequestHeaders:  map[string]string{"authorization": "Bearer ************"},
		ResponseHeaders: map[string]string{"content-type": "application/json"},
		ResponseBody:    json.RawMessage(`{"ok":true}`),
		IsCacheHit:      i%2 == 0,
		ResponseSize:    11,
		RequestDuration: 12.5,
		GatewayDuration: 15.25,
		CreatedAt:       baseTime.Add(time.Duration(i) * time.Minute),
	}
}

type backend struct {
	name string
	open func(t *testing.T) requestlog.Storage
}

func backends() []backend {
	sqliteWith := func(driver string) func(t *testing.T) requestlog.Storage {
		return func(t *testing.T) requestlog.Storage {
			s, err := NewSQLiteStorage(config.SQLiteConfig{
				Path:         filepath.Join(t.TempDir(), "logs.db"),
				Driver:       driver,
				MaxOpenConns: 1,
				WALMode:      true,
				BusyTimeout:  time.Second,
			})
			if err != nil && strings.Contains(err.Error(), "CGO_ENABLED=0") {
				t.Skip("cgo sqlite driver unavailable")
			}
			require.NoError(t, err)
			return s
		}
	}

	return []backend{
		{"memory", func(t *testing.T) requestlog.Storage { return NewMemoryStorage(0) }},
		{"sqlite-cgo", sqliteWith(DriverCGO)},
		{"sqlite-purego", sqliteWith(DriverPureGo)},
	}
}

func seed(t *testing.T, s requestlog.Storage, n int, projectID string) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, s.Store(context.Background(), sampleLog(i, projectID)))
	}
}

func TestStorageBackends(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			s := b.open(t)
			defer s.Close()

			seed(t, s, 10, "p1")
			seed(t, s, 2, "p2")

			t.Run("get round trip", func(t *testing.T) {
				got, err := s.Get(ctx, "p1", "p1-04")
				require.NoError(t, err)
				want := sampleLog(4, "p1")
				assert.Equal(t, want.Path, got.Path)
				assert.Equal(t, want.RequestHeaders, got.RequestHeaders)
				assert.JSONEq(t, `{"ok":true}`, string(got.ResponseBody))
				assert.True(t, got.IsCacheHit)
				assert.Equal(t, 15.25, got.GatewayDuration)
				assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
			})

			t.Run("get scoped to project", func(t *testing.T) {
				_, err := s.Get(ctx, "p2", "p1-04")
				var nf *requestlog.NotFoundError
				assert.True(t, errors.As(err, &nf))
			})

			t.Run("query newest first with pagination", func(t *testing.T) {
				logs, err := s.Query(ctx, &requestlog.Query{ProjectID: "p1", Limit: 3, Offset: 1, SortOrder: "desc"})
				require.NoError(t, err)
				require.Len(t, logs, 3)
				assert.Equal(t, "p1-08", logs[0].ID)
				assert.Equal(t, "p1-06", logs[2].ID)
			})

			t.Run("query filters", func(t *testing.T) {
				hit := true
				logs, err := s.Query(ctx, &requestlog.Query{ProjectID: "p1", Status: requestlog.StatusError, CacheHit: &hit})
				require.NoError(t, err)
				ids := make([]string, 0, len(logs))
				for _, l := range logs {
					ids = append(ids, l.ID)
				}
				assert.ElementsMatch(t, []string{"p1-00", "p1-06"}, ids)
			})

			t.Run("count", func(t *testing.T) {
				n, err := s.Count(ctx, &requestlog.Query{ProjectID: "p1", StatusCode: 200})
				require.NoError(t, err)
				assert.Equal(t, int64(6), n)
			})

			t.Run("stream", func(t *testing.T) {
				logsCh, errCh, err := s.QueryStream(ctx, &requestlog.Query{ProjectID: "p2"})
				require.NoError(t, err)
				var n int
				for range logsCh {
					n++
				}
				assert.NoError(t, <-errCh)
				assert.Equal(t, 2, n)
			})

			t.Run("delete by age", func(t *testing.T) {
				cutoff := baseTime.Add(4 * time.Minute)
				n, err := s.Delete(ctx, &requestlog.Query{EndTime: &cutoff})
				require.NoError(t, err)
				assert.Equal(t, int64(7), n) // p1 0..4, p2 0..1

				left, err := s.Count(ctx, &requestlog.Query{})
				require.NoError(t, err)
				assert.Equal(t, int64(5), left)
			})
		})
	}
}

func TestSQLiteRejectsUnknownDriver(t *testing.T) {
	_, err := NewSQLiteStorage(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "x.db"), Driver: "postgres"})
	var se *requestlog.StorageError
	assert.True(t, errors.As(err, &se))
}

func TestMemoryStorageCap(t *testing.T) {
	s := NewMemoryStorage(3)
	seed(t, s, 5, "p")

	n, err := s.Count(context.Background(), &requestlog.Query{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	_, err = s.Get(context.Background(), "p", "p-00")
	assert.Error(t, err)
	_, err = s.Get(context.Background(), "p", "p-04")
	assert.NoError(t, err)
}

func TestHTTPSinkPostsLog(t *testing.T) {
	var gotPath, gotAuth string
	var got requestlog.RequestLog
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL+"/", "ingest-token", time.Second, nil)
	require.NoError(t, sink.Write(context.Background(), "proj 1", sampleLog(1, "proj 1")))

	assert.Equal(t, "/logs/proj 1", gotPath)
	assert.Equal(t, "Bearer ingest-token", gotAuth)
	assert.Equal(t, "proj 1-01", got.ID)
	assert.Equal(t, 200, got.StatusCode)
}

func TestHTTPSinkNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewHTTPSink(srv.URL, "", time.Second, nil).Write(context.Background(), "p", sampleLog(1, "p"))
	var ie *requestlog.IngestError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, http.StatusUnauthorized, ie.StatusCode)
}

func TestFactories(t *testing.T) {
	st, err := New(config.LogStorageConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStorage{}, st)

	_, err = New(config.LogStorageConfig{Backend: "mongo"})
	assert.Error(t, err)

	sink, err := NewSink(config.LogsConfig{Mode: "embedded"}, st)
	require.NoError(t, err)
	assert.IsType(t, requestlog.StorageSink{}, sink)

	sink, err = NewSink(config.LogsConfig{Mode: "remote", Endpoint: "http://logs"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &HTTPSink{}, sink)

	_, err = NewSink(config.LogsConfig{Mode: "embedded"}, nil)
	assert.Error(t, err)
}
