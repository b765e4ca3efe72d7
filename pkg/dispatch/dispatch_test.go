package dispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/apigate/pkg/config"
	"mercator-hq/apigate/pkg/request"
	"mercator-hq/apigate/pkg/schema"
	"mercator-hq/apigate/pkg/telemetry/metrics"
)

type countingOrigin struct {
	*httptest.Server
	hits atomic.Int32
}

func newOrigin(t *testing.T, handler http.HandlerFunc) *countingOrigin {
	t.Helper()
	o := &countingOrigin{}
	o.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(o.Close)
	return o
}

func jsonOK(cacheControl string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if cacheControl != "" {
			w.Header().Set("Cache-Control", cacheControl)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}
}

func testGatewayConfig() config.GatewayConfig {
	return config.GatewayConfig{
		DispatchTimeout:     5 * time.Second,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     time.Second,
	}
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(100, nil)
	t.Cleanup(func() { _ = store.Close() })
	return NewDispatcher(testGatewayConfig(), store), store
}

func outbound(method, url string) *request.OutboundRequest {
	return &request.OutboundRequest{
		Method:  method,
		BaseURL: url,
		Path:    "/items/42",
		Header:  http.Header{"Accept": {"*/*"}},
	}
}

func TestDispatchCacheEnabledServesHit(t *testing.T) {
	origin := newOrigin(t, jsonOK(""))
	d, store := newTestDispatcher(t)
	opts := CacheOptions{Namespace: "client-1", Config: schema.CacheConfig{Enabled: true, TTL: 60}}

	first, err := d.Dispatch(context.Background(), outbound(http.MethodGet, origin.URL), opts)
	require.NoError(t, err)
	assert.Equal(t, CacheMiss, first.CacheStatus)
	assert.False(t, first.IsCacheHit)
	assert.JSONEq(t, `{"ok":true}`, string(first.Body))

	second, err := d.Dispatch(context.Background(), outbound(http.MethodGet, origin.URL), opts)
	require.NoError(t, err)
	assert.Equal(t, CacheHit, second.CacheStatus)
	assert.True(t, second.IsCacheHit)
	assert.Equal(t, http.StatusOK, second.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(second.Body))

	assert.Equal(t, int32(1), origin.hits.Load())
	assert.Equal(t, 1, store.Len())
}

func TestDispatchCacheDisabledAlwaysReachesOrigin(t *testing.T) {
	for name, cc := range map[string]string{
		"no cache-control": "",
		"origin max-age":   "public, max-age=300",
	} {
		t.Run(name, func(t *testing.T) {
			origin := newOrigin(t, jsonOK(cc))
			d, store := newTestDispatcher(t)
			opts := CacheOptions{Namespace: "client-1", Config: schema.CacheConfig{Enabled: false}}

			for i := 0; i < 2; i++ {
				res, err := d.Dispatch(context.Background(), outbound(http.MethodGet, origin.URL), opts)
				require.NoError(t, err)
				assert.Equal(t, CacheBypass, res.CacheStatus)
				assert.False(t, res.IsCacheHit)
			}
			assert.Equal(t, int32(2), origin.hits.Load())
			assert.Zero(t, store.Len(), "disabled clients never store responses")
		})
	}
}

func TestDispatchNamespacesDoNotCollide(t *testing.T) {
	origin := newOrigin(t, jsonOK(""))
	d, _ := newTestDispatcher(t)
	cfg := schema.CacheConfig{Enabled: true, TTL: 60}

	_, err := d.Dispatch(context.Background(), outbound(http.MethodGet, origin.URL), CacheOptions{Namespace: "a", Config: cfg})
	require.NoError(t, err)
	res, err := d.Dispatch(context.Background(), outbound(http.MethodGet, origin.URL), CacheOptions{Namespace: "b", Config: cfg})
	require.NoError(t, err)

	assert.Equal(t, CacheMiss, res.CacheStatus)
	assert.Equal(t, int32(2), origin.hits.Load())
}

func TestDispatchPostIsNeverCached(t *testing.T) {
	origin := newOrigin(t, jsonOK(""))
	d, _ := newTestDispatcher(t)
	opts := CacheOptions{Namespace: "c", Config: schema.CacheConfig{Enabled: true, TTL: 60}}

	for i := 0; i < 2; i++ {
		res, err := d.Dispatch(context.Background(), outbound(http.MethodPost, origin.URL), opts)
		require.NoError(t, err)
		assert.Equal(t, CacheBypass, res.CacheStatus)
	}
	assert.Equal(t, int32(2), origin.hits.Load())
}

func TestDispatchOriginNoStoreWins(t *testing.T) {
	origin := newOrigin(t, jsonOK("no-store"))
	d, _ := newTestDispatcher(t)
	opts := CacheOptions{Namespace: "c", Config: schema.CacheConfig{Enabled: true, TTL: 60}}

	for i := 0; i < 2; i++ {
		res, err := d.Dispatch(context.Background(), outbound(http.MethodGet, origin.URL), opts)
		require.NoError(t, err)
		assert.Equal(t, CacheMiss, res.CacheStatus)
	}
	assert.Equal(t, int32(2), origin.hits.Load())
}

func TestDispatchEnabledWithoutTTLUsesOriginMaxAge(t *testing.T) {
	origin := newOrigin(t, jsonOK("max-age=60"))
	d, _ := newTestDispatcher(t)
	opts := CacheOptions{Namespace: "c", Config: schema.CacheConfig{Enabled: true}}

	_, err := d.Dispatch(context.Background(), outbound(http.MethodGet, origin.URL), opts)
	require.NoError(t, err)
	res, err := d.Dispatch(context.Background(), outbound(http.MethodGet, origin.URL), opts)
	require.NoError(t, err)

	assert.True(t, res.IsCacheHit)
	assert.Equal(t, int32(1), origin.hits.Load())
}

func TestDispatchErrorStatusNotStoredUnderClientTTL(t *testing.T) {
	origin := newOrigin(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	d, _ := newTestDispatcher(t)
	opts := CacheOptions{Namespace: "c", Config: schema.CacheConfig{Enabled: true, TTL: 60}}

	for i := 0; i < 2; i++ {
		res, err := d.Dispatch(context.Background(), outbound(http.MethodGet, origin.URL), opts)
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	}
	assert.Equal(t, int32(2), origin.hits.Load())
}

func TestDispatchNetworkError(t *testing.T) {
	origin := httptest.NewServer(http.NotFoundHandler())
	url := origin.URL
	origin.Close()

	d, _ := newTestDispatcher(t)
	_, err := d.Dispatch(context.Background(), outbound(http.MethodGet, url), CacheOptions{})
	require.Error(t, err)

	var dispatchErr *Error
	require.True(t, errors.As(err, &dispatchErr))
	assert.Equal(t, http.MethodGet, dispatchErr.Method)
	assert.Contains(t, dispatchErr.URL, "/items/42")
}

func TestDispatchTimeout(t *testing.T) {
	origin := newOrigin(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	cfg := testGatewayConfig()
	cfg.DispatchTimeout = 20 * time.Millisecond
	d := NewDispatcher(cfg, nil)

	_, err := d.Dispatch(context.Background(), outbound(http.MethodGet, origin.URL), CacheOptions{})
	var dispatchErr *Error
	require.True(t, errors.As(err, &dispatchErr))
	assert.True(t, dispatchErr.Timeout())
}

func TestDispatchRecordsMetrics(t *testing.T) {
	origin := newOrigin(t, jsonOK(""))
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true}, registry)
	store := NewMemoryStore(10, collector)
	t.Cleanup(func() { _ = store.Close() })

	d := NewDispatcher(testGatewayConfig(), store, WithMetrics(collector))
	opts := CacheOptions{Namespace: "m", Config: schema.CacheConfig{Enabled: true, TTL: 60}}
	for i := 0; i < 3; i++ {
		_, err := d.Dispatch(context.Background(), outbound(http.MethodGet, origin.URL), opts)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), origin.hits.Load())

	series, err := testutil.GatherAndCount(registry, "apigate_gateway_cache_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series)
}

func TestOriginTTL(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", 0},
		{"max-age=30", 30 * time.Second},
		{"public, max-age=30, s-maxage=90", 90 * time.Second},
		{"private, max-age=30", 0},
		{"no-cache", 0},
		{"max-age=abc", 0},
	}
	for _, tt := range tests {
		h := http.Header{}
		if tt.header != "" {
			h.Set("Cache-Control", tt.header)
		}
		assert.Equal(t, tt.want, originTTL(h), tt.header)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(0, nil)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", &Entry{StatusCode: 200, Body: []byte("x")}, 20*time.Millisecond))

	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("x"), got.Body)

	time.Sleep(50 * time.Millisecond)
	_, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewStoreBackends(t *testing.T) {
	s, err := NewStore(context.Background(), config.CacheConfig{Backend: "none"}, nil)
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = NewStore(context.Background(), config.CacheConfig{Backend: "memory"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Name())
	_ = s.Close()

	_, err = NewStore(context.Background(), config.CacheConfig{Backend: "disk"}, nil)
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("APIGATE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("APIGATE_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	store, err := NewRedisStore(ctx, config.RedisConfig{Address: addr, KeyPrefix: "apigate-test:"})
	require.NoError(t, err)
	defer store.Close()

	entry := &Entry{StatusCode: 200, Status: "200 OK", Header: http.Header{"Content-Type": {"application/json"}}, Body: []byte(`{}`)}
	require.NoError(t, store.Set(ctx, "k", entry, time.Minute))

	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry.Body, got.Body)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))

	_, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
