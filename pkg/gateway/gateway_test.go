package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/apigate/pkg/catalog"
	"mercator-hq/apigate/pkg/config"
	"mercator-hq/apigate/pkg/dispatch"
	"mercator-hq/apigate/pkg/relay"
	"mercator-hq/apigate/pkg/request"
	"mercator-hq/apigate/pkg/requestlog"
	"mercator-hq/apigate/pkg/requestlog/recorder"
	"mercator-hq/apigate/pkg/requestlog/storage"
	"mercator-hq/apigate/pkg/schema"
	"mercator-hq/apigate/pkg/telemetry/metrics"
)

const projectKey = "pk_test_123"

type fixture struct {
	origin  *httptest.Server
	hits    atomic.Int32
	logs    *storage.MemoryStorage
	gateway *Gateway
	metrics *metrics.Collector
}

func newCatalog(t *testing.T, originURL string, cache schema.CacheConfig) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(&catalog.File{
		Projects: []schema.Project{{
			ID:            "proj_1",
			Key:           projectKey,
			Slug:          "demo",
			WorkspaceSlug: "acme",
			Clients: []schema.HTTPClient{
				{ID: "petstore", SchemaID: "petstore-v1", CacheConfig: cache},
				{ID: "orphan", SchemaID: "empty-v1"},
			},
		}},
		Schemas: []schema.Schema{
			{
				ID:              "petstore-v1",
				Servers:         []schema.Server{{URL: originURL}},
				SecuritySchemes: []schema.SecurityScheme{{ID: "bearerAuth", Type: schema.SecurityTypeHTTP, HTTPScheme: "bearer"}},
				Operations: []schema.Operation{
					{
						ID:     "getPet",
						Method: "get",
						Path:   "/pets/{id}",
						Parameters: []schema.Parameter{
							{Name: "id", In: schema.LocationPath, Required: true},
						},
						Security: []schema.SecurityRequirement{{SchemeID: "bearerAuth"}},
						ResponseBodies: []schema.ResponseBody{
							{StatusCode: "2XX", Contents: []schema.ResponseContent{
								{MediaTypeRange: "*/*", Schema: "Any"},
								{MediaTypeRange: "application/json", Schema: "Pet"},
							}},
							{StatusCode: "default", Contents: []schema.ResponseContent{
								{MediaTypeRange: "application/json", Schema: "Error"},
							}},
						},
					},
					{
						ID:     "listPets",
						Method: "get",
						Path:   "/pets",
						Parameters: []schema.Parameter{
							{Name: "tags", In: schema.LocationQuery, Style: schema.StyleForm, Explode: true},
						},
					},
				},
			},
			{ID: "empty-v1", Operations: []schema.Operation{{ID: "ping", Method: "get", Path: "/ping"}}},
		},
		Authentications: []schema.ClientAuthentication{
			{ClientID: "petstore", SecuritySchemeID: "bearerAuth", Password: "origin-secret"},
		},
	})
	require.NoError(t, err)
	return c
}

func newFixture(t *testing.T, cache schema.CacheConfig, handler http.HandlerFunc) *fixture {
	t.Helper()
	f := &fixture{logs: storage.NewMemoryStorage(0)}

	f.origin = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(f.origin.Close)

	f.metrics = metrics.NewCollector(&config.MetricsConfig{Enabled: true}, prometheus.NewRegistry())
	store := dispatch.NewMemoryStore(100, f.metrics)
	t.Cleanup(func() { _ = store.Close() })

	dispatcher := dispatch.NewDispatcher(config.GatewayConfig{
		DispatchTimeout:     2 * time.Second,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     time.Second,
	}, store, dispatch.WithMetrics(f.metrics))

	rec := recorder.New(requestlog.StorageSink{Storage: f.logs}, recorder.SyncScheduler{}, recorder.WithMetrics(f.metrics))
	cat := newCatalog(t, f.origin.URL, cache)

	f.gateway = New(cat, cat, dispatcher, rec,
		WithAppOrigin("https://app.example.com"),
		WithMetrics(f.metrics),
	)
	return f
}

func jsonOK(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func (f *fixture) call(t *testing.T, authorization, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/gateway/run", strings.NewReader(body))
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	f.gateway.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) storedLogs(t *testing.T) []*requestlog.RequestLog {
	t.Helper()
	logs, err := f.logs.Query(context.Background(), &requestlog.Query{SortOrder: "asc"})
	require.NoError(t, err)
	return logs
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Message
}

func TestGatewayRunEndToEnd(t *testing.T) {
	var gotPath, gotAuth, gotUA string
	f := newFixture(t, schema.CacheConfig{}, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotAuth, gotUA = r.URL.Path, r.Header.Get("Authorization"), r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Strict-Transport-Security", "max-age=63072000")
		w.Header().Set("X-Origin", "yes")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	rec := f.call(t, "Bearer "+projectKey, `{"endpoint":{"clientId":"petstore","id":"getPet"},"params":{"id":42}}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "/pets/42", gotPath)
	assert.Equal(t, "Bearer origin-secret", gotAuth)
	assert.Equal(t, "APIHeroGateway/1.0-beta", gotUA)

	requestID := rec.Header().Get(relay.RequestIDHeader)
	require.NotEmpty(t, requestID)
	assert.Equal(t, "https://app.example.com/workspaces/acme/projects/demo/petstore/GET/getPet", rec.Header().Get(relay.DebugURIHeader))
	assert.Equal(t, "yes", rec.Header().Get("X-Origin"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	logs := f.storedLogs(t)
	require.Len(t, logs, 1)
	log := logs[0]
	assert.Equal(t, requestID, log.ID)
	assert.Equal(t, "proj_1", log.ProjectID)
	assert.Equal(t, 200, log.StatusCode)
	assert.Equal(t, "/pets/42", log.Path)
	assert.False(t, log.IsCacheHit)
	assert.Equal(t, "Bearer ************", log.RequestHeaders["authorization"])
	for _, v := range log.RequestHeaders {
		assert.NotContains(t, v, "origin-secret")
	}
	assert.JSONEq(t, `{"ok":true}`, string(log.ResponseBody))
	assert.GreaterOrEqual(t, log.GatewayDuration, log.RequestDuration)
}

func TestGatewayRejectsMissingAuthorization(t *testing.T) {
	f := newFixture(t, schema.CacheConfig{}, jsonOK(`{}`))

	rec := f.call(t, "", `{"endpoint":{"clientId":"petstore","id":"getPet"},"params":{"id":42}}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, message(t, rec))
	assert.Zero(t, f.hits.Load())
	assert.Empty(t, f.storedLogs(t))
	assert.Equal(t, 1.0, rejections(t, f.metrics, ReasonUnauthorized))
}

func TestGatewayClientOutsideProjectIs404(t *testing.T) {
	f := newFixture(t, schema.CacheConfig{}, jsonOK(`{}`))

	rec := f.call(t, "Bearer "+projectKey, `{"endpoint":{"clientId":"github","id":"getRepo"}}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Client github not found", message(t, rec))
	assert.Zero(t, f.hits.Load())
	assert.Equal(t, 1.0, rejections(t, f.metrics, ReasonClientNotFound))
	assert.Zero(t, rejections(t, f.metrics, ReasonProjectNotFound))
}

func rejections(t *testing.T, c *metrics.Collector, reason string) float64 {
	t.Helper()
	families, err := c.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "apigate_gateway_rejections_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetValue() == reason {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestGatewayRejections(t *testing.T) {
	f := newFixture(t, schema.CacheConfig{}, jsonOK(`{}`))

	tests := []struct {
		name   string
		auth   string
		body   string
		status int
		text   string
	}{
		{"malformed authorization", "Token abc", `{"endpoint":{"clientId":"petstore","id":"getPet"}}`, http.StatusUnauthorized, "Bearer"},
		{"unknown key", "Bearer pk_nope", `{"endpoint":{"clientId":"petstore","id":"getPet"}}`, http.StatusUnauthorized, "petstore"},
		{"client not in project", "Bearer " + projectKey, `{"endpoint":{"clientId":"github","id":"x"}}`, http.StatusNotFound, "Client github not found"},
		{"invalid json", "Bearer " + projectKey, `{"endpoint":`, http.StatusBadRequest, "JSON"},
		{"missing endpoint id", "Bearer " + projectKey, `{"endpoint":{"clientId":"petstore"}}`, http.StatusBadRequest, "endpoint.id"},
		{"params not object", "Bearer " + projectKey, `{"endpoint":{"clientId":"petstore","id":"getPet"},"params":[1]}`, http.StatusBadRequest, "params"},
		{"unknown operation", "Bearer " + projectKey, `{"endpoint":{"clientId":"petstore","id":"deletePet"}}`, http.StatusBadRequest, "deletePet"},
		{"missing path parameter", "Bearer " + projectKey, `{"endpoint":{"clientId":"petstore","id":"getPet"},"params":{}}`, http.StatusBadRequest, `"id"`},
		{"no server configured", "Bearer " + projectKey, `{"endpoint":{"clientId":"orphan","id":"ping"}}`, http.StatusBadRequest, "no server configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.call(t, tt.auth, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Contains(t, message(t, rec), tt.text)
		})
	}

	assert.Zero(t, f.hits.Load(), "rejected calls never reach the origin")
	assert.Empty(t, f.storedLogs(t))
}

func TestGatewayCacheDisabledAlwaysReachesOrigin(t *testing.T) {
	f := newFixture(t, schema.CacheConfig{Enabled: false}, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "max-age=600")
		_, _ = w.Write([]byte(`[]`))
	})

	body := `{"endpoint":{"clientId":"petstore","id":"listPets"}}`
	for i := 0; i < 2; i++ {
		rec := f.call(t, "Bearer "+projectKey, body)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, int32(2), f.hits.Load())
}

func TestGatewayCacheEnabledServesHit(t *testing.T) {
	f := newFixture(t, schema.CacheConfig{Enabled: true, TTL: 60}, jsonOK(`[{"name":"rex"}]`))

	body := `{"endpoint":{"clientId":"petstore","id":"listPets"},"params":{"tags":["a","b"]}}`
	first := f.call(t, "Bearer "+projectKey, body)
	second := f.call(t, "Bearer "+projectKey, body)

	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, int32(1), f.hits.Load())
	assert.Equal(t, first.Body.String(), second.Body.String())

	assert.Equal(t, dispatch.CacheMiss, first.Header().Get(dispatch.CacheStatusHeader))
	assert.Equal(t, dispatch.CacheHit, second.Header().Get(dispatch.CacheStatusHeader))

	ctx := context.Background()
	firstLog, err := f.logs.Get(ctx, "proj_1", first.Header().Get(relay.RequestIDHeader))
	require.NoError(t, err)
	secondLog, err := f.logs.Get(ctx, "proj_1", second.Header().Get(relay.RequestIDHeader))
	require.NoError(t, err)
	assert.False(t, firstLog.IsCacheHit)
	assert.True(t, secondLog.IsCacheHit)
	assert.Equal(t, "tags=a&tags=b", secondLog.Search)
}

func TestGatewaySkipsLogForNonJSONResponse(t *testing.T) {
	f := newFixture(t, schema.CacheConfig{}, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("pong"))
	})

	rec := f.call(t, "Bearer "+projectKey, `{"endpoint":{"clientId":"petstore","id":"listPets"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(relay.RequestIDHeader))
	assert.Empty(t, f.storedLogs(t))
}

func TestGatewayRelaysOriginErrorsVerbatim(t *testing.T) {
	f := newFixture(t, schema.CacheConfig{}, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"no pet"}`))
	})

	rec := f.call(t, "Bearer "+projectKey, `{"endpoint":{"clientId":"petstore","id":"getPet"},"params":{"id":"7"}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"no pet"}`, rec.Body.String())

	logs := f.storedLogs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, 404, logs[0].StatusCode)
}

func TestGatewayNetworkFailureIs502(t *testing.T) {
	f := newFixture(t, schema.CacheConfig{}, jsonOK(`{}`))
	f.origin.Close()

	rec := f.call(t, "Bearer "+projectKey, `{"endpoint":{"clientId":"petstore","id":"getPet"},"params":{"id":1}}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotEmpty(t, message(t, rec))
	assert.Empty(t, f.storedLogs(t))
}

type failingLookup struct{}

func (failingLookup) GetProjectByKey(context.Context, string, string) (*schema.Project, bool, error) {
	return nil, false, errors.New("database down")
}

func (failingLookup) FindOperationData(context.Context, string, string) (*schema.OperationData, bool, error) {
	return nil, false, nil
}

func TestGatewayLookupFailureIs500(t *testing.T) {
	cat := newCatalog(t, "http://unused", schema.CacheConfig{})
	g := New(failingLookup{}, cat, dispatch.NewDispatcher(config.GatewayConfig{}, nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/gateway/run", strings.NewReader(`{"endpoint":{"clientId":"petstore","id":"getPet"}}`))
	req.Header.Set("Authorization", "Bearer "+projectKey)
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "database down")
}

func TestGatewayCustomServerSelector(t *testing.T) {
	f := newFixture(t, schema.CacheConfig{}, jsonOK(`{}`))
	other := httptest.NewServer(jsonOK(`{"from":"other"}`))
	defer other.Close()

	cat := newCatalog(t, f.origin.URL, schema.CacheConfig{})
	f.gateway = New(cat, cat,
		dispatch.NewDispatcher(config.GatewayConfig{DispatchTimeout: time.Second}, nil), nil,
		WithServerSelector(request.ServerSelectorFunc(func(*schema.Schema, *schema.Operation) (*schema.Server, error) {
			return &schema.Server{URL: other.URL}, nil
		})),
	)

	rec := f.call(t, "Bearer "+projectKey, `{"endpoint":{"clientId":"petstore","id":"listPets"}}`)
	assert.JSONEq(t, `{"from":"other"}`, rec.Body.String())
	assert.Zero(t, f.hits.Load())
}

func TestGatewayMatchesDocumentedResponse(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	f := newFixture(t, schema.CacheConfig{}, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{}`))
	})
	run := func(op string) *Result {
		in, verr := ParseInput([]byte(`{"endpoint":{"clientId":"petstore","id":"` + op + `"},"params":{"id":1}}`))
		require.Nil(t, verr)
		res, err := f.gateway.Run(context.Background(), projectKey, in, time.Now())
		require.NoError(t, err)
		return res
	}

	res := run("getPet")
	require.NotNil(t, res.ResponseContent)
	assert.Equal(t, "Pet", res.ResponseContent.Schema)

	status.Store(http.StatusNotFound)
	res = run("getPet")
	require.NotNil(t, res.ResponseContent)
	assert.Equal(t, "Error", res.ResponseContent.Schema)

	assert.Nil(t, run("listPets").ResponseContent)
}

func TestGatewayRespondsWhileLogDeliveryBlocks(t *testing.T) {
	origin := httptest.NewServer(jsonOK(`{"ok":true}`))
	t.Cleanup(origin.Close)

	release := make(chan struct{})
	var delivered atomic.Int32
	sink := requestlog.SinkFunc(func(ctx context.Context, _ string, _ *requestlog.RequestLog) error {
		select {
		case <-release:
			delivered.Add(1)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	rec := recorder.New(sink, recorder.NewDetachedScheduler(1, 4, 5*time.Second, 5*time.Second))

	cat := newCatalog(t, origin.URL, schema.CacheConfig{})
	dispatcher := dispatch.NewDispatcher(config.GatewayConfig{DispatchTimeout: 2 * time.Second}, nil)
	g := New(cat, cat, dispatcher, rec)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/gateway/run",
			strings.NewReader(`{"endpoint":{"clientId":"petstore","id":"getPet"},"params":{"id":42}}`))
		req.Header.Set("Authorization", "Bearer "+projectKey)
		w := httptest.NewRecorder()
		g.ServeHTTP(w, req)
		done <- w
	}()

	select {
	case w := <-done:
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("response waited for log delivery")
	}
	assert.Zero(t, delivered.Load(), "log is still pending when the caller has its response")

	close(release)
	require.NoError(t, rec.Close(context.Background()))
	assert.Equal(t, int32(1), delivered.Load())
}
