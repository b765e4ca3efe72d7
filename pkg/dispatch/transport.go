package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"mercator-hq/apigate/pkg/schema"
	"mercator-hq/apigate/pkg/telemetry/metrics"
)

// CacheStatusHeader reports how the cache layer handled a response.
const CacheStatusHeader = "x-fh-cache-status"

// Cache statuses.
const (
	CacheHit    = "HIT"
	CacheMiss   = "MISS"
	CacheBypass = "BYPASS"
)

// CacheOptions scopes and configures caching for one dispatch.
type CacheOptions struct {
	// Namespace isolates entries, typically one per HTTP client.
	Namespace string

	// Config is the client's cache policy.
	Config schema.CacheConfig
}

type cacheOptionsKey struct{}

// WithCacheOptions attaches cache options to a request context.
func WithCacheOptions(ctx context.Context, opts CacheOptions) context.Context {
	return context.WithValue(ctx, cacheOptionsKey{}, opts)
}

func cacheOptionsFrom(ctx context.Context) (CacheOptions, bool) {
	opts, ok := ctx.Value(cacheOptionsKey{}).(CacheOptions)
	return opts, ok
}

// CachingTransport is an http.RoundTripper that serves and stores
// responses through a Store. Only GET and HEAD requests carrying enabled
// CacheOptions in their context consult the store; everything else goes
// straight to Base and is marked BYPASS.
//
// A client with caching disabled is a full bypass: the store is neither
// read nor written and origin Cache-Control is ignored. For enabled
// clients a stored response lives for the client's TTL when set, otherwise
// for the origin's s-maxage or max-age. Origin no-store, private and
// no-cache always prevent storing.
type CachingTransport struct {
	Base    http.RoundTripper
	Store   Store
	Metrics *metrics.Collector

	logger *slog.Logger
}

// NewCachingTransport creates a CachingTransport. A nil base uses
// http.DefaultTransport.
func NewCachingTransport(base http.RoundTripper, store Store, collector *metrics.Collector) *CachingTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &CachingTransport{
		Base:    base,
		Store:   store,
		Metrics: collector,
		logger:  slog.Default().With("component", "dispatch.cache"),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *CachingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	opts, ok := cacheOptionsFrom(req.Context())
	if !ok || !opts.Config.Enabled || t.Store == nil || !cacheableMethod(req.Method) {
		return t.bypass(req)
	}

	key := cacheKey(opts.Namespace, req)

	entry, found, err := t.Store.Get(req.Context(), key)
	if err != nil {
		t.logger.Warn("cache lookup failed", "key", key, "error", err)
	}
	if found {
		t.record(CacheHit)
		return entry.response(req), nil
	}

	resp, err := t.Base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	ttl := t.ttlFor(opts.Config, resp)
	if ttl <= 0 {
		resp.Header.Set(CacheStatusHeader, CacheMiss)
		t.record(CacheMiss)
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read origin response: %w", err)
	}

	stored := &Entry{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header.Clone(),
		Body:       body,
		StoredAt:   time.Now().UTC(),
	}
	if err := t.Store.Set(req.Context(), key, stored, ttl); err != nil {
		t.logger.Warn("cache store failed", "key", key, "error", err)
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	resp.Header.Set(CacheStatusHeader, CacheMiss)
	t.record(CacheMiss)
	return resp, nil
}

func (t *CachingTransport) bypass(req *http.Request) (*http.Response, error) {
	resp, err := t.Base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Header.Set(CacheStatusHeader, CacheBypass)
	t.record(CacheBypass)
	return resp, nil
}

func (t *CachingTransport) record(status string) {
	name := "none"
	if t.Store != nil {
		name = t.Store.Name()
	}
	t.Metrics.RecordCacheStatus(name, status)
}

// ttlFor decides how long to keep resp for an enabled client. Zero means
// do not store.
func (t *CachingTransport) ttlFor(cfg schema.CacheConfig, resp *http.Response) time.Duration {
	if parseCacheControl(resp.Header).forbidsStore() {
		return 0
	}
	if cfg.TTL > 0 {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return 0
		}
		return time.Duration(cfg.TTL) * time.Second
	}
	if !cacheableStatus(resp.StatusCode) {
		return 0
	}
	return originTTL(resp.Header)
}

// response rebuilds an http.Response from a stored entry.
func (e *Entry) response(req *http.Request) *http.Response {
	h := e.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set(CacheStatusHeader, CacheHit)
	h.Set("Age", strconv.Itoa(int(time.Since(e.StoredAt).Seconds())))

	var body []byte
	if req.Method != http.MethodHead {
		body = e.Body
	}

	return &http.Response{
		Status:        e.Status,
		StatusCode:    e.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

func cacheKey(namespace string, req *http.Request) string {
	return namespace + ":" + req.Method + ":" + req.URL.String()
}

func cacheableMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// cacheableStatus lists the statuses heuristically cacheable by a shared
// cache.
func cacheableStatus(code int) bool {
	switch code {
	case http.StatusOK, http.StatusNonAuthoritativeInfo, http.StatusNoContent,
		http.StatusMultipleChoices, http.StatusMovedPermanently, http.StatusNotFound,
		http.StatusMethodNotAllowed, http.StatusGone, http.StatusRequestURITooLong,
		http.StatusNotImplemented:
		return true
	}
	return false
}
