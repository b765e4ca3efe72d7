package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"mercator-hq/apigate/pkg/config"
	"mercator-hq/apigate/pkg/request"
	"mercator-hq/apigate/pkg/telemetry/metrics"
	"mercator-hq/apigate/pkg/telemetry/tracing"
)

// Result is the origin response plus timing and cache metadata.
type Result struct {
	URL        string
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte

	// RequestDuration is the wall-clock time of the dispatch call alone.
	RequestDuration time.Duration

	// CacheStatus is the value of the x-fh-cache-status header.
	CacheStatus string
	IsCacheHit  bool
}

// Dispatcher executes outbound requests once, through the cache layer.
// Failed calls are never retried.
type Dispatcher struct {
	client  *http.Client
	tracer  *tracing.Tracer
	metrics *metrics.Collector
	logger  *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTracer traces each dispatch.
func WithTracer(t *tracing.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = t }
}

// WithMetrics records dispatch metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(d *Dispatcher) { d.metrics = c }
}

// WithHTTPClient replaces the pooled client. The client's transport should
// already include the cache layer.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// NewDispatcher creates a Dispatcher whose pooled transport is wrapped by
// a CachingTransport over store. A nil store disables caching.
func NewDispatcher(cfg config.GatewayConfig, store Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		logger: slog.Default().With("component", "dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.client == nil {
		d.client = &http.Client{
			Transport: NewCachingTransport(otelhttp.NewTransport(NewPooledTransport(cfg)), store, d.metrics),
			Timeout:   cfg.DispatchTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return d
}

// NewPooledTransport creates the connection-pooling origin transport.
func NewPooledTransport(cfg config.GatewayConfig) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}

// Dispatch sends req to the origin. Network failures are returned as
// *Error.
func (d *Dispatcher) Dispatch(ctx context.Context, req *request.OutboundRequest, opts CacheOptions) (*Result, error) {
	ctx, span := d.tracer.Start(ctx, tracing.SpanDispatch)
	defer span.End()

	httpReq, err := req.HTTPRequest(WithCacheOptions(ctx, opts))
	if err != nil {
		tracing.SetError(span, err)
		return nil, NewError(req.Method, req.URL(), err)
	}

	start := time.Now()
	resp, err := d.client.Do(httpReq)
	if err != nil {
		duration := time.Since(start)
		d.metrics.RecordDispatch(req.Method, 0, duration)
		tracing.SetError(span, err)
		d.logger.Warn("origin request failed",
			"method", req.Method,
			"url", req.URL(),
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return nil, NewError(req.Method, req.URL(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	duration := time.Since(start)
	if err != nil {
		d.metrics.RecordDispatch(req.Method, 0, duration)
		tracing.SetError(span, err)
		return nil, NewError(req.Method, req.URL(), fmt.Errorf("read response body: %w", err))
	}

	result := &Result{
		URL:             req.URL(),
		StatusCode:      resp.StatusCode,
		Status:          resp.Status,
		Header:          resp.Header,
		Body:            body,
		RequestDuration: duration,
		CacheStatus:     resp.Header.Get(CacheStatusHeader),
	}
	result.IsCacheHit = result.CacheStatus == CacheHit

	d.metrics.RecordDispatch(req.Method, resp.StatusCode, duration)
	tracing.SetDispatchAttributes(span, result.URL, result.StatusCode, result.CacheStatus)
	tracing.SetHTTPStatus(span, result.StatusCode)

	d.logger.Debug("origin request completed",
		"method", req.Method,
		"url", result.URL,
		"status", result.StatusCode,
		"cache_status", result.CacheStatus,
		"duration_ms", duration.Milliseconds(),
	)

	return result, nil
}

// NewStore builds the configured cache backend. The "none" backend
// returns a nil Store.
func NewStore(ctx context.Context, cfg config.CacheConfig, collector *metrics.Collector) (Store, error) {
	switch cfg.Backend {
	case "memory", "":
		return NewMemoryStore(cfg.Memory.Capacity, collector), nil
	case "redis":
		return NewRedisStore(ctx, cfg.Redis)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
