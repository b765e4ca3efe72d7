package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/apigate/pkg/config"
)

// Collector owns every Prometheus metric apigate exports. A nil *Collector
// is valid and records nothing, so components can run without metrics.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics *RequestMetrics
	cacheMetrics   *CacheMetrics
	logMetrics     *LogMetrics
}

// NewCollector creates a collector registering into registry. A nil
// registry gets a fresh one.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = config.DefaultMetricsSubsystem
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}

	return &Collector{
		config:         cfg,
		registry:       registry,
		requestMetrics: NewRequestMetrics(cfg, registry),
		cacheMetrics:   NewCacheMetrics(cfg, registry),
		logMetrics:     NewLogMetrics(cfg, registry),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordGatewayRequest records a completed /gateway/run call with its final
// status and gateway duration.
func (c *Collector) RecordGatewayRequest(status int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.requestMetrics.RecordGateway(statusClass(status), duration)
}

// RecordRejection records a call rejected before dispatch.
// Reasons: "unauthorized", "not_found", "bad_request", "rate_limited".
func (c *Collector) RecordRejection(reason string) {
	if !c.enabled() {
		return
	}
	c.requestMetrics.RecordRejection(reason)
}

// RecordDispatch records one outbound origin call. A non-zero status means
// the origin answered; zero means a network error.
func (c *Collector) RecordDispatch(method string, status int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	class := "error"
	if status > 0 {
		class = statusClass(status)
	}
	c.requestMetrics.RecordDispatch(method, class, duration)
}

// RecordCacheStatus records the cache layer's verdict for one dispatch:
// "HIT", "MISS" or "BYPASS".
func (c *Collector) RecordCacheStatus(cacheName, status string) {
	if !c.enabled() {
		return
	}
	c.cacheMetrics.Record(cacheName, status)
}

// UpdateCacheSize updates the current number of entries in a cache.
func (c *Collector) UpdateCacheSize(cacheName string, size int) {
	if !c.enabled() {
		return
	}
	c.cacheMetrics.UpdateSize(cacheName, size)
}

// RecordCacheEviction records an entry evicted from a cache.
func (c *Collector) RecordCacheEviction(cacheName string) {
	if !c.enabled() {
		return
	}
	c.cacheMetrics.RecordEviction(cacheName)
}

// RecordLogCapture records the outcome of a request-log capture:
// "scheduled", "dropped" or a skip reason.
func (c *Collector) RecordLogCapture(outcome string) {
	if !c.enabled() {
		return
	}
	c.logMetrics.RecordCapture(outcome)
}

// RecordLogWrite records a request-log delivery attempt.
func (c *Collector) RecordLogWrite(success bool, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.logMetrics.RecordWrite(success, duration)
}

// RecordLogsPruned records request logs removed by retention.
func (c *Collector) RecordLogsPruned(n int64) {
	if !c.enabled() {
		return
	}
	c.logMetrics.RecordPruned(n)
}

// ObserveLogQueue reports the request-log delivery backlog returned by
// depth on every scrape.
func (c *Collector) ObserveLogQueue(depth func() int) {
	if !c.enabled() || depth == nil {
		return
	}
	c.logMetrics.RegisterQueueDepth(depth)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
