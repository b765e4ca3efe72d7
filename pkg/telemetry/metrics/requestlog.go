package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/apigate/pkg/config"
)

// LogMetrics tracks request-log capture and delivery.
//
// Metrics:
//   - apigate_gateway_requestlog_captures_total: capture outcomes
//   - apigate_gateway_requestlog_writes_total: delivery attempts by result
//   - apigate_gateway_requestlog_write_duration_seconds: delivery latency
//   - apigate_gateway_requestlog_pruned_total: logs removed by retention
//   - apigate_gateway_requestlog_queue_depth: captures waiting for delivery
type LogMetrics struct {
	cfg      *config.MetricsConfig
	registry *prometheus.Registry


	capturesTotal *prometheus.CounterVec
	writesTotal   *prometheus.CounterVec
	writeDuration prometheus.Histogram
	prunedTotal   prometheus.Counter
}

// NewLogMetrics creates and registers request-log metrics.
func NewLogMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *LogMetrics {
	lm := &LogMetrics{
		cfg:      cfg,
		registry: registry,

		capturesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requestlog_captures_total",
				Help:      "Request-log capture outcomes",
			},
			[]string{"outcome"},
		),

		writesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requestlog_writes_total",
				Help:      "Request-log delivery attempts",
			},
			[]string{"result"},
		),

		writeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requestlog_write_duration_seconds",
				Help:      "Duration of request-log deliveries",
				Buckets:   cfg.DurationBuckets,
			},
		),

		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requestlog_pruned_total",
				Help:      "Request logs removed by retention",
			},
		),
	}

	registry.MustRegister(
		lm.capturesTotal,
		lm.writesTotal,
		lm.writeDuration,
		lm.prunedTotal,
	)

	return lm
}

// RecordCapture records a capture outcome.
func (lm *LogMetrics) RecordCapture(outcome string) {
	lm.capturesTotal.WithLabelValues(outcome).Inc()
}

// RecordWrite records a delivery attempt.
func (lm *LogMetrics) RecordWrite(success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	lm.writesTotal.WithLabelValues(result).Inc()
	lm.writeDuration.Observe(duration.Seconds())
}

// RecordPruned records pruned logs.
func (lm *LogMetrics) RecordPruned(n int64) {
	lm.prunedTotal.Add(float64(n))
}

// RegisterQueueDepth exposes depth as a gauge sampled at scrape time. Only
// the first registration takes effect.
func (lm *LogMetrics) RegisterQueueDepth(depth func() int) {
	gauge := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: lm.cfg.Namespace,
			Subsystem: lm.cfg.Subsystem,
			Name:      "requestlog_queue_depth",
			Help:      "Request-log captures waiting for delivery",
		},
		func() float64 { return float64(depth()) },
	)
	_ = lm.registry.Register(gauge)
}
