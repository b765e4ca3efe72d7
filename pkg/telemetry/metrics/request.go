package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/apigate/pkg/config"
)

// RequestMetrics tracks inbound gateway calls and outbound dispatches.
//
// Metrics:
//   - apigate_gateway_requests_total: completed gateway calls by status class
//   - apigate_gateway_duration_seconds: receipt to response-ready latency
//   - apigate_gateway_rejections_total: calls rejected before dispatch
//   - apigate_gateway_dispatch_duration_seconds: origin call latency
type RequestMetrics struct {
	requestsTotal    *prometheus.CounterVec
	gatewayDuration  *prometheus.HistogramVec
	rejectionsTotal  *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
}

// NewRequestMetrics creates and registers request metrics.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of gateway calls answered",
			},
			[]string{"status_class"},
		),

		gatewayDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "duration_seconds",
				Help:      "Time from request receipt to final response ready",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"status_class"},
		),

		rejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rejections_total",
				Help:      "Total number of gateway calls rejected before dispatch",
			},
			[]string{"reason"},
		),

		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "dispatch_duration_seconds",
				Help:      "Duration of outbound origin calls",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"method", "status_class"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.gatewayDuration,
		rm.rejectionsTotal,
		rm.dispatchDuration,
	)

	return rm
}

// RecordGateway records a completed gateway call.
func (rm *RequestMetrics) RecordGateway(statusClass string, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(statusClass).Inc()
	rm.gatewayDuration.WithLabelValues(statusClass).Observe(duration.Seconds())
}

// RecordRejection records a rejected call.
func (rm *RequestMetrics) RecordRejection(reason string) {
	rm.rejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordDispatch records an origin call.
func (rm *RequestMetrics) RecordDispatch(method, statusClass string, duration time.Duration) {
	rm.dispatchDuration.WithLabelValues(method, statusClass).Observe(duration.Seconds())
}
