package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/apigate/pkg/config"
)

// CacheMetrics tracks the HTTP response cache.
//
// Metrics:
//   - apigate_gateway_cache_lookups_total: dispatches by cache status (HIT, MISS, BYPASS)
//   - apigate_gateway_cache_entries: current number of entries
//   - apigate_gateway_cache_evictions_total: entries evicted
type CacheMetrics struct {
	lookupsTotal   *prometheus.CounterVec
	entries        *prometheus.GaugeVec
	evictionsTotal *prometheus.CounterVec
}

// NewCacheMetrics creates and registers cache metrics.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_lookups_total",
				Help:      "Total number of dispatches by cache status",
			},
			[]string{"cache", "status"},
		),

		entries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_entries",
				Help:      "Current number of entries in cache",
			},
			[]string{"cache"},
		),

		evictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_evictions_total",
				Help:      "Total number of cache evictions",
			},
			[]string{"cache"},
		),
	}

	registry.MustRegister(
		cm.lookupsTotal,
		cm.entries,
		cm.evictionsTotal,
	)

	return cm
}

// Record records one cache verdict.
func (cm *CacheMetrics) Record(cacheName, status string) {
	cm.lookupsTotal.WithLabelValues(cacheName, status).Inc()
}

// UpdateSize sets the current cache size.
func (cm *CacheMetrics) UpdateSize(cacheName string, size int) {
	cm.entries.WithLabelValues(cacheName).Set(float64(size))
}

// RecordEviction records an eviction.
func (cm *CacheMetrics) RecordEviction(cacheName string) {
	cm.evictionsTotal.WithLabelValues(cacheName).Inc()
}
