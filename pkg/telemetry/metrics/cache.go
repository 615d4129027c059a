package metrics

import (
	"tabula-hq/formula/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics tracks cache performance metrics.
//
// Metrics:
//   - formula_engine_cache_hits_total: Total cache hits by cache name
//   - formula_engine_cache_misses_total: Total cache misses by cache name
//   - formula_engine_cache_entries: Current number of entries in cache
//   - formula_engine_cache_evictions_total: Total cache evictions
type CacheMetrics struct {
	hitsTotal      *prometheus.CounterVec
	missesTotal    *prometheus.CounterVec
	entries        *prometheus.GaugeVec
	evictionsTotal *prometheus.CounterVec
}

// NewCacheMetrics creates and registers cache metrics with the provided registry.
func NewCacheMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CacheMetrics {
	cm := &CacheMetrics{
		hitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"cache"},
		),

		missesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cache_misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"cache"},
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
		cm.hitsTotal,
		cm.missesTotal,
		cm.entries,
		cm.evictionsTotal,
	)

	return cm
}

// RecordHit records a cache hit.
func (cm *CacheMetrics) RecordHit(cacheName string) {
	cm.hitsTotal.WithLabelValues(cacheName).Inc()
}

// RecordMiss records a cache miss.
func (cm *CacheMetrics) RecordMiss(cacheName string) {
	cm.missesTotal.WithLabelValues(cacheName).Inc()
}

// UpdateSize updates the current size of a cache.
func (cm *CacheMetrics) UpdateSize(cacheName string, size int) {
	cm.entries.WithLabelValues(cacheName).Set(float64(size))
}

// RecordEvictions adds count evictions.
//
// An eviction occurs when Cleanup drops an entry because it expired or
// because the cache kept only its most-hit entries.
func (cm *CacheMetrics) RecordEvictions(cacheName string, count int) {
	if count <= 0 {
		return
	}
	cm.evictionsTotal.WithLabelValues(cacheName).Add(float64(count))
}

// CacheRecorder binds a cache name to the collector. It implements the
// cache package's Metrics interface.
type CacheRecorder struct {
	name      string
	collector *Collector
}

// RecordHit implements cache.Metrics.
func (r *CacheRecorder) RecordHit() {
	if !r.collector.config.Enabled {
		return
	}
	r.collector.cacheMetrics.RecordHit(r.name)
}

// RecordMiss implements cache.Metrics.
func (r *CacheRecorder) RecordMiss() {
	if !r.collector.config.Enabled {
		return
	}
	r.collector.cacheMetrics.RecordMiss(r.name)
}

// RecordEviction implements cache.Metrics.
func (r *CacheRecorder) RecordEviction(count int) {
	if !r.collector.config.Enabled {
		return
	}
	r.collector.cacheMetrics.RecordEvictions(r.name, count)
}

// UpdateSize implements cache.Metrics.
func (r *CacheRecorder) UpdateSize(size int) {
	if !r.collector.config.Enabled {
		return
	}
	r.collector.cacheMetrics.UpdateSize(r.name, size)
}
