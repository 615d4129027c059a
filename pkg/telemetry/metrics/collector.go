package metrics

import (
	"sync"
	"time"

	"tabula-hq/formula/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultMaxCardinality bounds the number of distinct column labels.
const DefaultMaxCardinality = 10000

// OtherColumn is the label value used once the column cardinality limit is
// reached.
const OtherColumn = "other"

// Collector owns every Prometheus metric of the engine. It satisfies the
// engine's metrics hook and hands out cache recorders.
//
// All Record* methods are no-ops when metrics are disabled in the
// configuration.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	calculationMetrics *CalculationMetrics
	cacheMetrics       *CacheMetrics
	batchMetrics       *BatchMetrics

	// Number of running workers
	workers prometheus.Gauge

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector with the specified configuration and
// registers its metrics with registry. A nil registry gets a fresh one.
//
// Example:
//
//	cfg := &config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "formula",
//		Subsystem: "engine",
//	}
//	collector := metrics.NewCollector(cfg, nil)
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

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(DefaultMaxCardinality),
	}

	c.calculationMetrics = NewCalculationMetrics(cfg, registry)
	c.cacheMetrics = NewCacheMetrics(cfg, registry)
	c.batchMetrics = NewBatchMetrics(cfg, registry)

	c.workers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "workers",
		Help:      "Number of running calculation workers",
	})
	registry.MustRegister(c.workers)

	return c
}

// RecordCalculation records one single-cell calculation.
//
// Parameters:
//   - columnID: the derived column that was calculated
//   - success: whether evaluation produced a value
//   - cacheHit: whether the value came from the calculation cache
//   - duration: evaluation time (zero for cache hits)
func (c *Collector) RecordCalculation(columnID string, success, cacheHit bool, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	if !c.cardinalityLimiter.Allow(columnID) {
		columnID = OtherColumn
	}

	c.calculationMetrics.Record(columnID, calculationStatus(success, cacheHit), duration)
}

// RecordBatch records a finished batch.
//
// Parameters:
//   - status: final batch status ("completed", "failed")
//   - size: number of requests in the batch
//   - duration: wall time of the batch
func (c *Collector) RecordBatch(status string, size int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.batchMetrics.RecordBatch(status, size, duration)
}

// SetBatchProgress publishes the progress of the running batch in percent.
func (c *Collector) SetBatchProgress(percent float64) {
	if !c.config.Enabled {
		return
	}

	c.batchMetrics.SetProgress(percent)
}

// SetWorkers publishes the number of running workers.
func (c *Collector) SetWorkers(count int) {
	if !c.config.Enabled {
		return
	}

	c.workers.Set(float64(count))
}

// Cache returns a recorder for the named cache. The recorder satisfies the
// cache package's Metrics hook.
//
// Example:
//
//	calcCache := cache.New(cfg).WithMetrics(collector.Cache("calculation"))
func (c *Collector) Cache(name string) *CacheRecorder {
	return &CacheRecorder{name: name, collector: c}
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func calculationStatus(success, cacheHit bool) string {
	switch {
	case cacheHit:
		return "cache_hit"
	case success:
		return "success"
	default:
		return "error"
	}
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether a label value may be used. Values already seen are
// always allowed; new values are allowed until the limit is reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
