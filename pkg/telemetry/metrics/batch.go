package metrics

import (
	"time"

	"tabula-hq/formula/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// BatchMetrics tracks batch calculations.
//
// Metrics:
//   - formula_engine_batches_total: finished batches by status
//   - formula_engine_batch_size: requests per batch
//   - formula_engine_batch_duration_seconds: wall time per batch
//   - formula_engine_batch_progress_percent: progress of the running batch
type BatchMetrics struct {
	batchesTotal  *prometheus.CounterVec
	batchSize     prometheus.Histogram
	batchDuration prometheus.Histogram
	progress      prometheus.Gauge
}

// NewBatchMetrics creates and registers batch metrics.
func NewBatchMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *BatchMetrics {
	bm := &BatchMetrics{
		batchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "batches_total",
				Help:      "Total number of finished batches by status",
			},
			[]string{"status"},
		),

		batchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "batch_size",
				Help:      "Number of calculation requests per batch",
				Buckets:   prometheus.ExponentialBuckets(10, 4, 8), // 10 to ~160K
			},
		),

		batchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "batch_duration_seconds",
				Help:      "Wall time of a batch in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),

		progress: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "batch_progress_percent",
				Help:      "Progress of the most recent batch in percent",
			},
		),
	}

	registry.MustRegister(
		bm.batchesTotal,
		bm.batchSize,
		bm.batchDuration,
		bm.progress,
	)

	return bm
}

// RecordBatch records a finished batch.
func (bm *BatchMetrics) RecordBatch(status string, size int, duration time.Duration) {
	bm.batchesTotal.WithLabelValues(status).Inc()
	bm.batchSize.Observe(float64(size))
	bm.batchDuration.Observe(duration.Seconds())
}

// SetProgress sets the progress gauge.
func (bm *BatchMetrics) SetProgress(percent float64) {
	bm.progress.Set(percent)
}
