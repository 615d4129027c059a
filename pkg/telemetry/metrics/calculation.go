package metrics

import (
	"time"

	"tabula-hq/formula/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// CalculationMetrics tracks single-cell calculations.
//
// Metrics:
//   - formula_engine_calculations_total: calculations by column and status
//   - formula_engine_calculation_duration_seconds: evaluation time by column
type CalculationMetrics struct {
	calculationsTotal   *prometheus.CounterVec
	calculationDuration *prometheus.HistogramVec
}

// NewCalculationMetrics creates and registers calculation metrics.
func NewCalculationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CalculationMetrics {
	cm := &CalculationMetrics{
		calculationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "calculations_total",
				Help:      "Total number of calculations by column and status",
			},
			[]string{"column", "status"},
		),

		calculationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "calculation_duration_seconds",
				Help:      "Time spent evaluating a formula in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"column"},
		),
	}

	registry.MustRegister(
		cm.calculationsTotal,
		cm.calculationDuration,
	)

	return cm
}

// Record counts one calculation. Cache hits are counted but not observed in
// the duration histogram.
func (cm *CalculationMetrics) Record(columnID, status string, duration time.Duration) {
	cm.calculationsTotal.WithLabelValues(columnID, status).Inc()
	if status != "cache_hit" {
		cm.calculationDuration.WithLabelValues(columnID).Observe(duration.Seconds())
	}
}
