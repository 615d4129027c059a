// Package metrics provides Prometheus metrics for the calculation engine.
//
// # Metrics Categories
//
//   - Calculation Metrics: calculations by column and status, evaluation time
//   - Cache Metrics: hits, misses, entries and evictions per cache
//   - Batch Metrics: finished batches, batch size and duration, progress
//   - Workers: number of running workers
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	eng, err := engine.New(engineCfg,
//	    engine.WithMetrics(collector),
//	    engine.WithCacheMetrics(collector.Cache("calculation")),
//	)
//
//	http.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// # Cardinality
//
// The column label is bounded by a CardinalityLimiter. Once 10,000 distinct
// columns were seen, further columns are reported as "other".
//
// # Prometheus Endpoint
//
//	# HELP formula_engine_calculations_total Total number of calculations by column and status
//	# TYPE formula_engine_calculations_total counter
//	formula_engine_calculations_total{column="col_score",status="success"} 1234
package metrics
