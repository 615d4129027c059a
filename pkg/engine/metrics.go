package engine

import (
	"sync/atomic"
	"time"

	"tabula-hq/formula/pkg/worker"
)

type counters struct {
	total     atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	cacheHits atomic.Uint64
	batches   atomic.Uint64
	execution atomic.Int64 // nanoseconds spent in workers
}

// observe counts one finished calculation.
func (e *Engine) observe(r worker.Result) {
	e.counters.total.Add(1)
	if r.Success {
		e.counters.succeeded.Add(1)
	} else {
		e.counters.failed.Add(1)
	}
	if r.CacheHit {
		e.counters.cacheHits.Add(1)
	} else {
		e.counters.execution.Add(int64(r.ExecutionTime))
	}
	e.metrics.RecordCalculation(r.ColumnID, r.Success, r.CacheHit, r.ExecutionTime)
}

// GetPerformanceMetrics returns a snapshot of the engine counters. Cache
// hits cost no execution time, so the average covers only calculations
// that ran on a worker.
func (e *Engine) GetPerformanceMetrics() PerformanceMetrics {
	total := e.counters.total.Load()
	hits := e.counters.cacheHits.Load()
	execution := time.Duration(e.counters.execution.Load())

	m := PerformanceMetrics{
		TotalCalculations:      total,
		SuccessfulCalculations: e.counters.succeeded.Load(),
		FailedCalculations:     e.counters.failed.Load(),
		CacheHits:              hits,
		TotalExecutionTime:     execution,
		BatchesProcessed:       e.counters.batches.Load(),
		Workers:                e.pool.Size(),
	}
	if executed := total - hits; executed > 0 {
		m.AverageExecutionTime = execution / time.Duration(executed)
	}

	if e.cache != nil {
		stats := e.cache.Stats()
		m.CacheMisses = stats.Misses
		m.CacheHitRate = stats.HitRate()
		m.CacheSize = stats.Size
		m.CacheEvictions = stats.Evictions
	}
	return m
}
