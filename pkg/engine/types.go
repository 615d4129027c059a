package engine

import (
	"time"

	"tabula-hq/formula/pkg/schema"
	"tabula-hq/formula/pkg/worker"
)

// BatchStatus is the lifecycle state of a batch.
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchCompleted  BatchStatus = "completed"
	BatchFailed     BatchStatus = "failed"
)

// Batch is one CalculateBatch or RecalculateAffected run.
type Batch struct {
	// ID identifies the batch in logs, spans and progress reports.
	ID string

	// Requests are the dispatched requests, one per (column, record), in
	// calculation order.
	Requests []worker.Request

	// Status is the current state.
	Status BatchStatus

	// Progress is the completed share in percent. It never decreases.
	Progress float64

	// Results holds one result per request, in request order.
	Results []worker.Result

	// Records are working copies of the input records with every
	// successfully computed value applied. The input records are never
	// modified.
	Records []*schema.Record

	// Columns are the ids of the calculated columns, in calculation order.
	Columns []string

	StartedAt   time.Time
	CompletedAt time.Time

	// Err is set when the batch failed as a whole.
	Err error
}

// Failed returns the results that carry an error.
func (b *Batch) Failed() []worker.Result {
	var failed []worker.Result
	for _, r := range b.Results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}

// Duration returns how long the batch ran.
func (b *Batch) Duration() time.Duration {
	if b.CompletedAt.IsZero() {
		return 0
	}
	return b.CompletedAt.Sub(b.StartedAt)
}

// Progress is reported after every chunk of a batch.
type Progress struct {
	BatchID   string
	Completed int
	Total     int
	Percent   float64
}

// ProgressFunc receives batch progress. It is called on the goroutine that
// runs the batch, with strictly increasing Completed counts.
type ProgressFunc func(Progress)

// PerformanceMetrics is a snapshot of engine counters.
type PerformanceMetrics struct {
	TotalCalculations      uint64
	SuccessfulCalculations uint64
	FailedCalculations     uint64
	CacheHits              uint64
	CacheMisses            uint64
	CacheHitRate           float64
	CacheSize              int
	CacheEvictions         uint64
	TotalExecutionTime     time.Duration
	AverageExecutionTime   time.Duration
	BatchesProcessed       uint64
	Workers                int
}

// Metrics receives engine events. The Prometheus collector in
// telemetry/metrics implements it.
type Metrics interface {
	RecordCalculation(columnID string, success, cacheHit bool, duration time.Duration)
	RecordBatch(status string, size int, duration time.Duration)
	SetBatchProgress(percent float64)
	SetWorkers(count int)
}

type nopMetrics struct{}

func (nopMetrics) RecordCalculation(string, bool, bool, time.Duration) {}
func (nopMetrics) RecordBatch(string, int, time.Duration)              {}
func (nopMetrics) SetBatchProgress(float64)                            {}
func (nopMetrics) SetWorkers(int)                                      {}
