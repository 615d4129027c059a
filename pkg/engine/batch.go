package engine

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"tabula-hq/formula/pkg/cache"
	"tabula-hq/formula/pkg/formula"
	"tabula-hq/formula/pkg/formula/functions"
	"tabula-hq/formula/pkg/graph"
	"tabula-hq/formula/pkg/schema"
	"tabula-hq/formula/pkg/telemetry/logging"
	"tabula-hq/formula/pkg/telemetry/tracing"
	"tabula-hq/formula/pkg/worker"
)

// task is one (column, record) pair of a batch.
type task struct {
	column *schema.Column
	id     string
	record int
}

// CalculateBatch computes every formula column for every record. Columns
// run in dependency order; the requests are split into chunks of at most
// Config.ChunkSize that run one after another, so a chunk sees every value
// computed by the chunks before it. A LOOKUP or COUNTIF column always
// starts a new chunk. Values are written to working copies in
// Batch.Records, never to the input records.
//
// A nil columns means the current schema. Columns that differ from the
// current schema are checked for cycles but do not replace it.
//
// A failing calculation fails alone. The error return, together with a
// failed Batch, is reserved for an invalid schema, cancellation and
// shutdown.
func (e *Engine) CalculateBatch(ctx context.Context, records []*schema.Record, columns []schema.Column, onProgress ProgressFunc) (*Batch, error) {
	if e.terminated.Load() {
		return nil, ErrTerminated
	}
	g, err := e.graphFor(columns)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, g, g.FormulaColumns(), records, onProgress)
}

// RecalculateAffected recomputes the columns that directly or transitively
// read changedColumnID, for every record, after dropping their cached
// values. Unaffected columns are not recomputed.
func (e *Engine) RecalculateAffected(ctx context.Context, changedColumnID string, records []*schema.Record, columns []schema.Column, onProgress ProgressFunc) (*Batch, error) {
	if e.terminated.Load() {
		return nil, ErrTerminated
	}
	g, err := e.graphFor(columns)
	if err != nil {
		return nil, err
	}

	changed := changedColumnID
	if id, ok := g.Resolve(changedColumnID); ok {
		changed = id
	}
	affected := make(map[string]bool)
	for _, id := range g.AffectedColumns(changed) {
		affected[id] = true
	}

	removed := e.InvalidateCache("", changed)
	for id := range affected {
		removed += e.InvalidateCache("", id)
	}

	var order []string
	for _, id := range g.FormulaColumns() {
		if affected[id] {
			order = append(order, id)
		}
	}

	e.logger.Debug("recalculating affected columns",
		"changed_column", changed,
		"affected", order,
		"invalidated", removed,
	)
	return e.run(ctx, g, order, records, onProgress)
}

// graphFor returns the graph for columns, reusing the current graph when
// the schema is unchanged.
func (e *Engine) graphFor(columns []schema.Column) (*graph.Graph, error) {
	e.mu.RLock()
	current, fp := e.graph, e.fingerprint
	e.mu.RUnlock()

	if columns == nil {
		if current == nil {
			return nil, ErrNotInitialized
		}
		return current, nil
	}
	if current != nil && graph.Fingerprint(columns) == fp {
		return current, nil
	}

	g := graph.New(columns)
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// run executes one batch over the columns in order.
func (e *Engine) run(ctx context.Context, g *graph.Graph, order []string, records []*schema.Record, onProgress ProgressFunc) (*Batch, error) {
	batch := &Batch{
		ID:        uuid.NewString(),
		Status:    BatchPending,
		Columns:   order,
		StartedAt: time.Now(),
		Records:   make([]*schema.Record, len(records)),
	}
	for i, r := range records {
		batch.Records[i] = r.Clone()
	}

	columns := g.Columns()
	var tasks []task
	lookup := make(map[string]bool)
	for _, id := range order {
		col, ok := g.Column(id)
		if !ok {
			continue
		}
		colPtr := &col
		if node, err := e.parser.Parse(col.Formula.Expression); err == nil {
			lookup[id] = formula.UsesCategory(node, e.registry, functions.CategoryLookup)
		}
		for i := range batch.Records {
			tasks = append(tasks, task{column: colPtr, id: id, record: i})
		}
	}
	total := len(tasks)

	ctx = logging.WithLogger(logging.WithBatchID(ctx, batch.ID), e.logger)
	ctx, span := tracing.StartBatch(ctx, batch.ID, total)
	logger := logging.FromContext(ctx)

	batch.Status = BatchProcessing
	batch.Requests = make([]worker.Request, 0, total)
	batch.Results = make([]worker.Result, 0, total)

	logger.Info("batch started",
		"records", len(records),
		"columns", len(order),
		"calculations", total,
	)

	report := func(completed int) {
		percent := 100.0
		if total > 0 {
			percent = float64(completed) * 100 / float64(total)
		}
		batch.Progress = percent
		e.metrics.SetBatchProgress(percent)
		if onProgress != nil {
			onProgress(Progress{BatchID: batch.ID, Completed: completed, Total: total, Percent: percent})
		}
	}

	successes, failures := 0, 0
	for index, bounds := range chunks(tasks, e.config.ChunkSize, lookup) {
		start, end := bounds[0], bounds[1]
		if err := ctx.Err(); err != nil {
			return e.fail(batch, span, start, total, err)
		}

		chunk := tasks[start:end]
		reqs := e.chunkRequests(g, chunk, columns, batch.Records, lookup)

		chunkCtx, chunkSpan := tracing.StartChunk(ctx, index, len(reqs))
		callCtx, cancel := e.withTimeout(chunkCtx)
		results, err := e.pool.ExecuteBatchCalculation(callCtx, reqs)
		cancel()
		if err != nil {
			tracing.End(chunkSpan, err)
			if errors.Is(err, worker.ErrPoolTerminated) {
				err = ErrTerminated
			}
			return e.fail(batch, span, start, total, err)
		}

		chunkFailures := 0
		for i, r := range results {
			t := chunk[i]
			if r.Success {
				batch.Records[t.record].Set(t.column.FieldKey(), r.Value)
				if e.cache != nil && r.RecordID != "" {
					e.cache.Set(cache.Key{
						RecordID:   r.RecordID,
						ColumnID:   t.id,
						Expression: t.column.Formula.Expression,
					}, r.Value)
				}
				successes++
			} else {
				chunkFailures++
				failures++
			}
			e.observe(r)
		}
		tracing.SetResultCounts(chunkSpan, len(results)-chunkFailures, chunkFailures)
		tracing.End(chunkSpan, nil)

		batch.Requests = append(batch.Requests, reqs...)
		batch.Results = append(batch.Results, results...)
		report(end)
	}
	if total == 0 {
		report(0)
	}

	batch.Status = BatchCompleted
	batch.CompletedAt = time.Now()
	e.counters.batches.Add(1)
	e.metrics.RecordBatch(string(BatchCompleted), total, batch.Duration())

	tracing.SetResultCounts(span, successes, failures)
	tracing.End(span, nil)
	logger.Info("batch completed",
		"calculations", total,
		"failed", failures,
		"duration", batch.Duration(),
	)
	return batch, nil
}

// chunks splits tasks into [start, end) runs of at most size. The first
// task of a lookup column always starts a new run, so the record snapshot
// of that run holds every column computed before it.
func chunks(tasks []task, size int, lookup map[string]bool) [][2]int {
	var out [][2]int
	start := 0
	for i := 1; i < len(tasks); i++ {
		full := i-start == size
		lookupStart := lookup[tasks[i].id] && tasks[i].id != tasks[i-1].id
		if full || lookupStart {
			out = append(out, [2]int{start, i})
			start = i
		}
	}
	if start < len(tasks) {
		out = append(out, [2]int{start, len(tasks)})
	}
	return out
}

// chunkRequests builds the requests of one chunk. Each request carries its
// own copy of the record, keyed by the record's position in the batch so
// records without distinct IDs stay apart; lookup requests also carry a
// copy of the record set as of the start of the chunk.
func (e *Engine) chunkRequests(g *graph.Graph, chunk []task, columns []schema.Column, records []*schema.Record, lookup map[string]bool) []worker.Request {
	var snapshot []*schema.Record
	reqs := make([]worker.Request, len(chunk))
	for i, t := range chunk {
		rec := records[t.record]
		req := worker.Request{
			ID:           uuid.NewString(),
			RecordID:     rec.ID,
			RecordKey:    strconv.Itoa(t.record),
			ColumnID:     t.id,
			Expression:   t.column.Formula.Expression,
			Priority:     g.Level(t.id),
			Dependencies: g.Dependencies(t.id),
			Context: schema.Context{
				Record:  rec.Clone(),
				Columns: columns,
			},
		}
		if lookup[t.id] {
			if snapshot == nil {
				snapshot = make([]*schema.Record, len(records))
				for j, r := range records {
					snapshot[j] = r.Clone()
				}
			}
			req.Context.Records = snapshot
		}
		reqs[i] = req
	}
	return reqs
}

// fail marks the batch failed after completed of total calculations.
func (e *Engine) fail(batch *Batch, span trace.Span, completed, total int, cause error) (*Batch, error) {
	err := &BatchError{BatchID: batch.ID, Completed: completed, Total: total, Err: cause}
	batch.Status = BatchFailed
	batch.Err = err
	batch.CompletedAt = time.Now()
	e.counters.batches.Add(1)
	e.metrics.RecordBatch(string(BatchFailed), total, batch.Duration())

	tracing.End(span, err)
	e.logger.Warn("batch failed",
		"batch_id", batch.ID,
		"completed", completed,
		"total", total,
		"error", cause,
	)
	return batch, err
}
