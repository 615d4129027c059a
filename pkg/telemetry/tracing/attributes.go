package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys of engine spans.
const (
	AttrBatchID     = "formula.batch.id"
	AttrBatchSize   = "formula.batch.size"
	AttrChunkIndex  = "formula.chunk.index"
	AttrChunkSize   = "formula.chunk.size"
	AttrRecordID    = "formula.record.id"
	AttrColumnID    = "formula.column.id"
	AttrExpression  = "formula.expression"
	AttrCacheHit    = "formula.cache.hit"
	AttrWorkerID    = "formula.worker.id"
	AttrErrorKind   = "formula.error.kind"
	AttrSuccesses   = "formula.results.success"
	AttrFailures    = "formula.results.failed"
	AttrColumnCount = "formula.columns"
)

// Span names.
const (
	SpanBatch       = "engine.batch"
	SpanChunk       = "engine.chunk"
	SpanCalculate   = "engine.calculate"
	SpanRecalculate = "engine.recalculate_affected"
	SpanInitialize  = "engine.initialize"
	SpanWorker      = "worker.calculate"
)

// StartBatch starts the span of one batch calculation.
func StartBatch(ctx context.Context, batchID string, size int) (context.Context, trace.Span) {
	return Start(ctx, SpanBatch,
		attribute.String(AttrBatchID, batchID),
		attribute.Int(AttrBatchSize, size),
	)
}

// StartChunk starts the span of one chunk inside a batch.
func StartChunk(ctx context.Context, index, size int) (context.Context, trace.Span) {
	return Start(ctx, SpanChunk,
		attribute.Int(AttrChunkIndex, index),
		attribute.Int(AttrChunkSize, size),
	)
}

// StartCalculation starts the span of a single cell calculation.
func StartCalculation(ctx context.Context, recordID, columnID string) (context.Context, trace.Span) {
	return Start(ctx, SpanCalculate,
		attribute.String(AttrRecordID, recordID),
		attribute.String(AttrColumnID, columnID),
	)
}

// SetCacheHit records whether a calculation was served from the cache.
func SetCacheHit(span trace.Span, hit bool) {
	span.SetAttributes(attribute.Bool(AttrCacheHit, hit))
}

// SetResultCounts records the outcome of a batch or chunk.
func SetResultCounts(span trace.Span, successes, failures int) {
	span.SetAttributes(
		attribute.Int(AttrSuccesses, successes),
		attribute.Int(AttrFailures, failures),
	)
}

// SetErrorKind records the formula error kind of a failed calculation.
func SetErrorKind(span trace.Span, kind string) {
	if kind == "" {
		return
	}
	span.SetAttributes(attribute.String(AttrErrorKind, kind))
}

// StartWorker continues the trace carried by a worker request. Requests
// without a trace context get a non-recording span, so untraced calls do
// not open a root trace per cell.
func StartWorker(carrier map[string]string, workerID int, recordID, columnID string) trace.Span {
	ctx := ExtractFromMap(context.Background(), carrier)
	if !trace.SpanContextFromContext(ctx).IsValid() {
		return trace.SpanFromContext(ctx)
	}
	_, span := Start(ctx, SpanWorker,
		attribute.Int(AttrWorkerID, workerID),
		attribute.String(AttrRecordID, recordID),
		attribute.String(AttrColumnID, columnID),
	)
	return span
}
