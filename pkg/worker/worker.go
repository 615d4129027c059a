package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"tabula-hq/formula/pkg/formula/ast"
	ferrors "tabula-hq/formula/pkg/formula/errors"
	"tabula-hq/formula/pkg/formula/evaluator"
	"tabula-hq/formula/pkg/formula/functions"
	"tabula-hq/formula/pkg/formula/parser"
	"tabula-hq/formula/pkg/schema"
	"tabula-hq/formula/pkg/telemetry/tracing"
)

// worker is an isolated evaluation context. It owns its evaluator, its
// parsed-expression cache and its memo, and talks to the pool only through
// encoded messages.
type worker struct {
	id        int
	evaluator *evaluator.Evaluator
	asts      map[string]ast.Node
	astLimit  int
	inbox     chan []byte
	processed atomic.Uint64
	failed    atomic.Uint64
	logger    *slog.Logger
}

func newWorker(id int, registry *functions.Registry, p *parser.Parser, astLimit, queueSize int, logger *slog.Logger) *worker {
	return &worker{
		id:        id,
		evaluator: evaluator.New(registry).WithParser(p).WithLogger(logger),
		asts:      make(map[string]ast.Node),
		astLimit:  astLimit,
		inbox:     make(chan []byte, queueSize),
		logger:    logger.With("worker_id", id),
	}
}

// run processes messages until ctx is cancelled.
func (w *worker) run(ctx context.Context, outbox chan<- []byte) error {
	w.logger.Debug("worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("worker stopped", "processed", w.processed.Load())
			return nil
		case raw := <-w.inbox:
			resp := w.handle(raw)
			select {
			case outbox <- resp:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// handle answers one encoded request. It never panics: a failure anywhere
// in processing becomes an error response carrying the request id.
func (w *worker) handle(raw []byte) (resp []byte) {
	msg, err := DecodeMessage(raw)
	if err != nil {
		return encodeError("", err)
	}

	defer func() {
		if r := recover(); r != nil {
			w.failed.Add(1)
			w.logger.Error("worker recovered from panic",
				"message_id", msg.ID,
				"message_type", msg.Type,
				"panic", r,
			)
			resp = encodeError(msg.ID, fmt.Errorf("worker %d panicked: %v", w.id, r))
		}
	}()

	// Memoized outcomes never outlive the message that produced them.
	defer w.evaluator.ResetPass()

	switch msg.Type {
	case MessageCalculate:
		var req Request
		if err := msg.DecodeData(&req); err != nil {
			return encodeError(msg.ID, err)
		}
		return w.reply(MessageResult, msg.ID, w.calculate(req))

	case MessageBatchCalculate:
		var reqs []Request
		if err := msg.DecodeData(&reqs); err != nil {
			return encodeError(msg.ID, err)
		}
		return w.reply(MessageBatchResult, msg.ID, w.calculateBatch(reqs))

	case MessageClearCache:
		w.asts = make(map[string]ast.Node)
		w.evaluator.ResetPass()
		return w.reply(MessageResult, msg.ID, nil)

	case MessageGetStats:
		return w.reply(MessageStats, msg.ID, w.stats())

	default:
		return encodeError(msg.ID, fmt.Errorf("unknown message type %q", msg.Type))
	}
}

func (w *worker) reply(typ MessageType, id string, data any) []byte {
	raw, err := EncodeMessage(typ, id, data)
	if err != nil {
		return encodeError(id, err)
	}
	return raw
}

// calculate evaluates one request. Evaluation failures are reported in the
// Result, not as an error response.
func (w *worker) calculate(req Request) Result {
	start := time.Now()
	w.processed.Add(1)

	span := tracing.StartWorker(req.TraceContext, w.id, req.RecordID, req.ColumnID)
	value, err := w.evaluate(req.Expression, &req.Context, req.recordKey())
	if err == nil && !functions.IsFinite(value) {
		// The message codec cannot carry a non-finite number.
		err = ferrors.New(ferrors.KindType, "value of %s is out of numeric range", req.ColumnID)
	}
	if err != nil {
		w.failed.Add(1)
		r := failedResult(req, err)
		r.ExecutionTime = time.Since(start)
		tracing.SetErrorKind(span, string(r.ErrorKind))
		tracing.End(span, err)
		return r
	}
	tracing.End(span, nil)

	return Result{
		ID:            req.ID,
		RecordID:      req.RecordID,
		ColumnID:      req.ColumnID,
		Success:       true,
		Value:         value,
		ExecutionTime: time.Since(start),
		Timestamp:     time.Now(),
	}
}

// evaluate runs expr against ctx, memoizing the outcome under recordKey for
// the rest of the message. An empty recordKey disables the memo.
func (w *worker) evaluate(expr string, ctx *schema.Context, recordKey string) (any, error) {
	memo := w.evaluator.Memo()
	if recordKey != "" {
		if entry, ok := memo.Get(recordKey, expr); ok {
			return entry.Value, entry.Err
		}
	}

	node, err := w.parse(expr)
	if err != nil {
		return nil, err
	}

	value, err := w.evaluator.Evaluate(node, ctx)
	if recordKey != "" {
		memo.Put(recordKey, expr, value, err)
	}
	return value, err
}

// parse returns the cached AST for expr, parsing on first use.
func (w *worker) parse(expr string) (ast.Node, error) {
	if node, ok := w.asts[expr]; ok {
		return node, nil
	}
	node, err := w.evaluator.Parser().Parse(expr)
	if err != nil {
		return nil, err
	}
	if w.astLimit > 0 && len(w.asts) >= w.astLimit {
		w.asts = make(map[string]ast.Node)
	}
	w.asts[expr] = node
	return node, nil
}

// calculateBatch evaluates requests in order. A failing or panicking item
// fails alone. Each successful value is written onto the record of every
// later request with the same record key, so a dependent column in the
// same batch reads the freshly computed value.
func (w *worker) calculateBatch(reqs []Request) []Result {
	results := make([]Result, len(reqs))
	computed := make(map[string]map[string]any)

	for i, req := range reqs {
		key := req.recordKey()
		if values, ok := computed[key]; ok && req.Context.Record != nil {
			rec := req.Context.Record.Clone()
			for key, v := range values {
				rec.Set(key, v)
			}
			req.Context.Record = rec
		}

		results[i] = w.calculateIsolated(req)

		if results[i].Success && key != "" {
			if computed[key] == nil {
				computed[key] = make(map[string]any)
			}
			computed[key][fieldKey(req)] = results[i].Value
			w.evaluator.Memo().Forget(key)
		}
	}
	return results
}

func (w *worker) calculateIsolated(req Request) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			w.failed.Add(1)
			w.logger.Error("batch item panicked",
				"request_id", req.ID,
				"record_id", req.RecordID,
				"column_id", req.ColumnID,
				"panic", r,
			)
			result = failedResult(req, fmt.Errorf("calculation panicked: %v", r))
		}
	}()
	return w.calculate(req)
}

// fieldKey is the record key the request's column writes to.
func fieldKey(req Request) string {
	for i := range req.Context.Columns {
		if req.Context.Columns[i].ID == req.ColumnID {
			return req.Context.Columns[i].FieldKey()
		}
	}
	return req.ColumnID
}

func (w *worker) stats() Stats {
	hits, misses := w.evaluator.Memo().Stats()
	return Stats{
		WorkerID:     w.id,
		Processed:    w.processed.Load(),
		Failed:       w.failed.Load(),
		ASTCacheSize: len(w.asts),
		MemoHits:     hits,
		MemoMisses:   misses,
	}
}
