package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tabula-hq/formula/pkg/cache"
	"tabula-hq/formula/pkg/formula"
	"tabula-hq/formula/pkg/formula/ast"
	ferrors "tabula-hq/formula/pkg/formula/errors"
	"tabula-hq/formula/pkg/formula/evaluator"
	"tabula-hq/formula/pkg/formula/functions"
	"tabula-hq/formula/pkg/formula/parser"
	"tabula-hq/formula/pkg/graph"
	"tabula-hq/formula/pkg/schema"
	"tabula-hq/formula/pkg/telemetry/tracing"
	"tabula-hq/formula/pkg/worker"
)

// Engine is the calculation façade. It owns the worker pool, the
// calculation cache and the dependency graph of the current column schema.
// An Engine is safe for concurrent use.
type Engine struct {
	config   *Config
	registry *functions.Registry
	parser   *parser.Parser
	pool     *worker.Pool

	cache         *cache.Cache // nil when caching is disabled
	janitor       *cache.Janitor
	janitorCancel context.CancelFunc
	cacheMetrics  cache.Metrics

	mu          sync.RWMutex
	graph       *graph.Graph
	fingerprint string

	metrics  Metrics
	counters counters

	terminated atomic.Bool
	once       sync.Once

	logger *slog.Logger
}

// New creates an engine and starts its worker pool. A nil config means
// DefaultConfig().
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		config:   cfg,
		registry: functions.NewDefaultRegistry(),
		parser:   parser.NewParser().WithMaxDepth(cfg.MaxDepth).WithMaxLength(cfg.MaxExpressionLength),
		metrics:  nopMetrics{},
		logger:   logger.With("component", "engine"),
	}
	for _, opt := range opts {
		opt(e)
	}

	if cfg.CacheEnabled {
		e.cache = cache.New(cfg.Cache)
		if e.cacheMetrics != nil {
			e.cache.WithMetrics(e.cacheMetrics)
		}
		if cfg.CleanupSchedule != "" {
			e.janitor = cache.NewJanitor(e.cache, cfg.CleanupSchedule, logger)
			ctx, cancel := context.WithCancel(context.Background())
			if err := e.janitor.Start(ctx); err != nil {
				cancel()
				return nil, fmt.Errorf("failed to start cache janitor: %w", err)
			}
			e.janitorCancel = cancel
		}
	}

	e.pool = worker.NewPool(worker.Config{
		Workers:      cfg.Workers,
		MaxDepth:     cfg.MaxDepth,
		ASTCacheSize: cfg.ASTCacheSize,
	}, e.registry, logger)
	e.metrics.SetWorkers(e.pool.Size())

	e.logger.Info("calculation engine started",
		"workers", e.pool.Size(),
		"chunk_size", cfg.ChunkSize,
		"cache_enabled", cfg.CacheEnabled,
	)
	return e, nil
}

// Registry returns the function registry used by the engine.
func (e *Engine) Registry() *functions.Registry {
	return e.registry
}

// Initialize loads a column schema. Every formula is parsed and checked
// against the registry and the dependency graph is checked for cycles; all
// problems are returned together as an *errors.ErrorList and the previous
// schema stays active. Loading a schema identical to the current one is a
// no-op. A successful change clears the calculation cache.
func (e *Engine) Initialize(ctx context.Context, columns []schema.Column) error {
	if e.terminated.Load() {
		return ErrTerminated
	}
	_, span := tracing.Start(ctx, tracing.SpanInitialize)

	fp := graph.Fingerprint(columns)
	e.mu.RLock()
	unchanged := e.graph != nil && e.fingerprint == fp
	e.mu.RUnlock()
	if unchanged {
		e.logger.Debug("column schema unchanged", "fingerprint", fp)
		tracing.End(span, nil)
		return nil
	}

	el := ferrors.NewErrorList()
	for i := range columns {
		col := &columns[i]
		if !col.HasFormula() {
			continue
		}
		id := graph.ColumnID(col)
		node, err := e.parser.Parse(col.Formula.Expression)
		if err != nil {
			addColumnErrors(el, err, id)
			continue
		}
		if err := formula.Validate(node, e.registry); err != nil {
			addColumnErrors(el, err, id)
		}
	}

	g := graph.New(columns)
	if err := g.Validate(); err != nil {
		addColumnErrors(el, err, "")
	}

	if err := el.ToError(); err != nil {
		e.logger.Warn("column schema rejected", "errors", el.Count())
		tracing.End(span, err)
		return err
	}

	e.mu.Lock()
	e.graph = g
	e.fingerprint = fp
	e.mu.Unlock()

	if e.cache != nil {
		e.cache.Clear()
	}

	e.logger.Info("column schema loaded",
		"columns", g.Len(),
		"formula_columns", len(g.FormulaColumns()),
		"fingerprint", fp,
	)
	tracing.End(span, nil)
	return nil
}

// addColumnErrors adds err, or each member of an error list, to el. A
// non-empty column overrides the column of each error.
func addColumnErrors(el *ferrors.ErrorList, err error, column string) {
	var list *ferrors.ErrorList
	if errors.As(err, &list) {
		for _, fe := range list.Errors {
			if column != "" {
				fe = fe.WithColumn(column)
			}
			el.Add(fe)
		}
		return
	}
	var fe *ferrors.FormulaError
	if !errors.As(err, &fe) {
		fe = ferrors.New(ferrors.KindSyntax, "%v", err)
	}
	if column != "" {
		fe = fe.WithColumn(column)
	}
	el.Add(fe)
}

// Graph returns the dependency graph of the current schema, or nil before
// Initialize.
func (e *Engine) Graph() *graph.Graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph
}

// Columns returns the current column schema.
func (e *Engine) Columns() []schema.Column {
	if g := e.Graph(); g != nil {
		return g.Columns()
	}
	return nil
}

// Calculate evaluates expression for one record on the worker pool. A cached
// value is returned with CacheHit set and no execution time. Evaluation
// failures are reported in the Result; the error return is reserved for
// cancellation and shutdown.
func (e *Engine) Calculate(ctx context.Context, recordID, columnID, expression string, cctx *schema.Context, priority int) (worker.Result, error) {
	if e.terminated.Load() {
		return worker.Result{}, ErrTerminated
	}
	ctx, span := tracing.StartCalculation(ctx, recordID, columnID)

	// Records without an ID cannot be told apart in the cache.
	cached := e.cache != nil && recordID != ""
	key := cache.Key{RecordID: recordID, ColumnID: columnID, Expression: expression}
	if cached {
		if v, ok := e.cache.Get(key); ok {
			result := worker.Result{
				ID:        uuid.NewString(),
				RecordID:  recordID,
				ColumnID:  columnID,
				Success:   true,
				Value:     v,
				Timestamp: time.Now(),
				CacheHit:  true,
			}
			e.observe(result)
			tracing.SetCacheHit(span, true)
			tracing.End(span, nil)
			return result, nil
		}
	}
	tracing.SetCacheHit(span, false)

	req := worker.Request{
		ID:         uuid.NewString(),
		RecordID:   recordID,
		ColumnID:   columnID,
		Expression: expression,
		Priority:   priority,
	}

	node, err := e.parser.Parse(expression)
	if err != nil {
		result := failedResult(req, err)
		e.observe(result)
		tracing.SetErrorKind(span, string(result.ErrorKind))
		tracing.End(span, err)
		return result, nil
	}
	req.Context = e.snapshot(recordID, cctx, node)
	req.Dependencies = e.dependencies(columnID, node)

	callCtx, cancel := e.withTimeout(ctx)
	defer cancel()

	result, err := e.pool.ExecuteCalculation(callCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			result = failedResult(req, fmt.Errorf("calculation timed out after %v", e.config.CalculationTimeout))
		} else {
			tracing.End(span, err)
			if errors.Is(err, worker.ErrPoolTerminated) {
				return worker.Result{}, ErrTerminated
			}
			return worker.Result{}, fmt.Errorf("calculate %s for record %s: %w", columnID, recordID, err)
		}
	}

	if result.Success && cached {
		e.cache.Set(key, result.Value)
	}
	e.observe(result)

	if !result.Success {
		tracing.SetErrorKind(span, string(result.ErrorKind))
		e.logger.Debug("calculation failed",
			"record_id", recordID,
			"column_id", columnID,
			"error", result.Error,
		)
	}
	tracing.End(span, nil)
	return result, nil
}

// Evaluate evaluates expression synchronously on the calling goroutine,
// without the pool, the cache or the counters.
func (e *Engine) Evaluate(expression string, cctx *schema.Context) (any, error) {
	if cctx == nil {
		cctx = &schema.Context{}
	}
	if len(cctx.Columns) == 0 {
		c := *cctx
		c.Columns = e.Columns()
		cctx = &c
	}
	ev := evaluator.New(e.registry).WithParser(e.parser).WithLogger(e.logger)
	return ev.EvaluateExpression(expression, cctx)
}

// GetDependencies returns the column references of expression in order of
// first appearance, both branches of IF included.
func (e *Engine) GetDependencies(expression string) ([]string, error) {
	node, err := e.parser.Parse(expression)
	if err != nil {
		return nil, err
	}
	return ast.ColumnRefs(node), nil
}

// HasCircularDependency reports whether giving columnID the formula
// expression would put it on a dependency cycle. columnID may be a new
// column. A nil columns means the current schema.
func (e *Engine) HasCircularDependency(columnID, expression string, columns []schema.Column) bool {
	if columns == nil {
		columns = e.Columns()
	}

	candidate := make([]schema.Column, 0, len(columns)+1)
	found := false
	for _, c := range columns {
		if !found && c.Matches(columnID) {
			c.Formula = &schema.Formula{Expression: expression}
			found = true
		}
		candidate = append(candidate, c)
	}
	if !found {
		candidate = append(candidate, schema.Column{
			ID:      columnID,
			Key:     columnID,
			Name:    columnID,
			Formula: &schema.Formula{Expression: expression},
		})
	}

	g := graph.New(candidate)
	id, ok := g.Resolve(columnID)
	if !ok {
		return false
	}
	return g.InCycle(id)
}

// ClearCache drops every cached calculation and the parsed expressions and
// memos held by the workers.
func (e *Engine) ClearCache(ctx context.Context) error {
	if e.terminated.Load() {
		return ErrTerminated
	}
	if e.cache != nil {
		e.cache.Clear()
	}
	if err := e.pool.ClearCache(ctx); err != nil {
		return fmt.Errorf("failed to clear worker caches: %w", err)
	}
	e.logger.Debug("caches cleared")
	return nil
}

// InvalidateCache removes the cached calculations matching recordID and
// columnID, where "" matches any, and returns how many were removed.
func (e *Engine) InvalidateCache(recordID, columnID string) int {
	if e.cache == nil {
		return 0
	}
	return e.cache.Invalidate(recordID, columnID)
}

// WorkerStats returns per-worker statistics.
func (e *Engine) WorkerStats(ctx context.Context) ([]worker.Stats, error) {
	if e.terminated.Load() {
		return nil, ErrTerminated
	}
	return e.pool.Stats(ctx)
}

// Terminate stops the cache janitor and the worker pool. Callers waiting on
// a calculation are released with an error. Later calls to any operation
// return ErrTerminated. Terminate is safe to call more than once.
func (e *Engine) Terminate() {
	e.once.Do(func() {
		e.terminated.Store(true)
		if e.janitor != nil {
			e.janitor.Stop()
			e.janitorCancel()
		}
		e.pool.Terminate()
		e.logger.Info("calculation engine terminated",
			"total_calculations", e.counters.total.Load(),
		)
	})
}

// Terminated reports whether Terminate was called.
func (e *Engine) Terminated() bool {
	return e.terminated.Load()
}

// snapshot builds the request context. The record set is only included
// for expressions that call lookup functions.
func (e *Engine) snapshot(recordID string, cctx *schema.Context, node ast.Node) schema.Context {
	var snap schema.Context
	if cctx != nil {
		snap.Record = cctx.Record
		snap.Columns = cctx.Columns
		if formula.UsesCategory(node, e.registry, functions.CategoryLookup) {
			snap.Records = cctx.Records
		}
	}
	if snap.Record == nil {
		snap.Record = &schema.Record{ID: recordID, Fields: map[string]any{}}
	}
	if len(snap.Columns) == 0 {
		snap.Columns = e.Columns()
	}
	return snap
}

// dependencies returns the graph dependencies of a known formula column,
// otherwise the references of node.
func (e *Engine) dependencies(columnID string, node ast.Node) []string {
	if g := e.Graph(); g != nil {
		if id, ok := g.Resolve(columnID); ok {
			if n, ok := g.Node(id); ok && n.Expression != "" {
				return g.Dependencies(id)
			}
		}
	}
	return ast.ColumnRefs(node)
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.CalculationTimeout > 0 {
		return context.WithTimeout(ctx, e.config.CalculationTimeout)
	}
	return context.WithCancel(ctx)
}

// failedResult builds the Result of a request that never reached a worker.
func failedResult(req worker.Request, err error) worker.Result {
	r := worker.Result{
		ID:        req.ID,
		RecordID:  req.RecordID,
		ColumnID:  req.ColumnID,
		Error:     err.Error(),
		Timestamp: time.Now(),
	}
	if kind, ok := ferrors.KindOf(err); ok {
		r.ErrorKind = kind
	}
	return r
}
