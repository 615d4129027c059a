package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tabula-hq/formula/pkg/formula/functions"
	"tabula-hq/formula/pkg/formula/parser"
	"tabula-hq/formula/pkg/telemetry/tracing"
)

// MaxWorkers caps the pool size regardless of the requested count.
const MaxWorkers = 8

// ErrPoolTerminated is returned to callers whose request was in flight, or
// issued, after Terminate.
var ErrPoolTerminated = errors.New("worker pool terminated")

// Config configures a Pool.
type Config struct {
	// Workers is the requested number of workers. The pool starts
	// min(Workers, runtime.NumCPU(), MaxWorkers), and at least one.
	Workers int

	// MaxDepth bounds expression nesting (default: parser.DefaultMaxDepth).
	MaxDepth int

	// ASTCacheSize bounds the parsed expressions each worker keeps (default: 512).
	ASTCacheSize int

	// QueueSize is the inbox capacity of each worker (default: 16).
	QueueSize int
}

// DefaultConfig returns the default pool configuration.
func DefaultConfig() Config {
	return Config{
		Workers:      runtime.NumCPU(),
		MaxDepth:     parser.DefaultMaxDepth,
		ASTCacheSize: 512,
		QueueSize:    16,
	}
}

// WorkerCount returns the number of workers a pool started with requested
// workers runs.
func WorkerCount(requested int) int {
	n := min(requested, runtime.NumCPU(), MaxWorkers)
	if n < 1 {
		n = 1
	}
	return n
}

// Pool distributes calculation requests over isolated workers. Requests and
// responses cross the pool boundary as encoded messages; workers share no
// mutable state with each other or with callers.
type Pool struct {
	workers []*worker
	outbox  chan []byte
	next    atomic.Uint64

	mu      sync.Mutex
	pending map[string]chan *Message

	group  *errgroup.Group
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	logger *slog.Logger
}

// NewPool starts a pool of workers resolving functions in registry.
// A nil registry means the default built-in registry.
func NewPool(cfg Config, registry *functions.Registry, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "worker.pool")
	if registry == nil {
		registry = functions.NewDefaultRegistry()
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = parser.DefaultMaxDepth
	}
	if cfg.ASTCacheSize <= 0 {
		cfg.ASTCacheSize = 512
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	count := WorkerCount(cfg.Workers)
	p := &Pool{
		workers: make([]*worker, count),
		outbox:  make(chan []byte, count*cfg.QueueSize),
		pending: make(map[string]chan *Message),
		group:   group,
		cancel:  cancel,
		done:    make(chan struct{}),
		logger:  logger,
	}

	for i := range p.workers {
		w := newWorker(i, registry, parser.NewParser().WithMaxDepth(cfg.MaxDepth), cfg.ASTCacheSize, cfg.QueueSize, logger)
		p.workers[i] = w
		group.Go(func() error { return w.run(gctx, p.outbox) })
	}
	group.Go(func() error { return p.dispatch(gctx) })

	logger.Info("worker pool started", "workers", count, "requested", cfg.Workers)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// dispatch routes worker responses to the callers waiting on them.
func (p *Pool) dispatch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw := <-p.outbox:
			msg, err := DecodeMessage(raw)
			if err != nil {
				p.logger.Warn("dropping undecodable response", "error", err)
				continue
			}
			p.mu.Lock()
			reply, ok := p.pending[msg.ID]
			delete(p.pending, msg.ID)
			p.mu.Unlock()
			if !ok {
				p.logger.Debug("dropping response without a waiting caller", "message_id", msg.ID)
				continue
			}
			reply <- msg
		}
	}
}

// pick returns the next worker in round-robin order.
func (p *Pool) pick() *worker {
	n := p.next.Add(1) - 1
	return p.workers[n%uint64(len(p.workers))]
}

// send posts a message to w and waits for its response.
func (p *Pool) send(ctx context.Context, w *worker, typ MessageType, data any) (*Message, error) {
	select {
	case <-p.done:
		return nil, ErrPoolTerminated
	default:
	}

	id := uuid.NewString()
	raw, err := EncodeMessage(typ, id, data)
	if err != nil {
		return nil, err
	}

	reply := make(chan *Message, 1)
	p.mu.Lock()
	p.pending[id] = reply
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
	}()

	select {
	case w.inbox <- raw:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, ErrPoolTerminated
	}

	select {
	case msg := <-reply:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, ErrPoolTerminated
	}
}

// ExecuteCalculation evaluates one request on the next worker. Evaluation
// failures come back as a Result with Success false; the error return is
// reserved for cancellation and pool shutdown.
func (p *Pool) ExecuteCalculation(ctx context.Context, req Request) (Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.TraceContext == nil {
		req.TraceContext = tracing.InjectToMap(ctx)
	}

	msg, err := p.send(ctx, p.pick(), MessageCalculate, req)
	if err != nil {
		return Result{}, err
	}

	switch msg.Type {
	case MessageResult:
		var result Result
		if err := msg.DecodeData(&result); err != nil {
			return failedResult(req, err), nil
		}
		return result, nil
	case MessageError:
		return failedResult(req, errors.New(msg.Error)), nil
	default:
		return failedResult(req, fmt.Errorf("unexpected response type %q", msg.Type)), nil
	}
}

// ExecuteBatchCalculation evaluates requests in order on a single worker and
// returns one Result per request, in request order.
func (p *Pool) ExecuteBatchCalculation(ctx context.Context, reqs []Request) ([]Result, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	carrier := tracing.InjectToMap(ctx)
	for i := range reqs {
		if reqs[i].ID == "" {
			reqs[i].ID = uuid.NewString()
		}
		if reqs[i].TraceContext == nil {
			reqs[i].TraceContext = carrier
		}
	}

	msg, err := p.send(ctx, p.pick(), MessageBatchCalculate, reqs)
	if err != nil {
		return nil, err
	}

	failAll := func(cause error) []Result {
		results := make([]Result, len(reqs))
		for i, req := range reqs {
			results[i] = failedResult(req, cause)
		}
		return results
	}

	switch msg.Type {
	case MessageBatchResult:
		var results []Result
		if err := msg.DecodeData(&results); err != nil {
			return failAll(err), nil
		}
		if len(results) != len(reqs) {
			return failAll(fmt.Errorf("worker returned %d results for %d requests", len(results), len(reqs))), nil
		}
		return results, nil
	case MessageError:
		return failAll(errors.New(msg.Error)), nil
	default:
		return failAll(fmt.Errorf("unexpected response type %q", msg.Type)), nil
	}
}

// ClearCache drops the parsed-expression cache and memo of every worker.
func (p *Pool) ClearCache(ctx context.Context) error {
	for _, w := range p.workers {
		msg, err := p.send(ctx, w, MessageClearCache, nil)
		if err != nil {
			return err
		}
		if msg.Type == MessageError {
			return fmt.Errorf("worker %d: %s", w.id, msg.Error)
		}
	}
	return nil
}

// Stats returns per-worker statistics, ordered by worker id.
func (p *Pool) Stats(ctx context.Context) ([]Stats, error) {
	stats := make([]Stats, 0, len(p.workers))
	for _, w := range p.workers {
		msg, err := p.send(ctx, w, MessageGetStats, nil)
		if err != nil {
			return nil, err
		}
		if msg.Type == MessageError {
			return nil, fmt.Errorf("worker %d: %s", w.id, msg.Error)
		}
		var s Stats
		if err := msg.DecodeData(&s); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// Terminate stops every worker and releases callers still waiting for a
// response with ErrPoolTerminated. It is safe to call more than once.
func (p *Pool) Terminate() {
	p.once.Do(func() {
		close(p.done)
		p.cancel()
		_ = p.group.Wait()

		p.mu.Lock()
		p.pending = make(map[string]chan *Message)
		p.mu.Unlock()

		p.logger.Info("worker pool terminated")
	})
}
