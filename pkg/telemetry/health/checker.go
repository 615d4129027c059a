package health

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Status values reported by checks and by the readiness probe.
const (
	StatusOK        = "ok"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// DefaultCheckTimeout bounds a single check when none is configured.
const DefaultCheckTimeout = 5 * time.Second

// ErrCheckTimeout is reported when a check does not finish in time.
var ErrCheckTimeout = errors.New("health check timeout")

// CheckFunc checks one component. It returns nil when the component is
// healthy.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status   string        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ms,omitempty"`
}

// Report is the aggregated outcome of a probe.
type Report struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Ready reports whether every check passed.
func (r Report) Ready() bool {
	return r.Status == StatusOK || r.Status == StatusReady
}

// Checker runs the registered component checks. It is safe for concurrent
// use.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
}

// New creates a checker. A zero timeout means DefaultCheckTimeout.
func New(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &Checker{
		checks:  make(map[string]CheckFunc),
		timeout: timeout,
	}
}

// Register adds or replaces the check for a component.
func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Unregister removes the check for a component.
func (c *Checker) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Names returns the registered component names, sorted.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Liveness reports that the process is running. It runs no checks.
func (c *Checker) Liveness() Report {
	return Report{Status: StatusOK, Timestamp: time.Now()}
}

// Readiness runs every registered check concurrently. The report is
// "ready" when all pass and "degraded" otherwise.
func (c *Checker) Readiness(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, check := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := c.run(ctx, check)
			mu.Lock()
			results[name] = result
			mu.Unlock()
		}()
	}
	wg.Wait()

	status := StatusReady
	for _, result := range results {
		if result.Status != StatusOK {
			status = StatusDegraded
		}
	}
	return Report{Status: status, Checks: results, Timestamp: time.Now()}
}

// run executes one check under the checker timeout.
func (c *Checker) run(ctx context.Context, check CheckFunc) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- check(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			return CheckResult{Status: StatusUnhealthy, Message: err.Error(), Duration: time.Since(start)}
		}
		return CheckResult{Status: StatusOK, Duration: time.Since(start)}
	case <-ctx.Done():
		return CheckResult{Status: StatusUnhealthy, Message: ErrCheckTimeout.Error(), Duration: time.Since(start)}
	}
}
