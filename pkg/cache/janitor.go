package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultCleanupSchedule runs Cleanup once a minute.
const DefaultCleanupSchedule = "@every 1m"

// Janitor runs Cache.Cleanup on a cron schedule so expired entries are
// released even when the cache never fills up.
type Janitor struct {
	cache    *Cache
	schedule string
	cron     *cron.Cron
	entry    cron.EntryID
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
	stopCh   chan struct{}
}

// NewJanitor creates a janitor for cache. An empty schedule disables it.
func NewJanitor(cache *Cache, schedule string, logger *slog.Logger) *Janitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		cache:    cache,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "cache.janitor"),
	}
}

// Start schedules periodic cleanup. Standard cron expressions and
// descriptors such as "@every 30s" are accepted. The janitor stops when
// ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.schedule == "" {
		j.logger.Info("cleanup schedule not configured, skipping janitor")
		return nil
	}
	if j.running {
		return nil
	}

	if _, err := cron.ParseStandard(j.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", j.schedule, err)
	}

	entry, err := j.cron.AddFunc(j.schedule, func() { j.RunOnce() })
	if err != nil {
		return fmt.Errorf("failed to schedule cache cleanup: %w", err)
	}

	j.entry = entry
	j.stopCh = make(chan struct{})
	j.cron.Start()
	j.running = true

	j.logger.Info("cache janitor started",
		"schedule", j.schedule,
		"ttl", j.cache.Config().TTL,
		"max_size", j.cache.Config().MaxSize,
	)

	go func(stopped <-chan struct{}) {
		select {
		case <-ctx.Done():
			j.Stop()
		case <-stopped:
		}
	}(j.stopCh)

	return nil
}

// RunOnce performs one cleanup and returns the number of entries removed.
func (j *Janitor) RunOnce() int {
	removed := j.cache.Cleanup()
	if removed > 0 {
		j.logger.Debug("cache cleanup completed",
			"removed", removed,
			"size", j.cache.Len(),
		)
	}
	return removed
}

// Stop stops the schedule and waits for a running cleanup to finish. A
// stopped janitor can be started again.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		done := j.cron.Stop()
		<-done.Done()
		j.cron.Remove(j.entry)
		close(j.stopCh)
		j.running = false
		j.logger.Info("cache janitor stopped")
	}
}

// IsRunning returns true if the janitor is scheduled.
func (j *Janitor) IsRunning() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}

// NextRun returns the next scheduled cleanup time, or nil when stopped.
func (j *Janitor) NextRun() *time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return nil
	}
	entries := j.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
