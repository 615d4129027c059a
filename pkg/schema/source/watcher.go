package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period before a reload.
const DefaultDebounceInterval = 250 * time.Millisecond

// Watcher calls a reload function when a schema file changes. Bursts of
// events, such as an editor's write-rename-chmod sequence, cause one reload.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce *Debouncer
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for a schema file or directory. A zero
// interval means DefaultDebounceInterval.
func NewWatcher(path string, interval time.Duration, logger *slog.Logger) (*Watcher, error) {
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		path:     filepath.Clean(path),
		watcher:  fw,
		debounce: NewDebouncer(interval),
		interval: interval,
		logger:   logger.With("component", "schema.watcher"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks until ctx is cancelled or Stop is called, calling onReload
// after each burst of changes. A failing reload is logged and watching
// continues.
func (w *Watcher) Watch(ctx context.Context, onReload func() error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer close(w.doneCh)

	if err := w.add(); err != nil {
		return fmt.Errorf("failed to watch path: %w", err)
	}

	w.logger.Info("schema watcher started",
		"path", w.path,
		"debounce_ms", w.interval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("schema watcher stopped")
			return nil

		case <-w.stopCh:
			w.logger.Info("schema watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("schema file event", "path", event.Name, "op", event.Op.String())

			w.debounce.Trigger(func() {
				w.logger.Info("reloading column schema", "path", event.Name)
				if err := onReload(); err != nil {
					w.logger.Error("column schema reload failed", "error", err)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("schema watcher error", "error", err)
		}
	}
}

// Stop stops a running watcher and releases its resources. It is safe to
// call on a watcher that never ran.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()

	if running {
		select {
		case <-w.stopCh:
		default:
			close(w.stopCh)
		}
		<-w.doneCh
	}

	w.debounce.Stop()
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// add registers the watched directories. A single file is watched through
// its directory so that replace-by-rename saves are seen.
func (w *Watcher) add() error {
	info, err := os.Stat(w.path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.watcher.Add(filepath.Dir(w.path))
	}
	return filepath.WalkDir(w.path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.path && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// relevant reports whether event concerns a schema file.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Clean(event.Name)
	if strings.HasPrefix(filepath.Base(name), ".") {
		return false
	}
	if info, err := os.Stat(w.path); err == nil && !info.IsDir() {
		return name == w.path
	}
	return isSchemaFile(name)
}

// Debouncer runs the last triggered callback once no trigger arrived for
// the interval.
type Debouncer struct {
	interval time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopped  bool
}

// NewDebouncer creates a debouncer.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger schedules callback, replacing any pending one.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		cb := d.callback
		d.callback = nil
		stopped := d.stopped
		d.mu.Unlock()

		if cb != nil && !stopped {
			cb()
		}
	})
}

// Stop cancels the pending callback. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
