package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"polaris-hq/polaris/pkg/policy"
)

// ReloadingConfig configures a Reloading source.
type ReloadingConfig struct {
	// Path is the file to watch. Required.
	Path string

	// DebounceInterval is the quiet period after a filesystem event
	// before the reload fires (default 100ms). Editors often produce
	// bursts of events per save.
	DebounceInterval time.Duration
}

// Reloading wraps a Source and keeps its policy fresh by watching the
// backing file for changes. Load returns the most recently parsed tree
// without touching the disk.
type Reloading struct {
	src      Source
	config   ReloadingConfig
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	debounce *debouncer

	mu      sync.RWMutex
	current *policy.Policy
	running bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewReloading creates a reloading source around src. The initial
// policy is loaded eagerly so Load never observes a nil tree.
func NewReloading(ctx context.Context, src Source, config ReloadingConfig) (*Reloading, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("reloading source requires a path to watch")
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 100 * time.Millisecond
	}

	initial, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("initial load of %q: %w", src.Name(), err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Reloading{
		src:      src,
		config:   config,
		watcher:  watcher,
		logger:   slog.Default().With("component", "source", "path", config.Path),
		debounce: newDebouncer(config.DebounceInterval),
		current:  initial,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Load returns a copy of the most recently loaded policy.
func (r *Reloading) Load(ctx context.Context) (*policy.Policy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.Copy(), nil
}

// Name returns the wrapped source's name.
func (r *Reloading) Name() string { return r.src.Name() }

// Watch blocks processing filesystem events until the context is
// cancelled or Stop is called. onReload, if non-nil, observes every
// successfully reloaded policy.
func (r *Reloading) Watch(ctx context.Context, onReload func(*policy.Policy)) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		close(r.doneCh)
	}()

	if err := r.watcher.Add(r.config.Path); err != nil {
		return fmt.Errorf("watching %q: %w", r.config.Path, err)
	}

	r.logger.Info("policy watcher started",
		"debounce_ms", r.config.DebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("policy watcher stopped", "reason", "context cancelled")
			return nil

		case <-r.stopCh:
			r.logger.Info("policy watcher stopped")
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}
			r.logger.Debug("file event", "op", event.Op.String())
			r.debounce.trigger(func() {
				r.reload(ctx, onReload)
			})

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			r.logger.Error("watcher error", "error", err)
		}
	}
}

// reload parses the file and swaps the cached tree. A parse failure
// keeps the previous policy in place.
func (r *Reloading) reload(ctx context.Context, onReload func(*policy.Policy)) {
	p, err := r.src.Load(ctx)
	if err != nil {
		r.logger.Error("policy reload failed, keeping previous tree", "error", err)
		return
	}

	r.mu.Lock()
	r.current = p
	r.mu.Unlock()

	r.logger.Info("policy reloaded", "entries", p.Len())
	if onReload != nil {
		onReload(p.Copy())
	}
}

// Stop terminates the watch loop and releases the fsnotify watcher.
// Safe to call when Watch was never started.
func (r *Reloading) Stop() error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	running := r.running
	r.mu.Unlock()

	close(r.stopCh)
	if running {
		<-r.doneCh
	}
	r.debounce.stop()

	if err := r.watcher.Close(); err != nil {
		return fmt.Errorf("closing watcher: %w", err)
	}
	return nil
}

// debouncer collapses rapid event bursts into one callback after a
// quiet period.
type debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopCh   chan struct{}
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, func() {
		select {
		case <-d.stopCh:
			return
		default:
		}
		d.mu.Lock()
		cb := d.callback
		d.mu.Unlock()
		if cb != nil {
			cb()
		}
	})
}

func (d *debouncer) stop() {
	close(d.stopCh)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
