package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"polaris-hq/polaris/pkg/source"
)

// SyncerConfig configures a Syncer.
type SyncerConfig struct {
	// Name is the snapshot name captures are saved under. Required.
	Name string

	// Schedule is a standard cron expression, e.g. "0 3 * * *" for
	// daily at 3 AM. Empty disables scheduling; Capture still works.
	Schedule string
}

// Syncer captures snapshots of a policy source into a store on a cron
// schedule.
type Syncer struct {
	src     source.Source
	store   Store
	config  SyncerConfig
	cron    *cron.Cron
	logger  *slog.Logger
	mu      sync.Mutex
	running bool
}

// NewSyncer creates a syncer capturing src into st.
func NewSyncer(src source.Source, st Store, config SyncerConfig) (*Syncer, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("syncer requires a snapshot name")
	}
	return &Syncer{
		src:    src,
		store:  st,
		config: config,
		cron:   cron.New(),
		logger: slog.Default().With("component", "store.syncer", "snapshot", config.Name),
	}, nil
}

// Capture loads the source once and saves the result.
func (s *Syncer) Capture(ctx context.Context) (*Snapshot, error) {
	p, err := s.src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", s.src.Name(), err)
	}
	snap, err := s.store.Save(ctx, s.config.Name, p)
	if err != nil {
		return nil, fmt.Errorf("saving snapshot %q: %w", s.config.Name, err)
	}
	return snap, nil
}

// Start begins scheduled capturing. With an empty schedule it logs and
// returns without starting anything.
func (s *Syncer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Schedule == "" {
		s.logger.Info("sync schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.config.Schedule, err)
	}

	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.runCapture(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule capture: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("snapshot scheduler started", "schedule", s.config.Schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Syncer) runCapture(ctx context.Context) {
	snap, err := s.Capture(ctx)
	if err != nil {
		s.logger.Error("scheduled capture failed", "error", err)
		return
	}
	s.logger.Info("scheduled capture completed", "id", snap.ID, "entries", snap.Policy.Len())
}

// Stop halts the scheduler and waits for a running capture to finish.
func (s *Syncer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("snapshot scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (s *Syncer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled capture time, or nil when the
// scheduler is idle.
func (s *Syncer) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
