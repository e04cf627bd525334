package store

import (
	"context"
	"time"

	"polaris-hq/polaris/pkg/policy"
	"polaris-hq/polaris/pkg/telemetry/metrics"
)

// Instrumented wraps a Store with Prometheus metrics for every
// operation.
type Instrumented struct {
	inner   Store
	metrics *metrics.StoreMetrics
}

// NewInstrumented decorates inner with the given metrics.
func NewInstrumented(inner Store, m *metrics.StoreMetrics) *Instrumented {
	return &Instrumented{inner: inner, metrics: m}
}

func (s *Instrumented) Save(ctx context.Context, name string, p *policy.Policy) (*Snapshot, error) {
	start := time.Now()
	snap, err := s.inner.Save(ctx, name, p)
	s.metrics.RecordOperation("save", err, time.Since(start))
	return snap, err
}

func (s *Instrumented) Load(ctx context.Context, name string) (*Snapshot, error) {
	start := time.Now()
	snap, err := s.inner.Load(ctx, name)
	s.metrics.RecordOperation("load", err, time.Since(start))
	return snap, err
}

func (s *Instrumented) List(ctx context.Context) ([]*Snapshot, error) {
	start := time.Now()
	snaps, err := s.inner.List(ctx)
	s.metrics.RecordOperation("list", err, time.Since(start))
	return snaps, err
}

func (s *Instrumented) Delete(ctx context.Context, name string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, name)
	s.metrics.RecordOperation("delete", err, time.Since(start))
	return err
}

func (s *Instrumented) Close() error { return s.inner.Close() }
