package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"polaris-hq/polaris/pkg/policy"
)

// MemoryStore is an in-memory Store for tests and single-run tools.
// Safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]*Snapshot)}
}

// Save captures p under name.
func (m *MemoryStore) Save(ctx context.Context, name string, p *policy.Policy) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("snapshot name cannot be empty")
	}
	if p == nil {
		return nil, fmt.Errorf("policy cannot be nil")
	}

	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := &Snapshot{
		ID:        uuid.New().String(),
		Name:      name,
		Format:    "memory",
		Policy:    p.Copy(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if prev, ok := m.snapshots[name]; ok {
		snap.CreatedAt = prev.CreatedAt
	}
	m.snapshots[name] = snap
	return cloneSnapshot(snap), nil
}

// Load returns the snapshot under name.
func (m *MemoryStore) Load(ctx context.Context, name string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.snapshots[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return cloneSnapshot(snap), nil
}

// List returns all snapshots ordered by name.
func (m *MemoryStore) List(ctx context.Context) ([]*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Snapshot, 0, len(m.snapshots))
	for _, snap := range m.snapshots {
		out = append(out, cloneSnapshot(snap))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes the snapshot under name.
func (m *MemoryStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.snapshots[name]; !ok {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	delete(m.snapshots, name)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }

func cloneSnapshot(s *Snapshot) *Snapshot {
	out := *s
	out.Policy = s.Policy.Copy()
	return &out
}
