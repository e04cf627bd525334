package store

import (
	"context"
	"errors"
	"time"

	"polaris-hq/polaris/pkg/policy"
)

// ErrNotFound is returned when no snapshot exists under the requested
// name.
var ErrNotFound = errors.New("policy snapshot not found")

// Snapshot is a stored policy with its bookkeeping.
type Snapshot struct {
	// ID uniquely identifies this capture.
	ID string

	// Name is the caller-chosen snapshot name. Saving under an
	// existing name replaces the previous capture.
	Name string

	// Format names the serialization the snapshot is stored in.
	Format string

	// Policy is the captured tree.
	Policy *policy.Policy

	// CreatedAt is when the name was first saved; UpdatedAt moves on
	// every replacement.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store persists policy snapshots by name.
type Store interface {
	// Save captures p under name, replacing any previous snapshot of
	// that name, and returns the stored record.
	Save(ctx context.Context, name string, p *policy.Policy) (*Snapshot, error)

	// Load returns the snapshot stored under name, or ErrNotFound.
	Load(ctx context.Context, name string) (*Snapshot, error)

	// List returns all snapshots ordered by name. The returned
	// snapshots carry metadata only; Policy is populated.
	List(ctx context.Context) ([]*Snapshot, error)

	// Delete removes the snapshot under name, or returns ErrNotFound.
	Delete(ctx context.Context, name string) error

	// Close releases backend resources.
	Close() error
}
