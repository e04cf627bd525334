package source

import (
	"context"

	"polaris-hq/polaris/pkg/policy"
)

// Source produces a policy on demand. Implementations are safe for
// concurrent use.
type Source interface {
	// Load produces the current policy. Callers own the returned tree
	// and may mutate it freely.
	Load(ctx context.Context) (*policy.Policy, error)

	// Name identifies the source for logs and error messages.
	Name() string
}

// Memory is a Source backed by an in-memory policy. Load returns a
// deep copy so callers cannot mutate the backing tree.
type Memory struct {
	name   string
	policy *policy.Policy
}

// NewMemory creates a memory source. A nil policy behaves as an empty
// one.
func NewMemory(name string, p *policy.Policy) *Memory {
	if p == nil {
		p = policy.New()
	}
	return &Memory{name: name, policy: p}
}

// Load returns a copy of the backing policy.
func (m *Memory) Load(ctx context.Context) (*policy.Policy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.policy.Copy(), nil
}

// Name returns the source's logical name.
func (m *Memory) Name() string { return m.name }
