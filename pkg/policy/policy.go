package policy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrKindMismatch is returned when Add would mix value kinds under
	// one name.
	ErrKindMismatch = errors.New("value kind mismatch")

	// ErrNotPolicy is returned when a dotted name descends through an
	// entry that is not a sub-policy.
	ErrNotPolicy = errors.New("intermediate name is not a policy")
)

// Policy is a hierarchical configuration document: an ordered mapping
// from names to values or homogeneous sequences of values. Hierarchy is
// real nesting: an entry of kind KindPolicy holds child *Policy nodes,
// and dotted names like "a.b.c" address values through that nesting.
//
// Overwrite semantics: Set replaces the whole entry under a name (the
// entry keeps its original position in insertion order); Add appends to
// the entry's sequence and fails if the kinds differ. A sequence is
// never empty.
//
// Policy is not safe for concurrent mutation. Writers treat the tree as
// read-only for the duration of a single write call and never retain it.
type Policy struct {
	order   []string
	entries map[string][]Value
}

// New creates an empty policy.
func New() *Policy {
	return &Policy{entries: make(map[string][]Value)}
}

// Len returns the number of top-level entries.
func (p *Policy) Len() int { return len(p.order) }

// IsEmpty reports whether the policy has no entries.
func (p *Policy) IsEmpty() bool { return len(p.order) == 0 }

// Names returns the top-level entry names in insertion order.
func (p *Policy) Names() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Has reports whether a value exists under the (possibly dotted) name.
func (p *Policy) Has(name string) bool {
	_, ok := p.Get(name)
	return ok
}

// KindOf returns the kind of the entry under the (possibly dotted)
// name, or false if no such entry exists.
func (p *Policy) KindOf(name string) (Kind, bool) {
	vs, ok := p.lookup(name)
	if !ok {
		return "", false
	}
	return vs[0].Kind(), true
}

// Get returns the value under the (possibly dotted) name. If the entry
// holds a sequence, the last value is returned, matching Add semantics.
func (p *Policy) Get(name string) (Value, bool) {
	vs, ok := p.lookup(name)
	if !ok {
		return Value{}, false
	}
	return vs[len(vs)-1], true
}

// Values returns the full ordered sequence under the (possibly dotted)
// name.
func (p *Policy) Values(name string) ([]Value, bool) {
	vs, ok := p.lookup(name)
	if !ok {
		return nil, false
	}
	out := make([]Value, len(vs))
	copy(out, vs)
	return out, true
}

func (p *Policy) lookup(name string) ([]Value, bool) {
	node, leaf, err := p.descend(name, false)
	if err != nil || node == nil {
		return nil, false
	}
	vs, ok := node.entries[leaf]
	return vs, ok
}

// descend walks the dotted name to the policy owning its final
// component. With create set, missing intermediate sub-policies are
// created; otherwise a missing step returns a nil node.
func (p *Policy) descend(name string, create bool) (*Policy, string, error) {
	node := p
	rest := name
	for {
		i := strings.IndexByte(rest, '.')
		if i < 0 {
			return node, rest, nil
		}
		head, tail := rest[:i], rest[i+1:]
		vs, ok := node.entries[head]
		if !ok {
			if !create {
				return nil, "", nil
			}
			child := New()
			node.setEntry(head, []Value{Nested(child)})
			node = child
			rest = tail
			continue
		}
		last := vs[len(vs)-1]
		child, ok := last.AsPolicy()
		if !ok {
			return nil, "", fmt.Errorf("%w: %q in %q is %s", ErrNotPolicy, head, name, last.Kind())
		}
		node = child
		rest = tail
	}
}

func (p *Policy) setEntry(name string, vs []Value) {
	if _, ok := p.entries[name]; !ok {
		p.order = append(p.order, name)
	}
	p.entries[name] = vs
}

// Set stores a single value under the (possibly dotted) name, replacing
// any existing entry of any kind. Intermediate sub-policies are created
// as needed; descending through a non-policy entry is an error.
func (p *Policy) Set(name string, v Value) error {
	node, leaf, err := p.descend(name, true)
	if err != nil {
		return err
	}
	node.setEntry(leaf, []Value{v})
	return nil
}

// Add appends a value to the sequence under the (possibly dotted) name.
// A fresh name behaves like Set; appending a value of a different kind
// than the existing entry returns ErrKindMismatch.
func (p *Policy) Add(name string, v Value) error {
	node, leaf, err := p.descend(name, true)
	if err != nil {
		return err
	}
	vs, ok := node.entries[leaf]
	if !ok {
		node.setEntry(leaf, []Value{v})
		return nil
	}
	if vs[0].Kind() != v.Kind() {
		return fmt.Errorf("%w: %q holds %s, cannot add %s", ErrKindMismatch, name, vs[0].Kind(), v.Kind())
	}
	node.entries[leaf] = append(vs, v)
	return nil
}

// Remove deletes the entry under the (possibly dotted) name. Removing a
// missing name is a no-op.
func (p *Policy) Remove(name string) {
	node, leaf, err := p.descend(name, false)
	if err != nil || node == nil {
		return
	}
	if _, ok := node.entries[leaf]; !ok {
		return
	}
	delete(node.entries, leaf)
	for i, n := range node.order {
		if n == leaf {
			node.order = append(node.order[:i], node.order[i+1:]...)
			break
		}
	}
}

// Copy returns a deep copy of the policy. Nested policies are copied
// recursively; the result shares no state with the original.
func (p *Policy) Copy() *Policy {
	out := New()
	if p == nil {
		return out
	}
	for _, name := range p.order {
		src := p.entries[name]
		vs := make([]Value, len(src))
		for i, v := range src {
			if sub, ok := v.AsPolicy(); ok {
				vs[i] = Nested(sub.Copy())
			} else {
				vs[i] = v
			}
		}
		out.setEntry(name, vs)
	}
	return out
}

// SetBool stores a boolean under name.
func (p *Policy) SetBool(name string, v bool) error { return p.Set(name, Bool(v)) }

// SetInt stores an integer under name.
func (p *Policy) SetInt(name string, v int) error { return p.Set(name, Int(v)) }

// SetDouble stores a floating-point value under name.
func (p *Policy) SetDouble(name string, v float64) error { return p.Set(name, Double(v)) }

// SetString stores a string under name.
func (p *Policy) SetString(name string, v string) error { return p.Set(name, String(v)) }

// SetPolicy stores a sub-policy under name.
func (p *Policy) SetPolicy(name string, v *Policy) error { return p.Set(name, Nested(v)) }

// SetFile stores a file reference under name.
func (p *Policy) SetFile(name string, v FileRef) error { return p.Set(name, File(v)) }

// AddBool appends a boolean to the sequence under name.
func (p *Policy) AddBool(name string, v bool) error { return p.Add(name, Bool(v)) }

// AddInt appends an integer to the sequence under name.
func (p *Policy) AddInt(name string, v int) error { return p.Add(name, Int(v)) }

// AddDouble appends a floating-point value to the sequence under name.
func (p *Policy) AddDouble(name string, v float64) error { return p.Add(name, Double(v)) }

// AddString appends a string to the sequence under name.
func (p *Policy) AddString(name string, v string) error { return p.Add(name, String(v)) }

// AddPolicy appends a sub-policy to the sequence under name.
func (p *Policy) AddPolicy(name string, v *Policy) error { return p.Add(name, Nested(v)) }

// AddFile appends a file reference to the sequence under name.
func (p *Policy) AddFile(name string, v FileRef) error { return p.Add(name, File(v)) }

// GetBool returns the boolean under name, or false if absent or of
// another kind.
func (p *Policy) GetBool(name string) (bool, bool) {
	v, ok := p.Get(name)
	if !ok {
		return false, false
	}
	return v.AsBool()
}

// GetInt returns the integer under name.
func (p *Policy) GetInt(name string) (int, bool) {
	v, ok := p.Get(name)
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

// GetDouble returns the floating-point value under name.
func (p *Policy) GetDouble(name string) (float64, bool) {
	v, ok := p.Get(name)
	if !ok {
		return 0, false
	}
	return v.AsDouble()
}

// GetString returns the string under name.
func (p *Policy) GetString(name string) (string, bool) {
	v, ok := p.Get(name)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// GetPolicy returns the sub-policy under name.
func (p *Policy) GetPolicy(name string) (*Policy, bool) {
	v, ok := p.Get(name)
	if !ok {
		return nil, false
	}
	return v.AsPolicy()
}

// GetFile returns the file reference under name.
func (p *Policy) GetFile(name string) (FileRef, bool) {
	v, ok := p.Get(name)
	if !ok {
		return FileRef{}, false
	}
	return v.AsFile()
}

// Paths returns every leaf entry as a dotted path, in insertion order,
// descending depth-first through nested sub-policies. An entry whose
// sequence holds sub-policies contributes the paths of its children; all
// other entries contribute their own name.
func (p *Policy) Paths() []string {
	var out []string
	p.appendPaths("", &out)
	return out
}

func (p *Policy) appendPaths(prefix string, out *[]string) {
	for _, name := range p.order {
		full := name
		if prefix != "" {
			full = prefix + "." + name
		}
		vs := p.entries[name]
		if vs[0].Kind() == KindPolicy {
			for _, v := range vs {
				child, _ := v.AsPolicy()
				child.appendPaths(full, out)
			}
			continue
		}
		*out = append(*out, full)
	}
}

// Equal reports structural equality: the same names in the same
// insertion order, the same kinds, the same sequence lengths and value
// order, recursively through nested sub-policies. This is the equality
// the serialization round-trip preserves.
func (p *Policy) Equal(o *Policy) bool {
	if p == nil || o == nil {
		return p == o
	}
	if len(p.order) != len(o.order) {
		return false
	}
	for i, name := range p.order {
		if o.order[i] != name {
			return false
		}
		a, b := p.entries[name], o.entries[name]
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if !a[j].Equal(b[j]) {
				return false
			}
		}
	}
	return true
}

// String renders a compact diagnostic view of the policy.
func (p *Policy) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, name := range p.order {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		vs := p.entries[name]
		if len(vs) == 1 {
			sb.WriteString(vs[0].String())
			continue
		}
		sb.WriteByte('[')
		for j, v := range vs {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(v.String())
		}
		sb.WriteByte(']')
	}
	sb.WriteByte('}')
	return sb.String()
}
