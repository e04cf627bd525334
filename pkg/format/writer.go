package format

import (
	"io"

	"polaris-hq/polaris/pkg/policy"
)

// Writer serializes policy data to the destination it was constructed
// with. Each concrete format implements one Writer.
//
// Write serializes a whole tree; the six array operations emit one named
// sequence each and are the format-specific core of the contract;
// every format must define exactly one encoding per kind. Single-value
// writes are the package-level helpers (WriteBool and friends).
//
// Every call is self-contained: it either appends a complete entry (or
// document) to the destination or fails without leaving output a
// well-formed follow-up call could not continue. A Writer is not safe
// for concurrent use; use one writer per destination per pass.
type Writer interface {
	// Write serializes every top-level entry of p in insertion order,
	// recursing into nested sub-policies. When withDecl is true the
	// format's content declaration, if it has one, precedes the data.
	Write(p *policy.Policy, withDecl bool) error

	WriteBools(name string, values []bool) error
	WriteInts(name string, values []int) error
	WriteDoubles(name string, values []float64) error
	WriteStrings(name string, values []string) error
	WritePolicies(name string, values []*policy.Policy) error
	WriteFiles(name string, values []policy.FileRef) error
}

// Sink normalizes a writer destination: a nil destination becomes
// io.Discard, so a writer constructed without one can never fail for
// lack of somewhere to put bytes.
func Sink(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

// WriteBool emits a single named boolean through w.
func WriteBool(w Writer, name string, value bool) error {
	return w.WriteBools(name, []bool{value})
}

// WriteInt emits a single named integer through w.
func WriteInt(w Writer, name string, value int) error {
	return w.WriteInts(name, []int{value})
}

// WriteDouble emits a single named double through w.
func WriteDouble(w Writer, name string, value float64) error {
	return w.WriteDoubles(name, []float64{value})
}

// WriteString emits a single named string through w.
func WriteString(w Writer, name string, value string) error {
	return w.WriteStrings(name, []string{value})
}

// WritePolicy emits a single named sub-policy through w.
func WritePolicy(w Writer, name string, value *policy.Policy) error {
	return w.WritePolicies(name, []*policy.Policy{value})
}

// WriteFile emits a single named file reference through w.
func WriteFile(w Writer, name string, value policy.FileRef) error {
	return w.WriteFiles(name, []policy.FileRef{value})
}

// WriteValues dispatches one named value sequence to the kind-specific
// write operation of w. The sequence must be non-empty and homogeneous,
// which policy.Policy guarantees for its entries.
func WriteValues(w Writer, name string, values []policy.Value) error {
	switch values[0].Kind() {
	case policy.KindBool:
		vs := make([]bool, len(values))
		for i, v := range values {
			vs[i], _ = v.AsBool()
		}
		return w.WriteBools(name, vs)
	case policy.KindInt:
		vs := make([]int, len(values))
		for i, v := range values {
			vs[i], _ = v.AsInt()
		}
		return w.WriteInts(name, vs)
	case policy.KindDouble:
		vs := make([]float64, len(values))
		for i, v := range values {
			vs[i], _ = v.AsDouble()
		}
		return w.WriteDoubles(name, vs)
	case policy.KindString:
		vs := make([]string, len(values))
		for i, v := range values {
			vs[i], _ = v.AsString()
		}
		return w.WriteStrings(name, vs)
	case policy.KindPolicy:
		vs := make([]*policy.Policy, len(values))
		for i, v := range values {
			vs[i], _ = v.AsPolicy()
		}
		return w.WritePolicies(name, vs)
	case policy.KindFile:
		vs := make([]policy.FileRef, len(values))
		for i, v := range values {
			vs[i], _ = v.AsFile()
		}
		return w.WriteFiles(name, vs)
	}
	return &UnsupportedKindError{Name: name, Kind: values[0].Kind()}
}

// WriteTree walks the top-level entries of p in insertion order and
// dispatches each through WriteValues. Line-oriented formats use it as
// the body of their Write operation.
func WriteTree(w Writer, p *policy.Policy) error {
	for _, name := range p.Names() {
		values, _ := p.Values(name)
		if err := WriteValues(w, name, values); err != nil {
			return err
		}
	}
	return nil
}
