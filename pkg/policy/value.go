package policy

import "strconv"

// Kind identifies the type of a value stored in a policy.
// Policies have a closed type system with no automatic coercion.
type Kind string

const (
	KindBool   Kind = "bool"
	KindInt    Kind = "int"
	KindDouble Kind = "double"
	KindString Kind = "string"
	KindPolicy Kind = "policy" // Nested sub-policy
	KindFile   Kind = "file"   // Reference to an external policy file
)

// Value is one typed leaf value within a policy. Exactly one kind is
// active at a time; construct values with the typed constructors and
// read them back with the checked accessors.
//
// Values are treated as immutable after construction. Writers only read
// the values they serialize.
type Value struct {
	kind Kind
	data any
}

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, data: v} }

// Int returns an integer value.
func Int(v int) Value { return Value{kind: KindInt, data: v} }

// Double returns a floating-point value.
func Double(v float64) Value { return Value{kind: KindDouble, data: v} }

// String returns a string value.
func String(v string) Value { return Value{kind: KindString, data: v} }

// Nested returns a value holding a sub-policy.
func Nested(p *Policy) Value { return Value{kind: KindPolicy, data: p} }

// File returns a value referencing an external policy file.
func File(ref FileRef) Value { return Value{kind: KindFile, data: ref} }

// Kind returns the active kind of the value.
func (v Value) Kind() Kind { return v.kind }

// AsBool returns the boolean payload. The second return is false if the
// value is not a bool.
func (v Value) AsBool() (bool, bool) {
	b, ok := v.data.(bool)
	return b, ok
}

// AsInt returns the integer payload.
func (v Value) AsInt() (int, bool) {
	i, ok := v.data.(int)
	return i, ok
}

// AsDouble returns the floating-point payload.
func (v Value) AsDouble() (float64, bool) {
	f, ok := v.data.(float64)
	return f, ok
}

// AsString returns the string payload.
func (v Value) AsString() (string, bool) {
	s, ok := v.data.(string)
	return s, ok
}

// AsPolicy returns the nested sub-policy payload.
func (v Value) AsPolicy() (*Policy, bool) {
	p, ok := v.data.(*Policy)
	return p, ok
}

// AsFile returns the file-reference payload.
func (v Value) AsFile() (FileRef, bool) {
	f, ok := v.data.(FileRef)
	return f, ok
}

// Equal reports whether two values have the same kind and payload.
// Nested policies are compared structurally.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == KindPolicy {
		a, _ := v.AsPolicy()
		b, _ := o.AsPolicy()
		return a.Equal(b)
	}
	return v.data == o.data
}

// String renders the value for diagnostics. It is not a serialization;
// use a format writer for that.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		b, _ := v.AsBool()
		return strconv.FormatBool(b)
	case KindInt:
		i, _ := v.AsInt()
		return strconv.Itoa(i)
	case KindDouble:
		f, _ := v.AsDouble()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case KindString:
		s, _ := v.AsString()
		return strconv.Quote(s)
	case KindPolicy:
		return "{...}"
	case KindFile:
		f, _ := v.AsFile()
		return "@" + f.Path()
	}
	return "<invalid>"
}
