package jsonfmt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"polaris-hq/polaris/pkg/format"
	"polaris-hq/polaris/pkg/policy"
)

// fileKey is the reserved object key marking a file reference:
// {"$file": "path"}. A sub-policy whose encoding would collide with
// this shape is rejected at write time rather than read back as the
// wrong kind.
const fileKey = "$file"

// Writer serializes policies as JSON. A document write emits one
// pretty-printed object; an entry-level write emits a standalone
// one-entry object on its own line, so successive entry writes form
// valid JSON Lines output.
//
// JSON has no comment syntax, so the format has no content declaration
// and withDecl is a no-op.
type Writer struct {
	out io.Writer
}

// NewWriter creates a JSON writer bound to w. A nil w binds the writer
// to a discard sink.
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: format.Sink(w)}
}

// Write serializes the whole tree as one JSON object. Each serialized
// document is rendered fully before anything reaches the destination,
// so an encoding failure leaves the destination untouched.
func (w *Writer) Write(p *policy.Policy, withDecl bool) error {
	_ = withDecl // no declaration syntax in JSON
	var buf bytes.Buffer
	if err := encodePolicy(&buf, p, 0); err != nil {
		return err
	}
	buf.WriteByte('\n')
	if _, err := w.out.Write(buf.Bytes()); err != nil {
		return &format.WriteError{Format: Name, Err: err}
	}
	return nil
}

// writeEntry renders one named sequence as a standalone object.
func (w *Writer) writeEntry(name string, render func(buf *bytes.Buffer) error) error {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeKey(&buf, name)
	if err := render(&buf); err != nil {
		return err
	}
	buf.WriteString("}\n")
	if _, err := w.out.Write(buf.Bytes()); err != nil {
		return &format.WriteError{Format: Name, Name: name, Err: err}
	}
	return nil
}

func emptyArrayErr(name string) error {
	return fmt.Errorf("[%s] cannot encode %q: %w", Name, name, format.ErrEmptyArray)
}

// shadowsFileRef reports whether p would encode exactly as the
// {"$file": path} file reference object.
func shadowsFileRef(p *policy.Policy) bool {
	if p.Len() != 1 {
		return false
	}
	vs, ok := p.Values(fileKey)
	return ok && len(vs) == 1 && vs[0].Kind() == policy.KindString
}

func fileRefShadowErr(name string) error {
	return fmt.Errorf("[%s] cannot encode sub-policy under %q: a lone string entry named %q reads back as a file reference",
		Name, name, fileKey)
}

// WriteBools emits an ordered sequence of booleans under one name.
func (w *Writer) WriteBools(name string, values []bool) error {
	if len(values) == 0 {
		return emptyArrayErr(name)
	}
	return w.writeEntry(name, func(buf *bytes.Buffer) error {
		if len(values) == 1 {
			buf.WriteString(strconv.FormatBool(values[0]))
			return nil
		}
		buf.WriteByte('[')
		for i, v := range values {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(strconv.FormatBool(v))
		}
		buf.WriteByte(']')
		return nil
	})
}

// WriteInts emits an ordered sequence of integers under one name.
func (w *Writer) WriteInts(name string, values []int) error {
	if len(values) == 0 {
		return emptyArrayErr(name)
	}
	return w.writeEntry(name, func(buf *bytes.Buffer) error {
		if len(values) == 1 {
			buf.WriteString(strconv.Itoa(values[0]))
			return nil
		}
		buf.WriteByte('[')
		for i, v := range values {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(strconv.Itoa(v))
		}
		buf.WriteByte(']')
		return nil
	})
}

// WriteDoubles emits an ordered sequence of doubles under one name.
// Non-finite values have no JSON representation and are rejected before
// anything reaches the destination.
func (w *Writer) WriteDoubles(name string, values []float64) error {
	if len(values) == 0 {
		return emptyArrayErr(name)
	}
	for _, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return fmt.Errorf("[%s] cannot encode non-finite double under %q", Name, name)
		}
	}
	return w.writeEntry(name, func(buf *bytes.Buffer) error {
		if len(values) == 1 {
			buf.WriteString(formatDouble(values[0]))
			return nil
		}
		buf.WriteByte('[')
		for i, v := range values {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(formatDouble(v))
		}
		buf.WriteByte(']')
		return nil
	})
}

// WriteStrings emits an ordered sequence of strings under one name.
func (w *Writer) WriteStrings(name string, values []string) error {
	if len(values) == 0 {
		return emptyArrayErr(name)
	}
	return w.writeEntry(name, func(buf *bytes.Buffer) error {
		if len(values) == 1 {
			return writeJSONString(buf, values[0])
		}
		buf.WriteByte('[')
		for i, v := range values {
			if i > 0 {
				buf.WriteString(", ")
			}
			if err := writeJSONString(buf, v); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	})
}

// WritePolicies emits an ordered sequence of sub-policies under one
// name.
func (w *Writer) WritePolicies(name string, values []*policy.Policy) error {
	if len(values) == 0 {
		return emptyArrayErr(name)
	}
	for _, v := range values {
		if shadowsFileRef(v) {
			return fileRefShadowErr(name)
		}
	}
	return w.writeEntry(name, func(buf *bytes.Buffer) error {
		if len(values) == 1 {
			return encodePolicy(buf, values[0], 0)
		}
		buf.WriteByte('[')
		for i, v := range values {
			if i > 0 {
				buf.WriteString(", ")
			}
			if err := encodePolicy(buf, v, 0); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	})
}

// WriteFiles emits an ordered sequence of file references under one
// name, each as a {"$file": path} object.
func (w *Writer) WriteFiles(name string, values []policy.FileRef) error {
	if len(values) == 0 {
		return emptyArrayErr(name)
	}
	return w.writeEntry(name, func(buf *bytes.Buffer) error {
		if len(values) == 1 {
			return writeFileRef(buf, values[0])
		}
		buf.WriteByte('[')
		for i, v := range values {
			if i > 0 {
				buf.WriteString(", ")
			}
			if err := writeFileRef(buf, v); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	})
}

// encodePolicy renders p as a pretty-printed JSON object, two-space
// indented, entries in insertion order.
func encodePolicy(buf *bytes.Buffer, p *policy.Policy, depth int) error {
	names := p.Names()
	if len(names) == 0 {
		buf.WriteString("{}")
		return nil
	}
	indent := strings.Repeat("  ", depth+1)
	buf.WriteString("{\n")
	for i, name := range names {
		buf.WriteString(indent)
		writeKey(buf, name)
		values, _ := p.Values(name)
		if err := encodeValues(buf, name, values, depth+1); err != nil {
			return err
		}
		if i < len(names)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString(strings.Repeat("  ", depth))
	buf.WriteByte('}')
	return nil
}

func encodeValues(buf *bytes.Buffer, name string, values []policy.Value, depth int) error {
	if len(values) == 1 {
		return encodeValue(buf, name, values[0], depth)
	}
	buf.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			buf.WriteString(", ")
		}
		if err := encodeValue(buf, name, v, depth); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func encodeValue(buf *bytes.Buffer, name string, v policy.Value, depth int) error {
	switch v.Kind() {
	case policy.KindBool:
		b, _ := v.AsBool()
		buf.WriteString(strconv.FormatBool(b))
	case policy.KindInt:
		i, _ := v.AsInt()
		buf.WriteString(strconv.Itoa(i))
	case policy.KindDouble:
		f, _ := v.AsDouble()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("[%s] cannot encode non-finite double under %q", Name, name)
		}
		buf.WriteString(formatDouble(f))
	case policy.KindString:
		s, _ := v.AsString()
		return writeJSONString(buf, s)
	case policy.KindPolicy:
		p, _ := v.AsPolicy()
		if shadowsFileRef(p) {
			return fileRefShadowErr(name)
		}
		return encodePolicy(buf, p, depth)
	case policy.KindFile:
		f, _ := v.AsFile()
		return writeFileRef(buf, f)
	default:
		return &format.UnsupportedKindError{Format: Name, Name: name, Kind: v.Kind()}
	}
	return nil
}

func writeKey(buf *bytes.Buffer, name string) {
	writeJSONString(buf, name)
	buf.WriteString(": ")
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func writeFileRef(buf *bytes.Buffer, f policy.FileRef) error {
	buf.WriteString(`{"` + fileKey + `": `)
	if err := writeJSONString(buf, f.Path()); err != nil {
		return err
	}
	buf.WriteByte('}')
	return nil
}

// formatDouble renders f with a decimal point or exponent so the parser
// maps it back to a double, never an int.
func formatDouble(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
