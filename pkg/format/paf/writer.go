package paf

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"polaris-hq/polaris/pkg/format"
	"polaris-hq/polaris/pkg/policy"
)

// Decl is the content declaration a PAF document starts with when one
// is requested. It doubles as a comment, so declared files stay valid
// PAF.
const Decl = "#<?cfg paf policy ?>"

// Writer serializes policies in the PAF text format. One entry per
// line, values space-separated after "name:", nested sub-policies in
// braced blocks indented two spaces per level.
type Writer struct {
	out    io.Writer
	indent string
}

// NewWriter creates a PAF writer bound to w. A nil w binds the writer
// to a discard sink.
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: format.Sink(w)}
}

// newIndented returns a writer for a nested block one level deeper.
func (w *Writer) newIndented() *Writer {
	return &Writer{out: w.out, indent: w.indent + "  "}
}

// Write serializes every top-level entry of p in insertion order. When
// withDecl is true the PAF content declaration precedes the data.
func (w *Writer) Write(p *policy.Policy, withDecl bool) error {
	if withDecl {
		if _, err := io.WriteString(w.out, Decl+"\n"); err != nil {
			return &format.WriteError{Format: Name, Err: err}
		}
	}
	return format.WriteTree(w, p)
}

// writeLine emits one "name: values" line at the current indentation.
func (w *Writer) writeLine(name string, rendered []string) error {
	line := w.indent + name + ": " + strings.Join(rendered, " ") + "\n"
	if _, err := io.WriteString(w.out, line); err != nil {
		return &format.WriteError{Format: Name, Name: name, Err: err}
	}
	return nil
}

func emptyArrayErr(name string) error {
	return fmt.Errorf("[%s] cannot encode %q: %w", Name, name, format.ErrEmptyArray)
}

// WriteBools emits an ordered sequence of booleans under one name.
func (w *Writer) WriteBools(name string, values []bool) error {
	if len(values) == 0 {
		return emptyArrayErr(name)
	}
	rendered := make([]string, len(values))
	for i, v := range values {
		rendered[i] = strconv.FormatBool(v)
	}
	return w.writeLine(name, rendered)
}

// WriteInts emits an ordered sequence of integers under one name.
func (w *Writer) WriteInts(name string, values []int) error {
	if len(values) == 0 {
		return emptyArrayErr(name)
	}
	rendered := make([]string, len(values))
	for i, v := range values {
		rendered[i] = strconv.Itoa(v)
	}
	return w.writeLine(name, rendered)
}

// WriteDoubles emits an ordered sequence of doubles under one name.
// Values are rendered so they read back as doubles, never as integers.
func (w *Writer) WriteDoubles(name string, values []float64) error {
	if len(values) == 0 {
		return emptyArrayErr(name)
	}
	rendered := make([]string, len(values))
	for i, v := range values {
		rendered[i] = formatDouble(v)
	}
	return w.writeLine(name, rendered)
}

// WriteStrings emits an ordered sequence of strings under one name.
// Strings are always double-quoted.
func (w *Writer) WriteStrings(name string, values []string) error {
	if len(values) == 0 {
		return emptyArrayErr(name)
	}
	rendered := make([]string, len(values))
	for i, v := range values {
		rendered[i] = strconv.Quote(v)
	}
	return w.writeLine(name, rendered)
}

// WritePolicies emits sub-policies as braced blocks, one block per
// value, repeated under the same name to preserve sequence order.
func (w *Writer) WritePolicies(name string, values []*policy.Policy) error {
	if len(values) == 0 {
		return emptyArrayErr(name)
	}
	sub := w.newIndented()
	for _, p := range values {
		if _, err := io.WriteString(w.out, w.indent+name+": {\n"); err != nil {
			return &format.WriteError{Format: Name, Name: name, Err: err}
		}
		if err := sub.Write(p, false); err != nil {
			return err
		}
		if _, err := io.WriteString(w.out, w.indent+"}\n"); err != nil {
			return &format.WriteError{Format: Name, Name: name, Err: err}
		}
	}
	return nil
}

// WriteFiles emits an ordered sequence of file references under one
// name, each as an @path token. Only the reference is written, never
// the referenced file's contents.
func (w *Writer) WriteFiles(name string, values []policy.FileRef) error {
	if len(values) == 0 {
		return emptyArrayErr(name)
	}
	rendered := make([]string, len(values))
	for i, v := range values {
		rendered[i] = "@" + v.Path()
	}
	return w.writeLine(name, rendered)
}

// formatDouble renders f with a decimal point or exponent so the parser
// recognizes it as a double rather than an int.
func formatDouble(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if math.IsNaN(f) {
		return "nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
