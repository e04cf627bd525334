// Package flat implements a deliberately minimal line-oriented policy
// format: one "name=value" pair per line, sequences comma-separated,
// strings always quoted, file references with an @ prefix, # comments.
//
//	#<?cfg flat policy ?>
//	standalone=true
//	filters="g","r","i"
//	threshold=4.5
//	calibration=@defaults/cal.paf
//
// The format has no nesting of any sort. Dotted names are rejected
// with *format.UnsupportedNameError rather than silently flattened,
// and nested-policy values (single or sequence) are rejected with
// *format.UnsupportedKindError. Both checks run before anything is
// written, so a failed call leaves the destination untouched.
package flat

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"polaris-hq/polaris/pkg/format"
	"polaris-hq/polaris/pkg/policy"
)

// Name is the registry name of the flat format.
const Name = "flat"

// Decl is the content declaration a flat document starts with when one
// is requested.
const Decl = "#<?cfg flat policy ?>"

// Writer serializes policies in the flat format.
type Writer struct {
	out io.Writer
}

// NewWriter creates a flat writer bound to w. A nil w binds the writer
// to a discard sink.
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: format.Sink(w)}
}

// Write serializes every top-level entry of p in insertion order. Any
// nested-policy entry aborts the write with *format.UnsupportedKindError.
func (w *Writer) Write(p *policy.Policy, withDecl bool) error {
	if withDecl {
		if _, err := io.WriteString(w.out, Decl+"\n"); err != nil {
			return &format.WriteError{Format: Name, Err: err}
		}
	}
	return format.WriteTree(w, p)
}

// checkName rejects hierarchical names up front.
func checkName(name string) error {
	if strings.ContainsRune(name, '.') {
		return &format.UnsupportedNameError{Format: Name, Name: name}
	}
	return nil
}

func (w *Writer) writeLine(name string, rendered []string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if len(rendered) == 0 {
		return fmt.Errorf("[%s] cannot encode %q: %w", Name, name, format.ErrEmptyArray)
	}
	line := name + "=" + strings.Join(rendered, ",") + "\n"
	if _, err := io.WriteString(w.out, line); err != nil {
		return &format.WriteError{Format: Name, Name: name, Err: err}
	}
	return nil
}

// WriteBools emits an ordered sequence of booleans under one name.
func (w *Writer) WriteBools(name string, values []bool) error {
	rendered := make([]string, len(values))
	for i, v := range values {
		rendered[i] = strconv.FormatBool(v)
	}
	return w.writeLine(name, rendered)
}

// WriteInts emits an ordered sequence of integers under one name.
func (w *Writer) WriteInts(name string, values []int) error {
	rendered := make([]string, len(values))
	for i, v := range values {
		rendered[i] = strconv.Itoa(v)
	}
	return w.writeLine(name, rendered)
}

// WriteDoubles emits an ordered sequence of doubles under one name.
func (w *Writer) WriteDoubles(name string, values []float64) error {
	rendered := make([]string, len(values))
	for i, v := range values {
		rendered[i] = formatDouble(v)
	}
	return w.writeLine(name, rendered)
}

// WriteStrings emits an ordered sequence of strings under one name.
func (w *Writer) WriteStrings(name string, values []string) error {
	rendered := make([]string, len(values))
	for i, v := range values {
		rendered[i] = strconv.Quote(v)
	}
	return w.writeLine(name, rendered)
}

// WritePolicies always fails: the flat format cannot express nesting.
func (w *Writer) WritePolicies(name string, values []*policy.Policy) error {
	return &format.UnsupportedKindError{Format: Name, Name: name, Kind: policy.KindPolicy}
}

// WriteFiles emits an ordered sequence of file references under one
// name.
func (w *Writer) WriteFiles(name string, values []policy.FileRef) error {
	rendered := make([]string, len(values))
	for i, v := range values {
		rendered[i] = "@" + v.Path()
	}
	return w.writeLine(name, rendered)
}

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

// Parse reconstructs a policy from flat text. Repeated names append to
// the entry's sequence, matching the comma encoding.
func Parse(data []byte, source string) (*policy.Policy, error) {
	p := policy.New()
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if err := parseLine(p, sc.Text(), source, line); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, parseErr(source, line, fmt.Sprintf("reading input: %v", err), "")
	}
	return p, nil
}

func parseErr(source string, line int, msg, suggestion string) error {
	return &format.ParseError{
		Format:     Name,
		Location:   format.Location{Source: source, Line: line},
		Message:    msg,
		Suggestion: suggestion,
	}
}

func parseLine(p *policy.Policy, raw, source string, line int) error {
	text := strings.TrimSpace(raw)
	if text == "" || strings.HasPrefix(text, "#") {
		return nil
	}
	eq := strings.IndexByte(text, '=')
	if eq <= 0 {
		return parseErr(source, line, "expected a name=value entry",
			"entries look like `name=value` or `name=v1,v2`")
	}
	name := strings.TrimSpace(text[:eq])
	if strings.ContainsRune(name, '.') {
		return parseErr(source, line,
			fmt.Sprintf("hierarchical name %q is not supported by the flat format", name),
			"use a nesting format such as paf or yaml")
	}
	tokens, err := splitValues(text[eq+1:], source, line)
	if err != nil {
		return err
	}
	for _, tok := range tokens {
		v, err := parseToken(tok, source, line)
		if err != nil {
			return err
		}
		if err := p.Add(name, v); err != nil {
			return parseErr(source, line, fmt.Sprintf("%q: %v", name, err),
				"values under one name must all have the same type")
		}
	}
	return nil
}

// splitValues splits on commas outside quoted strings.
func splitValues(s, source string, line int) ([]string, error) {
	var out []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote && c == '\\' && i+1 < len(s):
			cur.WriteByte(c)
			i++
			cur.WriteByte(s[i])
		case c == '"':
			inQuote = !inQuote
			cur.WriteByte(c)
		case c == ',' && !inQuote:
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if inQuote {
		return nil, parseErr(source, line, "unterminated quoted string",
			"close the string with a matching \"")
	}
	out = append(out, strings.TrimSpace(cur.String()))
	return out, nil
}

func parseToken(tok, source string, line int) (policy.Value, error) {
	if tok == "" {
		return policy.Value{}, parseErr(source, line, "missing value",
			"every entry needs at least one value")
	}
	switch {
	case tok[0] == '"':
		s, err := strconv.Unquote(tok)
		if err != nil {
			return policy.Value{}, parseErr(source, line,
				fmt.Sprintf("bad string literal %s: %v", tok, err), "")
		}
		return policy.String(s), nil
	case tok[0] == '@':
		if len(tok) == 1 {
			return policy.Value{}, parseErr(source, line, "file reference @ has no path", "")
		}
		return policy.File(policy.NewFileRef(tok[1:])), nil
	case tok == "true":
		return policy.Bool(true), nil
	case tok == "false":
		return policy.Bool(false), nil
	}
	if i, err := strconv.Atoi(tok); err == nil {
		return policy.Int(i), nil
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return policy.Double(f), nil
	}
	return policy.Value{}, parseErr(source, line,
		fmt.Sprintf("unrecognized value %q", tok),
		"strings must be double-quoted in the flat format")
}

type flatFormat struct{}

func (flatFormat) Name() string         { return Name }
func (flatFormat) Extensions() []string { return []string{".flat"} }
func (flatFormat) Decl() string         { return Decl }

func (flatFormat) NewWriter(w io.Writer) format.Writer { return NewWriter(w) }

func (flatFormat) Parse(data []byte, source string) (*policy.Policy, error) {
	return Parse(data, source)
}

func init() {
	format.Register(flatFormat{})
}
