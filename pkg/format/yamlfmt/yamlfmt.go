package yamlfmt

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"polaris-hq/polaris/pkg/format"
	"polaris-hq/polaris/pkg/policy"
)

// Decl is the content declaration comment a YAML document starts with
// when one is requested.
const Decl = "#<?cfg yaml policy ?>"

// fileTag is the local tag marking file references: `cal: !file path`.
const fileTag = "!file"

// Writer serializes policies as YAML, built on yaml.v3 node trees so
// entry order survives (plain Go maps would shuffle it). A document
// write emits one mapping; entry-level writes each emit a one-key
// mapping, and since top-level mapping entries concatenate, successive
// entry writes still form one well-formed document.
type Writer struct {
	out io.Writer
}

// NewWriter creates a YAML writer bound to w. A nil w binds the writer
// to a discard sink.
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: format.Sink(w)}
}

// Write serializes the whole tree as one YAML mapping, preceded by the
// content declaration when withDecl is set. The document is rendered
// fully before anything reaches the destination.
func (w *Writer) Write(p *policy.Policy, withDecl bool) error {
	var buf bytes.Buffer
	if withDecl {
		buf.WriteString(Decl + "\n")
	}
	if !p.IsEmpty() {
		node, err := policyNode(p)
		if err != nil {
			return err
		}
		if err := encodeNode(&buf, node); err != nil {
			return err
		}
	}
	if _, err := w.out.Write(buf.Bytes()); err != nil {
		return &format.WriteError{Format: Name, Err: err}
	}
	return nil
}

// writeEntry renders one named sequence as a one-key mapping.
func (w *Writer) writeEntry(name string, value *yaml.Node) error {
	mapping := &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{keyNode(name), value}}
	var buf bytes.Buffer
	if err := encodeNode(&buf, mapping); err != nil {
		return err
	}
	if _, err := w.out.Write(buf.Bytes()); err != nil {
		return &format.WriteError{Format: Name, Name: name, Err: err}
	}
	return nil
}

func encodeNode(buf *bytes.Buffer, node *yaml.Node) error {
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return fmt.Errorf("[%s] encoding failed: %w", Name, err)
	}
	return enc.Close()
}

func emptyArrayErr(name string) error {
	return fmt.Errorf("[%s] cannot encode %q: %w", Name, name, format.ErrEmptyArray)
}

// WriteBools emits an ordered sequence of booleans under one name.
func (w *Writer) WriteBools(name string, values []bool) error {
	if len(values) == 0 {
		return emptyArrayErr(name)
	}
	nodes := make([]*yaml.Node, len(values))
	for i, v := range values {
		nodes[i] = plainNode(strconv.FormatBool(v))
	}
	return w.writeEntry(name, collapse(nodes))
}

// WriteInts emits an ordered sequence of integers under one name.
func (w *Writer) WriteInts(name string, values []int) error {
	if len(values) == 0 {
		return emptyArrayErr(name)
	}
	nodes := make([]*yaml.Node, len(values))
	for i, v := range values {
		nodes[i] = plainNode(strconv.Itoa(v))
	}
	return w.writeEntry(name, collapse(nodes))
}

// WriteDoubles emits an ordered sequence of doubles under one name.
func (w *Writer) WriteDoubles(name string, values []float64) error {
	if len(values) == 0 {
		return emptyArrayErr(name)
	}
	nodes := make([]*yaml.Node, len(values))
	for i, v := range values {
		nodes[i] = doubleNode(v)
	}
	return w.writeEntry(name, collapse(nodes))
}

// WriteStrings emits an ordered sequence of strings under one name.
func (w *Writer) WriteStrings(name string, values []string) error {
	if len(values) == 0 {
		return emptyArrayErr(name)
	}
	nodes := make([]*yaml.Node, len(values))
	for i, v := range values {
		nodes[i] = stringNode(v)
	}
	return w.writeEntry(name, collapse(nodes))
}

// WritePolicies emits an ordered sequence of sub-policies under one
// name.
func (w *Writer) WritePolicies(name string, values []*policy.Policy) error {
	if len(values) == 0 {
		return emptyArrayErr(name)
	}
	nodes := make([]*yaml.Node, len(values))
	for i, v := range values {
		n, err := policyNode(v)
		if err != nil {
			return err
		}
		nodes[i] = n
	}
	return w.writeEntry(name, collapse(nodes))
}

// WriteFiles emits an ordered sequence of file references under one
// name, each tagged !file.
func (w *Writer) WriteFiles(name string, values []policy.FileRef) error {
	if len(values) == 0 {
		return emptyArrayErr(name)
	}
	nodes := make([]*yaml.Node, len(values))
	for i, v := range values {
		nodes[i] = fileNode(v)
	}
	return w.writeEntry(name, collapse(nodes))
}

// collapse renders a one-element sequence as a bare value, longer
// sequences as YAML sequences. Callers never pass an empty slice; a
// policy sequence always holds at least one value.
func collapse(nodes []*yaml.Node) *yaml.Node {
	if len(nodes) == 1 {
		return nodes[0]
	}
	return &yaml.Node{Kind: yaml.SequenceNode, Content: nodes}
}

func policyNode(p *policy.Policy) (*yaml.Node, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range p.Names() {
		values, _ := p.Values(name)
		nodes := make([]*yaml.Node, len(values))
		for i, v := range values {
			n, err := valueNode(v)
			if err != nil {
				return nil, err
			}
			nodes[i] = n
		}
		mapping.Content = append(mapping.Content, keyNode(name), collapse(nodes))
	}
	return mapping, nil
}

func valueNode(v policy.Value) (*yaml.Node, error) {
	switch v.Kind() {
	case policy.KindBool:
		b, _ := v.AsBool()
		return plainNode(strconv.FormatBool(b)), nil
	case policy.KindInt:
		i, _ := v.AsInt()
		return plainNode(strconv.Itoa(i)), nil
	case policy.KindDouble:
		f, _ := v.AsDouble()
		return doubleNode(f), nil
	case policy.KindString:
		s, _ := v.AsString()
		return stringNode(s), nil
	case policy.KindPolicy:
		p, _ := v.AsPolicy()
		return policyNode(p)
	case policy.KindFile:
		f, _ := v.AsFile()
		return fileNode(f), nil
	}
	return nil, fmt.Errorf("[%s] unknown value kind %s", Name, v.Kind())
}

func keyNode(name string) *yaml.Node {
	// Keys are forced to strings so names like "true" or "2" stay
	// names.
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}
}

func plainNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
}

// stringNode quotes string scalars so values like "true" or "42" keep
// their string kind.
func stringNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.DoubleQuotedStyle, Value: v}
}

// doubleNode renders f so it resolves back to a float, never an int.
func doubleNode(f float64) *yaml.Node {
	var s string
	switch {
	case math.IsInf(f, 1):
		s = ".inf"
	case math.IsInf(f, -1):
		s = "-.inf"
	case math.IsNaN(f):
		s = ".nan"
	default:
		s = strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
	}
	return plainNode(s)
}

func fileNode(f policy.FileRef) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: fileTag, Value: f.Path()}
}

var yamlLineRx = regexp.MustCompile(`line (\d+)`)

// Parse reconstructs a policy from a YAML document. The top level must
// be a mapping; !file scalars become file references, nested mappings
// become sub-policies, sequences must be homogeneous and non-empty.
func Parse(data []byte, source string) (*policy.Policy, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		loc := format.Location{Source: source, Line: 1}
		if m := yamlLineRx.FindStringSubmatch(err.Error()); m != nil {
			loc.Line, _ = strconv.Atoi(m[1])
		}
		return nil, &format.ParseError{
			Format:   Name,
			Location: loc,
			Message:  strings.TrimPrefix(err.Error(), "yaml: "),
		}
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return policy.New(), nil // empty document
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nodeErr(source, root, "top-level value must be a mapping", "")
	}
	return parseMapping(source, root)
}

func nodeErr(source string, n *yaml.Node, msg, suggestion string) error {
	return &format.ParseError{
		Format:     Name,
		Location:   format.Location{Source: source, Line: n.Line, Column: n.Column},
		Message:    msg,
		Suggestion: suggestion,
	}
}

func parseMapping(source string, mapping *yaml.Node) (*policy.Policy, error) {
	p := policy.New()
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyN, valN := mapping.Content[i], mapping.Content[i+1]
		if keyN.Kind != yaml.ScalarNode {
			return nil, nodeErr(source, keyN, "entry name must be a scalar", "")
		}
		name := keyN.Value
		values, err := parseEntry(source, name, valN)
		if err != nil {
			return nil, err
		}
		p.Remove(name) // duplicate keys: last one wins
		for _, v := range values {
			if err := p.Add(name, v); err != nil {
				return nil, nodeErr(source, valN, fmt.Sprintf("%q: %v", name, err), "")
			}
		}
	}
	return p, nil
}

func parseEntry(source, name string, n *yaml.Node) ([]policy.Value, error) {
	if n.Kind == yaml.SequenceNode {
		if len(n.Content) == 0 {
			return nil, nodeErr(source, n,
				fmt.Sprintf("%q: empty sequences cannot populate a policy entry", name),
				"remove the entry or give the sequence at least one value")
		}
		values := make([]policy.Value, 0, len(n.Content))
		for _, elem := range n.Content {
			v, err := parseValue(source, name, elem)
			if err != nil {
				return nil, err
			}
			if len(values) > 0 && values[0].Kind() != v.Kind() {
				return nil, nodeErr(source, elem, name+": mixed value kinds in one sequence",
					"split differently typed values into separate entries")
			}
			values = append(values, v)
		}
		return values, nil
	}
	v, err := parseValue(source, name, n)
	if err != nil {
		return nil, err
	}
	return []policy.Value{v}, nil
}

func parseValue(source, name string, n *yaml.Node) (policy.Value, error) {
	switch n.Kind {
	case yaml.MappingNode:
		sub, err := parseMapping(source, n)
		if err != nil {
			return policy.Value{}, err
		}
		return policy.Nested(sub), nil
	case yaml.SequenceNode:
		return policy.Value{}, nodeErr(source, n,
			fmt.Sprintf("%q: nested sequences are not supported", name), "")
	case yaml.AliasNode:
		return parseValue(source, name, n.Alias)
	case yaml.ScalarNode:
		// handled below
	default:
		return policy.Value{}, nodeErr(source, n,
			fmt.Sprintf("%q: unsupported node kind", name), "")
	}

	switch n.Tag {
	case fileTag:
		if n.Value == "" {
			return policy.Value{}, nodeErr(source, n, name+": file reference has no path", "")
		}
		return policy.File(policy.NewFileRef(n.Value)), nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return policy.Value{}, nodeErr(source, n,
				fmt.Sprintf("%q: bad boolean %q", name, n.Value), "")
		}
		return policy.Bool(b), nil
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return policy.Value{}, nodeErr(source, n,
				fmt.Sprintf("%q: bad integer %q", name, n.Value), "")
		}
		return policy.Int(int(i)), nil
	case "!!float":
		f, err := strconv.ParseFloat(normalizeFloat(n.Value), 64)
		if err != nil {
			return policy.Value{}, nodeErr(source, n,
				fmt.Sprintf("%q: bad float %q", name, n.Value), "")
		}
		return policy.Double(f), nil
	case "!!str":
		return policy.String(n.Value), nil
	case "!!null":
		return policy.Value{}, nodeErr(source, n,
			fmt.Sprintf("%q: null has no policy value kind", name),
			"remove the entry instead of setting it to null")
	}
	return policy.Value{}, nodeErr(source, n,
		fmt.Sprintf("%q: unsupported tag %s", name, n.Tag), "")
}

// normalizeFloat maps YAML's .inf/.nan spellings onto strconv's.
func normalizeFloat(s string) string {
	switch strings.ToLower(s) {
	case ".inf", "+.inf":
		return "inf"
	case "-.inf":
		return "-inf"
	case ".nan":
		return "nan"
	}
	return s
}
