package jsonfmt

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"polaris-hq/polaris/pkg/format"
	"polaris-hq/polaris/pkg/policy"
)

// Parse reconstructs a policy from a JSON document. The top level must
// be an object; {"$file": path} objects become file references, nested
// objects become sub-policies, arrays must be homogeneous and
// non-empty.
func Parse(data []byte, source string) (*policy.Policy, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	pr := &parser{dec: dec, data: data, source: source}

	tok, err := pr.next()
	if err != nil {
		return nil, err
	}
	if tok != json.Delim('{') {
		return nil, pr.errf("top-level value must be an object, got %v", tok)
	}
	p, err := pr.parseObject()
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, pr.errf("unexpected content after closing brace")
	}
	return p, nil
}

type parser struct {
	dec    *json.Decoder
	data   []byte
	source string
}

// loc converts the decoder's byte offset into a line/column location.
func (pr *parser) loc() format.Location {
	off := pr.dec.InputOffset()
	if off > int64(len(pr.data)) {
		off = int64(len(pr.data))
	}
	prefix := pr.data[:off]
	line := bytes.Count(prefix, []byte{'\n'}) + 1
	col := len(prefix) - bytes.LastIndexByte(prefix, '\n')
	return format.Location{Source: pr.source, Line: line, Column: col}
}

func (pr *parser) errf(msg string, args ...any) error {
	return &format.ParseError{
		Format:   Name,
		Location: pr.loc(),
		Message:  fmt.Sprintf(msg, args...),
	}
}

// next reads one token, mapping the decoder's syntax errors onto
// located parse errors.
func (pr *parser) next() (json.Token, error) {
	tok, err := pr.dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, pr.errf("unexpected end of input")
		}
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			prefix := pr.data[:min(int(syn.Offset), len(pr.data))]
			line := bytes.Count(prefix, []byte{'\n'}) + 1
			col := len(prefix) - bytes.LastIndexByte(prefix, '\n')
			return nil, &format.ParseError{
				Format:   Name,
				Location: format.Location{Source: pr.source, Line: line, Column: col},
				Message:  syn.Error(),
			}
		}
		return nil, pr.errf("%v", err)
	}
	return tok, nil
}

// parseObject consumes tokens up to and including the matching closing
// brace and returns the policy it denotes. Key order is preserved.
func (pr *parser) parseObject() (*policy.Policy, error) {
	p := policy.New()
	for {
		tok, err := pr.next()
		if err != nil {
			return nil, err
		}
		if tok == json.Delim('}') {
			return p, nil
		}
		key, ok := tok.(string)
		if !ok {
			return nil, pr.errf("object key must be a string, got %v", tok)
		}
		values, err := pr.parseEntry(key)
		if err != nil {
			return nil, err
		}
		p.Remove(key) // duplicate keys: last one wins
		for _, v := range values {
			if err := p.Add(key, v); err != nil {
				return nil, pr.errf("%q: %v", key, err)
			}
		}
	}
}

// parseEntry parses the value of one entry into a non-empty homogeneous
// sequence.
func (pr *parser) parseEntry(key string) ([]policy.Value, error) {
	tok, err := pr.next()
	if err != nil {
		return nil, err
	}
	if tok == json.Delim('[') {
		var values []policy.Value
		for {
			tok, err := pr.next()
			if err != nil {
				return nil, err
			}
			if tok == json.Delim(']') {
				if len(values) == 0 {
					return nil, pr.errf("%q: empty arrays cannot populate a policy entry", key)
				}
				return values, nil
			}
			v, err := pr.parseValue(key, tok)
			if err != nil {
				return nil, err
			}
			if len(values) > 0 && values[0].Kind() != v.Kind() {
				return nil, pr.suggestf(key+": mixed value kinds in one array",
					"split differently typed values into separate entries")
			}
			values = append(values, v)
		}
	}
	v, err := pr.parseValue(key, tok)
	if err != nil {
		return nil, err
	}
	return []policy.Value{v}, nil
}

func (pr *parser) suggestf(msg, suggestion string) error {
	return &format.ParseError{
		Format:     Name,
		Location:   pr.loc(),
		Message:    msg,
		Suggestion: suggestion,
	}
}

// parseValue maps one already-read token (plus, for objects, the tokens
// that follow) onto a typed value.
func (pr *parser) parseValue(key string, tok json.Token) (policy.Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		if t == json.Delim('{') {
			sub, err := pr.parseObject()
			if err != nil {
				return policy.Value{}, err
			}
			if path, ok := fileRefPath(sub); ok {
				return policy.File(policy.NewFileRef(path)), nil
			}
			return policy.Nested(sub), nil
		}
		return policy.Value{}, pr.errf("%q: nested arrays are not supported", key)
	case bool:
		return policy.Bool(t), nil
	case string:
		return policy.String(t), nil
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			i, err := t.Int64()
			if err == nil {
				return policy.Int(int(i)), nil
			}
		}
		f, err := t.Float64()
		if err != nil {
			return policy.Value{}, pr.errf("%q: bad number %q", key, s)
		}
		return policy.Double(f), nil
	case nil:
		return policy.Value{}, pr.suggestf(
			fmt.Sprintf("%q: null has no policy value kind", key),
			"remove the entry instead of setting it to null")
	}
	return policy.Value{}, pr.errf("%q: unsupported value %v", key, tok)
}

// fileRefPath recognizes the {"$file": path} encoding. Only a lone
// single-valued string entry qualifies; any other shape is an ordinary
// sub-policy.
func fileRefPath(p *policy.Policy) (string, bool) {
	if p.Len() != 1 {
		return "", false
	}
	vs, ok := p.Values(fileKey)
	if !ok || len(vs) != 1 {
		return "", false
	}
	return vs[0].AsString()
}
