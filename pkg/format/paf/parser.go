package paf

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"polaris-hq/polaris/pkg/format"
	"polaris-hq/polaris/pkg/policy"
)

// Parse reconstructs a policy from PAF text. source names the input for
// error locations. Repeated names accumulate into sequences, matching
// the writer's array encoding, and dotted names fold into nested
// sub-policies.
func Parse(data []byte, source string) (*policy.Policy, error) {
	p := &parser{
		source: source,
		stack:  []*policy.Policy{policy.New()},
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		p.line++
		if err := p.parseLine(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, p.errf("reading input: %v", err)
	}
	if len(p.stack) > 1 {
		return nil, p.suggest("unclosed policy block at end of input",
			"add a closing } for every name: { block")
	}
	return p.stack[0], nil
}

type parser struct {
	source string
	line   int
	stack  []*policy.Policy
}

func (p *parser) top() *policy.Policy { return p.stack[len(p.stack)-1] }

func (p *parser) errf(msg string, args ...any) error {
	return &format.ParseError{
		Format:   Name,
		Location: format.Location{Source: p.source, Line: p.line},
		Message:  fmt.Sprintf(msg, args...),
	}
}

func (p *parser) suggest(msg, suggestion string) error {
	return &format.ParseError{
		Format:     Name,
		Location:   format.Location{Source: p.source, Line: p.line},
		Message:    msg,
		Suggestion: suggestion,
	}
}

func (p *parser) parseLine(raw string) error {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	if line == "}" {
		if len(p.stack) == 1 {
			return p.suggest("unmatched } outside any policy block",
				"remove the stray brace or add the missing name: { opener")
		}
		p.stack = p.stack[:len(p.stack)-1]
		return nil
	}

	colon := strings.IndexByte(line, ':')
	if colon <= 0 {
		return p.suggest("expected a name: value entry",
			"entries look like `name: value` or `name: {`")
	}
	name := strings.TrimSpace(line[:colon])
	if strings.ContainsAny(name, " \t\"{}@") {
		return p.errf("invalid entry name %q", name)
	}
	rest := strings.TrimSpace(line[colon+1:])

	if rest == "{" {
		child := policy.New()
		if err := p.top().Add(name, policy.Nested(child)); err != nil {
			return p.errf("%q: %v", name, err)
		}
		p.stack = append(p.stack, child)
		return nil
	}
	if rest == "" {
		return p.suggest("entry "+strconv.Quote(name)+" has no value",
			"give the entry a value, or open a block with `"+name+": {`")
	}

	tokens, err := p.tokenize(rest)
	if err != nil {
		return err
	}
	for _, tok := range tokens {
		v, err := p.parseToken(tok)
		if err != nil {
			return err
		}
		if err := p.top().Add(name, v); err != nil {
			if errors.Is(err, policy.ErrKindMismatch) {
				return p.suggest(name+": "+err.Error(),
					"values under one name must all have the same type")
			}
			return p.errf("%q: %v", name, err)
		}
	}
	return nil
}

// tokenize splits a value list on whitespace, keeping quoted strings
// (which may contain spaces) as single tokens.
func (p *parser) tokenize(s string) ([]string, error) {
	var tokens []string
	i := 0
	for i < len(s) {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= len(s) {
			break
		}
		if s[i] == '"' || s[i] == '\'' {
			quote := s[i]
			j := i + 1
			for j < len(s) {
				if s[j] == '\\' && quote == '"' {
					j += 2
					continue
				}
				if s[j] == quote {
					break
				}
				j++
			}
			if j >= len(s) {
				return nil, p.suggest("unterminated quoted string",
					"close the string with a matching "+string(quote))
			}
			tokens = append(tokens, s[i:j+1])
			i = j + 1
			continue
		}
		j := i
		for j < len(s) && s[j] != ' ' && s[j] != '\t' {
			j++
		}
		tokens = append(tokens, s[i:j])
		i = j
	}
	return tokens, nil
}

// parseToken converts one value token into a typed value. Quoted tokens
// are strings, @tokens are file references, and bare tokens are tried
// as bool, int, and double before falling back to string, so unquoted
// words still load.
func (p *parser) parseToken(tok string) (policy.Value, error) {
	switch {
	case tok[0] == '"':
		s, err := strconv.Unquote(tok)
		if err != nil {
			return policy.Value{}, p.errf("bad string literal %s: %v", tok, err)
		}
		return policy.String(s), nil
	case tok[0] == '\'':
		return policy.String(tok[1 : len(tok)-1]), nil
	case tok[0] == '@':
		if len(tok) == 1 {
			return policy.Value{}, p.suggest("file reference @ has no path",
				"write the reference as @path/to/policy.paf")
		}
		return policy.File(policy.NewFileRef(tok[1:])), nil
	case tok == "true":
		return policy.Bool(true), nil
	case tok == "false":
		return policy.Bool(false), nil
	case tok == "{" || tok == "}":
		return policy.Value{}, p.suggest("brace inside a value list",
			"a nested policy block must be the only value on its line")
	}
	if i, err := strconv.Atoi(tok); err == nil {
		return policy.Int(i), nil
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return policy.Double(f), nil
	}
	return policy.String(tok), nil
}
