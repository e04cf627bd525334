package format

import (
	"errors"
	"fmt"
	"strings"

	"polaris-hq/polaris/pkg/policy"
)

// ErrEmptyArray is wrapped by writers asked to emit an entry with no
// values. A policy sequence is never empty, so every parser in this
// package rejects an empty array; writers refuse to produce output
// they cannot read back.
var ErrEmptyArray = errors.New("empty array not representable")

// Location identifies a position in a serialized policy document. It
// enables precise parse error reporting with source, line, and column
// information.
type Location struct {
	Source string // Path or logical name of the input
	Line   int    // Line number (1-based)
	Column int    // Column number (1-based, 0 if unknown)
}

// String returns "source:line:column", omitting trailing parts that are
// unknown.
func (l Location) String() string {
	if l.Source == "" && l.Line == 0 {
		return "<unknown>"
	}
	src := l.Source
	if src == "" {
		src = "<input>"
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", src, l.Line, l.Column)
	}
	if l.Line > 0 {
		return fmt.Sprintf("%s:%d", src, l.Line)
	}
	return src
}

// IsValid returns true if the location carries at least a line number.
func (l Location) IsValid() bool { return l.Line > 0 }

// ParseError reports malformed input rejected by a policy parser. It
// carries the position of the offense and, when the parser can tell,
// a suggested fix.
type ParseError struct {
	Format     string   // Format that rejected the input
	Location   Location // Where the offense was found
	Message    string   // What was wrong
	Suggestion string   // Suggested fix (optional)
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s", e.Format, e.Message)
	if e.Location.IsValid() || e.Location.Source != "" {
		fmt.Fprintf(&sb, "\n  --> %s", e.Location)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&sb, "\n  = suggestion: %s", e.Suggestion)
	}
	return sb.String()
}

// UnsupportedKindError reports that a format cannot encode a value kind.
// The write call that produced it emitted nothing to the destination.
type UnsupportedKindError struct {
	Format string      // Format that refused
	Name   string      // Entry name being written
	Kind   policy.Kind // Offending value kind
}

// Error implements the error interface.
func (e *UnsupportedKindError) Error() string {
	return fmt.Sprintf("[%s] cannot encode %s value %q: kind not supported by this format",
		e.Format, e.Kind, e.Name)
}

// UnsupportedNameError reports that a format cannot represent a
// hierarchical (dotted) name and refuses to flatten it silently.
type UnsupportedNameError struct {
	Format string // Format that refused
	Name   string // Offending hierarchical name
}

// Error implements the error interface.
func (e *UnsupportedNameError) Error() string {
	return fmt.Sprintf("[%s] cannot encode hierarchical name %q: format has no nesting",
		e.Format, e.Name)
}

// WriteError wraps a destination write failure. The underlying sink
// error is propagated verbatim and never retried.
type WriteError struct {
	Format string // Format performing the write
	Name   string // Entry being written ("" for document-level output)
	Err    error  // The sink's error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("[%s] destination write failed: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("[%s] destination write failed at %q: %v", e.Format, e.Name, e.Err)
}

// Unwrap exposes the sink error for errors.Is/As.
func (e *WriteError) Unwrap() error { return e.Err }
