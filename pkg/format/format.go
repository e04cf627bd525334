package format

import (
	"bufio"
	"bytes"
	"io"
	"sort"
	"strings"
	"sync"

	"polaris-hq/polaris/pkg/policy"
)

// Format describes one concrete serialization format: how to construct
// writers bound to a destination, how to parse input back into a
// policy, and how the format identifies itself in files.
type Format interface {
	// Name is the registry key, e.g. "paf" or "json".
	Name() string

	// Extensions lists file extensions (with leading dot) the format
	// claims, e.g. [".paf"].
	Extensions() []string

	// Decl is the content declaration line the format writes when asked
	// for one, without trailing newline. Empty if the format has no
	// representation for a declaration.
	Decl() string

	// NewWriter returns a writer bound to w. A nil w binds the writer
	// to a discard sink.
	NewWriter(w io.Writer) Writer

	// Parse reconstructs a policy from serialized bytes. source names
	// the input for error locations. Malformed input is rejected with
	// *ParseError.
	Parse(data []byte, source string) (*policy.Policy, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Format)
)

// Register makes a format available for lookup. Concrete format
// packages call it from init, database/sql driver style. Registering
// two formats under one name panics.
func Register(f Format) {
	registryMu.Lock()
	defer registryMu.Unlock()
	name := f.Name()
	if _, dup := registry[name]; dup {
		panic("format: Register called twice for " + name)
	}
	registry[name] = f
}

// Lookup returns the format registered under name.
func Lookup(name string) (Format, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[name]
	return f, ok
}

// Names returns the registered format names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ByExtension returns the format claiming the file extension (with or
// without leading dot).
func ByExtension(ext string) (Format, bool) {
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if strings.EqualFold(e, ext) {
				return f, true
			}
		}
	}
	return nil, false
}

// Detect sniffs serialized bytes for a registered content declaration.
// Only the first non-blank line is examined, so data without a
// declaration stays undetected rather than mis-detected.
func Detect(data []byte) (Format, bool) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	var first string
	for sc.Scan() {
		first = strings.TrimSpace(sc.Text())
		if first != "" {
			break
		}
	}
	if first == "" {
		return nil, false
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	for _, f := range registry {
		if decl := f.Decl(); decl != "" && first == decl {
			return f, true
		}
	}
	return nil, false
}
