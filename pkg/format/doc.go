// Package format defines the serialization contract between policy
// documents and concrete wire formats.
//
// A Writer is bound to one destination for its lifetime and serializes
// whole trees or individual named entries; the destination is borrowed,
// never closed, and a writer constructed without one attaches to a
// discard sink so writes cannot fail for lack of a destination. Each
// format's Parse is the inverse mapping, rejecting malformed input with
// a *ParseError that carries source, line, and column.
//
// Concrete formats live in sub-packages (paf, jsonfmt, yamlfmt, flat)
// and register themselves on import:
//
//	import _ "polaris-hq/polaris/pkg/format/paf"
//
//	f, _ := format.Lookup("paf")
//	w := f.NewWriter(os.Stdout)
//	err := w.Write(doc, true)
//
// Errors are typed: *UnsupportedKindError when a format cannot encode a
// value kind, *UnsupportedNameError when a flat format refuses a dotted
// name, *WriteError wrapping a failed destination write, *ParseError on
// the reader side. A writer performs no recovery; every error aborts
// the current call and surfaces to the caller.
package format
