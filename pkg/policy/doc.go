// Package policy provides the hierarchical policy document model used
// throughout Polaris.
//
// A policy is an ordered collection of named values: booleans, integers,
// doubles, strings, nested sub-policies, and references to external
// policy files, plus homogeneous sequences of each. Hierarchy is real
// nesting, and dotted names address values at any depth.
//
// # Core Types
//
// Policy: ordered mapping from names to values or value sequences
//
// Value: one typed leaf value (closed set of kinds, no coercion)
//
// FileRef: named pointer to policy content stored outside the document
//
// # Basic Usage
//
// Build a document and read it back:
//
//	p := policy.New()
//	p.SetString("receiver.host", "lsst.org")
//	p.SetInt("receiver.port", 9001)
//	p.AddString("filters", "g")
//	p.AddString("filters", "r")
//
//	host, _ := p.GetString("receiver.host")
//
// Dotted names create intermediate sub-policies on write and descend
// through them on read. Set replaces an entry outright; Add appends to
// its sequence and refuses to mix kinds.
//
// Serialization of policies to concrete wire formats lives in
// pkg/format and its sub-packages; this package holds no grammar.
package policy
