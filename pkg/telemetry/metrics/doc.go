// Package metrics provides Prometheus instrumentation for policy
// serialization, parsing, and snapshot storage. All metrics register
// against a caller-provided registry so tests and embedders stay
// isolated from the default global one.
package metrics
