// Package store persists named policy snapshots. Two backends are
// provided: an in-memory map for tests and single-run tools, and a
// SQLite database for durable single-instance deployments. Snapshots
// are stored as serialized documents in a configurable format, so a
// database row can be inspected with nothing but a text editor.
//
// Syncer captures snapshots of a live policy source on a cron
// schedule.
package store
