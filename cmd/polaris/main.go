// Polaris is a toolkit for hierarchical policy documents.
//
// It reads and writes policy trees in several formats (paf, json,
// yaml, flat), converts between them, validates files, and keeps named
// snapshots in a SQLite database.
//
// Usage:
//
//	# Convert a paf document to JSON
//	polaris convert -i pipeline.paf -o pipeline.json
//
//	# Validate policy files
//	polaris check defaults/*.paf
//
//	# Summarize a document's entries
//	polaris show pipeline.paf
//
//	# Capture a snapshot into a database
//	polaris snapshot save --db snapshots.db --name prod pipeline.paf
//
//	# Show version information
//	polaris version
package main

func main() {
	Execute()
}
