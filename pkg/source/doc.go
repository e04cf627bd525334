// Package source loads policies from places: memory, files on disk,
// and files kept fresh by a filesystem watcher. A File source picks the
// format from the document's content declaration when one is present
// and falls back to the file extension, and can optionally inline
// @file references into nested policies. Reloading wraps a source with
// an fsnotify watcher and debounced reloads.
package source
