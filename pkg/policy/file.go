package policy

// FileRef names external policy content by a path-like string. It is a
// lazy reference: writers emit only the reference token, and resolving
// the path to actual policy data is the loader's job, never the
// writer's.
type FileRef struct {
	path string
}

// NewFileRef creates a reference to the policy content stored at path.
func NewFileRef(path string) FileRef {
	return FileRef{path: path}
}

// Path returns the referenced path.
func (f FileRef) Path() string { return f.path }

// String returns the reference token used in diagnostics.
func (f FileRef) String() string { return "@" + f.path }
