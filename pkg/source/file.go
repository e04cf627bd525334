package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"polaris-hq/polaris/pkg/format"
	"polaris-hq/polaris/pkg/policy"
	"polaris-hq/polaris/pkg/telemetry/metrics"
)

// FileConfig controls how a File source reads its document.
type FileConfig struct {
	// Path is the policy file to load.
	Path string

	// Format forces a specific registered format by name. When empty
	// the format is detected from the content declaration first and
	// the file extension second.
	Format string

	// InlineRefs resolves @file references by parsing the referenced
	// files and substituting their trees as nested policies. Paths are
	// resolved relative to the referencing file's directory.
	InlineRefs bool

	// MaxDepth bounds reference inlining to guard against cycles
	// (default 16).
	MaxDepth int

	// Metrics, when set, records parse counts and durations.
	Metrics *metrics.SerializationMetrics
}

// File is a Source that reads one policy document from disk.
type File struct {
	config FileConfig
	logger *slog.Logger
}

// NewFile creates a file source for the given configuration.
func NewFile(config FileConfig) *File {
	if config.MaxDepth <= 0 {
		config.MaxDepth = 16
	}
	return &File{
		config: config,
		logger: slog.Default().With("component", "source", "path", config.Path),
	}
}

// Name returns the file path.
func (f *File) Name() string { return f.config.Path }

// Load reads and parses the policy file.
func (f *File) Load(ctx context.Context) (*policy.Policy, error) {
	return f.load(ctx, f.config.Path, f.config.MaxDepth)
}

func (f *File) load(ctx context.Context, path string, depth int) (*policy.Policy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	fmtImpl, err := f.resolveFormat(path, data)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("parsing policy file", "format", fmtImpl.Name(), "bytes", len(data))

	start := time.Now()
	p, err := fmtImpl.Parse(data, path)
	if f.config.Metrics != nil {
		f.config.Metrics.RecordParse(fmtImpl.Name(), err, time.Since(start))
	}
	if err != nil {
		return nil, err
	}
	if f.config.InlineRefs {
		if err := f.inline(ctx, p, filepath.Dir(path), depth); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// resolveFormat picks the format: forced name, then content
// declaration, then file extension.
func (f *File) resolveFormat(path string, data []byte) (format.Format, error) {
	if f.config.Format != "" {
		impl, ok := format.Lookup(f.config.Format)
		if !ok {
			return nil, fmt.Errorf("unknown policy format %q (have %v)", f.config.Format, format.Names())
		}
		return impl, nil
	}
	if impl, ok := format.Detect(data); ok {
		return impl, nil
	}
	if impl, ok := format.ByExtension(filepath.Ext(path)); ok {
		return impl, nil
	}
	return nil, fmt.Errorf("cannot determine format of %q: no content declaration and unrecognized extension", path)
}

// inline replaces file-reference entries with the parsed contents of
// the referenced files.
func (f *File) inline(ctx context.Context, p *policy.Policy, dir string, depth int) error {
	if depth <= 0 {
		return fmt.Errorf("file reference nesting exceeds %d levels (reference cycle?)", f.config.MaxDepth)
	}
	for _, name := range p.Names() {
		vs, _ := p.Values(name)
		kind, _ := p.KindOf(name)
		switch kind {
		case policy.KindFile:
			resolved := make([]*policy.Policy, len(vs))
			for i, v := range vs {
				ref, _ := v.AsFile()
				target := ref.Path()
				if !filepath.IsAbs(target) {
					target = filepath.Join(dir, target)
				}
				sub, err := f.load(ctx, target, depth-1)
				if err != nil {
					return fmt.Errorf("inlining %q from %q: %w", name, ref.Path(), err)
				}
				resolved[i] = sub
			}
			// Set keeps the entry's position; Add extends its sequence.
			if err := p.SetPolicy(name, resolved[0]); err != nil {
				return err
			}
			for _, sub := range resolved[1:] {
				if err := p.AddPolicy(name, sub); err != nil {
					return err
				}
			}
		case policy.KindPolicy:
			for _, v := range vs {
				sub, _ := v.AsPolicy()
				if err := f.inline(ctx, sub, dir, depth); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
