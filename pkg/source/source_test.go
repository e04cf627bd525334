package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	_ "polaris-hq/polaris/pkg/format/flat"
	_ "polaris-hq/polaris/pkg/format/jsonfmt"
	"polaris-hq/polaris/pkg/format/paf"
	_ "polaris-hq/polaris/pkg/format/yamlfmt"
	"polaris-hq/polaris/pkg/policy"
	"polaris-hq/polaris/pkg/telemetry/metrics"
)

func TestMemory_LoadCopies(t *testing.T) {
	p := policy.New()
	p.SetInt("x", 1)

	src := NewMemory("test", p)
	got, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	got.SetInt("x", 99)

	again, _ := src.Load(context.Background())
	if v, _ := again.GetInt("x"); v != 1 {
		t.Errorf("mutating a loaded copy changed the backing policy: x = %d", v)
	}
}

func TestMemory_NilPolicy(t *testing.T) {
	src := NewMemory("empty", nil)
	p, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !p.IsEmpty() {
		t.Errorf("nil-backed source returned non-empty policy: %v", p)
	}
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMemory("c", nil).Load(ctx); err == nil {
		t.Error("Load() with cancelled context succeeded")
	}
}

func writeTemp(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestFile_DetectsByDeclaration(t *testing.T) {
	dir := t.TempDir()
	// A paf document behind a .txt extension: the declaration wins.
	path := writeTemp(t, dir, "policy.txt", paf.Decl+"\nport: 9001\n")

	p, err := NewFile(FileConfig{Path: path}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if v, _ := p.GetInt("port"); v != 9001 {
		t.Errorf("port = %d, want 9001", v)
	}
}

func TestFile_DetectsByExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "policy.yaml", "host: \"lsst.org\"\n")

	p, err := NewFile(FileConfig{Path: path}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if s, _ := p.GetString("host"); s != "lsst.org" {
		t.Errorf("host = %q, want lsst.org", s)
	}
}

func TestFile_ForcedFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "policy.dat", "{\"n\": 1}\n")

	p, err := NewFile(FileConfig{Path: path, Format: "json"}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if v, _ := p.GetInt("n"); v != 1 {
		t.Errorf("n = %d, want 1", v)
	}

	_, err = NewFile(FileConfig{Path: path, Format: "nope"}).Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unknown policy format") {
		t.Errorf("forced unknown format error = %v", err)
	}
}

func TestFile_UndetectableFormat(t *testing.T) {
	dir := t.TempDir()
	path := writeTemp(t, dir, "policy.dat", "who knows\n")

	_, err := NewFile(FileConfig{Path: path}).Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "cannot determine format") {
		t.Errorf("error = %v, want undetectable-format failure", err)
	}
}

func TestFile_RecordsParseMetrics(t *testing.T) {
	dir := t.TempDir()
	good := writeTemp(t, dir, "good.paf", paf.Decl+"\nport: 1\n")
	bad := writeTemp(t, dir, "bad.paf", paf.Decl+"\nport: {\n")

	registry := prometheus.NewRegistry()
	sm := metrics.NewSerializationMetrics(metrics.Config{}, registry)

	if _, err := NewFile(FileConfig{Path: good, Metrics: sm}).Load(context.Background()); err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if _, err := NewFile(FileConfig{Path: bad, Metrics: sm}).Load(context.Background()); err == nil {
		t.Fatal("Load() of malformed file succeeded")
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != "polaris_parse_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	if total != 2 {
		t.Errorf("parse_total = %v, want 2", total)
	}
}

func TestFile_MissingFile(t *testing.T) {
	_, err := NewFile(FileConfig{Path: "/no/such/policy.paf"}).Load(context.Background())
	if err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}

func TestFile_InlineRefs(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "cal.paf", paf.Decl+"\ngain: 2.5\n")
	main := writeTemp(t, dir, "main.paf",
		paf.Decl+"\nname: \"obs\"\ncal: @cal.paf\n")

	p, err := NewFile(FileConfig{Path: main, InlineRefs: true}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if k, _ := p.KindOf("cal"); k != policy.KindPolicy {
		t.Fatalf("KindOf(cal) = %s, want policy", k)
	}
	if g, ok := p.GetDouble("cal.gain"); !ok || g != 2.5 {
		t.Errorf("cal.gain = %v, %v", g, ok)
	}
	// Inlining keeps the entry where it was.
	names := p.Names()
	if len(names) != 2 || names[1] != "cal" {
		t.Errorf("Names() = %v, want [name cal]", names)
	}
}

func TestFile_InlineRefsLeftAloneByDefault(t *testing.T) {
	dir := t.TempDir()
	main := writeTemp(t, dir, "main.paf", paf.Decl+"\ncal: @cal.paf\n")

	p, err := NewFile(FileConfig{Path: main}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	ref, ok := p.GetFile("cal")
	if !ok || ref.Path() != "cal.paf" {
		t.Errorf("cal = %v, %v, want untouched reference", ref, ok)
	}
}

func TestFile_InlineCycleDetected(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "a.paf", paf.Decl+"\nnext: @b.paf\n")
	path := writeTemp(t, dir, "b.paf", paf.Decl+"\nnext: @a.paf\n")

	_, err := NewFile(FileConfig{Path: path, InlineRefs: true}).Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "nesting exceeds") {
		t.Errorf("error = %v, want nesting-depth failure", err)
	}
}
