package paf

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"polaris-hq/polaris/pkg/format"
)

func TestParse_Scalars(t *testing.T) {
	input := Decl + "\n" +
		"standalone: true\n" +
		"port: 9001\n" +
		"threshold: 4.5\n" +
		"host: \"lsst.org\"\n" +
		"cal: @defaults/cal.paf\n"

	p, err := Parse([]byte(input), "test.paf")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if b, ok := p.GetBool("standalone"); !ok || !b {
		t.Errorf("standalone = %v, %v, want true", b, ok)
	}
	if i, ok := p.GetInt("port"); !ok || i != 9001 {
		t.Errorf("port = %d, %v, want 9001", i, ok)
	}
	if f, ok := p.GetDouble("threshold"); !ok || f != 4.5 {
		t.Errorf("threshold = %g, %v, want 4.5", f, ok)
	}
	if s, ok := p.GetString("host"); !ok || s != "lsst.org" {
		t.Errorf("host = %q, %v, want %q", s, ok, "lsst.org")
	}
	ref, ok := p.GetFile("cal")
	if !ok || ref.Path() != "defaults/cal.paf" {
		t.Errorf("cal = %v, %v, want @defaults/cal.paf", ref, ok)
	}
}

func TestParse_ArraysPreserveOrderAndCount(t *testing.T) {
	p, err := Parse([]byte("ids: 3 1 2\n"), "test.paf")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	vs, ok := p.Values("ids")
	if !ok || len(vs) != 3 {
		t.Fatalf("Values(ids) = %v, %v, want 3 values", vs, ok)
	}
	got := make([]int, len(vs))
	for i, v := range vs {
		got[i], _ = v.AsInt()
	}
	if !reflect.DeepEqual(got, []int{3, 1, 2}) {
		t.Errorf("ids = %v, want [3 1 2]", got)
	}
}

func TestParse_RepeatedNamesAppend(t *testing.T) {
	input := "filters: \"g\"\nfilters: \"r\"\nfilters: \"i\"\n"
	p, err := Parse([]byte(input), "test.paf")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	vs, _ := p.Values("filters")
	if len(vs) != 3 {
		t.Fatalf("len(filters) = %d, want 3", len(vs))
	}
	if s, _ := vs[2].AsString(); s != "i" {
		t.Errorf("filters[2] = %q, want %q", s, "i")
	}
}

func TestParse_NestedBlocks(t *testing.T) {
	input := "receiver: {\n" +
		"  host: \"lsst.org\"\n" +
		"  deep: {\n" +
		"    level: 2\n" +
		"  }\n" +
		"}\n"
	p, err := Parse([]byte(input), "test.paf")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if s, ok := p.GetString("receiver.host"); !ok || s != "lsst.org" {
		t.Errorf("receiver.host = %q, %v", s, ok)
	}
	if i, ok := p.GetInt("receiver.deep.level"); !ok || i != 2 {
		t.Errorf("receiver.deep.level = %d, %v", i, ok)
	}
}

func TestParse_QuotedStringsKeepSpaces(t *testing.T) {
	p, err := Parse([]byte("msg: \"hello policy world\" 'single quoted'\n"), "t.paf")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	vs, _ := p.Values("msg")
	if len(vs) != 2 {
		t.Fatalf("len(msg) = %d, want 2", len(vs))
	}
	if s, _ := vs[0].AsString(); s != "hello policy world" {
		t.Errorf("msg[0] = %q", s)
	}
	if s, _ := vs[1].AsString(); s != "single quoted" {
		t.Errorf("msg[1] = %q", s)
	}
}

func TestParse_BareWordsAreStrings(t *testing.T) {
	p, err := Parse([]byte("mode: quiet\n"), "t.paf")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if s, ok := p.GetString("mode"); !ok || s != "quiet" {
		t.Errorf("mode = %q, %v, want %q", s, ok, "quiet")
	}
}

func TestParse_CommentsAndBlanksIgnored(t *testing.T) {
	input := "\n# a comment\n  \nx: 1\n# trailing comment\n"
	p, err := Parse([]byte(input), "t.paf")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		wantLine int
		wantIn   string
	}{
		{"missing value", "x:\n", 1, "no value"},
		{"no colon", "just words\n", 1, "name: value"},
		{"unmatched close", "x: 1\n}\n", 2, "unmatched }"},
		{"unclosed block", "a: {\n  x: 1\n", 2, "unclosed"},
		{"unterminated string", "s: \"oops\n", 1, "unterminated"},
		{"mixed kinds", "x: 1 \"two\"\n", 1, "same type"},
		{"empty file ref", "f: @\n", 1, "no path"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse([]byte(c.input), "bad.paf")
			if err == nil {
				t.Fatal("Parse() succeeded on malformed input")
			}
			var pe *format.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error = %T, want *format.ParseError", err)
			}
			if pe.Location.Line != c.wantLine {
				t.Errorf("error line = %d, want %d", pe.Location.Line, c.wantLine)
			}
			if pe.Location.Source != "bad.paf" {
				t.Errorf("error source = %q, want %q", pe.Location.Source, "bad.paf")
			}
			if !strings.Contains(err.Error(), c.wantIn) {
				t.Errorf("error %q does not mention %q", err.Error(), c.wantIn)
			}
		})
	}
}

func TestParse_EmptyInput(t *testing.T) {
	p, err := Parse(nil, "empty.paf")
	if err != nil {
		t.Fatalf("Parse(nil) failed: %v", err)
	}
	if !p.IsEmpty() {
		t.Errorf("parsed policy not empty: %v", p)
	}
}

func TestFormat_Registered(t *testing.T) {
	f, ok := format.Lookup(Name)
	if !ok {
		t.Fatal("paf format not registered")
	}
	if f.Decl() != Decl {
		t.Errorf("Decl() = %q, want %q", f.Decl(), Decl)
	}
	if _, ok := format.ByExtension(".paf"); !ok {
		t.Error("ByExtension(.paf) not found")
	}
	if got, ok := format.Detect([]byte(Decl + "\nx: 1\n")); !ok || got.Name() != Name {
		t.Errorf("Detect() = %v, %v, want paf", got, ok)
	}
}

func TestParse_DottedNamesFoldIntoNesting(t *testing.T) {
	p, err := Parse([]byte("rcv.host: \"example.org\"\nrcv.port: 9001\n"), "t.paf")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	sub, ok := p.GetPolicy("rcv")
	if !ok {
		t.Fatal("rcv is not a sub-policy")
	}
	if s, _ := sub.GetString("host"); s != "example.org" {
		t.Errorf("rcv.host = %q", s)
	}
	if i, _ := sub.GetInt("port"); i != 9001 {
		t.Errorf("rcv.port = %d", i)
	}
}

func TestParse_PipelineDocument(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "pipeline.paf"))
	if err != nil {
		t.Fatalf("reading testdata: %v", err)
	}

	p, err := Parse(data, "pipeline.paf")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if s, _ := p.GetString("name"); s != "calexp" {
		t.Errorf("name = %q, want calexp", s)
	}
	if vs, ok := p.Values("thresholds"); !ok || len(vs) != 3 {
		t.Errorf("thresholds has %d values, want 3", len(vs))
	}
	if g, ok := p.GetDouble("camera.gain"); !ok || g != 1.7 {
		t.Errorf("camera.gain = %v, %v, want 1.7", g, ok)
	}
	ref, ok := p.GetFile("camera.defects")
	if !ok || ref.Path() != "defaults/defects.paf" {
		t.Errorf("camera.defects = %v, %v", ref, ok)
	}

	stages, ok := p.Values("stage")
	if !ok || len(stages) != 2 {
		t.Fatalf("stage has %d values, want 2", len(stages))
	}
	last, _ := stages[1].AsPolicy()
	if enabled, _ := last.GetBool("enabled"); enabled {
		t.Error("stage[1].enabled = true, want false")
	}
}
