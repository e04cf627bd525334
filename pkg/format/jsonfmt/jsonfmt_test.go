package jsonfmt

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"polaris-hq/polaris/pkg/format"
	"polaris-hq/polaris/pkg/policy"
)

func TestWriter_Document(t *testing.T) {
	p := policy.New()
	p.SetBool("standalone", true)
	p.AddString("filters", "g")
	p.AddString("filters", "r")
	p.SetString("rcv.host", "lsst.org")
	p.SetInt("rcv.port", 9001)
	p.SetDouble("exposure", 30)
	p.SetFile("cal", policy.NewFileRef("defaults/cal.paf"))

	var buf bytes.Buffer
	if err := NewWriter(&buf).Write(p, false); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	want := `{
  "standalone": true,
  "filters": ["g", "r"],
  "rcv": {
    "host": "lsst.org",
    "port": 9001
  },
  "exposure": 30.0,
  "cal": {"$file": "defaults/cal.paf"}
}
`
	if got := buf.String(); got != want {
		t.Errorf("output:\n%s\nwant:\n%s", got, want)
	}

	// Aside from the forced "30.0", the output is plain JSON.
	var anyDoc map[string]any
	if err := json.Unmarshal(buf.Bytes(), &anyDoc); err != nil {
		t.Errorf("output is not valid JSON: %v", err)
	}
}

func TestWriter_EmptyTree(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(&buf).Write(policy.New(), true); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	// No declaration syntax in JSON: withDecl adds nothing.
	if got := buf.String(); got != "{}\n" {
		t.Errorf("output = %q, want {} and newline", got)
	}
}

func TestWriter_EntryWritesAreJSONLines(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteInts("ids", []int{1, 2}); err != nil {
		t.Fatalf("WriteInts() failed: %v", err)
	}
	if err := format.WriteString(w, "name", "polaris"); err != nil {
		t.Fatalf("WriteString() failed: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	for _, line := range lines {
		var doc map[string]any
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			t.Errorf("line %q is not valid JSON: %v", line, err)
		}
	}
}

func TestWriter_EmptyArrayRejected(t *testing.T) {
	var buf bytes.Buffer
	err := NewWriter(&buf).WriteStrings("none", nil)
	if !errors.Is(err, format.ErrEmptyArray) {
		t.Fatalf("WriteStrings(nil) error = %v, want ErrEmptyArray", err)
	}
	if buf.Len() != 0 {
		t.Errorf("failed write left %d bytes in destination", buf.Len())
	}
}

func TestWriter_FileKeyCollisionRejected(t *testing.T) {
	// A sub-policy holding nothing but a string named "$file" would
	// encode as {"$file": "..."} and read back as a file reference.
	shadow := policy.New()
	shadow.SetString("$file", "not-a-reference")

	p := policy.New()
	p.SetInt("port", 9001)
	p.SetPolicy("a", shadow)

	var buf bytes.Buffer
	if err := NewWriter(&buf).Write(p, false); err == nil {
		t.Fatal("Write() accepted a sub-policy shaped like a file reference")
	}
	if buf.Len() != 0 {
		t.Errorf("failed write left %d bytes in destination", buf.Len())
	}

	if err := NewWriter(&buf).WritePolicies("a", []*policy.Policy{shadow}); err == nil {
		t.Error("WritePolicies() accepted a sub-policy shaped like a file reference")
	}

	// A second entry breaks the shape; the sub-policy encodes normally.
	shadow.SetInt("n", 1)
	if err := NewWriter(&buf).Write(p, false); err != nil {
		t.Fatalf("Write() failed on a two-entry sub-policy: %v", err)
	}
	got, err := Parse(buf.Bytes(), "shadow.json")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if k, _ := got.KindOf("a"); k != policy.KindPolicy {
		t.Errorf("KindOf(a) = %s, want policy", k)
	}
}

func TestParse_FileKeyArrayIsNotAReference(t *testing.T) {
	p, err := Parse([]byte(`{"a": {"$file": ["x", "y"]}}`), "t.json")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if k, _ := p.KindOf("a"); k != policy.KindPolicy {
		t.Fatalf("KindOf(a) = %s, want policy", k)
	}
	vs, _ := p.Values("a.$file")
	if len(vs) != 2 {
		t.Errorf("a.$file has %d values, want 2", len(vs))
	}
}

func TestWriter_NonFiniteDoubleRejected(t *testing.T) {
	var buf bytes.Buffer
	err := NewWriter(&buf).WriteDoubles("bad", []float64{1.0, math.Inf(1)})
	if err == nil {
		t.Fatal("non-finite double accepted")
	}
	if buf.Len() != 0 {
		t.Errorf("failed write left %d bytes in destination", buf.Len())
	}
}

func TestWriter_DiscardSink(t *testing.T) {
	w := NewWriter(nil)
	p := policy.New()
	p.SetInt("x", 1)
	if err := w.Write(p, false); err != nil {
		t.Errorf("Write() on discard sink failed: %v", err)
	}
	if err := w.WriteBools("b", []bool{true}); err != nil {
		t.Errorf("WriteBools() on discard sink failed: %v", err)
	}
}

func TestParse_Document(t *testing.T) {
	input := `{
  "standalone": true,
  "filters": ["g", "r"],
  "rcv": {"host": "lsst.org", "port": 9001},
  "exposure": 30.0,
  "cal": {"$file": "defaults/cal.paf"}
}`
	p, err := Parse([]byte(input), "test.json")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if b, _ := p.GetBool("standalone"); !b {
		t.Error("standalone != true")
	}
	vs, _ := p.Values("filters")
	if len(vs) != 2 {
		t.Errorf("len(filters) = %d, want 2", len(vs))
	}
	if i, ok := p.GetInt("rcv.port"); !ok || i != 9001 {
		t.Errorf("rcv.port = %d, %v", i, ok)
	}
	if f, ok := p.GetDouble("exposure"); !ok || f != 30.0 {
		t.Errorf("exposure = %g, %v (kind must be double, not int)", f, ok)
	}
	ref, ok := p.GetFile("cal")
	if !ok || ref.Path() != "defaults/cal.paf" {
		t.Errorf("cal = %v, %v", ref, ok)
	}

	// Insertion order of the JSON document is preserved.
	wantNames := []string{"standalone", "filters", "rcv", "exposure", "cal"}
	got := p.Names()
	for i := range wantNames {
		if got[i] != wantNames[i] {
			t.Fatalf("Names() = %v, want %v", got, wantNames)
		}
	}
}

func TestParse_NumberKinds(t *testing.T) {
	p, err := Parse([]byte(`{"i": 3, "d": 3.0, "e": 1e3}`), "t.json")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if k, _ := p.KindOf("i"); k != policy.KindInt {
		t.Errorf("KindOf(i) = %s, want int", k)
	}
	if k, _ := p.KindOf("d"); k != policy.KindDouble {
		t.Errorf("KindOf(d) = %s, want double", k)
	}
	if k, _ := p.KindOf("e"); k != policy.KindDouble {
		t.Errorf("KindOf(e) = %s, want double", k)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"not an object", `[1, 2]`, "must be an object"},
		{"syntax", "{\n  \"a\": 1,\n}", ""},
		{"null value", `{"a": null}`, "null"},
		{"mixed array", `{"a": [1, "x"]}`, "mixed"},
		{"nested array", `{"a": [[1]]}`, "nested arrays"},
		{"empty array", `{"a": []}`, "empty"},
		{"trailing content", `{"a": 1} {"b": 2}`, "after closing brace"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse([]byte(c.input), "bad.json")
			if err == nil {
				t.Fatal("Parse() succeeded on malformed input")
			}
			var pe *format.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error = %T, want *format.ParseError", err)
			}
			if pe.Location.Line < 1 {
				t.Errorf("error has no line: %v", pe.Location)
			}
			if c.want != "" && !strings.Contains(err.Error(), c.want) {
				t.Errorf("error %q does not mention %q", err.Error(), c.want)
			}
		})
	}
}

func TestParse_SyntaxErrorLine(t *testing.T) {
	input := "{\n  \"a\": 1,\n  \"b\": oops\n}"
	_, err := Parse([]byte(input), "bad.json")
	var pe *format.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *format.ParseError", err)
	}
	if pe.Location.Line != 3 {
		t.Errorf("error line = %d, want 3", pe.Location.Line)
	}
}

func TestRoundTrip_Property(t *testing.T) {
	nameGen := rapid.StringMatching(`[a-zA-Z][a-zA-Z0-9_]{0,8}`)
	rapid.Check(t, func(t *rapid.T) {
		tree := policy.New()
		n := rapid.IntRange(0, 6).Draw(t, "entries")
		for e := 0; e < n; e++ {
			name := nameGen.Draw(t, "name")
			if tree.Has(name) || name == "$file" {
				continue
			}
			count := rapid.IntRange(1, 3).Draw(t, "count")
			switch rapid.IntRange(0, 4).Draw(t, "kind") {
			case 0:
				for i := 0; i < count; i++ {
					tree.AddBool(name, rapid.Bool().Draw(t, "b"))
				}
			case 1:
				for i := 0; i < count; i++ {
					tree.AddInt(name, rapid.Int().Draw(t, "i"))
				}
			case 2:
				for i := 0; i < count; i++ {
					tree.AddDouble(name, rapid.Float64Range(-1e12, 1e12).Draw(t, "d"))
				}
			case 3:
				for i := 0; i < count; i++ {
					tree.AddString(name, rapid.String().Draw(t, "s"))
				}
			case 4:
				for i := 0; i < count; i++ {
					sub := policy.New()
					sub.SetInt("id", i)
					tree.AddPolicy(name, sub)
				}
			}
		}

		var buf bytes.Buffer
		if err := NewWriter(&buf).Write(tree, false); err != nil {
			t.Fatalf("Write() failed: %v", err)
		}
		got, err := Parse(buf.Bytes(), "roundtrip.json")
		if err != nil {
			t.Fatalf("Parse() failed: %v\ninput:\n%s", err, buf.String())
		}
		if !got.Equal(tree) {
			t.Fatalf("round-trip mismatch\n want: %s\n  got: %s\n text:\n%s",
				tree, got, buf.String())
		}
	})
}
