package template

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRender_Vars(t *testing.T) {
	out := Render("Hello {name}, modality={modality}", map[string]string{
		"name":     "world",
		"modality": "spice_netlist",
	}, "")
	want := "Hello world, modality=spice_netlist"
	if out != want {
		t.Errorf("got %q want %q", out, want)
	}
}

func TestRender_MissingVarLeftVerbatim(t *testing.T) {
	out := Render("value={missing}", nil, "")
	if out != "value={missing}" {
		t.Errorf("missing var should stay verbatim, got %q", out)
	}
}

func TestRender_Includes(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "inner.md"), []byte("inner {x}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "outer.md"), []byte("before {path:inner.md} after"), 0o644); err != nil {
		t.Fatal(err)
	}

	out := Render("top {path:outer.md}", map[string]string{"x": "42"}, dir)
	want := "top before inner 42 after"
	if out != want {
		t.Errorf("got %q want %q", out, want)
	}
}

func TestRender_UnreadableIncludeLeftVerbatim(t *testing.T) {
	out := Render("{path:does/not/exist.md}", nil, t.TempDir())
	if out != "{path:does/not/exist.md}" {
		t.Errorf("unreadable include should stay verbatim, got %q", out)
	}
}

func TestRender_IncludeCycleBounded(t *testing.T) {
	dir := t.TempDir()
	// a includes b includes a
	if err := os.WriteFile(filepath.Join(dir, "a.md"), []byte("A{path:b.md}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.md"), []byte("B{path:a.md}"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Must terminate; content beyond the depth cap stays unresolved.
	out := Render("{path:a.md}", nil, dir)
	if out == "" {
		t.Error("expected non-empty render")
	}
}
