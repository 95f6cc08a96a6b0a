package report

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeResults(t *testing.T, lines []string) string {
	t.Helper()
	dir := t.TempDir()
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, "results.jsonl"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestSummarize_Aggregates(t *testing.T) {
	dir := writeResults(t, []string{
		`{"model":"gpt-4o","track":"analysis","modality":"spice_netlist","scores":{"raw":0.8,"pass":true},"judge":{"scores":{"a":0.9},"overall":0.9},"raw_blended":0.82}`,
		`{"model":"gpt-4o","track":"analysis","modality":"spice_netlist","scores":{"raw":0.4,"pass":false}}`,
		`{"model":"gpt-4o","track":"debugging","modality":"casIR","error":"deadline","error_class":"timeout"}`,
		`{"model":"claude","track":"analysis","modality":"spice_netlist","scores":{"raw":1.0,"pass":true}}`,
	})

	s, err := Summarize(dir)
	if err != nil {
		t.Fatal(err)
	}
	if s.Total != 4 {
		t.Fatalf("total = %d", s.Total)
	}

	gpt := s.ByModel["gpt-4o"]
	if gpt.Count != 3 || gpt.Scored != 2 {
		t.Errorf("gpt bucket = %+v", gpt)
	}
	if math.Abs(gpt.MeanRaw-0.6) > 1e-9 {
		t.Errorf("mean raw = %v, want 0.6", gpt.MeanRaw)
	}
	if math.Abs(gpt.PassRate-0.5) > 1e-9 {
		t.Errorf("pass rate = %v, want 0.5", gpt.PassRate)
	}
	if gpt.Judged != 1 || math.Abs(gpt.MeanJudge-0.9) > 1e-9 {
		t.Errorf("judge stats = %+v", gpt)
	}
	if gpt.Failures["timeout"] != 1 {
		t.Errorf("failures = %v", gpt.Failures)
	}

	if s.ByTrack["debugging"].Count != 1 {
		t.Errorf("track bucket = %+v", s.ByTrack)
	}
	if s.ByModality["casIR"].Failures["timeout"] != 1 {
		t.Errorf("modality bucket = %+v", s.ByModality["casIR"])
	}
}

func TestSummarize_RenderAndJSON(t *testing.T) {
	dir := writeResults(t, []string{
		`{"model":"dummy","track":"analysis","modality":"spice_netlist","scores":{"raw":1.0,"pass":true}}`,
	})
	s, err := Summarize(dir)
	if err != nil {
		t.Fatal(err)
	}

	text := s.Render()
	for _, want := range []string{"Total: 1", "By model", "dummy", "By modality", "spice_netlist"} {
		if !strings.Contains(text, want) {
			t.Errorf("render missing %q:\n%s", want, text)
		}
	}

	if err := s.WriteJSON(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "summary.json")); err != nil {
		t.Error(err)
	}
}

func TestSummarize_MissingResults(t *testing.T) {
	if _, err := Summarize(t.TempDir()); err == nil {
		t.Fatal("missing results.jsonl must error")
	}
}
