package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.DataRoot != "data" {
		t.Errorf("DataRoot = %q, want data", cfg.Paths.DataRoot)
	}
	if cfg.Workers.Items != 8 {
		t.Errorf("Workers.Items = %d, want 8", cfg.Workers.Items)
	}
	if cfg.Judge.Model != "gpt-4o-mini" {
		t.Errorf("Judge.Model = %q, want gpt-4o-mini", cfg.Judge.Model)
	}
	if !cfg.Mutation.Randomize {
		t.Error("Mutation.Randomize should default to true")
	}
}

func TestLoad_OverlaysYAMLOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench_config.yaml")
	raw := `
paths:
  data_root: /srv/bench/data
workers:
  items: 2
timeouts:
  task_seconds: 45
resources:
  gpt-4o:
    rpm: 500
    tpm: 200000
judge:
  max_attempts: 3
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.DataRoot != "/srv/bench/data" {
		t.Errorf("DataRoot = %q", cfg.Paths.DataRoot)
	}
	if cfg.Paths.RubricsRoot != "rubrics" {
		t.Errorf("RubricsRoot = %q, default should survive partial overlay", cfg.Paths.RubricsRoot)
	}
	if cfg.Workers.Items != 2 {
		t.Errorf("Workers.Items = %d, want 2", cfg.Workers.Items)
	}
	if got := cfg.Resources["gpt-4o"]; got.RPM != 500 || got.TPM != 200000 {
		t.Errorf("Resources[gpt-4o] = %+v", got)
	}
	if cfg.Judge.MaxAttempts != 3 {
		t.Errorf("Judge.MaxAttempts = %d, want 3", cfg.Judge.MaxAttempts)
	}
	if cfg.Judge.MaxTokens != 400 {
		t.Errorf("Judge.MaxTokens = %d, default should survive", cfg.Judge.MaxTokens)
	}
	if cfg.TaskTimeout() != 45*time.Second {
		t.Errorf("TaskTimeout = %v, want 45s", cfg.TaskTimeout())
	}
	if cfg.ModelTimeout() != 3600*time.Second {
		t.Errorf("ModelTimeout = %v, want 1h", cfg.ModelTimeout())
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("paths: [not, a, map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error for malformed YAML")
	}
}
