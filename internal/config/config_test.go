package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPassesValidation(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.Matching.FuzzyThreshold != 0.72 {
		t.Errorf("fuzzy threshold = %v, want 0.72", cfg.Matching.FuzzyThreshold)
	}
	if cfg.Cache.MatchCapacity != defaultMatchCacheCapacity {
		t.Errorf("match capacity = %d, want %d", cfg.Cache.MatchCapacity, defaultMatchCacheCapacity)
	}
}

func TestLoadRejectsBadWeights(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[matching]\nratio_weight = 0.9\npartial_weight = 0.9\ntoken_sort_weight = 0.25\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := Load(path); err == nil {
		t.Fatal("expected validation error for weights not summing to 1")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[matching]\nfuzzy_threshold = 0.8\n\n[logging]\nlevel = \"DEBUG\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Matching.FuzzyThreshold != 0.8 {
		t.Errorf("fuzzy threshold = %v, want 0.8", cfg.Matching.FuzzyThreshold)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("logging level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestValidateIngestSources(t *testing.T) {
	cfg := Default()
	cfg.Ingest.Sources = []IngestSource{{Name: "a", Path: "/tmp/a.csv", Format: "csv", ScaleMin: 0, ScaleMax: 0}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for scale_max <= scale_min")
	}

	cfg.Ingest.Sources = []IngestSource{
		{Name: "a", Path: "/tmp/a.csv", Format: "csv", ScaleMax: 5},
		{Name: "a", Path: "/tmp/b.csv", Format: "csv", ScaleMax: 5},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for duplicate source name")
	}
}
