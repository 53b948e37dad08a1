package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vintner/internal/config"
	"vintner/internal/daemon"
	"vintner/internal/testsupport"
)

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, base string, extra string) string {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\nlog_dir = %q\napi_bind = %q\n\n[cache]\nrating_path = %q\n\n%s",
		filepath.Join(base, "data"),
		filepath.Join(base, "logs"),
		"127.0.0.1:0",
		filepath.Join(base, "data", "rating_cache.json"),
		extra,
	)
	path := filepath.Join(base, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func writeIngestSource(t *testing.T, base string) string {
	t.Helper()
	csvPath := filepath.Join(base, "critics.csv")
	content := "wine,score,vintage\n" +
		"Caymus Cabernet Sauvignon,92,2019\n" +
		"Caymus Cabernet Sauvignon,94,2021\n" +
		"Opus One,97,2018\n"
	if err := os.WriteFile(csvPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write source csv: %v", err)
	}
	return csvPath
}

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, _, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Errorf("init output missing target path: %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config not written: %v", err)
	}

	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("overwrite init: %v", err)
	}
}

func TestConfigValidateCommand(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base, "")

	out, _, err := runCLI(t, configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Errorf("unexpected validate output: %q", out)
	}
}

func TestCLIIngestAndStoreCommands(t *testing.T) {
	base := t.TempDir()
	csvPath := writeIngestSource(t, base)
	sources := fmt.Sprintf(
		"[[ingest.sources]]\nname = %q\npath = %q\nformat = %q\nname_column = %q\nrating_column = %q\nyear_column = %q\nscale_min = 0.0\nscale_max = 100.0\n",
		"critics", csvPath, "csv", "wine", "score", "vintage",
	)
	configPath := writeTestConfig(t, base, sources)

	out, _, err := runCLI(t, configPath, "ingest")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !strings.Contains(out, "critics") || !strings.Contains(out, "ingested") {
		t.Fatalf("unexpected ingest output: %q", out)
	}

	out, _, err = runCLI(t, configPath, "ingest")
	if err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	if !strings.Contains(out, "unchanged") {
		t.Fatalf("unchanged source was re-ingested: %q", out)
	}

	out, _, err = runCLI(t, configPath, "store", "search", "caymus")
	if err != nil {
		t.Fatalf("store search: %v", err)
	}
	if !strings.Contains(out, "Caymus Cabernet Sauvignon") {
		t.Fatalf("search output missing wine: %q", out)
	}

	out, _, err = runCLI(t, configPath, "store", "show", "Opus One")
	if err != nil {
		t.Fatalf("store show: %v", err)
	}
	if !strings.Contains(out, "Opus One") || !strings.Contains(out, "4.85") {
		t.Fatalf("unexpected show output: %q", out)
	}

	out, _, err = runCLI(t, configPath, "store", "stats")
	if err != nil {
		t.Fatalf("store stats: %v", err)
	}
	if !strings.Contains(out, "Wines:   2") {
		t.Fatalf("unexpected stats output: %q", out)
	}

	if _, _, err := runCLI(t, configPath, "ingest", "nonexistent"); err == nil {
		t.Fatal("expected error for unknown source name")
	}
}

func TestCacheCommands(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base, "")

	out, _, err := runCLI(t, configPath, "cache", "list")
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	if !strings.Contains(out, "empty") {
		t.Fatalf("unexpected empty cache output: %q", out)
	}

	out, _, err = runCLI(t, configPath, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "Cleared 0") {
		t.Fatalf("unexpected clear output: %q", out)
	}
}

func TestHealthCommandAgainstDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t, func(cfg *config.Config) {
		cfg.Perception.BaseURL = "http://127.0.0.1:9"
	})

	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon start: %v", err)
	}
	defer d.Stop()

	base := t.TempDir()
	configPath := writeTestConfig(t, base, "")
	out, _, err := runCLI(t, configPath, "health", "--address", d.Status().APIAddress)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !strings.Contains(out, "daemon") || !strings.Contains(out, "store") {
		t.Fatalf("unexpected health output: %q", out)
	}
}

func TestHealthCommandUnreachableDaemon(t *testing.T) {
	base := t.TempDir()
	configPath := writeTestConfig(t, base, "")

	if _, _, err := runCLI(t, configPath, "health", "--address", "127.0.0.1:1"); err == nil {
		t.Fatal("expected error for unreachable daemon")
	}
}
