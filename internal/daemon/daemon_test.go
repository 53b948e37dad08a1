package daemon_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"vintner/internal/config"
	"vintner/internal/daemon"
	"vintner/internal/testsupport"
)

func newTestDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	d, err := daemon.New(cfg, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func withPerception(cfg *config.Config) {
	cfg.Perception.BaseURL = "http://127.0.0.1:9"
}

func TestDaemonStartServesHealthEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t, withPerception)
	d := newTestDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	status := d.Status()
	if !status.Running {
		t.Fatal("status reports not running after start")
	}
	if status.APIAddress == "" {
		t.Fatal("no api address after start")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + status.APIAddress + "/api/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestDaemonEnforcesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t, withPerception)
	first := newTestDaemon(t, cfg)
	second := newTestDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}

	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance started while lock was held")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("start after lock release: %v", err)
	}
	second.Stop()
}

func TestDaemonRequiresPerceptionEndpoint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if _, err := daemon.New(cfg, nil); err == nil {
		t.Fatal("expected error for missing perception base url")
	}
}
