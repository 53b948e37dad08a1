package testsupport

import (
	"path/filepath"
	"testing"

	"vintner/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Cache.RatingPath = filepath.Join(base, "data", "rating_cache.json")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithMatching overrides the matching section on the test config.
func WithMatching(matching config.Matching) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Matching = matching
	}
}

// WithSources sets the ingestion sources on the test config.
func WithSources(sources ...config.IngestSource) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Ingest.Sources = sources
	}
}
