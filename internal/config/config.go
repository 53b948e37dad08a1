package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// Perception contains configuration for the bottle/text detection service.
type Perception struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// LLM contains connection settings for the batch validation model.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Vision contains connection settings for the image-bearing fallback model.
type Vision struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Matching contains scoring weights and confidence thresholds for the
// tiered matcher and the downstream cascade.
type Matching struct {
	// Weighted fuzzy score components. Must sum to 1.
	RatioWeight     float64 `toml:"ratio_weight"`
	PartialWeight   float64 `toml:"partial_weight"`
	TokenSortWeight float64 `toml:"token_sort_weight"`
	PhoneticBonus   float64 `toml:"phonetic_bonus"`

	FuzzyThreshold  float64 `toml:"fuzzy_threshold"`
	StrictThreshold float64 `toml:"strict_threshold"`

	HighConfidence float64 `toml:"high_confidence"`
	Tappable       float64 `toml:"tappable"`
	Visible        float64 `toml:"visible"`

	// LLM-sourced results are capped at this confidence; vision results are
	// clamped into [VisionFloor, VisionCap].
	LLMConfidenceCap float64 `toml:"llm_confidence_cap"`
	VisionFloor      float64 `toml:"vision_floor"`
	VisionCap        float64 `toml:"vision_cap"`

	ProximityThreshold float64 `toml:"proximity_threshold"`
	IoUThreshold       float64 `toml:"iou_threshold"`

	PrefixLimit    int `toml:"prefix_limit"`
	CandidateLimit int `toml:"candidate_limit"`
	Workers        int `toml:"workers"`

	Stoplist []string `toml:"stoplist"`
}

// Cache contains limits for the in-process match cache and the durable
// rating cache.
type Cache struct {
	MatchCapacity    int    `toml:"match_capacity"`
	RatingPath       string `toml:"rating_path"`
	RatingTTLHours   int    `toml:"rating_ttl_hours"`
	RatingMaxEntries int    `toml:"rating_max_entries"`
}

// Cascade contains timing budgets for the external validation stages.
type Cascade struct {
	RequestBudgetSeconds int `toml:"request_budget_seconds"`
	StageTimeoutSeconds  int `toml:"stage_timeout_seconds"`
}

// IngestSource describes one configured ingestion source file.
type IngestSource struct {
	Name         string  `toml:"name"`
	Path         string  `toml:"path"`
	Format       string  `toml:"format"`
	NameColumn   string  `toml:"name_column"`
	RatingColumn string  `toml:"rating_column"`
	YearColumn   string  `toml:"year_column"`
	ScaleMin     float64 `toml:"scale_min"`
	ScaleMax     float64 `toml:"scale_max"`
}

// Ingest contains ingestion configuration.
type Ingest struct {
	BatchSize int            `toml:"batch_size"`
	Sources   []IngestSource `toml:"sources"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for vintner.
//
// Configuration sections by subsystem:
//   - Paths: data/log directories and API bind address
//   - Perception: bottle/text detection service endpoint
//   - LLM: batch validation model connection
//   - Vision: image-bearing fallback model connection
//   - Matching: similarity weights, thresholds, association geometry
//   - Cache: match cache capacity and durable rating cache limits
//   - Cascade: per-request and per-stage time budgets
//   - Ingest: source file definitions for the wine store
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Perception Perception `toml:"perception"`
	LLM        LLM        `toml:"llm"`
	Vision     Vision     `toml:"vision"`
	Matching   Matching   `toml:"matching"`
	Cache      Cache      `toml:"cache"`
	Cascade    Cascade    `toml:"cascade"`
	Ingest     Ingest     `toml:"ingest"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vintner/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vintner.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StorePath returns the location of the wine store database.
func (c *Config) StorePath() string {
	return filepath.Join(c.Paths.DataDir, "wines.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
