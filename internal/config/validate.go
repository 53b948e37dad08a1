package config

import (
	"errors"
	"fmt"
	"math"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateCascade(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMatching() error {
	m := c.Matching
	weightSum := m.RatioWeight + m.PartialWeight + m.TokenSortWeight
	if math.Abs(weightSum-1.0) > 1e-9 {
		return fmt.Errorf("matching weights must sum to 1, got %.4f", weightSum)
	}
	for name, value := range map[string]float64{
		"matching.fuzzy_threshold":    m.FuzzyThreshold,
		"matching.strict_threshold":   m.StrictThreshold,
		"matching.high_confidence":    m.HighConfidence,
		"matching.tappable":           m.Tappable,
		"matching.visible":            m.Visible,
		"matching.llm_confidence_cap": m.LLMConfidenceCap,
		"matching.vision_floor":       m.VisionFloor,
		"matching.vision_cap":         m.VisionCap,
	} {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	if m.Visible > m.Tappable || m.Tappable > m.HighConfidence {
		return errors.New("matching thresholds must be ordered visible <= tappable <= high_confidence")
	}
	if m.VisionFloor > m.VisionCap {
		return errors.New("matching.vision_floor must not exceed matching.vision_cap")
	}
	if m.ProximityThreshold <= 0 || m.ProximityThreshold > 1 {
		return errors.New("matching.proximity_threshold must be in (0, 1]")
	}
	if m.IoUThreshold <= 0 || m.IoUThreshold > 1 {
		return errors.New("matching.iou_threshold must be in (0, 1]")
	}
	if m.PrefixLimit <= 0 || m.CandidateLimit <= 0 {
		return errors.New("matching candidate limits must be positive")
	}
	if m.Workers <= 0 {
		return errors.New("matching.workers must be positive")
	}
	return nil
}

func (c *Config) validateCascade() error {
	if c.Cascade.RequestBudgetSeconds <= 0 {
		return errors.New("cascade.request_budget_seconds must be positive")
	}
	if c.Cascade.StageTimeoutSeconds <= 0 {
		return errors.New("cascade.stage_timeout_seconds must be positive")
	}
	if c.Cascade.StageTimeoutSeconds > c.Cascade.RequestBudgetSeconds {
		return errors.New("cascade.stage_timeout_seconds must not exceed cascade.request_budget_seconds")
	}
	return nil
}

func (c *Config) validateIngest() error {
	seen := make(map[string]struct{}, len(c.Ingest.Sources))
	for i, src := range c.Ingest.Sources {
		if src.Name == "" {
			return fmt.Errorf("ingest.sources[%d].name must be set", i)
		}
		if _, dup := seen[src.Name]; dup {
			return fmt.Errorf("ingest.sources[%d].name %q is duplicated", i, src.Name)
		}
		seen[src.Name] = struct{}{}
		if src.Path == "" {
			return fmt.Errorf("ingest.sources[%d].path must be set", i)
		}
		if src.Format != "csv" {
			return fmt.Errorf("ingest.sources[%d].format %q is not supported", i, src.Format)
		}
		if src.ScaleMax <= src.ScaleMin {
			return fmt.Errorf("ingest.sources[%d] scale_max must exceed scale_min", i)
		}
	}
	return nil
}
