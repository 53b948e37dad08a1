package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCache(); err != nil {
		return err
	}
	if err := c.normalizeIngest(); err != nil {
		return err
	}
	c.normalizeServices()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeCache() error {
	var err error
	if strings.TrimSpace(c.Cache.RatingPath) == "" {
		c.Cache.RatingPath = defaultRatingCachePath
	}
	if c.Cache.RatingPath, err = expandPath(c.Cache.RatingPath); err != nil {
		return fmt.Errorf("cache.rating_path: %w", err)
	}
	if c.Cache.MatchCapacity <= 0 {
		c.Cache.MatchCapacity = defaultMatchCacheCapacity
	}
	if c.Cache.RatingTTLHours <= 0 {
		c.Cache.RatingTTLHours = defaultRatingTTLHours
	}
	if c.Cache.RatingMaxEntries <= 0 {
		c.Cache.RatingMaxEntries = defaultRatingMaxEntries
	}
	return nil
}

func (c *Config) normalizeIngest() error {
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = defaultIngestBatchSize
	}
	for i := range c.Ingest.Sources {
		src := &c.Ingest.Sources[i]
		src.Name = strings.TrimSpace(src.Name)
		src.Format = strings.ToLower(strings.TrimSpace(src.Format))
		if src.Format == "" {
			src.Format = "csv"
		}
		var err error
		if src.Path, err = expandPath(src.Path); err != nil {
			return fmt.Errorf("ingest.sources[%d].path: %w", i, err)
		}
		if src.ScaleMax == 0 {
			src.ScaleMin, src.ScaleMax = 0, 5
		}
	}
	return nil
}

func (c *Config) normalizeServices() {
	c.Perception.BaseURL = strings.TrimRight(strings.TrimSpace(c.Perception.BaseURL), "/")
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.Vision.BaseURL = strings.TrimSpace(c.Vision.BaseURL)
	if c.Vision.APIKey == "" {
		c.Vision.APIKey = c.LLM.APIKey
	}
	if c.Vision.BaseURL == "" {
		c.Vision.BaseURL = c.LLM.BaseURL
	}
	if c.Vision.Model == "" {
		c.Vision.Model = c.LLM.Model
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	for i, word := range c.Matching.Stoplist {
		c.Matching.Stoplist[i] = strings.ToLower(strings.TrimSpace(word))
	}
}
