package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"vintner/internal/config"
	"vintner/internal/ratingcache"
	"vintner/internal/winestore"
)

type commandContext struct {
	configFlag  *string
	addressFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, addressFlag *string) *commandContext {
	return &commandContext{
		configFlag:  configFlag,
		addressFlag: addressFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withStore opens the wine store for the duration of fn.
func (c *commandContext) withStore(fn func(*config.Config, *winestore.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := winestore.Open(cfg)
	if err != nil {
		return fmt.Errorf("open wine store: %w", err)
	}
	defer store.Close()
	return fn(cfg, store)
}

func (c *commandContext) ratingCache() (*ratingcache.Cache, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return ratingcache.New(
		cfg.Cache.RatingPath,
		time.Duration(cfg.Cache.RatingTTLHours)*time.Hour,
		cfg.Cache.RatingMaxEntries,
		nil,
	), nil
}

// apiBaseURL resolves the daemon API endpoint from the --address flag or the
// configured bind address. A wildcard bind is rewritten to loopback.
func (c *commandContext) apiBaseURL() (string, error) {
	if c.addressFlag != nil && strings.TrimSpace(*c.addressFlag) != "" {
		return "http://" + strings.TrimSpace(*c.addressFlag), nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return "", fmt.Errorf("no daemon address configured; set paths.api_bind or pass --address")
	}
	if host, port, found := strings.Cut(bind, ":"); found && (host == "" || host == "0.0.0.0" || host == "::") {
		bind = "127.0.0.1:" + port
	}
	return "http://" + bind, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
