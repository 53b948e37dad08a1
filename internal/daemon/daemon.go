package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"vintner/internal/cascade"
	"vintner/internal/config"
	"vintner/internal/logging"
	"vintner/internal/matching"
	"vintner/internal/perception"
	"vintner/internal/ratingcache"
	"vintner/internal/scan"
	"vintner/internal/server"
	"vintner/internal/services/llm"
	"vintner/internal/services/visionllm"
	"vintner/internal/winestore"
)

// Daemon coordinates the scan pipeline services and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	store   *winestore.Store
	ratings *ratingcache.Cache
	scanner *scan.Scanner
	api     *server.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	APIAddress   string
	StorePath    string
	LockFilePath string
	CachedScores int
}

// New constructs a daemon with initialized dependencies. The wine store is
// opened immediately; model clients are built even without API keys so the
// cascade can report them as unconfigured instead of crashing.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	store, err := winestore.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open wine store: %w", err)
	}

	ratings := ratingcache.New(
		cfg.Cache.RatingPath,
		time.Duration(cfg.Cache.RatingTTLHours)*time.Hour,
		cfg.Cache.RatingMaxEntries,
		logger,
	)
	matchCache := matching.NewCache(cfg.Cache.MatchCapacity)
	matcher := matching.New(store, matchCache, cfg.Matching, logger)

	detector, err := perception.New(
		cfg.Perception.BaseURL,
		cfg.Perception.APIKey,
		time.Duration(cfg.Perception.TimeoutSeconds)*time.Second,
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build perception client: %w", err)
	}

	textClient := llm.NewClient(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	visionClient := visionllm.NewClient(visionllm.Config{
		APIKey:         cfg.Vision.APIKey,
		BaseURL:        cfg.Vision.BaseURL,
		Model:          cfg.Vision.Model,
		TimeoutSeconds: cfg.Vision.TimeoutSeconds,
	})

	orchestrator := cascade.New(matcher, store, ratings, textClient, visionClient, cfg.Matching, cfg.Cascade, logger)
	scanner := scan.New(detector, matcher, orchestrator, cfg.Matching, logger)

	health := map[string]server.HealthChecker{
		"store": func(ctx context.Context) error {
			_, err := store.Stats(ctx)
			return err
		},
	}
	if textClient.Configured() {
		health["llm"] = textClient.HealthCheck
	}
	api := server.New(cfg.Paths.APIBind, scanner, health, logger)

	lockPath := filepath.Join(cfg.Paths.DataDir, "vintnerd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		ratings:  ratings,
		scanner:  scanner,
		api:      api,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and begins serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vintner daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("start api server: %w", err)
	}
	d.cancel = cancel

	d.running.Store(true)
	d.logger.Info("vintner daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.Addr()))
	return nil
}

// Stop stops serving and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("vintner daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports runtime information.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		APIAddress:   d.api.Addr(),
		StorePath:    d.cfg.StorePath(),
		LockFilePath: d.lockPath,
		CachedScores: d.ratings.Count(),
	}
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}
