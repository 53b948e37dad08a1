package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"

	"vintner/internal/config"
	"vintner/internal/logging"
	"vintner/internal/winestore"
)

// Runner drives ingestion for configured sources. An flock-guarded lock file
// prevents two ingestion processes from interleaving writes.
type Runner struct {
	store  *winestore.Store
	cfg    *config.Config
	logger *slog.Logger
	lock   *flock.Flock
}

// Summary reports the outcome of one source's ingestion.
type Summary struct {
	SourceName string
	FileHash   string
	Processed  int
	Added      int
	Updated    int
	Skipped    int
	Dropped    int
	// AlreadyIngested is set when the file hash matched a previous run and
	// the source was skipped entirely.
	AlreadyIngested bool
}

// NewRunner builds an ingestion runner backed by the given store.
func NewRunner(store *winestore.Store, cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		store:  store,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "ingest"),
		lock:   flock.New(filepath.Join(cfg.Paths.DataDir, "ingest.lock")),
	}
}

// RunAll ingests every configured source in order. A source that fails stops
// the run; completed sources stay committed.
func (r *Runner) RunAll(ctx context.Context, force bool) ([]Summary, error) {
	summaries := make([]Summary, 0, len(r.cfg.Ingest.Sources))
	for _, src := range r.cfg.Ingest.Sources {
		summary, err := r.Run(ctx, NewCSVAdapter(src), force)
		if err != nil {
			return summaries, fmt.Errorf("ingest source %s: %w", src.Name, err)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Run ingests one source. The file is fingerprinted first: a hash already
// recorded for this source is a no-op unless force is set. Nothing is
// written before the fingerprint succeeds, so a missing file never leaves
// partial state.
func (r *Runner) Run(ctx context.Context, adapter SourceAdapter, force bool) (Summary, error) {
	summary := Summary{SourceName: adapter.Name()}

	hash, err := adapter.Fingerprint()
	if err != nil {
		return summary, err
	}
	summary.FileHash = hash

	locked, err := r.lock.TryLock()
	if err != nil {
		return summary, fmt.Errorf("acquire ingest lock: %w", err)
	}
	if !locked {
		return summary, errors.New("another ingestion is already running")
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			r.logger.Warn("release ingest lock", logging.Error(err))
		}
	}()

	if !force {
		seen, err := r.store.RunExists(ctx, adapter.Name(), hash)
		if err != nil {
			return summary, err
		}
		if seen {
			summary.AlreadyIngested = true
			r.logger.Info("source unchanged, skipping",
				logging.String("source", adapter.Name()),
				logging.String("hash", hash))
			return summary, nil
		}
	}

	resolver := NewResolver(r.cfg.Matching.Stoplist)
	for record, err := range adapter.Records() {
		if err != nil {
			if errors.Is(err, ErrSourceFileMissing) {
				return summary, err
			}
			r.logger.Warn("skipping malformed record", logging.Error(err))
			summary.Dropped++
			continue
		}
		summary.Processed++
		resolver.Add(record)
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
	}
	summary.Dropped += resolver.Dropped()
	summary.Skipped += resolver.Duplicates()

	records := resolver.Resolved(adapter.Name())
	batchSize := r.cfg.Ingest.BatchSize
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		added, updated, skipped, err := r.store.MergeBatch(ctx, records[start:end])
		if err != nil {
			return summary, fmt.Errorf("merge batch: %w", err)
		}
		summary.Added += added
		summary.Updated += updated
		summary.Skipped += skipped
	}

	if err := r.store.RecordRun(ctx, winestore.IngestionRun{
		SourceName:       adapter.Name(),
		FileHash:         hash,
		RecordsProcessed: summary.Processed,
		Added:            summary.Added,
		Updated:          summary.Updated,
		Skipped:          summary.Skipped,
	}); err != nil {
		return summary, fmt.Errorf("record ingestion run: %w", err)
	}

	r.logger.Info("source ingested",
		logging.String("source", adapter.Name()),
		logging.Int("processed", summary.Processed),
		logging.Int("added", summary.Added),
		logging.Int("updated", summary.Updated),
		logging.Int("skipped", summary.Skipped),
		logging.Int("dropped", summary.Dropped))
	return summary, nil
}
