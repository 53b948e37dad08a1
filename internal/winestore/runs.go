package winestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RunExists reports whether a source file with the given content hash has
// already been ingested.
func (s *Store) RunExists(ctx context.Context, sourceName, fileHash string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM ingestion_runs WHERE source_name = ? AND file_hash = ?`,
		sourceName, fileHash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check ingestion run: %w", err)
	}
	return count > 0, nil
}

// RecordRun stores a completed ingestion run. Re-recording the same
// (source, hash) pair updates the counters in place so forced re-runs keep
// a single row per file version.
func (s *Store) RecordRun(ctx context.Context, run IngestionRun) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingestion_runs (source_name, file_hash, records_processed, added, updated, skipped, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(source_name, file_hash) DO UPDATE SET
             records_processed = excluded.records_processed,
             added = excluded.added,
             updated = excluded.updated,
             skipped = excluded.skipped,
             created_at = excluded.created_at`,
		run.SourceName, run.FileHash, run.RecordsProcessed, run.Added, run.Updated, run.Skipped, now)
	if err != nil {
		return fmt.Errorf("record ingestion run: %w", err)
	}
	return nil
}

// LatestRun returns the most recent run for a source, or nil when the
// source has never been ingested.
func (s *Store) LatestRun(ctx context.Context, sourceName string) (*IngestionRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_name, file_hash, records_processed, added, updated, skipped, created_at
         FROM ingestion_runs WHERE source_name = ?
         ORDER BY id DESC LIMIT 1`, sourceName)

	var run IngestionRun
	var createdAt string
	err := row.Scan(&run.ID, &run.SourceName, &run.FileHash, &run.RecordsProcessed,
		&run.Added, &run.Updated, &run.Skipped, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest run: %w", err)
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &run, nil
}
