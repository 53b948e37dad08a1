package winestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const wineColumns = `id, canonical_name, normalized_name, rating, wine_type, region, winery, country, varietal, created_at, updated_at`

// GetByID fetches a wine record with aliases and source ratings loaded.
func (s *Store) GetByID(ctx context.Context, id int64) (*WineRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+wineColumns+` FROM wines WHERE id = ?`, id)
	record, err := scanWine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wine: %w", err)
	}
	if err := s.loadDetails(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// FindByNormalizedName fetches the wine whose normalized canonical name
// equals key, or nil.
func (s *Store) FindByNormalizedName(ctx context.Context, key string) (*WineRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+wineColumns+` FROM wines WHERE normalized_name = ?`, key)
	record, err := scanWine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find wine by normalized name: %w", err)
	}
	if err := s.loadDetails(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// FindExact matches normalized text against canonical names first, then
// aliases. Returns nil when nothing matches exactly.
func (s *Store) FindExact(ctx context.Context, normalized string) (*WineRecord, error) {
	normalized = strings.TrimSpace(normalized)
	if normalized == "" {
		return nil, nil
	}

	record, err := s.FindByNormalizedName(ctx, normalized)
	if err != nil || record != nil {
		return record, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT w.id, w.canonical_name, w.normalized_name, w.rating, w.wine_type, w.region,
                w.winery, w.country, w.varietal, w.created_at, w.updated_at
         FROM wines w
         JOIN wine_aliases a ON a.wine_id = w.id
         WHERE a.normalized_alias = ?
         LIMIT 1`, normalized)
	record, err = scanWine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find wine by alias: %w", err)
	}
	if err := s.loadDetails(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// MergeBatch applies resolved wine records in a single transaction. New
// canonical names are inserted; existing ones are merged: alias sets are
// unioned, per-source ratings upserted, and the overall rating recomputed
// from all retained source ratings. Duplicate-key conflicts are skipped and
// counted, never fatal.
func (s *Store) MergeBatch(ctx context.Context, records []WineRecord) (added, updated, skipped int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("begin merge tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range records {
		outcome, mergeErr := s.mergeOne(ctx, tx, &records[i])
		if mergeErr != nil {
			if errors.Is(mergeErr, ErrDuplicateName) {
				skipped++
				continue
			}
			return 0, 0, 0, mergeErr
		}
		switch outcome {
		case mergeAdded:
			added++
		case mergeUpdated:
			updated++
		default:
			skipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, 0, fmt.Errorf("commit merge tx: %w", err)
	}
	return added, updated, skipped, nil
}

type mergeOutcome int

const (
	mergeSkipped mergeOutcome = iota
	mergeAdded
	mergeUpdated
)

func (s *Store) mergeOne(ctx context.Context, tx *sql.Tx, record *WineRecord) (mergeOutcome, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var existingID int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM wines WHERE normalized_name = ?`, record.NormalizedName,
	).Scan(&existingID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, insErr := tx.ExecContext(ctx,
			`INSERT INTO wines (canonical_name, normalized_name, rating, wine_type, region, winery, country, varietal, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.CanonicalName, record.NormalizedName, nullableRating(record.Rating),
			record.WineType, record.Region, record.Winery, record.Country, record.Varietal,
			now, now)
		if insErr != nil {
			if isUniqueViolation(insErr) {
				return 0, ErrDuplicateName
			}
			return 0, fmt.Errorf("insert wine: %w", insErr)
		}
		id, idErr := res.LastInsertId()
		if idErr != nil {
			return 0, fmt.Errorf("last insert id: %w", idErr)
		}
		if _, ftsErr := tx.ExecContext(ctx,
			`INSERT INTO wine_search (content, wine_id) VALUES (?, ?)`,
			record.NormalizedName, id); ftsErr != nil {
			return 0, fmt.Errorf("index wine: %w", ftsErr)
		}
		if err := s.applyDetails(ctx, tx, id, record); err != nil {
			return 0, err
		}
		if err := s.recomputeRating(ctx, tx, id, now); err != nil {
			return 0, err
		}
		return mergeAdded, nil

	case err != nil:
		return 0, fmt.Errorf("lookup wine for merge: %w", err)

	default:
		if err := s.applyDetails(ctx, tx, existingID, record); err != nil {
			return 0, err
		}
		if err := s.recomputeRating(ctx, tx, existingID, now); err != nil {
			return 0, err
		}
		return mergeUpdated, nil
	}
}

// applyDetails unions aliases and upserts per-source ratings for a wine.
func (s *Store) applyDetails(ctx context.Context, tx *sql.Tx, wineID int64, record *WineRecord) error {
	for _, alias := range record.Aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		normalized := strings.ToLower(alias)
		res, err := tx.ExecContext(ctx,
			`INSERT INTO wine_aliases (wine_id, alias, normalized_alias) VALUES (?, ?, ?)
             ON CONFLICT(wine_id, alias) DO NOTHING`,
			wineID, alias, normalized)
		if err != nil {
			return fmt.Errorf("insert alias: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO wine_search (content, wine_id) VALUES (?, ?)`,
				normalized, wineID); err != nil {
				return fmt.Errorf("index alias: %w", err)
			}
		}
	}

	for _, sr := range record.SourceRatings {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO wine_source_ratings (wine_id, source_name, rating, scale_min, scale_max)
             VALUES (?, ?, ?, ?, ?)
             ON CONFLICT(wine_id, source_name) DO UPDATE SET rating = excluded.rating,
                 scale_min = excluded.scale_min, scale_max = excluded.scale_max`,
			wineID, sr.SourceName, sr.Rating, sr.ScaleMin, sr.ScaleMax); err != nil {
			return fmt.Errorf("upsert source rating: %w", err)
		}
	}
	return nil
}

// recomputeRating averages all rescaled source ratings for the wine,
// rounded half-up to two decimals. Wines without source ratings keep their
// existing rating untouched.
func (s *Store) recomputeRating(ctx context.Context, tx *sql.Tx, wineID int64, timestamp string) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT rating, scale_min, scale_max FROM wine_source_ratings WHERE wine_id = ?`, wineID)
	if err != nil {
		return fmt.Errorf("load source ratings: %w", err)
	}
	defer rows.Close()

	var sum float64
	var count int
	for rows.Next() {
		var sr SourceRating
		if err := rows.Scan(&sr.Rating, &sr.ScaleMin, &sr.ScaleMax); err != nil {
			return fmt.Errorf("scan source rating: %w", err)
		}
		sum += sr.Rescaled()
		count++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate source ratings: %w", err)
	}
	if count == 0 {
		return nil
	}

	rating := math.Floor(sum/float64(count)*100+0.5) / 100
	if _, err := tx.ExecContext(ctx,
		`UPDATE wines SET rating = ?, updated_at = ? WHERE id = ?`,
		rating, timestamp, wineID); err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	return nil
}

// UpsertDiscovered records a wine name proposed by the LLM or vision stage.
// Idempotent: concurrent discovery of the same name neither duplicates nor
// errors. An existing record keeps its canonical name and rating.
func (s *Store) UpsertDiscovered(ctx context.Context, name, normalized string, rating *float64, sourceName string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errors.New("upsert discovered: name required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO wines (canonical_name, normalized_name, rating, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(canonical_name) DO UPDATE SET
             rating = COALESCE(wines.rating, excluded.rating),
             updated_at = excluded.updated_at`,
		name, normalized, nullableRating(rating), now, now); err != nil {
		return 0, fmt.Errorf("upsert discovered wine: %w", err)
	}

	var id int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM wines WHERE canonical_name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup discovered wine: %w", err)
	}

	// RowsAffected is 1 for both insert and conflict-update paths in SQLite,
	// so check for an existing search row instead.
	var indexed int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM wine_search WHERE wine_id = ? AND content = ?`, id, normalized).Scan(&indexed); err != nil {
		return 0, fmt.Errorf("check search index: %w", err)
	}
	if indexed == 0 {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO wine_search (content, wine_id) VALUES (?, ?)`, normalized, id); err != nil {
			return 0, fmt.Errorf("index discovered wine: %w", err)
		}
	}
	return id, nil
}

func (s *Store) loadDetails(ctx context.Context, record *WineRecord) error {
	aliasRows, err := s.db.QueryContext(ctx,
		`SELECT alias FROM wine_aliases WHERE wine_id = ? ORDER BY alias`, record.ID)
	if err != nil {
		return fmt.Errorf("load aliases: %w", err)
	}
	defer aliasRows.Close()
	for aliasRows.Next() {
		var alias string
		if err := aliasRows.Scan(&alias); err != nil {
			return fmt.Errorf("scan alias: %w", err)
		}
		record.Aliases = append(record.Aliases, alias)
	}
	if err := aliasRows.Err(); err != nil {
		return fmt.Errorf("iterate aliases: %w", err)
	}

	ratingRows, err := s.db.QueryContext(ctx,
		`SELECT source_name, rating, scale_min, scale_max FROM wine_source_ratings WHERE wine_id = ?`, record.ID)
	if err != nil {
		return fmt.Errorf("load source ratings: %w", err)
	}
	defer ratingRows.Close()
	for ratingRows.Next() {
		var sr SourceRating
		if err := ratingRows.Scan(&sr.SourceName, &sr.Rating, &sr.ScaleMin, &sr.ScaleMax); err != nil {
			return fmt.Errorf("scan source rating: %w", err)
		}
		record.SourceRatings = append(record.SourceRatings, sr)
	}
	if err := ratingRows.Err(); err != nil {
		return fmt.Errorf("iterate source ratings: %w", err)
	}
	sort.Slice(record.SourceRatings, func(i, j int) bool {
		return record.SourceRatings[i].SourceName < record.SourceRatings[j].SourceName
	})
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWine(row rowScanner) (*WineRecord, error) {
	var record WineRecord
	var rating sql.NullFloat64
	var createdAt, updatedAt string
	if err := row.Scan(
		&record.ID, &record.CanonicalName, &record.NormalizedName, &rating,
		&record.WineType, &record.Region, &record.Winery, &record.Country, &record.Varietal,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	if rating.Valid {
		value := rating.Float64
		record.Rating = &value
	}
	record.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	record.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &record, nil
}

func nullableRating(rating *float64) any {
	if rating == nil {
		return nil
	}
	return *rating
}
