package ingest

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"strconv"
	"strings"

	"vintner/internal/config"
)

// ErrSourceFileMissing indicates a required source file was not found. It
// stops that source's run before any write occurs.
var ErrSourceFileMissing = errors.New("required source file not found")

// RawWineRecord is one row from a rating source, prior to resolution.
type RawWineRecord struct {
	Name       string
	Rating     float64
	HasRating  bool
	ScaleMin   float64
	ScaleMax   float64
	Year       int
	SourceName string
}

// SourceAdapter yields raw records from one rating source. Records must be
// lazy and restartable: iterating twice re-reads the source.
type SourceAdapter interface {
	Name() string
	// Fingerprint identifies the current source content, typically a
	// SHA-256 of the file. Used for idempotent re-ingestion.
	Fingerprint() (string, error)
	Records() iter.Seq2[RawWineRecord, error]
}

// CSVAdapter reads a configured CSV rating source. Column names and the
// rating scale come from configuration so differently shaped exports all
// funnel through one implementation.
type CSVAdapter struct {
	cfg config.IngestSource
}

// NewCSVAdapter builds an adapter for one configured source.
func NewCSVAdapter(cfg config.IngestSource) *CSVAdapter {
	return &CSVAdapter{cfg: cfg}
}

// Name returns the configured source name.
func (a *CSVAdapter) Name() string {
	return a.cfg.Name
}

// Fingerprint hashes the source file's content.
func (a *CSVAdapter) Fingerprint() (string, error) {
	file, err := os.Open(a.cfg.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrSourceFileMissing, a.cfg.Path)
		}
		return "", fmt.Errorf("open source file: %w", err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("hash source file: %w", err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// Records lazily yields rows from the CSV file. Rows with an empty name or
// an unparseable rating yield a record-level error and iteration continues;
// a missing file yields ErrSourceFileMissing and stops.
func (a *CSVAdapter) Records() iter.Seq2[RawWineRecord, error] {
	return func(yield func(RawWineRecord, error) bool) {
		file, err := os.Open(a.cfg.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				yield(RawWineRecord{}, fmt.Errorf("%w: %s", ErrSourceFileMissing, a.cfg.Path))
				return
			}
			yield(RawWineRecord{}, fmt.Errorf("open source file: %w", err))
			return
		}
		defer file.Close()

		reader := csv.NewReader(file)
		reader.FieldsPerRecord = -1

		header, err := reader.Read()
		if err != nil {
			yield(RawWineRecord{}, fmt.Errorf("read csv header: %w", err))
			return
		}
		columns := make(map[string]int, len(header))
		for i, name := range header {
			columns[strings.ToLower(strings.TrimSpace(name))] = i
		}
		nameIdx, ok := columns[strings.ToLower(a.cfg.NameColumn)]
		if !ok {
			yield(RawWineRecord{}, fmt.Errorf("source %s: name column %q not in header", a.cfg.Name, a.cfg.NameColumn))
			return
		}
		ratingIdx, hasRatingColumn := columns[strings.ToLower(a.cfg.RatingColumn)]
		yearIdx, hasYearColumn := columns[strings.ToLower(a.cfg.YearColumn)]

		line := 1
		for {
			line++
			row, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				if !yield(RawWineRecord{}, fmt.Errorf("source %s line %d: %w", a.cfg.Name, line, err)) {
					return
				}
				continue
			}

			record := RawWineRecord{
				SourceName: a.cfg.Name,
				ScaleMin:   a.cfg.ScaleMin,
				ScaleMax:   a.cfg.ScaleMax,
			}
			if nameIdx < len(row) {
				record.Name = strings.TrimSpace(row[nameIdx])
			}
			if record.Name == "" {
				if !yield(record, fmt.Errorf("source %s line %d: empty wine name", a.cfg.Name, line)) {
					return
				}
				continue
			}

			if hasRatingColumn && ratingIdx < len(row) {
				raw := strings.TrimSpace(row[ratingIdx])
				if raw != "" {
					rating, err := strconv.ParseFloat(raw, 64)
					if err != nil {
						if !yield(record, fmt.Errorf("source %s line %d: bad rating %q", a.cfg.Name, line, raw)) {
							return
						}
						continue
					}
					record.Rating = rating
					record.HasRating = true
				}
			}
			if hasYearColumn && yearIdx < len(row) {
				if year, err := strconv.Atoi(strings.TrimSpace(row[yearIdx])); err == nil {
					record.Year = year
				}
			}

			if !yield(record, nil) {
				return
			}
		}
	}
}
