package winestore

import "time"

// SourceRating preserves one source's original rating and scale for audit.
type SourceRating struct {
	SourceName string
	Rating     float64
	ScaleMin   float64
	ScaleMax   float64
}

// Rescaled converts the source rating onto the store's 0-5 scale.
func (r SourceRating) Rescaled() float64 {
	span := r.ScaleMax - r.ScaleMin
	if span <= 0 {
		return 0
	}
	return (r.Rating - r.ScaleMin) / span * 5
}

// WineRecord is one canonical wine entity. canonical_name is unique
// (case-insensitive) and vintage-agnostic.
type WineRecord struct {
	ID             int64
	CanonicalName  string
	NormalizedName string
	Rating         *float64
	WineType       string
	Region         string
	Winery         string
	Country        string
	Varietal       string
	Aliases        []string
	SourceRatings  []SourceRating
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IngestionRun records one processed source file for idempotent
// re-ingestion: an unchanged file hash is a no-op on the next run.
type IngestionRun struct {
	ID               int64
	SourceName       string
	FileHash         string
	RecordsProcessed int
	Added            int
	Updated          int
	Skipped          int
	CreatedAt        time.Time
}

// Stats summarizes store contents.
type Stats struct {
	Wines   int
	Aliases int
	Rated   int
	Runs    int
}
