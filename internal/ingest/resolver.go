package ingest

import (
	"vintner/internal/textutil"
	"vintner/internal/winestore"
)

// Resolver collapses raw source records into canonical wine entities. Two
// raw names that normalize identically (vintage and filler words stripped)
// resolve to the same wine, keyed exactly the way the matcher keys lookups.
type Resolver struct {
	stoplist []string

	order []string
	wines map[string]*resolvedWine
	// duplicate counts raw records folded into an already-seen entity.
	duplicates int
	dropped    int
}

type resolvedWine struct {
	record  winestore.WineRecord
	sum     float64
	samples int
	scale   [2]float64
}

// NewResolver builds a resolver using the matcher's stoplist so ingestion
// and lookup agree on identity.
func NewResolver(stoplist []string) *Resolver {
	return &Resolver{
		stoplist: stoplist,
		wines:    make(map[string]*resolvedWine),
	}
}

// Add folds one raw record into the resolved set. Records whose name
// normalizes to nothing are dropped. Returns true when the record created a
// new entity rather than merging into an existing one.
func (r *Resolver) Add(raw RawWineRecord) bool {
	normalized := textutil.Normalize(raw.Name, r.stoplist)
	if normalized == "" {
		r.dropped++
		return false
	}

	// Canonical names are vintage-agnostic: "Caymus Cabernet Sauvignon 2019"
	// and "Caymus Cabernet Sauvignon" name the same wine. The vintage-bearing
	// original survives as an alias.
	canonical := textutil.StripVintage(raw.Name)

	entry, ok := r.wines[normalized]
	if !ok {
		entry = &resolvedWine{
			record: winestore.WineRecord{
				CanonicalName:  canonical,
				NormalizedName: normalized,
			},
			scale: [2]float64{raw.ScaleMin, raw.ScaleMax},
		}
		r.wines[normalized] = entry
		r.order = append(r.order, normalized)
	} else {
		r.duplicates++
	}
	if raw.Name != entry.record.CanonicalName {
		entry.record.Aliases = appendUnique(entry.record.Aliases, raw.Name)
	}

	if raw.HasRating {
		entry.sum += raw.Rating
		entry.samples++
	}
	return !ok
}

// Resolved returns the canonical records in first-seen order, each carrying
// at most one source rating: the mean of that source's samples. Vintage
// variants of one wine average into a single rating.
func (r *Resolver) Resolved(sourceName string) []winestore.WineRecord {
	records := make([]winestore.WineRecord, 0, len(r.order))
	for _, key := range r.order {
		entry := r.wines[key]
		record := entry.record
		if entry.samples > 0 {
			record.SourceRatings = []winestore.SourceRating{{
				SourceName: sourceName,
				Rating:     entry.sum / float64(entry.samples),
				ScaleMin:   entry.scale[0],
				ScaleMax:   entry.scale[1],
			}}
		}
		records = append(records, record)
	}
	return records
}

// Duplicates reports how many raw records merged into an existing entity.
func (r *Resolver) Duplicates() int { return r.duplicates }

// Dropped reports how many raw records had no usable name.
func (r *Resolver) Dropped() int { return r.dropped }

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
