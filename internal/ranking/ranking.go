// Package ranking merges, partitions, and orders resolved scan results
// before they are rendered into a response.
package ranking

import (
	"sort"
	"strings"

	"vintner/internal/cascade"
	"vintner/internal/config"
	"vintner/internal/perception"
)

// Result is one visible, renderable match.
type Result struct {
	BottleID       string
	WineName       string
	Rating         *float64
	Confidence     float64
	Source         string
	Box            perception.BoundingBox
	Tappable       bool
	HighConfidence bool
	TopRank        bool
}

// FallbackEntry is a low-confidence resolution surfaced without a bottle
// position.
type FallbackEntry struct {
	WineName string
	Rating   *float64
}

// Partitioned is the ranked output of one scan.
type Partitioned struct {
	Visible  []Result
	Fallback []FallbackEntry
}

// Partition deduplicates items by wine name (highest confidence wins),
// splits them by the visibility thresholds, and ranks the visible set.
// Boundary values belong to the higher bucket: confidence exactly at the
// visible threshold is visible, exactly at the tappable threshold is
// tappable. The top three visible results by rating carry the top-rank
// annotation; they stay in the set, the annotation is display-only.
func Partition(items []*cascade.Item, cfg config.Matching) Partitioned {
	type slot struct {
		item  *cascade.Item
		order int
	}
	best := make(map[string]*slot)
	var names []string
	for index, item := range items {
		if item == nil || !item.Resolved() {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(item.WineName))
		if key == "" {
			continue
		}
		existing, ok := best[key]
		if !ok {
			best[key] = &slot{item: item, order: index}
			names = append(names, key)
			continue
		}
		if item.Confidence > existing.item.Confidence {
			existing.item = item
		}
	}

	var out Partitioned
	type ranked struct {
		result Result
		order  int
	}
	var visible []ranked
	var fallback []ranked
	for _, key := range names {
		s := best[key]
		item := s.item
		if item.Confidence < cfg.Visible {
			fallback = append(fallback, ranked{
				result: Result{WineName: item.WineName, Rating: item.Rating},
				order:  s.order,
			})
			continue
		}
		visible = append(visible, ranked{
			result: Result{
				BottleID:       item.BottleID,
				WineName:       item.WineName,
				Rating:         item.Rating,
				Confidence:     item.Confidence,
				Source:         item.Source,
				Box:            item.Box,
				Tappable:       item.Confidence >= cfg.Tappable,
				HighConfidence: item.Confidence >= cfg.HighConfidence,
			},
			order: s.order,
		})
	}

	sort.SliceStable(visible, func(i, j int) bool {
		a, b := visible[i], visible[j]
		if c := compareRatings(a.result.Rating, b.result.Rating); c != 0 {
			return c > 0
		}
		if a.result.Confidence != b.result.Confidence {
			return a.result.Confidence > b.result.Confidence
		}
		return a.order < b.order
	})
	sort.SliceStable(fallback, func(i, j int) bool {
		a, b := fallback[i], fallback[j]
		if c := compareRatings(a.result.Rating, b.result.Rating); c != 0 {
			return c > 0
		}
		return a.order < b.order
	})

	out.Visible = make([]Result, len(visible))
	for i, entry := range visible {
		entry.result.TopRank = i < 3
		out.Visible[i] = entry.result
	}
	out.Fallback = make([]FallbackEntry, len(fallback))
	for i, entry := range fallback {
		out.Fallback[i] = FallbackEntry{WineName: entry.result.WineName, Rating: entry.result.Rating}
	}
	return out
}

// compareRatings orders known ratings descending with unrated entries last.
func compareRatings(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a > *b:
		return 1
	case *a < *b:
		return -1
	default:
		return 0
	}
}
