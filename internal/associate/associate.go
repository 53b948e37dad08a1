// Package associate assigns recognized text fragments to detected bottle
// regions by spatial proximity. Fragments with no bottle within the
// proximity threshold become orphans, carried forward for rescue matching.
package associate

import (
	"sort"

	"vintner/internal/perception"
	"vintner/internal/textutil"
)

// BottleText is the combined label text for one detected bottle. Exactly one
// is produced per detection, possibly with empty text.
type BottleText struct {
	BottleID   string
	Box        perception.BoundingBox
	RawText    string
	Normalized string
}

// OrphanText is a fragment that could not be associated with any bottle.
type OrphanText struct {
	RawText    string
	Normalized string
	Box        perception.BoundingBox
}

// Config controls detection dedup and fragment association.
type Config struct {
	// ProximityThreshold is the maximum centroid distance, as a fraction of
	// image dimensions, for a fragment to attach to a bottle.
	ProximityThreshold float64
	// IoUThreshold is the overlap above which two detections are considered
	// duplicates of the same bottle.
	IoUThreshold float64
	// Stoplist is passed through to text normalization.
	Stoplist []string
}

// DedupeDetections removes overlapping detections, keeping the
// higher-confidence one of each overlapping pair.
func DedupeDetections(detections []perception.Detection, iouThreshold float64) []perception.Detection {
	if len(detections) < 2 {
		return detections
	}

	ordered := make([]perception.Detection, len(detections))
	copy(ordered, detections)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confidence > ordered[j].Confidence
	})

	kept := make([]perception.Detection, 0, len(ordered))
	for _, det := range ordered {
		duplicate := false
		for _, existing := range kept {
			if det.Box.IoU(existing.Box) >= iouThreshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, det)
		}
	}

	// Restore the perception service's original ordering.
	index := make(map[string]int, len(detections))
	for i, det := range detections {
		index[det.ID] = i
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return index[kept[i].ID] < index[kept[j].ID]
	})
	return kept
}

// Associate assigns each fragment to the nearest deduplicated detection
// within the proximity threshold. Assigned fragments are concatenated in
// reading order (top to bottom, then left to right) before normalization.
func Associate(obs *perception.Observation, cfg Config) ([]BottleText, []OrphanText) {
	detections := DedupeDetections(obs.Detections, cfg.IoUThreshold)

	assigned := make(map[string][]perception.Fragment, len(detections))
	var orphans []OrphanText

	for _, frag := range obs.Fragments {
		bestID := ""
		bestDistance := 0.0
		for _, det := range detections {
			distance := frag.Box.CentroidDistance(det.Box)
			if distance > cfg.ProximityThreshold {
				continue
			}
			if bestID == "" || distance < bestDistance {
				bestID = det.ID
				bestDistance = distance
			}
		}
		if bestID == "" {
			orphans = append(orphans, OrphanText{
				RawText:    frag.Text,
				Normalized: textutil.Normalize(frag.Text, cfg.Stoplist),
				Box:        frag.Box,
			})
			continue
		}
		assigned[bestID] = append(assigned[bestID], frag)
	}

	bottles := make([]BottleText, 0, len(detections))
	for _, det := range detections {
		fragments := assigned[det.ID]
		sort.SliceStable(fragments, func(i, j int) bool {
			_, yi := fragments[i].Box.Centroid()
			_, yj := fragments[j].Box.Centroid()
			if yi != yj {
				return yi < yj
			}
			xi, _ := fragments[i].Box.Centroid()
			xj, _ := fragments[j].Box.Centroid()
			return xi < xj
		})

		raw := ""
		for _, frag := range fragments {
			if raw != "" {
				raw += " "
			}
			raw += frag.Text
		}

		bottles = append(bottles, BottleText{
			BottleID:   det.ID,
			Box:        det.Box,
			RawText:    raw,
			Normalized: textutil.Normalize(raw, cfg.Stoplist),
		})
	}

	return bottles, orphans
}
