package scan

import (
	"vintner/internal/cascade"
	"vintner/internal/config"
	"vintner/internal/perception"
	"vintner/internal/ranking"
)

// Result is one visible match in the response contract.
type Result struct {
	WineName   string                 `json:"wine_name"`
	Rating     *float64               `json:"rating"`
	Confidence float64                `json:"confidence"`
	Box        perception.BoundingBox `json:"bbox"`
}

// FallbackEntry is one low-confidence match surfaced without a position.
type FallbackEntry struct {
	WineName string   `json:"wine_name"`
	Rating   *float64 `json:"rating"`
}

// Response is the scan response contract.
type Response struct {
	ImageID  string          `json:"image_id"`
	Results  []Result        `json:"results"`
	Fallback []FallbackEntry `json:"fallback_list"`
}

// Snapshot is one emission of the two-phase streaming protocol. Phase 2
// fully replaces phase 1; consumers must not merge.
type Snapshot struct {
	Phase    int
	Response Response
}

// render builds an immutable response from the current item states.
func render(imageID string, items []*cascade.Item, cfg config.Matching) Response {
	partitioned := ranking.Partition(items, cfg)

	response := Response{
		ImageID:  imageID,
		Results:  make([]Result, 0, len(partitioned.Visible)),
		Fallback: make([]FallbackEntry, 0, len(partitioned.Fallback)),
	}
	for _, visible := range partitioned.Visible {
		response.Results = append(response.Results, Result{
			WineName:   visible.WineName,
			Rating:     copyRating(visible.Rating),
			Confidence: visible.Confidence,
			Box:        visible.Box,
		})
	}
	for _, fallback := range partitioned.Fallback {
		response.Fallback = append(response.Fallback, FallbackEntry{
			WineName: fallback.WineName,
			Rating:   copyRating(fallback.Rating),
		})
	}
	return response
}

// copyRating detaches the pointer so later item mutation cannot leak into
// an already published snapshot.
func copyRating(rating *float64) *float64 {
	if rating == nil {
		return nil
	}
	value := *rating
	return &value
}
