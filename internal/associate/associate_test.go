package associate

import (
	"testing"

	"vintner/internal/perception"
)

func testConfig() Config {
	return Config{ProximityThreshold: 0.25, IoUThreshold: 0.5}
}

func TestAssociateAssignsNearbyFragment(t *testing.T) {
	obs := &perception.Observation{
		Detections: []perception.Detection{
			{ID: "bottle-1", Box: perception.BoundingBox{X: 0.4, Y: 0.4, Width: 0.2, Height: 0.3}, Confidence: 0.9},
		},
		Fragments: []perception.Fragment{
			{Text: "CAYMUS", Box: perception.BoundingBox{X: 0.45, Y: 0.45, Width: 0.1, Height: 0.1}},
		},
	}

	bottles, orphans := Associate(obs, testConfig())
	if len(bottles) != 1 {
		t.Fatalf("bottles = %d, want 1", len(bottles))
	}
	if len(orphans) != 0 {
		t.Fatalf("orphans = %d, want 0", len(orphans))
	}
	if bottles[0].RawText != "CAYMUS" {
		t.Errorf("raw text = %q, want %q", bottles[0].RawText, "CAYMUS")
	}
	if bottles[0].Normalized != "caymus" {
		t.Errorf("normalized = %q, want %q", bottles[0].Normalized, "caymus")
	}
}

func TestAssociateDistantFragmentBecomesOrphan(t *testing.T) {
	obs := &perception.Observation{
		Detections: []perception.Detection{
			{ID: "bottle-1", Box: perception.BoundingBox{X: 0.4, Y: 0.4, Width: 0.2, Height: 0.3}, Confidence: 0.9},
		},
		Fragments: []perception.Fragment{
			{Text: "OPUS ONE", Box: perception.BoundingBox{X: 0.9, Y: 0.9, Width: 0.1, Height: 0.1}},
		},
	}

	bottles, orphans := Associate(obs, testConfig())
	if len(orphans) != 1 {
		t.Fatalf("orphans = %d, want 1", len(orphans))
	}
	if orphans[0].Normalized != "opus one" {
		t.Errorf("orphan normalized = %q", orphans[0].Normalized)
	}
	// The bottle still gets a (empty) BottleText entry.
	if len(bottles) != 1 {
		t.Fatalf("bottles = %d, want 1", len(bottles))
	}
	if bottles[0].RawText != "" {
		t.Errorf("bottle raw text = %q, want empty", bottles[0].RawText)
	}
}

func TestAssociateReadingOrder(t *testing.T) {
	obs := &perception.Observation{
		Detections: []perception.Detection{
			{ID: "bottle-1", Box: perception.BoundingBox{X: 0.4, Y: 0.4, Width: 0.2, Height: 0.4}, Confidence: 0.9},
		},
		Fragments: []perception.Fragment{
			{Text: "SAUVIGNON", Box: perception.BoundingBox{X: 0.45, Y: 0.6, Width: 0.1, Height: 0.05}},
			{Text: "CAYMUS", Box: perception.BoundingBox{X: 0.45, Y: 0.45, Width: 0.1, Height: 0.05}},
			{Text: "CABERNET", Box: perception.BoundingBox{X: 0.45, Y: 0.52, Width: 0.1, Height: 0.05}},
		},
	}

	bottles, _ := Associate(obs, testConfig())
	if len(bottles) != 1 {
		t.Fatalf("bottles = %d, want 1", len(bottles))
	}
	if bottles[0].RawText != "CAYMUS CABERNET SAUVIGNON" {
		t.Errorf("raw text = %q, want reading order concatenation", bottles[0].RawText)
	}
}

func TestAssociateNearestBottleWins(t *testing.T) {
	obs := &perception.Observation{
		Detections: []perception.Detection{
			{ID: "bottle-1", Box: perception.BoundingBox{X: 0.1, Y: 0.4, Width: 0.2, Height: 0.3}, Confidence: 0.9},
			{ID: "bottle-2", Box: perception.BoundingBox{X: 0.35, Y: 0.4, Width: 0.2, Height: 0.3}, Confidence: 0.9},
		},
		Fragments: []perception.Fragment{
			{Text: "MERLOT", Box: perception.BoundingBox{X: 0.4, Y: 0.5, Width: 0.1, Height: 0.05}},
		},
	}

	bottles, _ := Associate(obs, testConfig())
	if bottles[1].RawText != "MERLOT" {
		t.Errorf("fragment assigned to %q/%q, want bottle-2", bottles[0].RawText, bottles[1].RawText)
	}
	if bottles[0].RawText != "" {
		t.Errorf("bottle-1 text = %q, want empty", bottles[0].RawText)
	}
}

func TestDedupeDetections(t *testing.T) {
	detections := []perception.Detection{
		{ID: "a", Box: perception.BoundingBox{X: 0.1, Y: 0.1, Width: 0.3, Height: 0.5}, Confidence: 0.7},
		{ID: "b", Box: perception.BoundingBox{X: 0.12, Y: 0.1, Width: 0.3, Height: 0.5}, Confidence: 0.95},
		{ID: "c", Box: perception.BoundingBox{X: 0.7, Y: 0.1, Width: 0.2, Height: 0.5}, Confidence: 0.8},
	}

	kept := DedupeDetections(detections, 0.5)
	if len(kept) != 2 {
		t.Fatalf("kept = %d, want 2", len(kept))
	}
	if kept[0].ID != "b" || kept[1].ID != "c" {
		t.Errorf("kept = [%s, %s], want [b, c]", kept[0].ID, kept[1].ID)
	}
}
