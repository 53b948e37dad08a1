package ranking

import (
	"testing"

	"vintner/internal/cascade"
	"vintner/internal/config"
)

func thresholds() config.Matching {
	return config.Matching{Visible: 0.45, Tappable: 0.65, HighConfidence: 0.85}
}

func rated(value float64) *float64 { return &value }

func item(id, name string, confidence float64, rating *float64) *cascade.Item {
	return &cascade.Item{
		BottleID:   id,
		WineName:   name,
		Confidence: confidence,
		Rating:     rating,
		Source:     cascade.SourceDB,
	}
}

func TestPartitionBoundaryValues(t *testing.T) {
	items := []*cascade.Item{
		item("b0", "Below Visible", 0.44, rated(4.0)),
		item("b1", "At Visible", 0.45, rated(4.0)),
		item("b2", "At Tappable", 0.65, rated(4.0)),
		item("b3", "At High", 0.85, rated(4.0)),
	}

	out := Partition(items, thresholds())

	if len(out.Visible) != 3 {
		t.Fatalf("visible count = %d, want 3", len(out.Visible))
	}
	if len(out.Fallback) != 1 || out.Fallback[0].WineName != "Below Visible" {
		t.Fatalf("fallback = %+v, want Below Visible only", out.Fallback)
	}

	byName := make(map[string]Result)
	for _, result := range out.Visible {
		byName[result.WineName] = result
	}
	if byName["At Visible"].Tappable {
		t.Error("0.45 must be visible but not tappable")
	}
	if !byName["At Tappable"].Tappable || byName["At Tappable"].HighConfidence {
		t.Error("0.65 must be tappable but not high-confidence")
	}
	if !byName["At High"].Tappable || !byName["At High"].HighConfidence {
		t.Error("0.85 must be tappable and high-confidence")
	}
}

func TestPartitionDeduplicatesByName(t *testing.T) {
	items := []*cascade.Item{
		item("b0", "Caymus Cabernet", 0.70, rated(4.5)),
		item("b1", "caymus cabernet", 0.90, rated(4.5)),
	}

	out := Partition(items, thresholds())

	if len(out.Visible) != 1 {
		t.Fatalf("visible count = %d, want 1 after dedup", len(out.Visible))
	}
	if out.Visible[0].Confidence != 0.90 {
		t.Errorf("kept confidence %v, want the higher 0.90", out.Visible[0].Confidence)
	}
}

func TestPartitionRanksByRatingThenConfidence(t *testing.T) {
	items := []*cascade.Item{
		item("b0", "Mid Red", 0.80, rated(4.0)),
		item("b1", "Great Red", 0.60, rated(4.8)),
		item("b2", "Tie Lower Conf", 0.70, rated(4.5)),
		item("b3", "Tie Higher Conf", 0.90, rated(4.5)),
		item("b4", "Unrated", 0.95, nil),
	}

	out := Partition(items, thresholds())

	order := make([]string, len(out.Visible))
	for i, result := range out.Visible {
		order[i] = result.WineName
	}
	want := []string{"Great Red", "Tie Higher Conf", "Tie Lower Conf", "Mid Red", "Unrated"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestPartitionTopRankAnnotatesWithoutFiltering(t *testing.T) {
	items := []*cascade.Item{
		item("b0", "First", 0.9, rated(4.9)),
		item("b1", "Second", 0.9, rated(4.8)),
		item("b2", "Third", 0.9, rated(4.7)),
		item("b3", "Fourth", 0.9, rated(4.6)),
		item("b4", "Fifth", 0.9, rated(4.5)),
	}

	out := Partition(items, thresholds())

	if len(out.Visible) != 5 {
		t.Fatalf("visible count = %d, annotation must not filter", len(out.Visible))
	}
	for i, result := range out.Visible {
		wantTop := i < 3
		if result.TopRank != wantTop {
			t.Errorf("position %d (%s): TopRank = %v, want %v", i, result.WineName, result.TopRank, wantTop)
		}
	}
}

func TestPartitionFallbackSortedByRating(t *testing.T) {
	items := []*cascade.Item{
		item("b0", "Weak Unrated", 0.30, nil),
		item("b1", "Weak Good", 0.20, rated(4.6)),
		item("b2", "Weak Okay", 0.40, rated(3.9)),
	}

	out := Partition(items, thresholds())

	if len(out.Visible) != 0 {
		t.Fatalf("visible = %+v, want empty", out.Visible)
	}
	want := []string{"Weak Good", "Weak Okay", "Weak Unrated"}
	for i, entry := range out.Fallback {
		if entry.WineName != want[i] {
			t.Fatalf("fallback order = %+v, want %v", out.Fallback, want)
		}
	}
}

func TestPartitionSkipsUnresolvedItems(t *testing.T) {
	unresolved := &cascade.Item{BottleID: "b0", Source: cascade.SourceNone}
	out := Partition([]*cascade.Item{unresolved, nil}, thresholds())

	if len(out.Visible) != 0 || len(out.Fallback) != 0 {
		t.Errorf("unresolved items leaked into output: %+v", out)
	}
}
