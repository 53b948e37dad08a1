package winestore

import (
	"context"
	"math"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "wines.db"))
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "wines.db")

	store, err := OpenPath(dbPath)
	if err != nil {
		t.Fatalf("initial open failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened, err := OpenPath(dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	stats, err := reopened.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Wines != 0 {
		t.Errorf("expected empty store, got %d wines", stats.Wines)
	}
}

func TestMergeBatchInsertsAndMerges(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := WineRecord{
		CanonicalName:  "Caymus Cabernet Sauvignon Napa Valley",
		NormalizedName: "caymus cabernet sauvignon napa valley",
		Aliases:        []string{"Caymus Cab Napa"},
		SourceRatings: []SourceRating{
			{SourceName: "critics", Rating: 92, ScaleMin: 0, ScaleMax: 100},
		},
	}
	added, updated, skipped, err := store.MergeBatch(ctx, []WineRecord{first})
	if err != nil {
		t.Fatalf("first merge failed: %v", err)
	}
	if added != 1 || updated != 0 || skipped != 0 {
		t.Fatalf("first merge counts = (%d, %d, %d), want (1, 0, 0)", added, updated, skipped)
	}

	second := WineRecord{
		CanonicalName:  "Caymus Cabernet Sauvignon Napa Valley",
		NormalizedName: "caymus cabernet sauvignon napa valley",
		Aliases:        []string{"Caymus Cab Napa", "Caymus Napa Cabernet"},
		SourceRatings: []SourceRating{
			{SourceName: "community", Rating: 4.0, ScaleMin: 0, ScaleMax: 5},
		},
	}
	added, updated, skipped, err = store.MergeBatch(ctx, []WineRecord{second})
	if err != nil {
		t.Fatalf("second merge failed: %v", err)
	}
	if added != 0 || updated != 1 || skipped != 0 {
		t.Fatalf("second merge counts = (%d, %d, %d), want (0, 1, 0)", added, updated, skipped)
	}

	record, err := store.FindExact(ctx, "caymus cabernet sauvignon napa valley")
	if err != nil {
		t.Fatalf("FindExact failed: %v", err)
	}
	if record == nil {
		t.Fatal("expected merged record, got nil")
	}
	if len(record.Aliases) != 2 {
		t.Errorf("expected 2 aliases after union, got %v", record.Aliases)
	}
	if len(record.SourceRatings) != 2 {
		t.Fatalf("expected 2 source ratings, got %d", len(record.SourceRatings))
	}
	// 92/100 rescales to 4.6; mean of 4.6 and 4.0 is 4.3.
	if record.Rating == nil || math.Abs(*record.Rating-4.3) > 1e-9 {
		t.Errorf("expected rating 4.3, got %v", record.Rating)
	}
}

func TestFindExactMatchesAliases(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, _, err := store.MergeBatch(ctx, []WineRecord{{
		CanonicalName:  "Opus One",
		NormalizedName: "opus one",
		Aliases:        []string{"Opus One Napa"},
	}})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	record, err := store.FindExact(ctx, "opus one napa")
	if err != nil {
		t.Fatalf("FindExact failed: %v", err)
	}
	if record == nil || record.CanonicalName != "Opus One" {
		t.Errorf("alias lookup returned %+v, want Opus One", record)
	}

	missing, err := store.FindExact(ctx, "nonexistent wine")
	if err != nil {
		t.Fatalf("FindExact failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown name, got %+v", missing)
	}
}

func TestSearchPrefixAndCandidates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, _, err := store.MergeBatch(ctx, []WineRecord{
		{CanonicalName: "Caymus Cabernet Sauvignon Napa Valley", NormalizedName: "caymus cabernet sauvignon napa valley"},
		{CanonicalName: "Caymus Special Selection", NormalizedName: "caymus special selection"},
		{CanonicalName: "Silver Oak Alexander Valley", NormalizedName: "silver oak alexander valley"},
	})
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	byPrefix, err := store.SearchPrefix(ctx, "caymus cab", 5)
	if err != nil {
		t.Fatalf("SearchPrefix failed: %v", err)
	}
	if len(byPrefix) != 1 || byPrefix[0].NormalizedName != "caymus cabernet sauvignon napa valley" {
		t.Errorf("prefix search returned %d results, want the cabernet", len(byPrefix))
	}

	candidates, err := store.SearchCandidates(ctx, "caymus valley", 50)
	if err != nil {
		t.Fatalf("SearchCandidates failed: %v", err)
	}
	if len(candidates) != 3 {
		t.Errorf("OR-token search returned %d results, want 3", len(candidates))
	}

	none, err := store.SearchPrefix(ctx, "", 5)
	if err != nil {
		t.Fatalf("empty SearchPrefix failed: %v", err)
	}
	if none != nil {
		t.Errorf("empty query should return nil, got %d results", len(none))
	}
}

func TestUpsertDiscoveredIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rating := 4.2
	id1, err := store.UpsertDiscovered(ctx, "Chateau Margaux", "chateau margaux", &rating, "llm")
	if err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	id2, err := store.UpsertDiscovered(ctx, "Chateau Margaux", "chateau margaux", nil, "vision")
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if id1 != id2 {
		t.Errorf("repeat discovery created a new row: %d vs %d", id1, id2)
	}

	record, err := store.GetByID(ctx, id1)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if record == nil || record.Rating == nil || *record.Rating != 4.2 {
		t.Errorf("existing rating must survive re-discovery, got %+v", record)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.Wines != 1 {
		t.Errorf("expected 1 wine after duplicate discovery, got %d", stats.Wines)
	}
}

func TestRunTracking(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exists, err := store.RunExists(ctx, "critics", "abc123")
	if err != nil {
		t.Fatalf("RunExists failed: %v", err)
	}
	if exists {
		t.Error("run should not exist before recording")
	}

	run := IngestionRun{
		SourceName:       "critics",
		FileHash:         "abc123",
		RecordsProcessed: 10,
		Added:            8,
		Updated:          1,
		Skipped:          1,
	}
	if err := store.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	exists, err = store.RunExists(ctx, "critics", "abc123")
	if err != nil {
		t.Fatalf("RunExists failed: %v", err)
	}
	if !exists {
		t.Error("run should exist after recording")
	}

	// Forced re-run of the same file version updates counters in place.
	run.Added = 0
	run.Skipped = 9
	if err := store.RecordRun(ctx, run); err != nil {
		t.Fatalf("re-record failed: %v", err)
	}
	latest, err := store.LatestRun(ctx, "critics")
	if err != nil {
		t.Fatalf("LatestRun failed: %v", err)
	}
	if latest == nil || latest.Skipped != 9 {
		t.Errorf("re-recorded run = %+v, want skipped 9", latest)
	}
}
