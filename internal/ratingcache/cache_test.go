package ratingcache

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCacheStoreUnderAllKeyForms(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "ratings.json")
	cache := New(cachePath, 0, 0, nil)

	rating := 4.4
	entry := Entry{
		WineName:   "Caymus Cabernet Sauvignon Napa Valley",
		Rating:     &rating,
		Confidence: 0.75,
		Source:     "llm",
	}
	err := cache.Store(entry,
		"Caymus Cabernet Sauvignon Napa Valley",
		"CAYMUS CABERNET SAUVIGNON NAPA VALLEY 2021 750ML",
		"caymus cabernet sauvignon napa valley")
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	for _, key := range []string{
		"caymus cabernet sauvignon napa valley",
		"CAYMUS CABERNET SAUVIGNON NAPA VALLEY 2021 750ML",
		"Caymus Cabernet Sauvignon Napa Valley",
	} {
		found, ok := cache.Lookup(key)
		if !ok {
			t.Errorf("Lookup(%q) missed", key)
			continue
		}
		if found.WineName != entry.WineName {
			t.Errorf("Lookup(%q) wine = %q, want %q", key, found.WineName, entry.WineName)
		}
		if found.Rating == nil || *found.Rating != 4.4 {
			t.Errorf("Lookup(%q) rating = %v, want 4.4", key, found.Rating)
		}
	}

	// Two of the three keys collapse after case folding.
	if cache.Count() != 2 {
		t.Errorf("Count = %d, want 2", cache.Count())
	}
}

func TestCacheLookupMisses(t *testing.T) {
	cache := New(filepath.Join(t.TempDir(), "ratings.json"), 0, 0, nil)

	if _, ok := cache.Lookup("unknown wine"); ok {
		t.Error("Lookup should miss for unknown key")
	}
	if _, ok := cache.Lookup("  "); ok {
		t.Error("Lookup should miss for whitespace key")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "ratings.json")
	cache := New(cachePath, time.Hour, 0, nil)

	fresh := Entry{WineName: "Opus One", Confidence: 0.9, Source: "db", CachedAt: time.Now()}
	stale := Entry{WineName: "Old Vine Zin", Confidence: 0.8, Source: "llm", CachedAt: time.Now().Add(-2 * time.Hour)}

	if err := cache.Store(fresh, "opus one"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := cache.Store(stale, "old vine zin"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if _, ok := cache.Lookup("opus one"); !ok {
		t.Error("fresh entry should hit")
	}
	if _, ok := cache.Lookup("old vine zin"); ok {
		t.Error("expired entry should miss")
	}
}

func TestCacheSizeCapEvictsOldest(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "ratings.json")
	cache := New(cachePath, 0, 3, nil)

	base := time.Now().Add(-time.Hour)
	for i := range 5 {
		entry := Entry{
			WineName: fmt.Sprintf("Wine %d", i),
			Source:   "llm",
			CachedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := cache.Store(entry, fmt.Sprintf("wine %d", i)); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}

	if cache.Count() != 3 {
		t.Fatalf("Count = %d, want 3", cache.Count())
	}
	if _, ok := cache.Lookup("wine 0"); ok {
		t.Error("oldest entry should be evicted")
	}
	if _, ok := cache.Lookup("wine 4"); !ok {
		t.Error("newest entry should survive")
	}
}

func TestCachePersistsAcrossInstances(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "ratings.json")

	first := New(cachePath, 0, 0, nil)
	if err := first.Store(Entry{WineName: "Silver Oak", Confidence: 0.85, Source: "vision"}, "silver oak"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	second := New(cachePath, 0, 0, nil)
	found, ok := second.Lookup("silver oak")
	if !ok {
		t.Fatal("reloaded cache missed persisted entry")
	}
	if found.WineName != "Silver Oak" || found.Source != "vision" {
		t.Errorf("reloaded entry = %+v", found)
	}
}

func TestCacheCorruptFileStartsEmpty(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "ratings.json")
	if err := os.WriteFile(cachePath, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	cache := New(cachePath, 0, 0, nil)
	if cache.Count() != 0 {
		t.Errorf("corrupt cache should start empty, got %d entries", cache.Count())
	}
	if err := cache.Store(Entry{WineName: "Recovery Red", Source: "llm"}, "recovery red"); err != nil {
		t.Fatalf("Store after corrupt load failed: %v", err)
	}
}

func TestCacheClear(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "ratings.json")
	cache := New(cachePath, 0, 0, nil)

	if err := cache.Store(Entry{WineName: "Opus One", Source: "db"}, "opus one"); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if cache.Count() != 0 {
		t.Errorf("Count after clear = %d, want 0", cache.Count())
	}
	if len(cache.List()) != 0 {
		t.Error("List after clear should be empty")
	}
}

func TestCacheNoopWithoutPath(t *testing.T) {
	cache := New("", time.Hour, 10, nil)

	if err := cache.Store(Entry{WineName: "Opus One", Source: "db"}, "opus one"); err != nil {
		t.Fatalf("no-op Store returned error: %v", err)
	}
	if _, ok := cache.Lookup("opus one"); ok {
		t.Error("pathless cache should never hit")
	}
	if cache.Count() != 0 {
		t.Error("pathless cache should report zero entries")
	}
}
