package testsupport

import (
	"context"
	"testing"

	"vintner/internal/config"
	"vintner/internal/winestore"
)

// MustOpenStore opens a winestore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *winestore.Store {
	t.Helper()

	store, err := winestore.Open(cfg)
	if err != nil {
		t.Fatalf("winestore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedWines merges the given records into the store, failing the test on
// error.
func SeedWines(t testing.TB, store *winestore.Store, records ...winestore.WineRecord) {
	t.Helper()

	if _, _, _, err := store.MergeBatch(context.Background(), records); err != nil {
		t.Fatalf("seed wines: %v", err)
	}
}
