package ratingcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"vintner/internal/logging"
)

// Entry is one cached wine resolution.
type Entry struct {
	Key        string    `json:"key"`
	WineName   string    `json:"wine_name"`
	Rating     *float64  `json:"rating,omitempty"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"` // "db", "llm", or "vision"
	CachedAt   time.Time `json:"cached_at"`
}

// Cache provides thread-safe access to the durable rating cache. If path is
// empty the cache is non-functional and all operations are no-ops.
type Cache struct {
	path       string
	ttl        time.Duration
	maxEntries int
	logger     *slog.Logger
	mu         sync.RWMutex
	entries    map[string]Entry
}

// New creates a cache instance backed by the file at path. A non-positive
// ttl disables expiry; a non-positive maxEntries disables the size cap. The
// cache file is created lazily on first Store call.
func New(path string, ttl time.Duration, maxEntries int, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ratingcache")

	c := &Cache{
		path:       path,
		ttl:        ttl,
		maxEntries: maxEntries,
		logger:     logger,
		entries:    make(map[string]Entry),
	}

	if path == "" {
		return c
	}

	if err := c.load(); err != nil {
		logger.Warn("failed to load rating cache",
			logging.String(logging.FieldEventType, "ratingcache_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "cache will start empty"),
			logging.String(logging.FieldImpact, "previously resolved wines will re-run the cascade"))
	}

	return c
}

// Lookup returns the entry cached under key, honoring TTL expiry. Expired
// entries are treated as misses but not removed until the next Store.
func (c *Cache) Lookup(key string) (Entry, bool) {
	key = normalizeKey(key)
	if key == "" || c.path == "" {
		return Entry{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[key]
	if !found {
		return Entry{}, false
	}
	if c.expired(entry, time.Now()) {
		return Entry{}, false
	}
	return entry, true
}

// Store caches a resolution under every provided key form and persists to
// disk. Empty keys are skipped; duplicate keys collapse to one entry.
func (c *Cache) Store(entry Entry, keys ...string) error {
	if strings.TrimSpace(entry.WineName) == "" {
		return errors.New("wine name cannot be empty")
	}
	if c.path == "" {
		return nil
	}
	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now().UTC()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stored := 0
	for _, key := range keys {
		key = normalizeKey(key)
		if key == "" {
			continue
		}
		keyed := entry
		keyed.Key = key
		c.entries[key] = keyed
		stored++
	}
	if stored == 0 {
		return errors.New("at least one non-empty key required")
	}

	c.prune(time.Now())

	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("cached wine resolution",
		logging.String("wine_name", entry.WineName),
		logging.String("source", entry.Source),
		logging.Int("key_count", stored))
	return nil
}

// List returns unexpired entries sorted by CachedAt descending.
func (c *Cache) List() []Entry {
	if c.path == "" {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		if c.expired(entry, now) {
			continue
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CachedAt.Equal(entries[j].CachedAt) {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].CachedAt.After(entries[j].CachedAt)
	})
	return entries
}

// Clear removes all entries and persists the empty cache.
func (c *Cache) Clear() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("cleared rating cache")
	return nil
}

// Count returns the number of entries, expired included.
func (c *Cache) Count() int {
	if c.path == "" {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// prune drops expired entries, then enforces the size cap by evicting the
// oldest entries first. Caller must hold the write lock.
func (c *Cache) prune(now time.Time) {
	for key, entry := range c.entries {
		if c.expired(entry, now) {
			delete(c.entries, key)
		}
	}

	if c.maxEntries <= 0 || len(c.entries) <= c.maxEntries {
		return
	}

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := c.entries[keys[i]], c.entries[keys[j]]
		if a.CachedAt.Equal(b.CachedAt) {
			return keys[i] < keys[j]
		}
		return a.CachedAt.Before(b.CachedAt)
	})
	for _, key := range keys[:len(keys)-c.maxEntries] {
		delete(c.entries, key)
	}
}

func (c *Cache) expired(entry Entry, now time.Time) bool {
	if c.ttl <= 0 {
		return false
	}
	return now.Sub(entry.CachedAt) > c.ttl
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// load reads the cache from disk into memory.
func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}

	c.entries = make(map[string]Entry, len(entries))
	for _, entry := range entries {
		key := normalizeKey(entry.Key)
		if key == "" {
			continue
		}
		entry.Key = key
		c.entries[key] = entry
	}

	c.logger.Debug("loaded rating cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("path", c.path))
	return nil
}

// save writes the cache to disk atomically via a temp file rename.
func (c *Cache) save() error {
	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CachedAt.Equal(entries[j].CachedAt) {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].CachedAt.After(entries[j].CachedAt)
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
