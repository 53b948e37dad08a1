package matching

import (
	"container/list"
	"sync"
)

// Cache is a bounded LRU of match results keyed by normalized query text.
// Safe for concurrent readers and writers; eviction always removes the
// least recently used entry.
type Cache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type cacheEntry struct {
	key       string
	candidate Candidate
}

// NewCache creates a cache holding at most capacity entries. Capacity below
// one is raised to one.
func NewCache(capacity int) *Cache {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
	}
}

// Get returns the cached candidate for key and marks it recently used.
func (c *Cache) Get(key string) (Candidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[key]
	if !ok {
		return Candidate{}, false
	}
	c.order.MoveToFront(element)
	return element.Value.(*cacheEntry).candidate, true
}

// Put stores a candidate under key, evicting the oldest entry when full.
func (c *Cache) Put(key string, candidate Candidate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.entries[key]; ok {
		element.Value.(*cacheEntry).candidate = candidate
		c.order.MoveToFront(element)
		return
	}

	element := c.order.PushFront(&cacheEntry{key: key, candidate: candidate})
	c.entries[key] = element

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Purge discards all entries.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[string]*list.Element, c.capacity)
}
