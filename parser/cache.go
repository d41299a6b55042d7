package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
)

const (
	// DefaultCacheTTL matches the staleness window used for parse results.
	DefaultCacheTTL = 5 * time.Minute
	// DefaultCacheMaxEntries bounds the number of live cache entries.
	DefaultCacheMaxEntries = 256
)

// Cache memoizes parse results keyed by (path, content hash). Entries expire
// after a TTL and the cache evicts its oldest entry (by creation time) when
// full. The cache is a pure optimization layer: corruption or expiry is
// always a miss, never an error.
//
// A Cache is an explicit dependency injected into the discoverers, so
// multiple analyses can share or isolate parse state deterministically.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*cacheEntry
	order    []string // live keys in insertion order
	ttl      time.Duration
	maxSize  int
	disabled bool
	hits     int64
	misses   int64

	now func() time.Time // overridable in tests
}

type cacheEntry struct {
	key       string
	tree      *sitter.Tree
	source    []byte
	createdAt time.Time
}

// CacheStats is a point-in-time snapshot of cache effectiveness.
type CacheStats struct {
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	HitRate string `json:"hit_rate"`
	Size    int    `json:"size"`
}

// NewCache creates an enabled cache. Non-positive ttl or maxSize fall back
// to the defaults.
func NewCache(ttl time.Duration, maxSize int) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxSize <= 0 {
		maxSize = DefaultCacheMaxEntries
	}
	return &Cache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// NewDisabledCache creates a cache whose Set is a no-op, so every Get is a
// miss. Useful for tests and one-shot runs.
func NewDisabledCache() *Cache {
	c := NewCache(DefaultCacheTTL, DefaultCacheMaxEntries)
	c.disabled = true
	return c
}

// Key derives the cache key for a (path, content) pair. Identical pairs
// always produce identical keys; different content for the same path always
// produces a different key. Content hashing (not mtime) keeps the cache
// correct when modification timestamps are unreliable.
func (c *Cache) Key(path string, content []byte) string {
	h := sha256.New()
	h.Write([]byte(filepath.Clean(path)))
	h.Write([]byte{0})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached tree for (path, content), or nil on a miss. An
// entry past its TTL is treated as absent and lazily evicted.
func (c *Cache) Get(path string, content []byte) *sitter.Tree {
	key := c.Key(path, content)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil
	}
	if c.now().Sub(entry.createdAt) >= c.ttl {
		c.deleteLocked(key)
		c.misses++
		return nil
	}
	c.hits++
	return entry.tree
}

// Set stores a parse result. A no-op when the cache is disabled. When the
// cache is full the single oldest entry is evicted before inserting.
func (c *Cache) Set(path string, content []byte, tree *sitter.Tree) {
	if c.disabled || tree == nil {
		return
	}
	key := c.Key(path, content)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		return
	}
	if len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.entries[key] = &cacheEntry{
		key:       key,
		tree:      tree,
		source:    content,
		createdAt: c.now(),
	}
	c.order = append(c.order, key)
}

// Clear removes all entries and resets the hit/miss counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.order = nil
	c.hits = 0
	c.misses = 0
}

// Stats returns the current counters. hitRate is hits/(hits+misses) as a
// percentage string, with 0/0 defined as 0.0%.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	rate := 0.0
	if total := c.hits + c.misses; total > 0 {
		rate = 100 * float64(c.hits) / float64(total)
	}
	return CacheStats{
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: fmt.Sprintf("%.1f%%", rate),
		Size:    len(c.entries),
	}
}

// Size returns the number of live entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictOldestLocked removes the entry with the earliest createdAt. Entries
// are inserted in creation order, so the front of the order list is oldest.
func (c *Cache) evictOldestLocked() {
	for len(c.order) > 0 {
		key := c.order[0]
		c.order = c.order[1:]
		if _, ok := c.entries[key]; ok {
			delete(c.entries, key)
			return
		}
	}
}

func (c *Cache) deleteLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
