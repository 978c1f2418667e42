// Package cache keeps encoded transform results in memory so repeated
// requests for the same image and settings skip the transform.
//
//	c := cache.New[cache.Key](64 << 20)
//	key := cache.KeyFor(body, settings)
//	if png, ok := c.Get(key); ok {
//	    ...
//	}
//	c.Add(key, png)
package cache

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/gogpu/halftone"
)

// Key identifies a rendered image by its source bytes and the settings
// it was rendered with. Settings must be clamped first so NaN never
// reaches the comparison.
type Key struct {
	Sum      uint64
	Len      int
	Settings halftone.Settings
}

// KeyFor returns the key of src rendered with s.
func KeyFor(src []byte, s halftone.Settings) Key {
	return Key{Sum: xxhash.Sum64(src), Len: len(src), Settings: s}
}

// LRU is a byte-budgeted least-recently-used cache of immutable values.
// Adding past the budget evicts the oldest entries first.
//
// LRU is safe for concurrent use and must not be copied.
type LRU[K comparable] struct {
	mu       sync.Mutex
	entries  map[K]*lruNode[K]
	order    lruList[K]
	maxBytes int64
	size     int64

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a cache holding at most maxBytes of values. A maxBytes of
// zero or less stores nothing.
func New[K comparable](maxBytes int64) *LRU[K] {
	return &LRU[K]{
		entries:  make(map[K]*lruNode[K]),
		maxBytes: maxBytes,
	}
}

// Get returns the value stored under key and marks it recently used.
// The returned slice must not be modified.
func (c *LRU[K]) Get(key K) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(node)
	return node.value, true
}

// Add stores value under key. Values larger than the whole budget are
// not stored. The cache keeps a reference to value.
func (c *LRU[K]) Add(key K, value []byte) {
	n := int64(len(value))
	if n > c.maxBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.size += n - int64(len(old.value))
		old.value = value
		c.order.MoveToFront(old)
	} else {
		c.entries[key] = c.order.PushFront(key, value)
		c.size += n
	}

	for c.size > c.maxBytes {
		node := c.order.RemoveOldest()
		if node == nil {
			break
		}
		delete(c.entries, node.key)
		c.size -= int64(len(node.value))
		c.evictions++
	}
}

// Len returns the number of stored values.
func (c *LRU[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *LRU[K]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Stats{
		Len:       len(c.entries),
		Bytes:     c.size,
		MaxBytes:  c.maxBytes,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		st.HitRate = float64(c.hits) / float64(total)
	}
	return st
}

// Stats contains cache statistics.
type Stats struct {
	Len       int
	Bytes     int64
	MaxBytes  int64
	Hits      uint64
	Misses    uint64
	Evictions uint64
	// HitRate is Hits / (Hits + Misses), or 0 before the first lookup.
	HitRate float64
}
