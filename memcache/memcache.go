// Package memcache is the process-local tier of the highlight cache: an LRU
// bounded by entry count and by estimated bytes.
package memcache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/cptaffe/previewhl/cachekey"
	"github.com/cptaffe/previewhl/styled"
)

// Limits applied when Options leaves one unset.
const (
	DefaultMaxEntries = 20
	DefaultMaxBytes   = 10 << 20
)

// Options bounds the cache.  Zero or negative values select the defaults.
type Options struct {
	MaxEntries int
	MaxBytes   int64
}

// Stats is a snapshot of the cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache is safe for concurrent use.  Stored results are shared between
// callers and must be treated as read-only.
type Cache struct {
	maxEntries int
	maxBytes   int64

	mu    sync.Mutex
	items map[cachekey.Key]*list.Element
	order *list.List // front = most recently used
	bytes int64

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type entry struct {
	key    cachekey.Key
	result *styled.Result
	size   int64
}

// New returns an empty cache.
func New(opts Options) *Cache {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	return &Cache{
		maxEntries: opts.MaxEntries,
		maxBytes:   opts.MaxBytes,
		items:      make(map[cachekey.Key]*list.Element),
		order:      list.New(),
	}
}

// Get returns the result stored under key and marks it most recently used.
func (c *Cache) Get(key cachekey.Key) (*styled.Result, bool) {
	c.mu.Lock()
	elem, ok := c.items[key]
	if ok {
		c.order.MoveToFront(elem)
	}
	c.mu.Unlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return elem.Value.(*entry).result, true
}

// Set stores r under key, evicting least recently used entries until both
// the count and byte limits hold.  A result larger than the whole byte
// budget is not stored, and any older entry under key is dropped.
func (c *Cache) Set(key cachekey.Key, r *styled.Result) {
	size := r.EstimatedSize()

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
	if size > c.maxBytes {
		return
	}
	for c.order.Len() > 0 && (c.order.Len() >= c.maxEntries || c.bytes+size > c.maxBytes) {
		c.remove(c.order.Back())
		c.evictions.Add(1)
	}
	c.items[key] = c.order.PushFront(&entry{key: key, result: r, size: size})
	c.bytes += size
}

// remove unlinks elem; c.mu must be held.
func (c *Cache) remove(elem *list.Element) {
	e := c.order.Remove(elem).(*entry)
	delete(c.items, e.key)
	c.bytes -= e.size
}

// Contains reports whether key is cached without touching its recency.
func (c *Cache) Contains(key cachekey.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Bytes returns the summed size estimate of the cached entries.
func (c *Cache) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
