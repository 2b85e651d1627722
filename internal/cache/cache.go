// Package cache provides a bounded in-memory TTL cache with LRU eviction and
// tag-based bulk invalidation, shared across services to trim remote reads.
package cache

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

type entry[V any] struct {
	value        V
	createdAt    time.Time
	expiresAt    time.Time
	lastAccessed time.Time
	accessCount  int64
	version      string
	tags         []string
	size         int
}

// Config controls one cache instance. Instances are constructed explicitly
// and injected; there is no package-level cache.
type Config struct {
	DefaultTTL    time.Duration
	MaxEntries    int
	SweepInterval time.Duration
	Now           func() time.Time
	Logger        *slog.Logger
}

// SetOptions carries the per-entry metadata accepted by Set.
type SetOptions struct {
	TTL     time.Duration
	Tags    []string
	Version string
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Sets        int64   `json:"sets"`
	Deletes     int64   `json:"deletes"`
	Evictions   int64   `json:"evictions"`
	Size        int     `json:"size"`
	MemoryUsage int     `json:"memoryUsage"`
	HitRate     float64 `json:"hitRate"`
	Efficiency  float64 `json:"efficiency"`
}

type Cache[V any] struct {
	mu         sync.Mutex
	now        func() time.Time
	defaultTTL time.Duration
	maxEntries int
	entries    map[string]*entry[V]
	log        *slog.Logger

	hits, misses, sets, deletes, evictions int64

	sweepInterval time.Duration
	stop          chan struct{}
	stopOnce      sync.Once
}

func New[V any](cfg Config) *Cache[V] {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 5 * time.Minute
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 100
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	c := &Cache[V]{
		now:           cfg.Now,
		defaultTTL:    cfg.DefaultTTL,
		maxEntries:    cfg.MaxEntries,
		entries:       make(map[string]*entry[V]),
		log:           cfg.Logger.With(slog.String("component", "cache")),
		sweepInterval: cfg.SweepInterval,
		stop:          make(chan struct{}),
	}
	if c.sweepInterval > 0 {
		go c.janitor()
	}
	return c
}

// Get returns the cached value if present and not expired. An expired entry
// is evicted on detection and counted as a miss; a hit bumps the entry's
// access count and last-access time.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	now := c.now()
	if now.After(e.expiresAt) {
		delete(c.entries, key)
		c.misses++
		var zero V
		return zero, false
	}
	e.accessCount++
	e.lastAccessed = now
	c.hits++
	return e.value, true
}

// Set stores value under key. At capacity the least recently accessed entry
// is evicted first. A value that cannot be serialized is logged and dropped;
// the next Get simply misses.
func (c *Cache[V]) Set(key string, value V, opts SetOptions) {
	size, err := approxSize(key, value)
	if err != nil {
		c.log.Warn("cache set skipped", slog.String("key", key), slog.Any("err", err))
		return
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLRULocked()
	}
	c.entries[key] = &entry[V]{
		value:        value,
		createdAt:    now,
		expiresAt:    now.Add(ttl),
		lastAccessed: now,
		version:      opts.Version,
		tags:         append([]string(nil), opts.Tags...),
		size:         size,
	}
	c.sets++
}

// Delete removes one entry and reports whether it existed.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	c.deletes++
	return true
}

// DeleteByTags removes every entry whose tag set intersects tags and returns
// the number removed. Used to invalidate all appointment reads after a write.
func (c *Cache[V]) DeleteByTags(tags []string) int {
	want := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		want[t] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		for _, t := range e.tags {
			if _, ok := want[t]; ok {
				delete(c.entries, key)
				removed++
				break
			}
		}
	}
	c.deletes += int64(removed)
	return removed
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*entry[V])
	c.mu.Unlock()
}

// Has reports presence without touching hit/miss counters or access metadata.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	return !c.now().After(e.expiresAt)
}

// Keys returns the non-expired keys in no particular order.
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	keys := make([]string, 0, len(c.entries))
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	mem := 0
	for _, e := range c.entries {
		mem += e.size
	}
	s := Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Sets:        c.sets,
		Deletes:     c.deletes,
		Evictions:   c.evictions,
		Size:        len(c.entries),
		MemoryUsage: mem,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total) * 100
	}
	if len(c.entries) > 0 {
		s.Efficiency = float64(c.hits) / float64(len(c.entries))
	}
	return s
}

// Stop terminates the background sweep. Safe to call more than once.
func (c *Cache[V]) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache[V]) evictLRULocked() {
	var oldestKey string
	var oldest time.Time
	first := true
	for key, e := range c.entries {
		if first || e.lastAccessed.Before(oldest) {
			oldestKey = key
			oldest = e.lastAccessed
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
		c.evictions++
	}
}

func (c *Cache[V]) janitor() {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

// sweep removes every expired entry so memory does not grow from entries
// nobody re-reads.
func (c *Cache[V]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func approxSize[V any](key string, value V) (int, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return 0, err
	}
	return len(key) + len(b), nil
}
