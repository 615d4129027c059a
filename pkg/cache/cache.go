package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

const (
	// DefaultTTL is how long an entry stays fresh.
	DefaultTTL = 5 * time.Minute

	// DefaultMaxSize bounds the number of entries.
	DefaultMaxSize = 10000

	// retainRatio is the share of MaxSize kept by Cleanup.
	retainRatio = 0.8
)

// Key identifies a cached calculation.
type Key struct {
	RecordID   string
	ColumnID   string
	Expression string
}

// String renders the key for logging.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%q", k.RecordID, k.ColumnID, k.Expression)
}

// Config configures a Cache.
type Config struct {
	// TTL is how long an entry stays fresh (default: 5m).
	TTL time.Duration

	// MaxSize bounds the number of entries (default: 10000).
	MaxSize int
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		TTL:     DefaultTTL,
		MaxSize: DefaultMaxSize,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("ttl must be positive, got %v", c.TTL)
	}
	if c.MaxSize <= 0 {
		return fmt.Errorf("max_size must be positive, got %d", c.MaxSize)
	}
	return nil
}

// Metrics receives cache events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	RecordHit()
	RecordMiss()
	RecordEviction(count int)
	UpdateSize(size int)
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
	MaxSize   int
	TTL       time.Duration
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type entry struct {
	value    any
	storedAt time.Time
	hits     uint64
}

// Cache is a TTL cache of calculation results with hit-count biased
// eviction. Losing an entry is always safe: the value can be recomputed.
// A Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	config  Config
	now     func() time.Time
	metrics Metrics

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a cache. Zero config fields take their defaults.
func New(config Config) *Cache {
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.MaxSize <= 0 {
		config.MaxSize = DefaultMaxSize
	}
	return &Cache{
		entries: make(map[Key]*entry),
		config:  config,
		now:     time.Now,
	}
}

// WithMetrics sets the metrics sink.
func (c *Cache) WithMetrics(m Metrics) *Cache {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = m
	return c
}

// WithClock replaces the time source.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
	return c
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Get returns the value stored under key. Entries older than the TTL are
// treated as absent and removed.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.expired(e) {
		delete(c.entries, key)
		c.updateSizeLocked()
		ok = false
	}
	if !ok {
		c.misses++
		if c.metrics != nil {
			c.metrics.RecordMiss()
		}
		return nil, false
	}

	e.hits++
	c.hits++
	if c.metrics != nil {
		c.metrics.RecordHit()
	}
	return e.value, true
}

// Set stores value under key with a fresh timestamp and a zero hit count.
// A full cache is cleaned up first.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.config.MaxSize {
		c.cleanupLocked()
	}
	c.entries[key] = &entry{value: value, storedAt: c.now()}
	c.updateSizeLocked()
}

// Invalidate removes every entry matching recordID and columnID. An empty
// argument matches any value, so Invalidate("", "col") drops a column for
// all records. It returns the number of entries removed.
func (c *Cache) Invalidate(recordID, columnID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if recordID == "" && columnID == "" {
		n := len(c.entries)
		c.entries = make(map[Key]*entry)
		c.updateSizeLocked()
		return n
	}

	removed := 0
	for k := range c.entries {
		if (recordID == "" || k.RecordID == recordID) && (columnID == "" || k.ColumnID == columnID) {
			delete(c.entries, k)
			removed++
		}
	}
	if removed > 0 {
		c.updateSizeLocked()
	}
	return removed
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.Invalidate("", "")
}

// Cleanup drops expired entries and, if more than 80% of MaxSize remain,
// keeps only the entries with the most hits. It returns the number of
// entries removed.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleanupLocked()
}

func (c *Cache) cleanupLocked() int {
	before := len(c.entries)

	type candidate struct {
		key Key
		e   *entry
	}
	fresh := make([]candidate, 0, len(c.entries))
	for k, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, k)
			continue
		}
		fresh = append(fresh, candidate{k, e})
	}

	keep := int(float64(c.config.MaxSize) * retainRatio)
	if len(fresh) > keep {
		sort.Slice(fresh, func(i, j int) bool {
			if fresh[i].e.hits != fresh[j].e.hits {
				return fresh[i].e.hits > fresh[j].e.hits
			}
			return fresh[i].e.storedAt.After(fresh[j].e.storedAt)
		})
		for _, cand := range fresh[keep:] {
			delete(c.entries, cand.key)
		}
	}

	removed := before - len(c.entries)
	if removed > 0 {
		c.evictions += uint64(removed)
		if c.metrics != nil {
			c.metrics.RecordEviction(removed)
		}
		c.updateSizeLocked()
	}
	return removed
}

// Len returns the number of stored entries, expired ones included until
// they are looked up or cleaned up.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Size:      len(c.entries),
		MaxSize:   c.config.MaxSize,
		TTL:       c.config.TTL,
	}
}

func (c *Cache) expired(e *entry) bool {
	return c.now().Sub(e.storedAt) > c.config.TTL
}

func (c *Cache) updateSizeLocked() {
	if c.metrics != nil {
		c.metrics.UpdateSize(len(c.entries))
	}
}
