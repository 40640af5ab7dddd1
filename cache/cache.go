// Package cache keeps agent results for a fixed time, keyed on the agent
// name and its canonical parameters.
package cache

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

// Stats is a snapshot of the cache.
type Stats struct {
	Enabled bool          `json:"enabled"`
	Total   int           `json:"total_entries"`
	Expired int           `json:"expired_entries"`
	Active  int           `json:"active_entries"`
	Hits    int           `json:"hits"`
	Misses  int           `json:"misses"`
	TTL     time.Duration `json:"ttl"`
}

type entry struct {
	value  any
	stored time.Time
}

// Cache is safe for concurrent use. A disabled cache stores nothing and
// misses every lookup.
type Cache struct {
	mu      sync.Mutex
	enabled bool
	ttl     time.Duration
	entries map[string]entry
	hits    int
	misses  int
	now     func() time.Time
}

func New(enabled bool, ttl time.Duration) *Cache {
	return &Cache{enabled: enabled, ttl: ttl, entries: make(map[string]entry), now: time.Now}
}

// Key hashes agent and params. Params that are equal JSON documents yield
// the same key regardless of object key order or whitespace.
func Key(agent string, params json.RawMessage) string {
	canonical := []byte("{}")
	if trimmed := bytes.TrimSpace(params); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		var v any
		if err := json.Unmarshal(trimmed, &v); err == nil {
			if b, err := json.Marshal(v); err == nil {
				canonical = b
			}
		} else {
			canonical = trimmed
		}
	}
	sum := md5.Sum(append([]byte(agent+":"), canonical...))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) Enabled() bool {
	return c.enabled
}

func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return nil, false
	}
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.expired(e) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.enabled {
		return
	}
	c.entries[key] = entry{value: value, stored: c.now()}
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Cleanup drops expired entries and reports how many were dropped.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Enabled: c.enabled, Total: len(c.entries), Hits: c.hits, Misses: c.misses, TTL: c.ttl}
	for _, e := range c.entries {
		if c.expired(e) {
			s.Expired++
		}
	}
	s.Active = s.Total - s.Expired
	return s
}

func (c *Cache) expired(e entry) bool {
	return c.now().Sub(e.stored) > c.ttl
}
