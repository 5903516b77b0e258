package cache

import (
	"net/url"
	"strings"
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

// Cache is a TTL map safe for concurrent use. Values pass through clone on
// the way in and out so callers never share storage with it.
type Cache[V any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	clone func(V) V
	now   func() time.Time
	items map[string]entry[V]
}

// New returns a cache whose entries live for ttl. A nil clone stores values
// as given, which is only safe for values without shared references.
func New[V any](ttl time.Duration, clone func(V) V) *Cache[V] {
	if clone == nil {
		clone = func(v V) V { return v }
	}
	return &Cache[V]{
		ttl:   ttl,
		clone: clone,
		now:   time.Now,
		items: make(map[string]entry[V]),
	}
}

// Get returns a copy of the value under key if it has not expired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || !c.now().Before(e.expires) {
		var zero V
		return zero, false
	}
	return c.clone(e.value), true
}

// Set stores a copy of v under key for the cache TTL.
func (c *Cache[V]) Set(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: c.clone(v), expires: c.now().Add(c.ttl)}
}

// Invalidate drops key.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// InvalidateFamily drops every record and query entry of family and returns
// how many were removed. Call it after any successful mutation.
func (c *Cache[V]) InvalidateFamily(family string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.items {
		if strings.HasPrefix(key, family+"/") || strings.HasPrefix(key, family+"?") {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Purge removes expired entries.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, e := range c.items {
		if !now.Before(e.expires) {
			delete(c.items, key)
		}
	}
}

// Len counts stored entries, expired ones included until purged.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// RecordKey keys a single record.
func RecordKey(family, id string) string { return family + "/" + id }

// QueryKey keys a list result. Encode sorts by parameter name, so equal
// queries produce equal keys.
func QueryKey(family string, values url.Values) string {
	return family + "?" + values.Encode()
}
