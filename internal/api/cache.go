package api

import (
	"encoding/json"
	"sync"
)

// Cache memoizes read responses by a caller-chosen tag. An entry remembers
// the URL it was fetched from: a lookup with a different URL misses so the
// caller refetches and overwrites. Writes are last-writer-wins; two in-flight
// reads racing on the same tag with different URLs leave whichever finished
// last.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	url   string
	value json.RawMessage
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Lookup returns the stored value for the tag when present and fetched from
// the same URL.
func (c *Cache) Lookup(tag, url string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[tag]
	if !ok || e.url != url {
		return nil, false
	}
	return e.value, true
}

// Store records the response for a tag, overwriting any previous entry.
func (c *Cache) Store(tag, url string, value json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[tag] = cacheEntry{url: url, value: value}
}

// Invalidate drops the entries for the given tags so the next read refetches.
func (c *Cache) Invalidate(tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tag := range tags {
		delete(c.entries, tag)
	}
}

// Clear drops every entry. Used on logout so one user's reads never serve
// another's session.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
