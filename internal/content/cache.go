package content

import (
	"context"
	"sync"
)

type cacheKey struct {
	category Category
	filename string
}

// Cache memoizes successful loads of an underlying Repository.
// Build one per report generation; it never outlives the request.
type Cache struct {
	repo Repository

	mu      sync.Mutex
	entries map[cacheKey]*Mapping
	hits    int
}

// NewCache wraps repo with an empty cache.
func NewCache(repo Repository) *Cache {
	return &Cache{repo: repo, entries: make(map[cacheKey]*Mapping)}
}

// Load returns the cached mapping or loads it through the wrapped repository.
// Failures are not cached.
func (c *Cache) Load(ctx context.Context, category Category, filename string) (*Mapping, error) {
	key := cacheKey{category, filename}

	c.mu.Lock()
	if m, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return m, nil
	}
	c.mu.Unlock()

	m, err := c.repo.Load(ctx, category, filename)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = m
	c.mu.Unlock()
	return m, nil
}

// Len returns the number of cached files.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Hits returns how many loads were served from the cache.
func (c *Cache) Hits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}
