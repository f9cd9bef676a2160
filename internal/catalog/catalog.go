// Package catalog holds item metadata fetched from the mapping endpoint. It
// is refreshed rarely and read on every cycle, so reads are lock-cheap and
// a refresh replaces the whole map at once.
package catalog

import (
	"sort"
	"sync"

	"ge-market-watch/internal/domain"
)

// Cache is a concurrent item metadata lookup.
type Cache struct {
	mu    sync.RWMutex
	items map[int]domain.ItemMetadata
}

func New() *Cache {
	return &Cache{items: make(map[int]domain.ItemMetadata)}
}

// Replace swaps the full catalog in one operation. An empty input is
// ignored so a failed refresh never wipes a working catalog.
func (c *Cache) Replace(items []*domain.ItemMetadata) {
	if len(items) == 0 {
		return
	}
	next := make(map[int]domain.ItemMetadata, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		next[it.ID] = *it
	}
	c.mu.Lock()
	c.items = next
	c.mu.Unlock()
}

// Item returns metadata for an item id.
func (c *Cache) Item(itemID int) (domain.ItemMetadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[itemID]
	return it, ok
}

// All returns every catalog entry ordered by id.
func (c *Cache) All() []domain.ItemMetadata {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.ItemMetadata, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len reports the catalog size.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
