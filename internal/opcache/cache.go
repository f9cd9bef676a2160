// Package opcache holds the current cycle's detection output behind an
// atomic-replace cache. One writer (the scheduler) swaps in the full result
// each cycle; readers get copies and a freshness signal, never partial data.
package opcache

import (
	"strings"
	"sync"
	"time"

	"ge-market-watch/internal/domain"
)

// DefaultTTL bounds how long a published result counts as fresh.
const DefaultTTL = 300 * time.Second

// Cache is the single shared handle between the cycle worker and readers.
// All methods are safe for concurrent use.
type Cache struct {
	mu sync.RWMutex

	opportunities []*domain.Opportunity
	report        *domain.HourlyReport
	generatedAt   time.Time

	ttl time.Duration
	now func() time.Time
}

// New builds an empty cache. A non-positive ttl takes DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{ttl: ttl, now: time.Now}
}

// Replace swaps in a full cycle's output as one operation. The slice is
// owned by the cache from this point; callers must not mutate it after.
func (c *Cache) Replace(opportunities []*domain.Opportunity, report *domain.HourlyReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opportunities = opportunities
	c.report = report
	c.generatedAt = c.now()
}

// Get returns a copy of the current opportunity list plus whether it is
// still within the TTL. An empty fresh list and a stale list are both valid
// answers; callers needing freshness recompute instead of waiting.
func (c *Cache) Get() ([]*domain.Opportunity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copyLocked(c.opportunities), c.freshLocked()
}

// GetByTier filters the current list to one tier name.
func (c *Cache) GetByTier(tier string) ([]*domain.Opportunity, bool) {
	return c.filter(func(o *domain.Opportunity) bool {
		return strings.EqualFold(o.Tier.Name, tier)
	})
}

// GetByGroup filters the current list to one tier group (metals or gems).
func (c *Cache) GetByGroup(group domain.TierGroup) ([]*domain.Opportunity, bool) {
	return c.filter(func(o *domain.Opportunity) bool {
		return o.Tier.Group == group
	})
}

// GetByFlag filters the current list to opportunities carrying a flag.
func (c *Cache) GetByFlag(flag string) ([]*domain.Opportunity, bool) {
	return c.filter(func(o *domain.Opportunity) bool {
		return o.HasFlag(flag)
	})
}

// GetItem returns one item's current opportunity, or nil when the item is
// not in this cycle's list.
func (c *Cache) GetItem(itemID int) (*domain.Opportunity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, o := range c.opportunities {
		if o.ItemID == itemID {
			cp := *o
			return &cp, c.freshLocked()
		}
	}
	return nil, c.freshLocked()
}

// Report returns the current hourly report, or nil when the threshold
// detector has not published one.
func (c *Cache) Report() (*domain.HourlyReport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.report == nil {
		return nil, c.freshLocked()
	}
	cp := *c.report
	return &cp, c.freshLocked()
}

// GeneratedAt reports when the cache was last replaced. Zero time means it
// was never populated.
func (c *Cache) GeneratedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generatedAt
}

// Len reports the current list size.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.opportunities)
}

func (c *Cache) filter(keep func(*domain.Opportunity) bool) ([]*domain.Opportunity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domain.Opportunity, 0, len(c.opportunities))
	for _, o := range c.opportunities {
		if keep(o) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, c.freshLocked()
}

func (c *Cache) copyLocked(src []*domain.Opportunity) []*domain.Opportunity {
	out := make([]*domain.Opportunity, len(src))
	for i, o := range src {
		cp := *o
		out[i] = &cp
	}
	return out
}

func (c *Cache) freshLocked() bool {
	if c.generatedAt.IsZero() {
		return false
	}
	return c.now().Sub(c.generatedAt) < c.ttl
}
