package storage

import (
	"promo-engine/internal/cache"
	"promo-engine/internal/eligibility"
)

// Cache is the storefront read path: a snapshot of every promotion row,
// refreshed by the listener on DB change. Readers evaluate eligibility
// against the snapshot instead of hitting postgres per page load.
type Cache struct {
	snap cache.Snapshot[[]eligibility.Promotion]
}

func NewCache() *Cache {
	return &Cache{}
}

// Promotions returns the cached rows and whether the snapshot has been
// populated at least once. Callers must not mutate the slice.
func (c *Cache) Promotions() ([]eligibility.Promotion, bool) {
	return c.snap.Load()
}

// Update swaps in a freshly loaded set of rows.
func (c *Cache) Update(promos []eligibility.Promotion) {
	c.snap.Store(promos)
}
