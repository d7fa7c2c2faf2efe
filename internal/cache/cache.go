// Package cache provides a read-through entity cache in front of the index
// store. Keys embed the store's generation counter, so every committed
// write invalidates the whole cached view without any explicit purge: stale
// entries just stop being asked for and age out.
package cache

import (
	"fmt"
	"time"

	"github.com/maypok86/otter"

	"github.com/codescope/codescope/internal/storage"
)

const (
	defaultCapacity = 10_000
	entryTTL        = 10 * time.Minute
)

// EntityCache serves entity lookups from memory, falling back to the store
// on miss. Lookup errors (including storage.ErrEntityNotFound) are never
// cached.
type EntityCache struct {
	store *storage.Store
	cache otter.Cache[string, *storage.CodeEntity]
}

// NewEntityCache builds a cache holding up to capacity entities.
func NewEntityCache(store *storage.Store, capacity int) (*EntityCache, error) {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	c, err := otter.MustBuilder[string, *storage.CodeEntity](capacity).
		WithTTL(entryTTL).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build entity cache: %w", err)
	}
	return &EntityCache{store: store, cache: c}, nil
}

// Get returns one entity, from memory when the index has not moved since it
// was cached.
func (c *EntityCache) Get(codebaseID, entityID string) (*storage.CodeEntity, error) {
	gen, err := c.store.Generation()
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%d|%s|%s", gen, codebaseID, entityID)

	if e, ok := c.cache.Get(key); ok {
		return e, nil
	}
	e, err := c.store.GetEntity(codebaseID, entityID)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, e)
	return e, nil
}

// Close releases the cache's background resources.
func (c *EntityCache) Close() {
	c.cache.Close()
}
