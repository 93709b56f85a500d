package template

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"stockledger/pkg/logger"
)

// Cache fronts a Provider with a TTL store.
// Concurrent misses share a single provider call.
type Cache struct {
	provider Provider
	store    Store
	ttl      time.Duration
	group    singleflight.Group

	// generation is bumped by Invalidate. A load that started under an older
	// generation still answers its callers but is not written back.
	generation atomic.Uint64
	// writeMu orders write-backs against Invalidate.
	writeMu sync.Mutex
}

// NewCache creates a cache. A non-positive ttl selects DefaultTTL.
func NewCache(provider Provider, store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		provider: provider,
		store:    store,
		ttl:      ttl,
	}
}

// GetOrRefresh returns the cached snapshot, loading it from the provider on a miss.
// A broken store degrades to a direct provider read instead of failing the caller.
func (c *Cache) GetOrRefresh(ctx context.Context) (*Snapshot, error) {
	snap, ok, err := c.store.Get(ctx, CacheKey)
	if err != nil {
		logger.Warn(ctx, "template cache read failed", "key", CacheKey, "error", err)
	}
	if ok {
		return snap, nil
	}

	gen := c.generation.Load()
	v, err, _ := c.group.Do(CacheKey+":"+strconv.FormatUint(gen, 10), func() (any, error) {
		// A refresh that finished between our miss and here already filled the store.
		if snap, ok, _ := c.store.Get(ctx, CacheKey); ok {
			return snap, nil
		}
		fresh, err := c.provider.ActiveTemplate(ctx)
		if err != nil {
			return nil, fmt.Errorf("load active template: %w", err)
		}
		c.writeBack(ctx, gen, fresh)
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}

	out := v.(*Snapshot).clone()
	return &out, nil
}

func (c *Cache) writeBack(ctx context.Context, gen uint64, snap *Snapshot) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.generation.Load() != gen {
		logger.Debug(ctx, "template cache invalidated during load, not storing", "key", CacheKey)
		return
	}
	if err := c.store.Set(ctx, CacheKey, snap, c.ttl); err != nil {
		logger.Warn(ctx, "template cache write failed", "key", CacheKey, "error", err)
	}
}

// Invalidate drops the cached snapshot so the next read reloads it.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.generation.Add(1)
	if err := c.store.Delete(ctx, CacheKey); err != nil {
		return fmt.Errorf("invalidate %s: %w", CacheKey, err)
	}
	return nil
}
