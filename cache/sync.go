package cache

import (
	"log/slog"

	icache "github.com/hupe1980/imgcache/internal/cache"
	"github.com/hupe1980/imgcache/model"
)

// SyncCache is the short-TTL render-path tier.
// It never blocks on I/O and never calls a Loader.
type SyncCache struct {
	name   string
	store  icache.Store
	obs    Observer
	logger *slog.Logger
}

// NewSyncCache creates a SyncCache.
func NewSyncCache(cfg TierConfig, opts ...Option) (*SyncCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = "sync"
	}
	o := buildOptions(opts)
	return &SyncCache{
		name:   cfg.Name,
		store:  newStore(cfg, o),
		obs:    o.observer,
		logger: o.logger,
	}, nil
}

// Name returns the tier name.
func (c *SyncCache) Name() string { return c.name }

// TryGet returns a fresh entry. A stale or absent entry is a miss.
func (c *SyncCache) TryGet(key model.Key) (*model.Entry, bool) {
	e, ok := c.store.Get(key)
	c.obs.OnLookup(c.name, ok)
	return e, ok
}

// Insert stores or replaces the entry for key with the tier's TTL.
func (c *SyncCache) Insert(key model.Key, e *model.Entry) {
	if !c.store.Set(key, e) {
		c.logger.Debug("entry not admitted", "tier", c.name, "key", key.String(), "bytes", e.Size())
	}
}

// Invalidate removes the entry for key and reports whether it was resident.
func (c *SyncCache) Invalidate(key model.Key) bool {
	ok := c.store.Remove(key)
	if ok {
		c.logger.Debug("invalidated", "tier", c.name, "key", key.String())
	}
	return ok
}

// InvalidateAll removes every entry and returns the count.
func (c *SyncCache) InvalidateAll() int {
	n := c.store.Clear()
	c.logger.Debug("invalidated all", "tier", c.name, "count", n)
	return n
}

// InvalidateFunc removes every entry whose key matches pred.
func (c *SyncCache) InvalidateFunc(pred func(model.Key) bool) int {
	n := c.store.RemoveFunc(pred)
	c.logger.Debug("invalidated matching", "tier", c.name, "count", n)
	return n
}

// Len returns the number of resident entries.
func (c *SyncCache) Len() int { return c.store.Len() }

// Stats returns a snapshot of tier counters.
func (c *SyncCache) Stats() TierStats {
	return tierStats(c.name, c.store.Stats())
}

// Contains reports whether a fresh entry exists, without counting a lookup.
func (c *SyncCache) Contains(key model.Key) bool {
	_, ok := c.store.Peek(key)
	return ok
}
