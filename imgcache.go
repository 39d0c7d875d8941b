package imgcache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/imgcache/cache"
	"github.com/hupe1980/imgcache/internal/resource"
	"github.com/hupe1980/imgcache/model"
)

// Cache is the two-tier image cache facade.
//
// A Cache is built once per application (or scene) and shared by handle.
// All methods are safe for concurrent use.
type Cache struct {
	sync    *cache.SyncCache
	async   *cache.AsyncCache
	loader  cache.Loader
	logger  *Logger
	metrics MetricsCollector
	rc      *resource.Controller

	parallelism int

	mu         sync.Mutex
	closed     bool
	prefetchWG sync.WaitGroup

	prefetchFailed atomic.Int64
}

// Stats is a snapshot of both tiers.
type Stats struct {
	Sync  cache.TierStats
	Async cache.TierStats
	// MemoryUsage is the payload bytes tracked against WithMemoryLimit.
	MemoryUsage int64
	// ActiveLoads is the number of remote loads holding a slot.
	ActiveLoads int64
	// PrefetchFailed counts prefetched keys that failed to resolve.
	PrefetchFailed int64
}

// New creates a Cache.
func New(optFns ...Option) (*Cache, error) {
	o := applyOptions(optFns)

	var rc *resource.Controller
	if o.memoryLimit > 0 || o.maxConcurrentLoads > 0 || o.loadsPerSecond > 0 {
		rc = resource.NewController(resource.Config{
			MemoryLimitBytes:   o.memoryLimit,
			MaxConcurrentLoads: o.maxConcurrentLoads,
			LoadsPerSecond:     o.loadsPerSecond,
			LoadBurst:          o.loadBurst,
		})
	}

	tierOpts := []cache.Option{
		cache.WithClock(o.clock),
		cache.WithLogger(o.logger.Logger),
		cache.WithObserver(o.metricsCollector),
		cache.WithController(rc),
		cache.WithLoadTimeout(o.loadTimeout),
	}

	if o.syncTier.Name == "" {
		o.syncTier.Name = "sync"
	}
	if o.asyncTier.Name == "" {
		o.asyncTier.Name = "async"
	}
	if o.syncTier.Name == o.asyncTier.Name {
		return nil, fmt.Errorf("%w: duplicate tier name %q", cache.ErrInvalidConfig, o.syncTier.Name)
	}

	syncTier, err := cache.NewSyncCache(o.syncTier, tierOpts...)
	if err != nil {
		return nil, err
	}
	asyncTier, err := cache.NewAsyncCache(o.asyncTier, tierOpts...)
	if err != nil {
		return nil, err
	}

	return &Cache{
		sync:        syncTier,
		async:       asyncTier,
		loader:      o.loader,
		logger:      o.logger,
		metrics:     o.metricsCollector,
		rc:          rc,
		parallelism: o.parallelism,
	}, nil
}

// ResolveMany resolves every distinct key in keys.
//
// SyncCache hits are answered directly. The remaining keys are looked up in
// AsyncCache concurrently, loading through loader (or the Cache's default
// loader if nil) on a miss. Every entry obtained from AsyncCache is written
// into SyncCache before ResolveMany returns. Failures are reported per key
// and never fail the batch.
func (c *Cache) ResolveMany(ctx context.Context, keys []model.Key, loader cache.Loader) Results {
	start := time.Now()
	if loader == nil {
		loader = c.loader
	}

	results := make(Results, len(keys))
	var misses []model.Key
	for _, k := range keys {
		if _, seen := results[k]; seen {
			continue
		}
		if e, ok := c.sync.TryGet(k); ok {
			results[k] = Result{Entry: e, Source: SourceSync}
			continue
		}
		results[k] = Result{}
		misses = append(misses, k)
	}

	if len(misses) > 0 {
		var (
			mu sync.Mutex
			g  errgroup.Group
		)
		g.SetLimit(c.parallelism)

		for _, k := range misses {
			g.Go(func() error {
				r := c.resolveAsync(ctx, k, loader)
				mu.Lock()
				results[k] = r
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	failed := results.Failed()
	elapsed := time.Since(start)
	c.metrics.RecordResolve(len(results), failed, elapsed)
	c.logger.LogResolve(ctx, len(results), failed, elapsed)

	return results
}

// Resolve resolves a single key. It is ResolveMany for one key.
func (c *Cache) Resolve(ctx context.Context, key model.Key, loader cache.Loader) (*model.Entry, error) {
	start := time.Now()
	if loader == nil {
		loader = c.loader
	}

	r := Result{Source: SourceSync}
	if e, ok := c.sync.TryGet(key); ok {
		r.Entry = e
	} else {
		r = c.resolveAsync(ctx, key, loader)
	}

	failed := 0
	if !r.OK() {
		failed = 1
	}
	elapsed := time.Since(start)
	c.metrics.RecordResolve(1, failed, elapsed)
	c.logger.LogResolve(ctx, 1, failed, elapsed)
	return r.Entry, r.Err
}

func (c *Cache) resolveAsync(ctx context.Context, key model.Key, loader cache.Loader) Result {
	e, status, err := c.async.Fetch(ctx, key, loader)
	if err != nil {
		c.logger.LogLoad(ctx, key, err)
		return Result{Err: err}
	}

	c.sync.Insert(key, e)

	if status == cache.LookupStatusMiss {
		c.logger.LogLoad(ctx, key, nil)
		return Result{Entry: e, Source: SourceRemote}
	}
	return Result{Entry: e, Source: SourceAsync}
}

// Get returns a fresh SyncCache entry. It never blocks and never loads.
func (c *Cache) Get(key model.Key) (*model.Entry, bool) {
	return c.sync.TryGet(key)
}

// Put stores a locally produced image in both tiers, e.g. a drawing that
// was just saved. The entry is stamped like a loaded one.
func (c *Cache) Put(key model.Key, e *model.Entry) error {
	if e == nil {
		return ErrNilEntry
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	stamped := c.async.Insert(key, e)
	c.sync.Insert(key, stamped)
	return nil
}

// Prefetch resolves the keys that are not already in SyncCache in the
// background and returns how many it scheduled.
//
// The work is detached from ctx cancellation. Failures are logged and
// counted in Stats, never returned. After Close, Prefetch schedules nothing.
func (c *Cache) Prefetch(ctx context.Context, keys []model.Key, loader cache.Loader) int {
	if loader == nil {
		loader = c.loader
	}
	if loader == nil {
		return 0
	}

	seen := make(map[model.Key]struct{}, len(keys))
	var todo []model.Key
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if c.sync.Contains(k) {
			continue
		}
		todo = append(todo, k)
	}
	if len(todo) == 0 {
		return 0
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	c.prefetchWG.Add(1)
	c.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	go func() {
		defer c.prefetchWG.Done()

		var (
			g      errgroup.Group
			failed atomic.Int64
		)
		g.SetLimit(c.parallelism)
		for _, k := range todo {
			g.Go(func() error {
				if r := c.resolveAsync(bg, k, loader); r.Err != nil {
					failed.Add(1)
				}
				return nil
			})
		}
		_ = g.Wait()

		n := failed.Load()
		c.prefetchFailed.Add(n)
		c.logger.LogPrefetch(bg, len(todo), int(n))
	}()

	c.metrics.RecordPrefetch(len(todo))
	return len(todo)
}

// Invalidate drops key from both tiers.
func (c *Cache) Invalidate(key model.Key) {
	n := 0
	if c.async.Invalidate(key) {
		n++
	}
	if c.sync.Invalidate(key) {
		n++
	}
	c.logger.LogInvalidate(context.Background(), key.String(), n)
}

// InvalidateOwner drops every key owned by owner from both tiers and
// returns the number of removed entries.
func (c *Cache) InvalidateOwner(owner uuid.UUID) int {
	pred := func(k model.Key) bool { return k.OwnedBy(owner) }
	n := c.async.InvalidateFunc(pred)
	n += c.sync.InvalidateFunc(pred)
	c.logger.LogInvalidate(context.Background(), "owner/"+owner.String(), n)
	return n
}

// InvalidateAll drops everything from both tiers.
func (c *Cache) InvalidateAll() {
	n := c.async.InvalidateAll()
	n += c.sync.InvalidateAll()
	c.logger.LogInvalidate(context.Background(), "all", n)
}

// Stats returns a snapshot of both tiers.
func (c *Cache) Stats() Stats {
	return Stats{
		Sync:           c.sync.Stats(),
		Async:          c.async.Stats(),
		MemoryUsage:    c.rc.MemoryUsage(),
		ActiveLoads:    c.rc.ActiveLoads(),
		PrefetchFailed: c.prefetchFailed.Load(),
	}
}

// Sync returns the render-path tier.
func (c *Cache) Sync() *cache.SyncCache { return c.sync }

// Async returns the remote-backed tier.
func (c *Cache) Async() *cache.AsyncCache { return c.async }

// Close waits for outstanding prefetches and rejects new ones.
// Resident entries stay readable.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.prefetchWG.Wait()
	return nil
}
