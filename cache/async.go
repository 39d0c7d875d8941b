package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	icache "github.com/hupe1980/imgcache/internal/cache"
	"github.com/hupe1980/imgcache/internal/resource"
	"github.com/hupe1980/imgcache/model"
)

// AsyncCache is the longer-TTL tier backed by a Loader.
//
// Concurrent misses for one key share a single Loader call. The load runs
// detached from the caller's context: a caller that gives up waiting gets
// ctx.Err() while the load completes for everybody else.
type AsyncCache struct {
	name        string
	store       icache.Store
	clock       Clock
	obs         Observer
	logger      *slog.Logger
	rc          *resource.Controller
	loadTimeout time.Duration

	// group is replaced on InvalidateAll so that later calls never join
	// a flight started before it.
	group atomic.Pointer[singleflight.Group]

	mu       sync.Mutex
	inflight map[model.Key]int

	version      atomic.Uint64
	loads        atomic.Int64
	loadFailures atomic.Int64
}

// NewAsyncCache creates an AsyncCache.
func NewAsyncCache(cfg TierConfig, opts ...Option) (*AsyncCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		cfg.Name = "async"
	}
	o := buildOptions(opts)

	c := &AsyncCache{
		name:        cfg.Name,
		store:       newStore(cfg, o),
		clock:       o.clock,
		obs:         o.observer,
		logger:      o.logger,
		rc:          o.controller,
		loadTimeout: o.loadTimeout,
		inflight:    make(map[model.Key]int),
	}
	c.group.Store(new(singleflight.Group))
	return c, nil
}

// Name returns the tier name.
func (c *AsyncCache) Name() string { return c.name }

// GetOrLoad returns a fresh entry for key, loading it on a miss.
func (c *AsyncCache) GetOrLoad(ctx context.Context, key model.Key, loader Loader) (*model.Entry, error) {
	e, _, err := c.Fetch(ctx, key, loader)
	return e, err
}

type loadResult struct {
	entry *model.Entry
	// cached is set when the flight found an entry stored by a flight
	// that completed just before it started.
	cached bool
}

// Fetch is GetOrLoad that also reports how the entry was obtained.
//
// Loader failures are returned as *LoaderError. If ctx ends before the
// shared load completes, Fetch returns ctx.Err() and the load continues.
func (c *AsyncCache) Fetch(ctx context.Context, key model.Key, loader Loader) (*model.Entry, LookupStatus, error) {
	if e, ok := c.store.Get(key); ok {
		c.obs.OnLookup(c.name, true)
		return e, LookupStatusHit, nil
	}
	c.obs.OnLookup(c.name, false)

	if loader == nil {
		return nil, LookupStatusError, ErrNilLoader
	}

	ch := c.group.Load().DoChan(flightKey(key), func() (any, error) {
		return c.load(ctx, key, loader)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, LookupStatusError, res.Err
		}
		r := res.Val.(*loadResult)
		if r.cached {
			return r.entry, LookupStatusHit, nil
		}
		return r.entry, LookupStatusMiss, nil
	case <-ctx.Done():
		return nil, LookupStatusError, ctx.Err()
	}
}

// load runs inside the flight.
func (c *AsyncCache) load(ctx context.Context, key model.Key, loader Loader) (*loadResult, error) {
	c.track(key, 1)
	defer c.track(key, -1)

	// A flight that finished between our miss and this flight's start has
	// already stored a fresh entry.
	if e, ok := c.store.Peek(key); ok {
		return &loadResult{entry: e, cached: true}, nil
	}

	lctx := context.WithoutCancel(ctx)
	if c.loadTimeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(lctx, c.loadTimeout)
		defer cancel()
	}

	if err := c.rc.AcquireLoad(lctx); err != nil {
		// lctx carries no cancellation, only the load timeout can end it.
		lerr := &LoaderError{Kind: KindTimeout, Key: key, Err: err}
		c.loadFailures.Add(1)
		c.logger.Debug("load slot not acquired", "tier", c.name, "key", key.String(), "error", err)
		return nil, lerr
	}

	type result struct {
		entry *model.Entry
		err   error
	}
	done := make(chan result, 1)
	start := time.Now()

	go func() {
		defer c.rc.ReleaseLoad()
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("loader panic: %v", r)}
			}
		}()
		e, err := loader.Load(lctx, key)
		done <- result{entry: e, err: err}
	}()

	var r result
	select {
	case r = <-done:
		if r.err == nil && r.entry == nil {
			r.err = ErrNotFound
		}
	case <-lctx.Done():
		// The loader ignored the deadline; its late result is discarded.
		r.err = lctx.Err()
	}

	c.loads.Add(1)
	c.obs.OnLoad(time.Since(start), r.err)

	if r.err != nil {
		c.loadFailures.Add(1)
		lerr := Classify(key, r.err)
		c.logger.Debug("load failed", "tier", c.name, "key", key.String(), "kind", lerr.Kind.String(), "error", r.err)
		return nil, lerr
	}

	stamped := r.entry.Stamp(c.version.Add(1), c.clock.Now())
	if !c.store.Set(key, stamped) {
		c.logger.Debug("entry not admitted", "tier", c.name, "key", key.String(), "bytes", stamped.Size())
	}
	return &loadResult{entry: stamped}, nil
}

// flightKey names the singleflight call for key. Every field takes part,
// since Key.String omits fields that some kinds do not use.
func flightKey(k model.Key) string {
	return fmt.Sprintf("%d/%s/%s/%d", k.Kind, k.Owner, k.ID, k.Layer)
}

func (c *AsyncCache) track(key model.Key, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n := c.inflight[key] + delta; n > 0 {
		c.inflight[key] = n
	} else {
		delete(c.inflight, key)
	}
}

// Peek returns a fresh entry without loading.
func (c *AsyncCache) Peek(key model.Key) (*model.Entry, bool) {
	return c.store.Peek(key)
}

// Insert stamps e and stores it as if it had just been loaded.
// The stamped entry is returned.
func (c *AsyncCache) Insert(key model.Key, e *model.Entry) *model.Entry {
	if e == nil {
		return nil
	}
	stamped := e.Stamp(c.version.Add(1), c.clock.Now())
	c.group.Load().Forget(flightKey(key))
	c.store.Set(key, stamped)
	return stamped
}

// Invalidate removes the entry for key and reports whether it was resident.
//
// An in-flight load for key is not cancelled and still stores its result,
// but calls that start after Invalidate returns do not join it.
func (c *AsyncCache) Invalidate(key model.Key) bool {
	ok := c.store.Remove(key)
	c.group.Load().Forget(flightKey(key))
	c.logger.Debug("invalidated", "tier", c.name, "key", key.String())
	return ok
}

// InvalidateAll removes every entry and forgets every in-flight load.
// It returns the number of removed entries.
func (c *AsyncCache) InvalidateAll() int {
	n := c.store.Clear()
	c.group.Store(new(singleflight.Group))
	c.logger.Debug("invalidated all", "tier", c.name, "count", n)
	return n
}

// InvalidateFunc removes every entry whose key matches pred and forgets the
// matching in-flight loads. It returns the number of removed entries.
func (c *AsyncCache) InvalidateFunc(pred func(model.Key) bool) int {
	n := c.store.RemoveFunc(pred)

	g := c.group.Load()
	c.mu.Lock()
	for key := range c.inflight {
		if pred(key) {
			g.Forget(flightKey(key))
		}
	}
	c.mu.Unlock()

	c.logger.Debug("invalidated matching", "tier", c.name, "count", n)
	return n
}

// InFlight returns the number of keys with a load in progress.
func (c *AsyncCache) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// Len returns the number of resident entries.
func (c *AsyncCache) Len() int { return c.store.Len() }

// Stats returns a snapshot of tier counters.
func (c *AsyncCache) Stats() TierStats {
	s := tierStats(c.name, c.store.Stats())
	s.Loads = c.loads.Load()
	s.LoadFailures = c.loadFailures.Load()
	s.InFlight = c.InFlight()
	return s
}
