// Package imgcache is a two-tier in-memory image cache for interactive
// rendering.
//
// Render code asks for a batch of images identified by model.Key. The Cache
// answers from a short-lived SyncCache where it can, falls through to a
// longer-lived AsyncCache for the rest, and only calls the remote Loader when
// both tiers miss. Concurrent misses for one key share a single load.
//
// # Quick Start
//
//	store := blobstore.NewMemoryStore()
//	c, _ := imgcache.New(
//	    imgcache.WithLoader(source.NewBlobLoader(store, source.DefaultLayout())),
//	    imgcache.WithSyncTier(cache.TierConfig{Name: "sync", MaxEntries: 512, TTL: time.Second}),
//	    imgcache.WithAsyncTier(cache.TierConfig{Name: "async", MaxBytes: 256 << 20, TTL: time.Minute}),
//	)
//	defer c.Close()
//
//	results := c.ResolveMany(ctx, keys, nil)
//	for key, r := range results {
//	    if r.Err != nil {
//	        continue // per-key failure, the rest of the batch is fine
//	    }
//	    draw(key, r.Entry.Data)
//	}
//
// # Render Path
//
// Get consults SyncCache only and never blocks:
//
//	if e, ok := c.Get(key); ok {
//	    draw(key, e.Data)
//	}
//
// # Writes and Invalidation
//
// Put stores a locally produced image (e.g. a just-saved drawing) in both
// tiers. Invalidate, InvalidateOwner and InvalidateAll drop entries from both
// tiers when the application learns that remote data changed:
//
//	c.Put(model.LocalDrawing(id), model.NewEntry(webp))
//	c.InvalidateOwner(userID) // profile picture changed, user deleted, ...
//
// # Prefetch
//
// Prefetch resolves keys in the background, e.g. the next page of a feed:
//
//	n := c.Prefetch(ctx, nextPage, nil)
//
// # Limits
//
// WithMemoryLimit bounds resident bytes across both tiers. WithMaxConcurrentLoads
// and WithLoadRate bound the load put on the remote store. WithLoadTimeout
// bounds each individual load.
package imgcache
