// Package cache implements the two image cache tiers.
//
// AsyncCache is the authoritative, longer-lived tier. A miss goes through a
// single-flight group so that concurrent lookups of one key share a single
// Loader call. Successful loads are stamped with a version and stored;
// failures are returned to every waiter and never cached.
//
// SyncCache is the short-lived render-path tier. It never blocks and never
// fetches; it only holds entries copied out of AsyncCache.
//
// Both tiers expire entries lazily on read and evict in LRU order when a
// capacity bound is reached.
package cache
