// Package cache provides the tier store used by both image cache tiers.
//
// # LRU
//
// LRU is a mutex-guarded map plus recency list bounded by entry count and
// payload bytes. Expiry is lazy: an entry past its TTL (or idle TTL) is
// dropped when it is next read, or when it reaches the tail during eviction.
// There is no background sweep.
//
// An optional resource.Controller tracks resident bytes across stores. When
// the shared budget is exhausted the store evicts its own tail until the
// reservation succeeds or it is empty.
//
// # Sharded LRU
//
// ShardedLRU distributes keys across N independent LRUs by hash/maphash to
// reduce lock contention. Per-shard bounds are the configured bounds divided
// by N, so the total never exceeds the configured bound.
package cache
