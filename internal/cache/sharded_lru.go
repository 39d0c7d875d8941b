package cache

import (
	"encoding/binary"
	"hash/maphash"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/imgcache/model"
)

// ShardedLRU is a sharded LRU store for high-concurrency workloads.
//
// Recency is tracked per shard, so the evicted entry is the least recently
// used of its shard, not of the whole store. The per-shard byte bound is
// also the largest admissible entry.
type ShardedLRU struct {
	shards []*LRU
	seed   maphash.Seed
}

// NewShardedLRU creates a sharded store with cfg.Shards shards.
//
// Bounds are divided evenly across shards, rounding down. When a bound is
// smaller than the shard count, the shard count is reduced so that every
// shard keeps a non-zero bound and the total stays within the bound.
func NewShardedLRU(cfg Config) *ShardedLRU {
	n := max(cfg.Shards, 1)
	if cfg.MaxEntries > 0 && cfg.MaxEntries < n {
		n = cfg.MaxEntries
	}
	if cfg.MaxBytes > 0 && cfg.MaxBytes < int64(n) {
		n = int(cfg.MaxBytes)
	}

	shardCfg := cfg
	shardCfg.Shards = 1
	if cfg.MaxEntries > 0 {
		shardCfg.MaxEntries = cfg.MaxEntries / n
	}
	if cfg.MaxBytes > 0 {
		shardCfg.MaxBytes = cfg.MaxBytes / int64(n)
	}

	s := &ShardedLRU{
		shards: make([]*LRU, n),
		seed:   maphash.MakeSeed(),
	}
	for i := range n {
		s.shards[i] = NewLRU(shardCfg)
	}
	return s
}

// shard returns the shard for a given key.
func (s *ShardedLRU) shard(key model.Key) *LRU {
	if len(s.shards) == 1 {
		return s.shards[0]
	}

	var h maphash.Hash
	h.SetSeed(s.seed)

	// kind | owner | id | layer
	var buf [37]byte
	buf[0] = byte(key.Kind)
	copy(buf[1:17], key.Owner[:])
	copy(buf[17:33], key.ID[:])
	binary.LittleEndian.PutUint32(buf[33:], key.Layer)

	_, _ = h.Write(buf[:])

	idx := h.Sum64() % uint64(len(s.shards))
	return s.shards[idx]
}

// Get returns a fresh entry and promotes it within its shard.
func (s *ShardedLRU) Get(key model.Key) (*model.Entry, bool) {
	return s.shard(key).Get(key)
}

// Peek returns a fresh entry without promotion or stats.
func (s *ShardedLRU) Peek(key model.Key) (*model.Entry, bool) {
	return s.shard(key).Peek(key)
}

// Set inserts or replaces the entry.
func (s *ShardedLRU) Set(key model.Key, e *model.Entry) bool {
	return s.shard(key).Set(key, e)
}

// Remove deletes the entry for key.
func (s *ShardedLRU) Remove(key model.Key) bool {
	return s.shard(key).Remove(key)
}

// RemoveFunc removes entries matching the predicate.
// This iterates all shards, which is expensive but rare.
func (s *ShardedLRU) RemoveFunc(pred func(model.Key) bool) int {
	var (
		wg      sync.WaitGroup
		removed atomic.Int64
	)
	wg.Add(len(s.shards))

	for _, sh := range s.shards {
		go func(shard *LRU) {
			defer wg.Done()
			removed.Add(int64(shard.RemoveFunc(pred)))
		}(sh)
	}

	wg.Wait()
	return int(removed.Load())
}

// Clear removes all entries from all shards.
func (s *ShardedLRU) Clear() int {
	n := 0
	for _, sh := range s.shards {
		n += sh.Clear()
	}
	return n
}

// Len returns the total number of resident entries.
func (s *ShardedLRU) Len() int {
	n := 0
	for _, sh := range s.shards {
		n += sh.Len()
	}
	return n
}

// Size returns the total size across all shards.
func (s *ShardedLRU) Size() int64 {
	var total int64
	for _, sh := range s.shards {
		total += sh.Size()
	}
	return total
}

// Stats returns aggregated statistics.
func (s *ShardedLRU) Stats() Stats {
	var st Stats
	for _, sh := range s.shards {
		st.add(sh.Stats())
	}
	return st
}

// NumShards returns the effective shard count.
func (s *ShardedLRU) NumShards() int {
	return len(s.shards)
}

// ShardStats returns per-shard statistics.
func (s *ShardedLRU) ShardStats() []Stats {
	stats := make([]Stats, len(s.shards))
	for i, sh := range s.shards {
		stats[i] = sh.Stats()
	}
	return stats
}
