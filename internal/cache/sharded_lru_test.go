package cache

import (
	"sync"
	"testing"

	"github.com/hupe1980/imgcache/model"
)

func TestShardedLRU_BasicOperations(t *testing.T) {
	cache := NewShardedLRU(Config{Shards: 16})

	data := model.NewEntry([]byte("test data"))

	cache.Set(key(1), data)
	got, ok := cache.Get(key(1))
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != data {
		t.Errorf("got %p, want %p", got, data)
	}

	_, ok = cache.Get(key(999))
	if ok {
		t.Fatal("expected cache miss")
	}
}

func TestShardedLRU_ShardDistribution(t *testing.T) {
	cache := NewShardedLRU(Config{Shards: 64})

	for i := range 1000 {
		cache.Set(key(i), entry(1024))
	}

	nonEmptyShards := 0
	for _, s := range cache.ShardStats() {
		if s.Len > 0 {
			nonEmptyShards++
		}
	}

	// With 1000 items across 64 shards, we expect most shards to have items
	if nonEmptyShards < 30 {
		t.Errorf("poor shard distribution: only %d shards have items", nonEmptyShards)
	}
}

func TestShardedLRU_CapacityBound(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		wantShards int
	}{
		{"entries divide evenly", Config{Shards: 4, MaxEntries: 100}, 4},
		{"entries round down", Config{Shards: 8, MaxEntries: 10}, 8},
		{"fewer entries than shards", Config{Shards: 16, MaxEntries: 3}, 3},
		{"bytes bound", Config{Shards: 8, MaxBytes: 4}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewShardedLRU(tt.cfg)
			if cache.NumShards() != tt.wantShards {
				t.Fatalf("shards = %d, want %d", cache.NumShards(), tt.wantShards)
			}

			for i := range 500 {
				cache.Set(key(i), entry(1))
			}

			if tt.cfg.MaxEntries > 0 && cache.Len() > tt.cfg.MaxEntries {
				t.Errorf("len = %d exceeds bound %d", cache.Len(), tt.cfg.MaxEntries)
			}
			if tt.cfg.MaxBytes > 0 && cache.Size() > tt.cfg.MaxBytes {
				t.Errorf("size = %d exceeds bound %d", cache.Size(), tt.cfg.MaxBytes)
			}
		})
	}
}

func TestShardedLRU_Concurrent(t *testing.T) {
	cache := NewShardedLRU(Config{Shards: 64})

	const numGoroutines = 100
	const numOpsPerGoroutine = 1000

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for g := range numGoroutines {
		go func(goroutineID int) {
			defer wg.Done()
			for i := range numOpsPerGoroutine {
				k := key(goroutineID*numOpsPerGoroutine + i)
				cache.Set(k, entry(16))
				cache.Get(k)
			}
		}(g)
	}

	wg.Wait()

	st := cache.Stats()
	total := st.Hits + st.Misses
	if total != numGoroutines*numOpsPerGoroutine {
		t.Errorf("stats mismatch: got %d total, want %d", total, numGoroutines*numOpsPerGoroutine)
	}
}

func TestShardedLRU_RemoveFunc(t *testing.T) {
	cache := NewShardedLRU(Config{Shards: 8})

	for i := range 100 {
		cache.Set(key(i), entry(1))
		cache.Set(model.LocalDrawing(key(i).ID), entry(1))
	}

	n := cache.RemoveFunc(func(k model.Key) bool {
		return k.Kind == model.KindPostImage
	})
	if n != 100 {
		t.Errorf("removed %d, want 100", n)
	}

	if _, ok := cache.Get(key(0)); ok {
		t.Error("expected post image to be invalidated")
	}
	if _, ok := cache.Get(model.LocalDrawing(key(0).ID)); !ok {
		t.Error("expected local drawing to still be cached")
	}

	if got := cache.Clear(); got != 100 {
		t.Errorf("cleared %d, want 100", got)
	}
	if cache.Len() != 0 || cache.Size() != 0 {
		t.Error("expected empty cache after clear")
	}
}

func BenchmarkLRU_Get(b *testing.B) {
	cache := NewLRU(Config{})
	cache.Set(key(1), entry(4096))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			cache.Get(key(1))
		}
	})
}

func BenchmarkShardedLRU_Get(b *testing.B) {
	cache := NewShardedLRU(Config{Shards: 64})
	cache.Set(key(1), entry(4096))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			cache.Get(key(1))
		}
	})
}

func BenchmarkShardedLRU_GetMixed(b *testing.B) {
	cache := NewShardedLRU(Config{Shards: 64})
	for i := range 1000 {
		cache.Set(key(i), entry(4096))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			cache.Get(key(i % 1000))
			i++
		}
	})
}
