package cache

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/imgcache/internal/resource"
	"github.com/hupe1980/imgcache/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var owner = uuid.MustParse("6f1c2d3e-0000-4000-8000-000000000001")

func key(i int) model.Key {
	var id uuid.UUID
	binary.BigEndian.PutUint64(id[8:], uint64(i))
	return model.PostImage(owner, id)
}

func entry(n int) *model.Entry {
	return model.NewEntry(make([]byte, n))
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *clock {
	return &clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestLRU_SetGet(t *testing.T) {
	c := NewLRU(Config{MaxEntries: 10})

	e := model.NewEntry([]byte("test data"))
	require.True(t, c.Set(key(1), e))

	got, ok := c.Get(key(1))
	require.True(t, ok)
	assert.Same(t, e, got)

	_, ok = c.Get(key(2))
	assert.False(t, ok)

	st := c.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, 1, st.Len)
	assert.Equal(t, int64(9), st.Bytes)
}

func TestLRU_Overwrite(t *testing.T) {
	c := NewLRU(Config{})

	c.Set(key(1), entry(10))
	c.Set(key(1), entry(20))
	assert.Equal(t, int64(20), c.Size())
	assert.Equal(t, 1, c.Len())

	c.Set(key(1), entry(5))
	assert.Equal(t, int64(5), c.Size())
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []model.Key
	c := NewLRU(Config{
		MaxEntries: 2,
		OnEvict: func(k model.Key, r EvictReason) {
			assert.Equal(t, EvictCapacity, r)
			evicted = append(evicted, k)
		},
	})

	c.Set(key(1), entry(1))
	c.Set(key(2), entry(1))

	// Touch 1 so 2 becomes the tail.
	_, ok := c.Get(key(1))
	require.True(t, ok)

	c.Set(key(3), entry(1))

	_, ok = c.Get(key(2))
	assert.False(t, ok)
	_, ok = c.Get(key(1))
	assert.True(t, ok)
	_, ok = c.Get(key(3))
	assert.True(t, ok)

	assert.Equal(t, []model.Key{key(2)}, evicted)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestLRU_ByteBound(t *testing.T) {
	c := NewLRU(Config{MaxBytes: 50})

	// Item larger than capacity
	assert.False(t, c.Set(key(1), entry(60)))
	_, ok := c.Get(key(1))
	assert.False(t, ok, "Item > capacity should not be cached")

	c.Set(key(1), entry(20))
	c.Set(key(2), entry(20))
	c.Set(key(3), entry(20))

	assert.LessOrEqual(t, c.Size(), int64(50))
	_, ok = c.Peek(key(1))
	assert.False(t, ok)
	_, ok = c.Peek(key(3))
	assert.True(t, ok)
}

func TestLRU_OversizedOverwriteDropsOld(t *testing.T) {
	c := NewLRU(Config{MaxBytes: 50})

	c.Set(key(1), entry(10))
	assert.False(t, c.Set(key(1), entry(60)))

	_, ok := c.Get(key(1))
	assert.False(t, ok)
	assert.Zero(t, c.Size())
}

func TestLRU_TTL(t *testing.T) {
	clk := newClock()
	var reasons []EvictReason
	c := NewLRU(Config{
		TTL: time.Second,
		Now: clk.Now,
		OnEvict: func(_ model.Key, r EvictReason) {
			reasons = append(reasons, r)
		},
	})

	c.Set(key(1), entry(1))

	clk.Advance(time.Second)
	_, ok := c.Get(key(1))
	assert.True(t, ok, "entry at exactly TTL is still fresh")

	clk.Advance(time.Millisecond)
	_, ok = c.Peek(key(1))
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len(), "peek does not remove")

	_, ok = c.Get(key(1))
	assert.False(t, ok)
	assert.Zero(t, c.Len())
	assert.Equal(t, []EvictReason{EvictExpired}, reasons)
	assert.Equal(t, int64(1), c.Stats().Expirations)
}

func TestLRU_TTLIsNotExtendedByReads(t *testing.T) {
	clk := newClock()
	c := NewLRU(Config{TTL: time.Second, Now: clk.Now})

	c.Set(key(1), entry(1))
	for range 3 {
		clk.Advance(400 * time.Millisecond)
		c.Get(key(1))
	}

	_, ok := c.Get(key(1))
	assert.False(t, ok)
}

func TestLRU_IdleTTL(t *testing.T) {
	clk := newClock()
	c := NewLRU(Config{IdleTTL: time.Second, Now: clk.Now})

	c.Set(key(1), entry(1))
	c.Set(key(2), entry(1))

	for range 3 {
		clk.Advance(800 * time.Millisecond)
		_, ok := c.Get(key(1))
		require.True(t, ok, "reads keep the entry alive")
	}

	_, ok := c.Get(key(2))
	assert.False(t, ok)
}

func TestLRU_StaleTailIsReportedExpired(t *testing.T) {
	clk := newClock()
	var reasons []EvictReason
	c := NewLRU(Config{
		MaxEntries: 1,
		TTL:        time.Second,
		Now:        clk.Now,
		OnEvict: func(_ model.Key, r EvictReason) {
			reasons = append(reasons, r)
		},
	})

	c.Set(key(1), entry(1))
	clk.Advance(2 * time.Second)
	c.Set(key(2), entry(1))

	assert.Equal(t, []EvictReason{EvictExpired}, reasons)
}

func TestLRU_MemoryBudget(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 30})
	var reasons []EvictReason
	a := NewLRU(Config{Controller: rc, OnEvict: func(_ model.Key, r EvictReason) {
		reasons = append(reasons, r)
	}})
	b := NewLRU(Config{Controller: rc})

	require.True(t, b.Set(key(100), entry(20)))
	require.True(t, a.Set(key(1), entry(10)))
	assert.Equal(t, int64(30), rc.MemoryUsage())

	// a evicts its own tail to make room.
	require.True(t, a.Set(key(2), entry(10)))
	assert.Equal(t, []EvictReason{EvictMemory}, reasons)
	assert.Equal(t, int64(30), rc.MemoryUsage())

	// Nothing left to evict in a.
	assert.False(t, a.Set(key(3), entry(15)))
	_, ok := a.Get(key(2))
	assert.False(t, ok)

	b.Remove(key(100))
	a.Clear()
	assert.Zero(t, rc.MemoryUsage())
}

func TestLRU_RemoveFunc(t *testing.T) {
	c := NewLRU(Config{})
	other := uuid.MustParse("6f1c2d3e-0000-4000-8000-000000000002")

	c.Set(key(1), entry(1))
	c.Set(key(2), entry(1))
	c.Set(model.Avatar(other), entry(1))

	n := c.RemoveFunc(func(k model.Key) bool { return k.OwnedBy(owner) })
	assert.Equal(t, 2, n)

	_, ok := c.Get(key(1))
	assert.False(t, ok)
	_, ok = c.Get(model.Avatar(other))
	assert.True(t, ok)
}

func TestLRU_RemoveAndClear(t *testing.T) {
	c := NewLRU(Config{})
	c.Set(key(1), entry(3))
	c.Set(key(2), entry(4))

	assert.True(t, c.Remove(key(1)))
	assert.False(t, c.Remove(key(1)))
	assert.Equal(t, int64(4), c.Size())

	assert.Equal(t, 1, c.Clear())
	assert.Zero(t, c.Len())
	assert.Zero(t, c.Size())
}

func TestLRU_NilEntry(t *testing.T) {
	c := NewLRU(Config{})
	assert.False(t, c.Set(key(1), nil))
	assert.Zero(t, c.Len())
}

func TestNew(t *testing.T) {
	assert.IsType(t, &LRU{}, New(Config{}))
	assert.IsType(t, &LRU{}, New(Config{Shards: 1}))
	assert.IsType(t, &ShardedLRU{}, New(Config{Shards: 4}))
}

func TestEvictReason_String(t *testing.T) {
	assert.Equal(t, "capacity", EvictCapacity.String())
	assert.Equal(t, "expired", EvictExpired.String())
	assert.Equal(t, "memory", EvictMemory.String())
	assert.Equal(t, "unknown", EvictReason(42).String())
}
