package resource

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Acquire 20 (should fail - limit exceeded)
	assert.ErrorIs(t, c.AcquireMemory(20), ErrMemoryLimitExceeded)
	assert.False(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
	assert.Equal(t, int64(100), c.MemoryLimit())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(1000))
	assert.Equal(t, int64(1000), c.MemoryUsage())

	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())

	// Zero and negative sizes are ignored
	require.NoError(t, c.AcquireMemory(0))
	c.ReleaseMemory(-1)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestController_Nil(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireMemory(10))
	c.ReleaseMemory(10)
	assert.Zero(t, c.MemoryUsage())
	assert.Zero(t, c.MemoryLimit())

	require.NoError(t, c.AcquireLoad(context.Background()))
	c.ReleaseLoad()
	assert.Zero(t, c.ActiveLoads())
}

func TestController_LoadConcurrency(t *testing.T) {
	c := NewController(Config{MaxConcurrentLoads: 2})
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		current atomic.Int64
		peak    atomic.Int64
	)

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, c.AcquireLoad(ctx))
			defer c.ReleaseLoad()

			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(2))
	assert.Zero(t, c.ActiveLoads())
}

func TestController_LoadCancelled(t *testing.T) {
	c := NewController(Config{MaxConcurrentLoads: 1})

	require.NoError(t, c.AcquireLoad(context.Background()))
	defer c.ReleaseLoad()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.AcquireLoad(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int64(1), c.ActiveLoads())
}

func TestController_LoadRate(t *testing.T) {
	c := NewController(Config{LoadsPerSecond: 1000, LoadBurst: 1})
	ctx := context.Background()

	start := time.Now()
	for range 5 {
		require.NoError(t, c.AcquireLoad(ctx))
		c.ReleaseLoad()
	}
	// 1 burst token + 4 tokens at 1ms each
	assert.GreaterOrEqual(t, time.Since(start), 3*time.Millisecond)
}

func TestController_LoadRateReleasesSlotOnCancel(t *testing.T) {
	c := NewController(Config{MaxConcurrentLoads: 1, LoadsPerSecond: 0.001, LoadBurst: 1})

	require.NoError(t, c.AcquireLoad(context.Background()))
	c.ReleaseLoad()

	// The bucket is empty now; waiting must fail fast and give back the slot.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, c.AcquireLoad(ctx))

	assert.True(t, c.loadSem.TryAcquire(1), "slot must be released after a failed rate wait")
	c.loadSem.Release(1)
}
