package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when memory limit would be exceeded.
var ErrMemoryLimitExceeded = errors.New("memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for resident payload bytes.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// MaxConcurrentLoads is the maximum number of remote fetches in flight.
	// If 0, unlimited.
	MaxConcurrentLoads int64

	// LoadsPerSecond is the sustained rate at which remote fetches may start.
	// If 0, unlimited.
	LoadsPerSecond float64

	// LoadBurst is the token bucket size for LoadsPerSecond.
	// If 0, defaults to max(1, LoadsPerSecond).
	LoadBurst int
}

// Controller manages shared resources (memory, remote fetch concurrency and rate).
type Controller struct {
	cfg Config

	// Memory
	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	// Loads
	loadSem     *semaphore.Weighted // nil if unlimited
	loadLimiter *rate.Limiter       // nil if unlimited
	loading     atomic.Int64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.MaxConcurrentLoads > 0 {
		c.loadSem = semaphore.NewWeighted(cfg.MaxConcurrentLoads)
	}

	if cfg.LoadsPerSecond > 0 {
		burst := cfg.LoadBurst
		if burst <= 0 {
			burst = max(1, int(cfg.LoadsPerSecond))
		}
		c.loadLimiter = rate.NewLimiter(rate.Limit(cfg.LoadsPerSecond), burst)
	}

	return c
}

// AcquireMemory attempts to reserve memory.
// Returns ErrMemoryLimitExceeded if limit would be exceeded.
// Non-blocking: the tiers evict and retry, they never wait for memory.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil {
		return nil
	}
	if bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return ErrMemoryLimitExceeded
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory is AcquireMemory reporting success as a bool.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	return c.AcquireMemory(bytes) == nil
}

// ReleaseMemory releases reserved memory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil {
		return
	}
	if bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the current memory usage in bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured memory limit in bytes (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// AcquireLoad waits for a remote fetch slot and a rate token.
// It returns ctx.Err() if ctx ends first. On success the caller must call
// ReleaseLoad exactly once.
func (c *Controller) AcquireLoad(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if c.loadSem != nil {
		if err := c.loadSem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	if c.loadLimiter != nil {
		if err := c.loadLimiter.Wait(ctx); err != nil {
			if c.loadSem != nil {
				c.loadSem.Release(1)
			}
			return err
		}
	}
	c.loading.Add(1)
	return nil
}

// ReleaseLoad releases a slot obtained with AcquireLoad.
func (c *Controller) ReleaseLoad() {
	if c == nil {
		return
	}
	c.loading.Add(-1)
	if c.loadSem != nil {
		c.loadSem.Release(1)
	}
}

// ActiveLoads returns the number of loads holding a slot.
func (c *Controller) ActiveLoads() int64 {
	if c == nil {
		return 0
	}
	return c.loading.Load()
}
