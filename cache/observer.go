package cache

import (
	"time"

	icache "github.com/hupe1980/imgcache/internal/cache"
)

// EvictReason tells why an entry left a tier without explicit invalidation.
type EvictReason = icache.EvictReason

const (
	EvictCapacity = icache.EvictCapacity
	EvictExpired  = icache.EvictExpired
	EvictMemory   = icache.EvictMemory
)

// Observer receives tier events. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	// OnLookup is called for every tier lookup.
	OnLookup(tier string, hit bool)
	// OnLoad is called after every Loader call; err is nil on success.
	OnLoad(duration time.Duration, err error)
	// OnEvict is called for capacity, memory and expiry evictions.
	OnEvict(tier string, reason EvictReason)
}

// NoopObserver discards all events.
type NoopObserver struct{}

func (NoopObserver) OnLookup(string, bool)       {}
func (NoopObserver) OnLoad(time.Duration, error) {}
func (NoopObserver) OnEvict(string, EvictReason) {}
