package cache

import (
	"time"

	"github.com/hupe1980/imgcache/internal/resource"
	"github.com/hupe1980/imgcache/model"
)

// EvictReason tells why an entry left a store without being removed explicitly.
type EvictReason uint8

const (
	EvictCapacity EvictReason = iota // entry or byte bound reached
	EvictExpired                     // TTL or idle TTL passed
	EvictMemory                      // shared memory budget exhausted
)

func (r EvictReason) String() string {
	switch r {
	case EvictCapacity:
		return "capacity"
	case EvictExpired:
		return "expired"
	case EvictMemory:
		return "memory"
	default:
		return "unknown"
	}
}

// Config configures an LRU or ShardedLRU.
type Config struct {
	// Name is used in diagnostics only.
	Name string
	// MaxEntries bounds the number of resident entries. 0 means unbounded.
	MaxEntries int
	// MaxBytes bounds the summed payload size. 0 means unbounded.
	MaxBytes int64
	// TTL is the time-to-live measured from insertion. 0 means never.
	TTL time.Duration
	// IdleTTL is the time-to-idle measured from the last hit. 0 means never.
	IdleTTL time.Duration
	// Shards selects the sharded store when > 1.
	Shards int
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
	// Controller optionally tracks resident bytes against a shared budget.
	Controller *resource.Controller
	// OnEvict is called outside the store lock for every eviction.
	OnEvict func(key model.Key, reason EvictReason)
}

// Stats is a point-in-time snapshot of a store.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
	Len         int
	Bytes       int64
}

func (s *Stats) add(o Stats) {
	s.Hits += o.Hits
	s.Misses += o.Misses
	s.Evictions += o.Evictions
	s.Expirations += o.Expirations
	s.Len += o.Len
	s.Bytes += o.Bytes
}

// Store is the tier store contract. Implementations are safe for concurrent use.
type Store interface {
	// Get returns a fresh entry and promotes it. Stale entries are dropped.
	Get(key model.Key) (*model.Entry, bool)
	// Peek returns a fresh entry without promotion or stats.
	Peek(key model.Key) (*model.Entry, bool)
	// Set inserts or replaces the entry. It reports whether it was admitted.
	Set(key model.Key, e *model.Entry) bool
	// Remove deletes the key and reports whether it was resident.
	Remove(key model.Key) bool
	// RemoveFunc deletes every key matching pred and returns the count.
	RemoveFunc(pred func(model.Key) bool) int
	// Clear deletes everything and returns the count.
	Clear() int
	// Len returns the number of resident entries, including unread stale ones.
	Len() int
	// Size returns the summed payload size of resident entries.
	Size() int64
	// Stats returns a snapshot of counters.
	Stats() Stats
}

// New returns a ShardedLRU when cfg.Shards > 1 and a plain LRU otherwise.
func New(cfg Config) Store {
	if cfg.Shards > 1 {
		return NewShardedLRU(cfg)
	}
	return NewLRU(cfg)
}
