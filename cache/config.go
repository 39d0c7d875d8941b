package cache

import (
	"fmt"
	"log/slog"
	"time"

	icache "github.com/hupe1980/imgcache/internal/cache"
	"github.com/hupe1980/imgcache/internal/resource"
	"github.com/hupe1980/imgcache/model"
)

// TierConfig configures one cache tier.
type TierConfig struct {
	// Name identifies the tier in logs and metrics.
	Name string
	// MaxEntries bounds resident entries. 0 means unbounded.
	MaxEntries int
	// MaxBytes bounds summed payload bytes. 0 means unbounded.
	MaxBytes int64
	// TTL is measured from insertion. 0 means entries never expire by age.
	TTL time.Duration
	// IdleTTL is measured from the last hit. 0 disables it.
	IdleTTL time.Duration
	// Shards > 1 selects the sharded store. Each shard keeps its own LRU
	// with MaxEntries/Shards and MaxBytes/Shards, so eviction order is only
	// per shard and an entry larger than MaxBytes/Shards is never admitted.
	Shards int
}

// DefaultSyncConfig returns the render-path tier defaults.
func DefaultSyncConfig() TierConfig {
	return TierConfig{
		Name:       "sync",
		MaxEntries: 4096,
		MaxBytes:   50 << 20,
		TTL:        5 * time.Second,
		IdleTTL:    0,
		Shards:     1,
	}
}

// DefaultAsyncConfig returns the remote-backed tier defaults.
func DefaultAsyncConfig() TierConfig {
	return TierConfig{
		Name:       "async",
		MaxEntries: 65536,
		MaxBytes:   500 << 20,
		TTL:        60 * time.Minute,
		IdleTTL:    0,
		Shards:     1,
	}
}

// Validate checks the configuration.
func (c TierConfig) Validate() error {
	switch {
	case c.MaxEntries < 0:
		return fmt.Errorf("%w: %s: max entries %d", ErrInvalidConfig, c.Name, c.MaxEntries)
	case c.MaxBytes < 0:
		return fmt.Errorf("%w: %s: max bytes %d", ErrInvalidConfig, c.Name, c.MaxBytes)
	case c.TTL < 0:
		return fmt.Errorf("%w: %s: ttl %s", ErrInvalidConfig, c.Name, c.TTL)
	case c.IdleTTL < 0:
		return fmt.Errorf("%w: %s: idle ttl %s", ErrInvalidConfig, c.Name, c.IdleTTL)
	case c.Shards < 0:
		return fmt.Errorf("%w: %s: shards %d", ErrInvalidConfig, c.Name, c.Shards)
	}
	return nil
}

// Clock is the time source of a tier.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock { return systemClock{} }

type options struct {
	clock       Clock
	logger      *slog.Logger
	observer    Observer
	controller  *resource.Controller
	loadTimeout time.Duration
}

// Option configures a tier.
type Option func(*options)

// WithClock sets the time source used for TTL checks and version stamps.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the tier logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver sets the event observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithController shares a resource controller between tiers. It tracks
// resident bytes for both tiers and gates remote loads for AsyncCache.
func WithController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithLoadTimeout bounds each AsyncCache load. 0 disables the bound.
func WithLoadTimeout(d time.Duration) Option {
	return func(o *options) {
		o.loadTimeout = d
	}
}

func buildOptions(opts []Option) options {
	o := options{
		clock:    SystemClock(),
		logger:   slog.New(slog.DiscardHandler),
		observer: NoopObserver{},
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func newStore(cfg TierConfig, o options) icache.Store {
	name := cfg.Name
	return icache.New(icache.Config{
		Name:       name,
		MaxEntries: cfg.MaxEntries,
		MaxBytes:   cfg.MaxBytes,
		TTL:        cfg.TTL,
		IdleTTL:    cfg.IdleTTL,
		Shards:     cfg.Shards,
		Now:        o.clock.Now,
		Controller: o.controller,
		OnEvict: func(key model.Key, reason icache.EvictReason) {
			o.observer.OnEvict(name, reason)
			o.logger.Debug("evicted", "tier", name, "key", key.String(), "reason", reason.String())
		},
	})
}

// TierStats is a snapshot of tier counters.
type TierStats struct {
	Name        string
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
	Len         int
	Bytes       int64

	// AsyncCache only.
	Loads        int64
	LoadFailures int64
	InFlight     int
}

func tierStats(name string, s icache.Stats) TierStats {
	return TierStats{
		Name:        name,
		Hits:        s.Hits,
		Misses:      s.Misses,
		Evictions:   s.Evictions,
		Expirations: s.Expirations,
		Len:         s.Len,
		Bytes:       s.Bytes,
	}
}
