package imgcache

import (
	"log/slog"
	"time"

	"github.com/hupe1980/imgcache/cache"
)

// DefaultParallelism bounds concurrent async lookups per ResolveMany call.
const DefaultParallelism = 32

type options struct {
	syncTier           cache.TierConfig
	asyncTier          cache.TierConfig
	loader             cache.Loader
	metricsCollector   MetricsCollector
	logger             *Logger
	clock              cache.Clock
	loadTimeout        time.Duration
	maxConcurrentLoads int64
	loadsPerSecond     float64
	loadBurst          int
	memoryLimit        int64
	parallelism        int
}

// Option configures a Cache.
type Option func(*options)

// WithSyncTier configures the render-path tier.
// Defaults to cache.DefaultSyncConfig().
func WithSyncTier(cfg cache.TierConfig) Option {
	return func(o *options) {
		o.syncTier = cfg
	}
}

// WithAsyncTier configures the remote-backed tier.
// Defaults to cache.DefaultAsyncConfig().
func WithAsyncTier(cfg cache.TierConfig) Option {
	return func(o *options) {
		o.asyncTier = cfg
	}
}

// WithLoader sets the loader used when a call passes a nil loader.
func WithLoader(l cache.Loader) Option {
	return func(o *options) {
		o.loader = l
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &imgcache.BasicMetricsCollector{}
//	c, _ := imgcache.New(imgcache.WithMetricsCollector(metrics))
//	// ... use c ...
//	stats := metrics.GetStats()
//	fmt.Printf("Loads: %d, hit ratio: %.2f\n", stats.LoadCount, stats.HitRatio())
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := imgcache.NewJSONLogger(slog.LevelInfo)
//	c, _ := imgcache.New(imgcache.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithClock sets the time source for TTL checks. Intended for tests.
func WithClock(c cache.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithLoadTimeout bounds every remote load. A load that exceeds it fails
// with ErrTimeout for all of its waiters.
func WithLoadTimeout(d time.Duration) Option {
	return func(o *options) {
		o.loadTimeout = d
	}
}

// WithMaxConcurrentLoads bounds the number of remote loads in flight.
func WithMaxConcurrentLoads(n int) Option {
	return func(o *options) {
		o.maxConcurrentLoads = int64(n)
	}
}

// WithLoadRate limits how many remote loads may start per second.
// burst <= 0 defaults to max(1, perSecond).
func WithLoadRate(perSecond float64, burst int) Option {
	return func(o *options) {
		o.loadsPerSecond = perSecond
		o.loadBurst = burst
	}
}

// WithMemoryLimit bounds the payload bytes resident in both tiers together.
// When the budget is exhausted a tier evicts its own least recently used
// entries to admit a new one.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithParallelism bounds concurrent async lookups per ResolveMany and
// Prefetch call. Defaults to DefaultParallelism.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		syncTier:         cache.DefaultSyncConfig(),
		asyncTier:        cache.DefaultAsyncConfig(),
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		clock:            cache.SystemClock(),
		parallelism:      DefaultParallelism,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.parallelism <= 0 {
		o.parallelism = DefaultParallelism
	}
	if o.clock == nil {
		o.clock = cache.SystemClock()
	}
	return o
}
