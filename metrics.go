package imgcache

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/imgcache/cache"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus;
// metrics/prom provides a ready-made implementation.
//
// The embedded cache.Observer receives tier-level events. Methods are called
// concurrently and must not block.
type MetricsCollector interface {
	cache.Observer

	// RecordResolve is called after each ResolveMany or Resolve call.
	// keys is the number of distinct keys, failed the number that failed.
	RecordResolve(keys, failed int, duration time.Duration)

	// RecordPrefetch is called with the number of keys scheduled by Prefetch.
	RecordPrefetch(scheduled int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct {
	cache.NoopObserver
}

func (NoopMetricsCollector) RecordResolve(int, int, time.Duration) {}
func (NoopMetricsCollector) RecordPrefetch(int)                    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	LookupCount       atomic.Int64
	LookupHits        atomic.Int64
	LoadCount         atomic.Int64
	LoadErrors        atomic.Int64
	LoadTotalNanos    atomic.Int64
	Evictions         atomic.Int64
	Expirations       atomic.Int64
	ResolveCount      atomic.Int64
	ResolveKeys       atomic.Int64
	ResolveFailed     atomic.Int64
	ResolveTotalNanos atomic.Int64
	PrefetchScheduled atomic.Int64
}

// OnLookup implements cache.Observer.
func (b *BasicMetricsCollector) OnLookup(_ string, hit bool) {
	b.LookupCount.Add(1)
	if hit {
		b.LookupHits.Add(1)
	}
}

// OnLoad implements cache.Observer.
func (b *BasicMetricsCollector) OnLoad(duration time.Duration, err error) {
	b.LoadCount.Add(1)
	b.LoadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// OnEvict implements cache.Observer.
func (b *BasicMetricsCollector) OnEvict(_ string, reason cache.EvictReason) {
	if reason == cache.EvictExpired {
		b.Expirations.Add(1)
		return
	}
	b.Evictions.Add(1)
}

// RecordResolve implements MetricsCollector.
func (b *BasicMetricsCollector) RecordResolve(keys, failed int, duration time.Duration) {
	b.ResolveCount.Add(1)
	b.ResolveKeys.Add(int64(keys))
	b.ResolveFailed.Add(int64(failed))
	b.ResolveTotalNanos.Add(duration.Nanoseconds())
}

// RecordPrefetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPrefetch(scheduled int) {
	b.PrefetchScheduled.Add(int64(scheduled))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		LookupCount:       b.LookupCount.Load(),
		LookupHits:        b.LookupHits.Load(),
		LoadCount:         b.LoadCount.Load(),
		LoadErrors:        b.LoadErrors.Load(),
		LoadAvgNanos:      avg(b.LoadTotalNanos.Load(), b.LoadCount.Load()),
		Evictions:         b.Evictions.Load(),
		Expirations:       b.Expirations.Load(),
		ResolveCount:      b.ResolveCount.Load(),
		ResolveKeys:       b.ResolveKeys.Load(),
		ResolveFailed:     b.ResolveFailed.Load(),
		ResolveAvgNanos:   avg(b.ResolveTotalNanos.Load(), b.ResolveCount.Load()),
		PrefetchScheduled: b.PrefetchScheduled.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	LookupCount       int64
	LookupHits        int64
	LoadCount         int64
	LoadErrors        int64
	LoadAvgNanos      int64
	Evictions         int64
	Expirations       int64
	ResolveCount      int64
	ResolveKeys       int64
	ResolveFailed     int64
	ResolveAvgNanos   int64
	PrefetchScheduled int64
}

// HitRatio returns LookupHits / LookupCount, or 0 without lookups.
func (s BasicMetricsStats) HitRatio() float64 {
	if s.LookupCount == 0 {
		return 0
	}
	return float64(s.LookupHits) / float64(s.LookupCount)
}
