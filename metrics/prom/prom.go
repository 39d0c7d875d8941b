// Package prom exports cache metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc := prom.NewCollector(reg)
//	c, _ := imgcache.New(imgcache.WithMetricsCollector(mc), ...)
//	mc.Watch(c)
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/imgcache"
	"github.com/hupe1980/imgcache/cache"
	"github.com/hupe1980/imgcache/model"
)

const namespace = "imgcache"

// Collector implements imgcache.MetricsCollector with Prometheus metrics.
type Collector struct {
	reg prometheus.Registerer

	lookups      *prometheus.CounterVec
	loads        *prometheus.CounterVec
	loadLatency  *prometheus.HistogramVec
	evictions    *prometheus.CounterVec
	resolveKeys  *prometheus.CounterVec
	resolveTime  prometheus.Histogram
	prefetchKeys prometheus.Counter
}

var _ imgcache.MetricsCollector = (*Collector)(nil)

// NewCollector creates the metrics and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		reg: reg,
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Tier lookups by tier and status (hit, miss).",
		}, []string{"tier", "status"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Remote loads by result (ok, not_found, timeout, transient).",
		}, []string{"result"}),
		loadLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Latency of remote loads.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evictions_total",
			Help:      "Tier evictions by reason (capacity, expired, memory).",
		}, []string{"tier", "reason"}),
		resolveKeys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolve_keys_total",
			Help:      "Keys passed to ResolveMany by status (ok, failed).",
		}, []string{"status"}),
		resolveTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolve_duration_seconds",
			Help:      "Latency of ResolveMany batches.",
			Buckets:   prometheus.DefBuckets,
		}),
		prefetchKeys: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetch_keys_total",
			Help:      "Keys scheduled for background prefetch.",
		}),
	}

	reg.MustRegister(c.lookups, c.loads, c.loadLatency, c.evictions, c.resolveKeys, c.resolveTime, c.prefetchKeys)
	return c
}

// OnLookup implements cache.Observer.
func (c *Collector) OnLookup(tier string, hit bool) {
	status := "miss"
	if hit {
		status = "hit"
	}
	c.lookups.WithLabelValues(tier, status).Inc()
}

// OnLoad implements cache.Observer.
func (c *Collector) OnLoad(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = cache.Classify(model.Key{}, err).Kind.String()
	}
	c.loads.WithLabelValues(result).Inc()
	c.loadLatency.WithLabelValues(result).Observe(d.Seconds())
}

// OnEvict implements cache.Observer.
func (c *Collector) OnEvict(tier string, reason cache.EvictReason) {
	c.evictions.WithLabelValues(tier, reason.String()).Inc()
}

// RecordResolve implements imgcache.MetricsCollector.
func (c *Collector) RecordResolve(keys, failed int, d time.Duration) {
	c.resolveKeys.WithLabelValues("ok").Add(float64(keys - failed))
	c.resolveKeys.WithLabelValues("failed").Add(float64(failed))
	c.resolveTime.Observe(d.Seconds())
}

// RecordPrefetch implements imgcache.MetricsCollector.
func (c *Collector) RecordPrefetch(scheduled int) {
	c.prefetchKeys.Add(float64(scheduled))
}

// Watch registers gauges that read the tier sizes of ch on every scrape.
func (c *Collector) Watch(ch *imgcache.Cache) {
	tiers := []struct {
		name string
		get  func(imgcache.Stats) cache.TierStats
	}{
		{ch.Sync().Name(), func(s imgcache.Stats) cache.TierStats { return s.Sync }},
		{ch.Async().Name(), func(s imgcache.Stats) cache.TierStats { return s.Async }},
	}

	for _, t := range tiers {
		labels := prometheus.Labels{"tier": t.name}
		get := t.get
		c.reg.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "entries",
				Help:        "Resident entries per tier.",
				ConstLabels: labels,
			}, func() float64 { return float64(get(ch.Stats()).Len) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace:   namespace,
				Name:        "bytes",
				Help:        "Resident payload bytes per tier.",
				ConstLabels: labels,
			}, func() float64 { return float64(get(ch.Stats()).Bytes) }),
		)
	}

	c.reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_loads",
			Help:      "Remote loads holding a concurrency slot.",
		}, func() float64 { return float64(ch.Stats().ActiveLoads) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_usage_bytes",
			Help:      "Payload bytes tracked against the memory limit.",
		}, func() float64 { return float64(ch.Stats().MemoryUsage) }),
	)
}
