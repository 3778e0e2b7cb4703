// Package metrics provides Prometheus metrics collection for the
// resolver.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for the resolver. A nil
// Collector is valid and records nothing, so metrics stay optional.
type Collector struct {
	ResolutionsTotal    *prometheus.CounterVec
	ResolutionDuration  prometheus.Histogram
	ResolutionsInFlight prometheus.Gauge

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	LoaderFetches *prometheus.CounterVec
}

// New creates a metrics collector with all metrics registered on the
// default registry.
func New() *Collector {
	return &Collector{
		ResolutionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spindle",
				Name:      "resolutions_total",
				Help:      "Total number of manifest resolutions by outcome",
			},
			[]string{"outcome"},
		),
		ResolutionDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "spindle",
				Name:      "resolution_duration_seconds",
				Help:      "Manifest resolution duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		ResolutionsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "spindle",
				Name:      "resolutions_in_flight",
				Help:      "Number of resolutions currently being processed",
			},
		),
		CacheHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "spindle",
				Name:      "cache_hits_total",
				Help:      "Total number of manifest cache hits",
			},
		),
		CacheMisses: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "spindle",
				Name:      "cache_misses_total",
				Help:      "Total number of manifest cache misses",
			},
		),
		LoaderFetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spindle",
				Name:      "loader_fetches_total",
				Help:      "Total number of raw manifest fetches by reference kind",
			},
			[]string{"kind"},
		),
	}
}

// ObserveResolution records one finished resolution.
func (c *Collector) ObserveResolution(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.ResolutionsTotal.WithLabelValues(outcome).Inc()
	c.ResolutionDuration.Observe(d.Seconds())
}

// InFlight tracks a resolution in progress; call the returned func when
// it completes.
func (c *Collector) InFlight() func() {
	if c == nil {
		return func() {}
	}
	c.ResolutionsInFlight.Inc()
	return c.ResolutionsInFlight.Dec
}

// CacheHit records a served cache entry.
func (c *Collector) CacheHit() {
	if c == nil {
		return
	}
	c.CacheHits.Inc()
}

// CacheMiss records a lookup that triggered resolution.
func (c *Collector) CacheMiss() {
	if c == nil {
		return
	}
	c.CacheMisses.Inc()
}

// LoaderFetch records one raw manifest fetch.
func (c *Collector) LoaderFetch(kind string) {
	if c == nil {
		return
	}
	c.LoaderFetches.WithLabelValues(kind).Inc()
}
