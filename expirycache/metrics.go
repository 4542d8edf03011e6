/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package expirycache

import "github.com/prometheus/client_golang/prometheus"

const metricsLabelCache = "cache"

// MetricsCollector represents a collector of metrics to analyze how (effectively or not) a cache is used.
type MetricsCollector interface {
	// SetAmount sets the total number of entries in the cache.
	SetAmount(int)

	// IncHits increments the total number of successfully found keys in the cache.
	IncHits()

	// IncMisses increments the total number of not found keys in the cache.
	IncMisses()

	// AddEvictions increments the total number of entries evicted by the ejection policy.
	AddEvictions(int)

	// AddExpirations increments the total number of entries removed because of TTL or idle timeout.
	AddExpirations(int)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics represents Prometheus metrics for all caches of a Registry.
// Every per-cache metric is labeled with the cache name.
type PrometheusMetrics struct {
	EntriesAmount    *prometheus.GaugeVec
	HitsTotal        *prometheus.CounterVec
	MissesTotal      *prometheus.CounterVec
	EvictionsTotal   *prometheus.CounterVec
	ExpirationsTotal *prometheus.CounterVec
	SweepsTotal      prometheus.Counter
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	labels := []string{metricsLabelCache}

	entriesAmount := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_entries_amount",
			Help:        "Total number of entries in the cache.",
			ConstLabels: opts.ConstLabels,
		},
		labels,
	)

	hitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_hits_total",
			Help:        "Number of successfully found keys in the cache.",
			ConstLabels: opts.ConstLabels,
		},
		labels,
	)

	missesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_misses_total",
			Help:        "Number of not found keys in cache.",
			ConstLabels: opts.ConstLabels,
		},
		labels,
	)

	evictionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_evictions_total",
			Help:        "Number of entries evicted by the ejection policy.",
			ConstLabels: opts.ConstLabels,
		},
		labels,
	)

	expirationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_expirations_total",
			Help:        "Number of entries removed because of time-to-live or idle timeout.",
			ConstLabels: opts.ConstLabels,
		},
		labels,
	)

	sweepsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_sweeps_total",
			Help:        "Number of expiry sweeps performed by the registry.",
			ConstLabels: opts.ConstLabels,
		},
	)

	return &PrometheusMetrics{
		EntriesAmount:    entriesAmount,
		HitsTotal:        hitsTotal,
		MissesTotal:      missesTotal,
		EvictionsTotal:   evictionsTotal,
		ExpirationsTotal: expirationsTotal,
		SweepsTotal:      sweepsTotal,
	}
}

// ForCache returns a MetricsCollector bound to the cache with the given name.
func (pm *PrometheusMetrics) ForCache(name string) MetricsCollector {
	return &cachePrometheusMetrics{
		amount:      pm.EntriesAmount.WithLabelValues(name),
		hits:        pm.HitsTotal.WithLabelValues(name),
		misses:      pm.MissesTotal.WithLabelValues(name),
		evictions:   pm.EvictionsTotal.WithLabelValues(name),
		expirations: pm.ExpirationsTotal.WithLabelValues(name),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(
		pm.EntriesAmount,
		pm.HitsTotal,
		pm.MissesTotal,
		pm.EvictionsTotal,
		pm.ExpirationsTotal,
		pm.SweepsTotal,
	)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.EntriesAmount)
	prometheus.Unregister(pm.HitsTotal)
	prometheus.Unregister(pm.MissesTotal)
	prometheus.Unregister(pm.EvictionsTotal)
	prometheus.Unregister(pm.ExpirationsTotal)
	prometheus.Unregister(pm.SweepsTotal)
}

type cachePrometheusMetrics struct {
	amount      prometheus.Gauge
	hits        prometheus.Counter
	misses      prometheus.Counter
	evictions   prometheus.Counter
	expirations prometheus.Counter
}

func (m *cachePrometheusMetrics) SetAmount(amount int) {
	m.amount.Set(float64(amount))
}

func (m *cachePrometheusMetrics) IncHits() {
	m.hits.Inc()
}

func (m *cachePrometheusMetrics) IncMisses() {
	m.misses.Inc()
}

func (m *cachePrometheusMetrics) AddEvictions(n int) {
	m.evictions.Add(float64(n))
}

func (m *cachePrometheusMetrics) AddExpirations(n int) {
	m.expirations.Add(float64(n))
}

type disabledMetrics struct{}

func (disabledMetrics) SetAmount(int)      {}
func (disabledMetrics) IncHits()           {}
func (disabledMetrics) IncMisses()         {}
func (disabledMetrics) AddEvictions(int)   {}
func (disabledMetrics) AddExpirations(int) {}
