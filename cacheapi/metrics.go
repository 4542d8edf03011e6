/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package cacheapi

import "github.com/prometheus/client_golang/prometheus"

// DefaultHTTPRequestDurationBuckets is default buckets into which observations of serving HTTP requests are counted.
var DefaultHTTPRequestDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// HTTPRequestMetrics represents Prometheus metrics for incoming HTTP requests.
type HTTPRequestMetrics struct {
	Durations *prometheus.HistogramVec
}

// HTTPRequestMetricsOpts represents options for HTTPRequestMetrics.
type HTTPRequestMetricsOpts struct {
	Namespace       string
	DurationBuckets []float64
	ConstLabels     prometheus.Labels
}

// NewHTTPRequestMetrics creates a new instance of HTTPRequestMetrics with the provided options.
func NewHTTPRequestMetrics(opts HTTPRequestMetricsOpts) *HTTPRequestMetrics {
	buckets := opts.DurationBuckets
	if buckets == nil {
		buckets = DefaultHTTPRequestDurationBuckets
	}
	return &HTTPRequestMetrics{
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "http_request_duration_seconds",
			Help:        "A histogram of the HTTP request durations.",
			Buckets:     buckets,
			ConstLabels: opts.ConstLabels,
		}, []string{"method", "route_pattern", "status_code"}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (m *HTTPRequestMetrics) MustRegister() {
	prometheus.MustRegister(m.Durations)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (m *HTTPRequestMetrics) Unregister() {
	prometheus.Unregister(m.Durations)
}
