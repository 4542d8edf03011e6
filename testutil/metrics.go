/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// RequireSamplesCountInHistogram asserts that the histogram (usually taken from a HistogramVec by labels)
// contains the specified number of samples.
func RequireSamplesCountInHistogram(t require.TestingT, hist prometheus.Observer, wantSamplesCount int) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	metric, ok := hist.(prometheus.Metric)
	require.True(t, ok, "observer should be a prometheus.Metric")
	var m dto.Metric
	require.NoError(t, metric.Write(&m))
	require.NotNil(t, m.Histogram)
	require.Equal(t, wantSamplesCount, int(m.Histogram.GetSampleCount()))
}
