package main

import "github.com/prometheus/client_golang/prometheus"

type benchMetrics struct {
	lookupsTotal   *prometheus.CounterVec
	lookupDuration prometheus.Histogram
}

var _ prometheus.Collector = (*benchMetrics)(nil)

func newBenchMetrics() *benchMetrics {
	var m benchMetrics

	m.lookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "flexihash_bench_lookups_total",
		Help: "Total number of lookups resolved, by owning target.",
	}, []string{"target"})
	m.lookupDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "flexihash_bench_lookup_duration_seconds",
		Help:    "Histogram of the latency for lookups",
		Buckets: prometheus.ExponentialBuckets(1e-7, 10, 8),
	})

	return &m
}

func (m *benchMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.lookupsTotal.Describe(ch)
	m.lookupDuration.Describe(ch)
}

func (m *benchMetrics) Collect(ch chan<- prometheus.Metric) {
	m.lookupsTotal.Collect(ch)
	m.lookupDuration.Collect(ch)
}
