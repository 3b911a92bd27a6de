// Package metrics is the shared Prometheus registry every ambient counter
// and histogram in this module registers against, per SPEC_FULL's DOMAIN
// STACK note that the LRU cache layer's hit/miss counters and the
// executor's block-execution-latency/DAG-conflict-retry counters are
// metrics-not-correctness concerns (spec.md §9 marks the former
// explicitly non-normative) — exactly what prometheus gauges/counters are
// for, rather than folding them into the types that carry actual state.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry is the process-wide collector registry. cmd/execsim exposes it
// over HTTP via promhttp; tests and library callers may ignore it entirely
// since nothing in this module's correctness path reads a metric back.
var Registry = prometheus.NewRegistry()

// NewCounter creates and registers a Counter against Registry.
func NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	c := prometheus.NewCounter(opts)
	Registry.MustRegister(c)
	return c
}

// NewCounterVec creates and registers a CounterVec against Registry.
func NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labelNames)
	Registry.MustRegister(c)
	return c
}

// NewHistogram creates and registers a Histogram against Registry.
func NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	Registry.MustRegister(h)
	return h
}
