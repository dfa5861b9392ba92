// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package tangle

import "github.com/prometheus/client_golang/prometheus"

// Metrics is optional Prometheus instrumentation for a Tangle.
// Constructed the way metrics.Metrics wraps a prometheus.Registerer
// in the teacher's metrics package, but scoped to the counters and
// gauges a bounded cache actually needs. A nil *Metrics is valid
// everywhere it's used: every method is a safe no-op on a nil
// receiver, so instrumentation stays opt-in.
type Metrics struct {
	vertices  prometheus.Gauge
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	pinned    prometheus.Gauge
}

// NewMetrics registers a Tangle's collectors with reg under the given
// namespace and returns the handle to pass into Config.Metrics.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		vertices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tangle_vertices",
			Help:      "Number of vertices currently resident in the tangle cache.",
		}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tangle_cache_hits_total",
			Help:      "Number of Get lookups that found a message, in memory or via the hooks.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tangle_cache_misses_total",
			Help:      "Number of Get lookups that found no message in memory or via the hooks.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tangle_evictions_total",
			Help:      "Number of vertices removed by the eviction pass.",
		}),
		pinned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tangle_pinned_vertices",
			Help:      "Number of eviction pins currently held; a vertex pinned twice counts twice.",
		}),
	}
	for _, c := range []prometheus.Collector{m.vertices, m.hits, m.misses, m.evictions, m.pinned} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) setVertices(n int) {
	if m == nil {
		return
	}
	m.vertices.Set(float64(n))
}

func (m *Metrics) hit() {
	if m == nil {
		return
	}
	m.hits.Inc()
}

func (m *Metrics) miss() {
	if m == nil {
		return
	}
	m.misses.Inc()
}

func (m *Metrics) evicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evictions.Add(float64(n))
}

func (m *Metrics) pin(delta int) {
	if m == nil {
		return
	}
	m.pinned.Add(float64(delta))
}
