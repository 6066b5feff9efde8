package bufcache

// metrics.go is a thin abstraction over Prometheus: with WithMetrics(reg)
// the cache registers labeled collectors; without it, a no-op sink is used
// and the hot path pays nothing for metric updates.
//
// All metrics are per-bucket; aggregation (sum/rate) is left to the
// Prometheus side.
//
// ┌──────────────────────────────────┬───────┬────────┐
// │ Metric                           │ Type  │ Labels │
// ├──────────────────────────────────┼───────┼────────┤
// │ bufcache_hits_total              │ Ctr   │ bucket │
// │ bufcache_misses_total            │ Ctr   │ bucket │
// │ bufcache_local_recycles_total     │ Ctr   │ bucket │
// │ bufcache_steals_total            │ Ctr   │ bucket │
// │ bufcache_exhausted_total         │ Ctr   │        │
// └──────────────────────────────────┴───────┴────────┘
//
// © 2025 bufcache authors. MIT License.

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsSink abstracts the concrete backend (Prometheus vs noop) away
// from Cache/bucket.
type metricsSink interface {
	incHit(bucket int)
	incMiss(bucket int)
	incRecycle(bucket int)
	incSteal(bucket int)
	incExhausted()
}

type noopMetrics struct{}

func (noopMetrics) incHit(int)      {}
func (noopMetrics) incMiss(int)     {}
func (noopMetrics) incRecycle(int)  {}
func (noopMetrics) incSteal(int)    {}
func (noopMetrics) incExhausted()   {}

type promMetrics struct {
	hits       *prometheus.CounterVec
	misses     *prometheus.CounterVec
	recycles   *prometheus.CounterVec
	steals     *prometheus.CounterVec
	exhausted  prometheus.Counter
}

func newPromMetrics(reg *prometheus.Registry) *promMetrics {
	label := []string{"bucket"}
	pm := &promMetrics{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bufcache",
			Name:      "hits_total",
			Help:      "Number of Phase 1 (home bucket) hits.",
		}, label),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bufcache",
			Name:      "misses_total",
			Help:      "Number of get() calls that did not hit in the home bucket.",
		}, label),
		recycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bufcache",
			Name:      "local_recycles_total",
			Help:      "Number of admissions satisfied by Phase 2 (local recycle).",
		}, label),
		steals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bufcache",
			Name:      "steals_total",
			Help:      "Number of admissions satisfied by Phase 3 (cross-bucket steal), labeled by the home bucket.",
		}, label),
		exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bufcache",
			Name:      "exhausted_total",
			Help:      "Number of times get() found no evictable buffer anywhere (immediately precedes a panic).",
		}),
	}
	reg.MustRegister(pm.hits, pm.misses, pm.recycles, pm.steals, pm.exhausted)
	return pm
}

func (m *promMetrics) incHit(bucket int)     { m.hits.WithLabelValues(strconv.Itoa(bucket)).Inc() }
func (m *promMetrics) incMiss(bucket int)    { m.misses.WithLabelValues(strconv.Itoa(bucket)).Inc() }
func (m *promMetrics) incRecycle(bucket int) { m.recycles.WithLabelValues(strconv.Itoa(bucket)).Inc() }
func (m *promMetrics) incSteal(bucket int)   { m.steals.WithLabelValues(strconv.Itoa(bucket)).Inc() }
func (m *promMetrics) incExhausted()         { m.exhausted.Inc() }

func newMetricsSink(reg *prometheus.Registry) metricsSink {
	if reg == nil {
		return noopMetrics{}
	}
	return newPromMetrics(reg)
}
