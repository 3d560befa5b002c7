// Package metrics provides a default, Prometheus-backed implementation
// of pulse.Recorder. Grounded on jinterlante1206-AleutianLocal's direct
// use of github.com/prometheus/client_golang/prometheus for per-node
// timing (services/trace/graph/hld_subtree_metrics.go) — this package
// wires only the client library itself, not that repo's full
// OpenTelemetry pipeline, since a propagation engine's instrumentation
// hook only needs a counter/histogram pair.
package metrics

import (
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus records per-vertex Tick/ApplyInput duration as a histogram
// labeled by vertex id, and a counter of total ticks per vertex.
type Prometheus struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

// NewPrometheus registers its collectors against reg and returns a
// ready-to-use Recorder. Callers typically pass prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer, namespace string) *Prometheus {
	p := &Prometheus{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "vertex_tick_duration_seconds",
			Help:      "Duration of a single vertex Tick/ApplyInput call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"vertex_id"}),
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vertex_tick_total",
			Help:      "Total number of Tick/ApplyInput calls per vertex.",
		}, []string{"vertex_id"}),
	}

	reg.MustRegister(p.duration, p.total)
	return p
}

// Record implements pulse.Recorder.
func (p *Prometheus) Record(vertexID uuid.UUID, turnID uint64, beginNanos, endNanos int64) {
	id := vertexID.String()
	elapsed := time.Duration(endNanos - beginNanos)

	p.duration.WithLabelValues(id).Observe(elapsed.Seconds())
	p.total.WithLabelValues(id).Inc()
}
