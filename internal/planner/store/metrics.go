package store

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeApplied = "applied"
	outcomeNoop    = "noop"
)

// Metrics exposes store activity to Prometheus. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	snapshots  *prometheus.CounterVec
	portions   prometheus.Gauge
	orphans    prometheus.Gauge
}

// NewMetrics creates the store collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_store_operations_total",
				Help: "Store operations by outcome (applied or noop)",
			},
			[]string{"operation", "outcome"},
		),
		snapshots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "planner_store_snapshots_total",
				Help: "Remote snapshots applied to the store",
			},
			[]string{"collection"},
		),
		portions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "planner_store_portions",
				Help: "Portions currently in stock across all dishes",
			},
		),
		orphans: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "planner_store_orphaned_slots",
				Help: "Slots referencing a dish that no longer exists",
			},
		),
	}

	reg.MustRegister(m.operations, m.snapshots, m.portions, m.orphans)
	return m
}

func (m *Metrics) observe(operation string, applied bool) {
	if m == nil {
		return
	}
	outcome := outcomeNoop
	if applied {
		outcome = outcomeApplied
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) observeSnapshot(collection string) {
	if m == nil {
		return
	}
	m.snapshots.WithLabelValues(collection).Inc()
}

func (m *Metrics) observeState(s State) {
	if m == nil {
		return
	}
	m.portions.Set(float64(s.Portions()))
	m.orphans.Set(float64(s.OrphanCount()))
}
