package inventory

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the drum ledger
// ドラム台帳のPrometheusメトリクス
type Metrics struct {
	LotsReconciled    prometheus.Counter
	Moves             prometheus.Counter
	DrumsMoved        prometheus.Counter
	KgMoved           prometheus.Counter
	Rollbacks         *prometheus.CounterVec
	PersistenceErrors *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg skips registration.
// メトリクスを作成して登録（regがnilなら登録しない）
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LotsReconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drumledger",
			Name:      "lots_reconciled_total",
			Help:      "Lots whose drums were created on first reference.",
		}),
		Moves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drumledger",
			Name:      "moves_total",
			Help:      "Executed move requests.",
		}),
		DrumsMoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drumledger",
			Name:      "drums_moved_total",
			Help:      "Drums changed by move requests.",
		}),
		KgMoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drumledger",
			Name:      "kg_consumed_total",
			Help:      "Sum of quantity deltas recorded by moves.",
		}),
		Rollbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drumledger",
			Name:      "rollbacks_total",
			Help:      "Rollback requests by result.",
		}, []string{"result"}),
		PersistenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drumledger",
			Name:      "persistence_errors_total",
			Help:      "File store failures by operation.",
		}, []string{"operation"}),
	}

	if reg != nil {
		reg.MustRegister(m.LotsReconciled, m.Moves, m.DrumsMoved, m.KgMoved, m.Rollbacks, m.PersistenceErrors)
	}
	return m
}

func (m *Metrics) lotReconciled() {
	if m != nil {
		m.LotsReconciled.Inc()
	}
}

func (m *Metrics) moved(entries []MoveLogEntry) {
	if m == nil {
		return
	}
	m.Moves.Inc()
	m.DrumsMoved.Add(float64(len(entries)))
	for _, e := range entries {
		if e.Delta > 0 {
			m.KgMoved.Add(e.Delta)
		}
	}
}

func (m *Metrics) rollback(result string) {
	if m != nil {
		m.Rollbacks.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) persistenceError(op string) {
	if m != nil {
		m.PersistenceErrors.WithLabelValues(op).Inc()
	}
}
