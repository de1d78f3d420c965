package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const namespace = "vendorledger"

// LedgerMetrics tracks balance movements and payout lifecycle transitions.
type LedgerMetrics struct {
	movements   *prometheus.CounterVec
	amounts     *prometheus.CounterVec
	transitions *prometheus.CounterVec
	rejected    *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_movements_total",
		Help:      "Balance movements applied to vendor ledgers.",
	}, []string{"type"})
	amounts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_movement_amount_total",
		Help:      "Sum of amounts moved through vendor ledgers.",
	}, []string{"type"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payout_transitions_total",
		Help:      "Payout status transitions that committed.",
	}, []string{"status"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_rejections_total",
		Help:      "Operations refused by a ledger guard.",
	}, []string{"reason"})
	reg.MustRegister(movements, amounts, transitions, rejected)
	return &LedgerMetrics{
		movements:   movements,
		amounts:     amounts,
		transitions: transitions,
		rejected:    rejected,
	}
}

// ObserveMovement records a committed balance movement of the given type.
func (m *LedgerMetrics) ObserveMovement(kind string, amount decimal.Decimal) {
	if m == nil || m.movements == nil {
		return
	}
	label := normalizeLabel(kind)
	m.movements.WithLabelValues(label).Inc()
	f, _ := amount.Float64()
	if f > 0 {
		m.amounts.WithLabelValues(label).Add(f)
	}
}

// IncTransition counts a payout entering the given status.
func (m *LedgerMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncRejection counts an operation refused by a guard such as insufficient balance.
func (m *LedgerMetrics) IncRejection(reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}
