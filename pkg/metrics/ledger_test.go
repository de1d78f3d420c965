package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLedgerMetricsCountsMovementsAndTransitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)

	m.ObserveMovement("credit", decimal.RequireFromString("45.50"))
	m.ObserveMovement("credit", decimal.RequireFromString("4.50"))
	m.IncTransition("approved")
	m.IncRejection("insufficient_balance")

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got, err := fetchCounterValue(mfs, "vendorledger_ledger_movements_total", "type", "credit")
	require.NoError(t, err)
	require.Equal(t, float64(2), got)

	sum, err := fetchCounterValue(mfs, "vendorledger_ledger_movement_amount_total", "type", "credit")
	require.NoError(t, err)
	require.InDelta(t, 50.0, sum, 0.0001)

	got, err = fetchCounterValue(mfs, "vendorledger_payout_transitions_total", "status", "approved")
	require.NoError(t, err)
	require.Equal(t, float64(1), got)

	got, err = fetchCounterValue(mfs, "vendorledger_ledger_rejections_total", "reason", "insufficient_balance")
	require.NoError(t, err)
	require.Equal(t, float64(1), got)
}

func TestLedgerMetricsNilSafe(t *testing.T) {
	var m *LedgerMetrics
	m.ObserveMovement("debit", decimal.NewFromInt(1))
	m.IncTransition("paid")
	m.IncRejection("")

	NewLedgerMetrics(nil).IncTransition("paid")
}
