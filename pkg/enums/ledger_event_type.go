package enums

import "fmt"

// LedgerEventType maps to the ledger_event_type enum in Postgres.
type LedgerEventType string

const (
	LedgerEventTypeCredit              LedgerEventType = "credit"
	LedgerEventTypeDebit               LedgerEventType = "debit"
	LedgerEventTypePayoutRequested     LedgerEventType = "payout_requested"
	LedgerEventTypePayoutRejected      LedgerEventType = "payout_rejected"
	LedgerEventTypePayoutPaid          LedgerEventType = "payout_paid"
	LedgerEventTypePayoutCancelled     LedgerEventType = "payout_cancelled"
	LedgerEventTypeCommissionShortfall LedgerEventType = "commission_shortfall"
)

var validLedgerEventTypes = []LedgerEventType{
	LedgerEventTypeCredit,
	LedgerEventTypeDebit,
	LedgerEventTypePayoutRequested,
	LedgerEventTypePayoutRejected,
	LedgerEventTypePayoutPaid,
	LedgerEventTypePayoutCancelled,
	LedgerEventTypeCommissionShortfall,
}

// IsValid reports whether the value matches the canonical ledger event enum.
func (t LedgerEventType) IsValid() bool {
	for _, candidate := range validLedgerEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEventType converts raw input into LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	for _, candidate := range validLedgerEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger event type %q", value)
}
