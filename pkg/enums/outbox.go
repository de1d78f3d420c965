package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregatePayout      OutboxAggregateType = "payout"
	AggregateVendor      OutboxAggregateType = "vendor"
	AggregateOrder       OutboxAggregateType = "order"
	AggregateLedgerEvent OutboxAggregateType = "ledger_event"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregatePayout,
	AggregateVendor,
	AggregateOrder,
	AggregateLedgerEvent,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderPlaced         OutboxEventType = "order_placed"
	EventOrderItemDelivered  OutboxEventType = "order_item_delivered"
	EventVendorBalanceDebit  OutboxEventType = "vendor_balance_debited"
	EventPayoutRequested     OutboxEventType = "payout_requested"
	EventPayoutApproved      OutboxEventType = "payout_approved"
	EventPayoutRejected      OutboxEventType = "payout_rejected"
	EventPayoutPaid          OutboxEventType = "payout_paid"
	EventPayoutCancelled     OutboxEventType = "payout_cancelled"
	EventPayoutStale         OutboxEventType = "payout_stale"
	EventCommissionShortfall OutboxEventType = "commission_shortfall"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderItemDelivered,
	EventVendorBalanceDebit,
	EventPayoutRequested,
	EventPayoutApproved,
	EventPayoutRejected,
	EventPayoutPaid,
	EventPayoutCancelled,
	EventPayoutStale,
	EventCommissionShortfall,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
