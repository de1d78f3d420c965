package enums

import (
	"fmt"
	"strings"
)

// ItemVendorStatus maps to the item_vendor_status enum in Postgres and tracks
// a vendor's fulfillment progress on a single order item.
type ItemVendorStatus string

const (
	ItemVendorStatusReceived       ItemVendorStatus = "received"
	ItemVendorStatusProcessing     ItemVendorStatus = "processing"
	ItemVendorStatusShipped        ItemVendorStatus = "shipped"
	ItemVendorStatusOutForDelivery ItemVendorStatus = "out_for_delivery"
	ItemVendorStatusDelivered      ItemVendorStatus = "delivered"
	ItemVendorStatusCancelled      ItemVendorStatus = "cancelled"
)

var validItemVendorStatuses = []ItemVendorStatus{
	ItemVendorStatusReceived,
	ItemVendorStatusProcessing,
	ItemVendorStatusShipped,
	ItemVendorStatusOutForDelivery,
	ItemVendorStatusDelivered,
	ItemVendorStatusCancelled,
}

func (s ItemVendorStatus) IsValid() bool {
	for _, candidate := range validItemVendorStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the item can no longer change status.
func (s ItemVendorStatus) IsTerminal() bool {
	return s == ItemVendorStatusDelivered || s == ItemVendorStatusCancelled
}

// CanTransitionTo allows forward progress through fulfillment and
// cancellation from any non-terminal status.
func (s ItemVendorStatus) CanTransitionTo(next ItemVendorStatus) bool {
	if s.IsTerminal() || !next.IsValid() || s == next {
		return false
	}
	if next == ItemVendorStatusCancelled {
		return true
	}
	return itemStatusRank(next) > itemStatusRank(s)
}

func itemStatusRank(s ItemVendorStatus) int {
	for i, candidate := range validItemVendorStatuses {
		if candidate == s {
			return i
		}
	}
	return -1
}

// ParseItemVendorStatus converts raw input into ItemVendorStatus.
func ParseItemVendorStatus(value string) (ItemVendorStatus, error) {
	for _, candidate := range validItemVendorStatuses {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item vendor status %q", value)
}
