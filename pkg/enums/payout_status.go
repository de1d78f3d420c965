package enums

import (
	"fmt"
	"strings"
)

// PayoutStatus maps to the payout_status enum in Postgres.
type PayoutStatus string

const (
	PayoutStatusRequested PayoutStatus = "requested"
	PayoutStatusApproved  PayoutStatus = "approved"
	PayoutStatusRejected  PayoutStatus = "rejected"
	PayoutStatusPaid      PayoutStatus = "paid"
	PayoutStatusCancelled PayoutStatus = "cancelled"
)

var validPayoutStatuses = []PayoutStatus{
	PayoutStatusRequested,
	PayoutStatusApproved,
	PayoutStatusRejected,
	PayoutStatusPaid,
	PayoutStatusCancelled,
}

// PayoutStatuses returns every payout status in lifecycle order.
func PayoutStatuses() []PayoutStatus {
	out := make([]PayoutStatus, len(validPayoutStatuses))
	copy(out, validPayoutStatuses)
	return out
}

func (s PayoutStatus) IsValid() bool {
	for _, candidate := range validPayoutStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave the status.
func (s PayoutStatus) IsTerminal() bool {
	switch s {
	case PayoutStatusRejected, PayoutStatusPaid, PayoutStatusCancelled:
		return true
	default:
		return false
	}
}

// ParsePayoutStatus converts raw input into PayoutStatus.
func ParsePayoutStatus(value string) (PayoutStatus, error) {
	for _, candidate := range validPayoutStatuses {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout status %q", value)
}
