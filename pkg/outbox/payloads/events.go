package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
)

// PayoutEvent is emitted on every payout status transition.
type PayoutEvent struct {
	PayoutID         uuid.UUID          `json:"payout_id"`
	VendorID         uuid.UUID          `json:"vendor_id"`
	Amount           decimal.Decimal    `json:"amount"`
	Status           enums.PayoutStatus `json:"status"`
	PreviousStatus   enums.PayoutStatus `json:"previous_status,omitempty"`
	Method           enums.PayoutMethod `json:"method"`
	Reason           *string            `json:"reason,omitempty"`
	TransactionRef   *string            `json:"transaction_ref,omitempty"`
	AvailableBalance *decimal.Decimal   `json:"available_balance,omitempty"`
	OccurredAt       time.Time          `json:"occurred_at"`
}

// PayoutStaleEvent flags a request that has waited past the triage threshold.
type PayoutStaleEvent struct {
	PayoutID    uuid.UUID       `json:"payout_id"`
	VendorID    uuid.UUID       `json:"vendor_id"`
	Amount      decimal.Decimal `json:"amount"`
	RequestedAt time.Time       `json:"requested_at"`
	AgeHours    int             `json:"age_hours"`
}

// OrderPlacedEvent summarises the vendor split of a newly recorded order.
type OrderPlacedEvent struct {
	OrderID uuid.UUID            `json:"order_id"`
	Total   decimal.Decimal      `json:"total"`
	Vendors []OrderVendorPayload `json:"vendors"`
}

type OrderVendorPayload struct {
	VendorID           uuid.UUID       `json:"vendor_id"`
	ItemCount          int             `json:"item_count"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	TotalCommission    decimal.Decimal `json:"total_commission"`
	TotalVendorEarning decimal.Decimal `json:"total_vendor_earning"`
}

// OrderItemDeliveredEvent is emitted when delivery credits a vendor.
type OrderItemDeliveredEvent struct {
	OrderID       uuid.UUID       `json:"order_id"`
	ItemID        uuid.UUID       `json:"item_id"`
	VendorID      uuid.UUID       `json:"vendor_id"`
	VendorEarning decimal.Decimal `json:"vendor_earning"`
	DeliveredAt   time.Time       `json:"delivered_at"`
}

// VendorBalanceDebitedEvent reports an administrative debit.
type VendorBalanceDebitedEvent struct {
	VendorID         uuid.UUID       `json:"vendor_id"`
	Amount           decimal.Decimal `json:"amount"`
	Reason           string          `json:"reason"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
}

// CommissionShortfallEvent makes a flat-fee overrun visible to finance.
type CommissionShortfallEvent struct {
	OrderID        uuid.UUID       `json:"order_id"`
	ItemID         uuid.UUID       `json:"item_id"`
	VendorID       uuid.UUID       `json:"vendor_id"`
	ItemRevenue    decimal.Decimal `json:"item_revenue"`
	Commission     decimal.Decimal `json:"commission"`
	Shortfall      decimal.Decimal `json:"shortfall"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	Quantity       int             `json:"quantity"`
}
