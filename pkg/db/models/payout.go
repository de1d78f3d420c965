package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	"github.com/angelmondragon/vendorledger-backend/pkg/types"
)

// Payout is one vendor withdrawal request and its approval lifecycle. Status
// only changes through compare-and-swap updates in the payouts repository.
type Payout struct {
	ID                    uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	VendorID              uuid.UUID            `gorm:"column:vendor_id;type:uuid;not null"`
	Amount                decimal.Decimal      `gorm:"column:amount;type:numeric(14,2);not null"`
	Status                enums.PayoutStatus   `gorm:"column:status;type:text;not null"`
	PaymentMethodSnapshot types.PayoutSnapshot `gorm:"column:payment_method_snapshot;type:jsonb;not null"`
	VendorNotes           *string              `gorm:"column:vendor_notes"`
	AdminNotes            *string              `gorm:"column:admin_notes"`
	RejectionReason       *string              `gorm:"column:rejection_reason"`
	TransactionRef        *string              `gorm:"column:transaction_ref"`
	RequestedAt           time.Time            `gorm:"column:requested_at;not null"`
	ApprovedAt            *time.Time           `gorm:"column:approved_at"`
	ApprovedBy            *uuid.UUID           `gorm:"column:approved_by;type:uuid"`
	RejectedAt            *time.Time           `gorm:"column:rejected_at"`
	RejectedBy            *uuid.UUID           `gorm:"column:rejected_by;type:uuid"`
	PaidAt                *time.Time           `gorm:"column:paid_at"`
	PaidBy                *uuid.UUID           `gorm:"column:paid_by;type:uuid"`
	CancelledAt           *time.Time           `gorm:"column:cancelled_at"`
	UpdatedAt             time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (Payout) TableName() string { return "payouts" }
