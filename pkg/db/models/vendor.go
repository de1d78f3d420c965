package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	"github.com/angelmondragon/vendorledger-backend/pkg/types"
)

// Vendor is a marketplace seller with its own commission configuration and
// three-bucket balance. Balance columns are only changed through atomic
// updates issued by the ledger repository.
type Vendor struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	UserID           uuid.UUID            `gorm:"column:user_id;type:uuid;not null"`
	BusinessName     string               `gorm:"column:business_name;not null"`
	ContactEmail     string               `gorm:"column:contact_email;not null"`
	Status           enums.VendorStatus   `gorm:"column:status;type:text;not null"`
	CommissionType   enums.CommissionType `gorm:"column:commission_type;type:text;not null"`
	CommissionRate   decimal.Decimal      `gorm:"column:commission_rate;type:numeric(12,4);not null"`
	AvailableBalance decimal.Decimal      `gorm:"column:available_balance;type:numeric(14,2);not null;default:0"`
	PendingBalance   decimal.Decimal      `gorm:"column:pending_balance;type:numeric(14,2);not null;default:0"`
	WithdrawnAmount  decimal.Decimal      `gorm:"column:withdrawn_amount;type:numeric(14,2);not null;default:0"`
	TotalEarnings    decimal.Decimal      `gorm:"column:total_earnings;type:numeric(14,2);not null;default:0"`
	TotalSales       int64                `gorm:"column:total_sales;not null;default:0"`
	PayoutMethod     enums.PayoutMethod   `gorm:"column:payout_method;type:text;not null"`
	PayoutDetails    types.PayoutDetails  `gorm:"column:payout_details;type:jsonb;not null"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (Vendor) TableName() string { return "vendors" }

// VendorBalances is the balance projection read after a ledger mutation.
type VendorBalances struct {
	VendorID         uuid.UUID       `gorm:"column:id"`
	AvailableBalance decimal.Decimal `gorm:"column:available_balance"`
	PendingBalance   decimal.Decimal `gorm:"column:pending_balance"`
	WithdrawnAmount  decimal.Decimal `gorm:"column:withdrawn_amount"`
	TotalEarnings    decimal.Decimal `gorm:"column:total_earnings"`
	TotalSales       int64           `gorm:"column:total_sales"`
}
