package vendors

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	"github.com/angelmondragon/vendorledger-backend/pkg/types"
)

// Profile is the vendor-facing view of a vendor record.
type Profile struct {
	ID               uuid.UUID            `json:"id"`
	BusinessName     string               `json:"business_name"`
	ContactEmail     string               `json:"contact_email"`
	Status           enums.VendorStatus   `json:"status"`
	CommissionType   enums.CommissionType `json:"commission_type"`
	CommissionRate   decimal.Decimal      `json:"commission_rate"`
	AvailableBalance decimal.Decimal      `json:"available_balance"`
	PendingBalance   decimal.Decimal      `json:"pending_balance"`
	WithdrawnAmount  decimal.Decimal      `json:"withdrawn_amount"`
	TotalEarnings    decimal.Decimal      `json:"total_earnings"`
	TotalSales       int64                `json:"total_sales"`
	PayoutMethod     enums.PayoutMethod   `json:"payout_method"`
	PayoutDetails    types.PayoutDetails  `json:"payout_details"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// FromModel maps a vendor row to its profile, masking account numbers.
func FromModel(v *models.Vendor) *Profile {
	if v == nil {
		return nil
	}
	return &Profile{
		ID:               v.ID,
		BusinessName:     v.BusinessName,
		ContactEmail:     v.ContactEmail,
		Status:           v.Status,
		CommissionType:   v.CommissionType,
		CommissionRate:   v.CommissionRate,
		AvailableBalance: v.AvailableBalance,
		PendingBalance:   v.PendingBalance,
		WithdrawnAmount:  v.WithdrawnAmount,
		TotalEarnings:    v.TotalEarnings,
		TotalSales:       v.TotalSales,
		PayoutMethod:     v.PayoutMethod,
		PayoutDetails:    v.PayoutDetails.Masked(),
		UpdatedAt:        v.UpdatedAt,
	}
}

// PayoutSettingsInput replaces a vendor's payout method and details.
type PayoutSettingsInput struct {
	Method  enums.PayoutMethod
	Details types.PayoutDetails
}

// AdjustmentInput is an administrative debit against available balance.
type AdjustmentInput struct {
	VendorID uuid.UUID
	AdminID  uuid.UUID
	Amount   decimal.Decimal
	Reason   string
}

// Balances is the API shape of a vendor's balance buckets after a movement.
type Balances struct {
	VendorID         uuid.UUID       `json:"vendor_id"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	PendingBalance   decimal.Decimal `json:"pending_balance"`
	WithdrawnAmount  decimal.Decimal `json:"withdrawn_amount"`
	TotalEarnings    decimal.Decimal `json:"total_earnings"`
}

func NewBalances(b *models.VendorBalances) *Balances {
	if b == nil {
		return nil
	}
	return &Balances{
		VendorID:         b.VendorID,
		AvailableBalance: b.AvailableBalance,
		PendingBalance:   b.PendingBalance,
		WithdrawnAmount:  b.WithdrawnAmount,
		TotalEarnings:    b.TotalEarnings,
	}
}
