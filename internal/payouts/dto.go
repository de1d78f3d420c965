package payouts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	"github.com/angelmondragon/vendorledger-backend/pkg/pagination"
	"github.com/angelmondragon/vendorledger-backend/pkg/types"
)

// RequestInput is a vendor's withdrawal request.
type RequestInput struct {
	Amount      decimal.Decimal
	Notes       *string
	ActorUserID uuid.UUID
}

// RequestResult pairs the new payout with the vendor's remaining balance.
type RequestResult struct {
	Payout           *PayoutView     `json:"payout"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
}

// MarkPaidInput carries the optional settlement references.
type MarkPaidInput struct {
	TransactionRef *string
	Notes          *string
}

// PayoutView is the API shape of a payout.
type PayoutView struct {
	ID              uuid.UUID            `json:"id"`
	VendorID        uuid.UUID            `json:"vendor_id"`
	Amount          decimal.Decimal      `json:"amount"`
	Status          enums.PayoutStatus   `json:"status"`
	PaymentMethod   types.PayoutSnapshot `json:"payment_method"`
	VendorNotes     *string              `json:"vendor_notes,omitempty"`
	AdminNotes      *string              `json:"admin_notes,omitempty"`
	RejectionReason *string              `json:"rejection_reason,omitempty"`
	TransactionRef  *string              `json:"transaction_ref,omitempty"`
	RequestedAt     time.Time            `json:"requested_at"`
	ApprovedAt      *time.Time           `json:"approved_at,omitempty"`
	ApprovedBy      *uuid.UUID           `json:"approved_by,omitempty"`
	RejectedAt      *time.Time           `json:"rejected_at,omitempty"`
	RejectedBy      *uuid.UUID           `json:"rejected_by,omitempty"`
	PaidAt          *time.Time           `json:"paid_at,omitempty"`
	PaidBy          *uuid.UUID           `json:"paid_by,omitempty"`
	CancelledAt     *time.Time           `json:"cancelled_at,omitempty"`
}

// NewView maps a payout row. Vendor-facing views mask account identifiers.
func NewView(p *models.Payout, masked bool) *PayoutView {
	if p == nil {
		return nil
	}
	snapshot := types.PayoutSnapshot{Method: p.PaymentMethodSnapshot.Method, Details: p.PaymentMethodSnapshot.Details.Clone()}
	if masked {
		snapshot.Details = snapshot.Details.Masked()
	}
	return &PayoutView{
		ID:              p.ID,
		VendorID:        p.VendorID,
		Amount:          p.Amount,
		Status:          p.Status,
		PaymentMethod:   snapshot,
		VendorNotes:     p.VendorNotes,
		AdminNotes:      p.AdminNotes,
		RejectionReason: p.RejectionReason,
		TransactionRef:  p.TransactionRef,
		RequestedAt:     p.RequestedAt,
		ApprovedAt:      p.ApprovedAt,
		ApprovedBy:      p.ApprovedBy,
		RejectedAt:      p.RejectedAt,
		RejectedBy:      p.RejectedBy,
		PaidAt:          p.PaidAt,
		PaidBy:          p.PaidBy,
		CancelledAt:     p.CancelledAt,
	}
}

// AdminDetail is a payout with the vendor context an approver needs.
type AdminDetail struct {
	Payout *PayoutView  `json:"payout"`
	Vendor VendorDigest `json:"vendor"`
}

type VendorDigest struct {
	ID               uuid.UUID          `json:"id"`
	BusinessName     string             `json:"business_name"`
	ContactEmail     string             `json:"contact_email"`
	Status           enums.VendorStatus `json:"status"`
	AvailableBalance decimal.Decimal    `json:"available_balance"`
	PendingBalance   decimal.Decimal    `json:"pending_balance"`
	WithdrawnAmount  decimal.Decimal    `json:"withdrawn_amount"`
}

// StatusTotal counts and sums payouts in one bucket.
type StatusTotal struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// VendorListParams filters a vendor's own payout history.
type VendorListParams struct {
	Status    *enums.PayoutStatus
	StartDate *time.Time
	EndDate   *time.Time
	Page      pagination.Params
}

// AdminListParams adds vendor and sort controls to VendorListParams.
type AdminListParams struct {
	VendorListParams
	VendorID  *uuid.UUID
	SortBy    string
	SortOrder string
}

// ListResult is one page of payouts plus totals for every status.
type ListResult struct {
	Items      []PayoutView                       `json:"items"`
	Pagination pagination.Meta                    `json:"pagination"`
	Totals     map[enums.PayoutStatus]StatusTotal `json:"totals"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	ByStatus      map[enums.PayoutStatus]StatusTotal `json:"by_status"`
	MonthToDate   MonthToDate                        `json:"month_to_date"`
	UrgentPending int64                              `json:"urgent_pending"`
	GeneratedAt   time.Time                          `json:"generated_at"`
}

type MonthToDate struct {
	Requested StatusTotal `json:"requested"`
	Paid      StatusTotal `json:"paid"`
}
