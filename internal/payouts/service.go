package payouts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger-backend/internal/ledger"
	dbpkg "github.com/angelmondragon/vendorledger-backend/pkg/db"
	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger-backend/pkg/errors"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
	"github.com/angelmondragon/vendorledger-backend/pkg/metrics"
	"github.com/angelmondragon/vendorledger-backend/pkg/money"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/vendorledger-backend/pkg/types"
)

const (
	ReasonPayoutMethodMissing = "payout_method_missing"
	ReasonBelowMinimum        = "below_minimum"
	ReasonDuplicateRequest    = "duplicate_pending_request"
	ReasonVendorNotApproved   = "vendor_not_approved"

	uniqueRequestedIndex = "uq_payouts_vendor_requested"
	maxNotesLength       = 1000
)

// Service drives the payout lifecycle: requested, then approved and paid, or
// rejected, or cancelled by the vendor.
type Service interface {
	Request(ctx context.Context, vendorID uuid.UUID, input RequestInput) (*RequestResult, error)
	Approve(ctx context.Context, payoutID, adminID uuid.UUID, notes *string) (*PayoutView, error)
	Reject(ctx context.Context, payoutID, adminID uuid.UUID, reason string) (*PayoutView, error)
	MarkPaid(ctx context.Context, payoutID, adminID uuid.UUID, input MarkPaidInput) (*PayoutView, error)
	Cancel(ctx context.Context, vendorID, payoutID uuid.UUID) (*PayoutView, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ledgerMover interface {
	ReservePayout(ctx context.Context, tx *gorm.DB, vendorID, payoutID uuid.UUID, amount decimal.Decimal) (*models.VendorBalances, error)
	ReleasePayout(ctx context.Context, tx *gorm.DB, vendorID, payoutID uuid.UUID, amount decimal.Decimal, eventType enums.LedgerEventType) (*models.VendorBalances, error)
	SettlePayout(ctx context.Context, tx *gorm.DB, vendorID, payoutID uuid.UUID, amount decimal.Decimal) (*models.VendorBalances, error)
}

// ServiceParams groups the payout service dependencies.
type ServiceParams struct {
	Repo          Repository
	Tx            txRunner
	Outbox        outboxPublisher
	Ledger        ledgerMover
	MinWithdrawal decimal.Decimal
	Metrics       *metrics.LedgerMetrics
	Logger        *logger.Logger
}

type service struct {
	repo          Repository
	tx            txRunner
	outbox        outboxPublisher
	ledger        ledgerMover
	minWithdrawal decimal.Decimal
	metrics       *metrics.LedgerMetrics
	logg          *logger.Logger
	now           func() time.Time
}

// NewService builds the payout workflow.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if !params.MinWithdrawal.IsPositive() {
		return nil, fmt.Errorf("minimum withdrawal must be positive")
	}
	return &service{
		repo:          params.Repo,
		tx:            params.Tx,
		outbox:        params.Outbox,
		ledger:        params.Ledger,
		minWithdrawal: params.MinWithdrawal,
		metrics:       params.Metrics,
		logg:          params.Logger,
		now:           time.Now,
	}, nil
}

func (s *service) Request(ctx context.Context, vendorID uuid.UUID, input RequestInput) (*RequestResult, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}
	if !input.Amount.IsPositive() || !money.HasCurrencyScale(input.Amount) {
		return nil, pkgerrors.Validation("invalid_amount", "amount must be positive with at most two decimal places")
	}
	notes, err := cleanNotes(input.Notes)
	if err != nil {
		return nil, err
	}

	var result *RequestResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		vendor, err := repo.FindVendor(ctx, vendorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
		}
		if err := s.checkEligibility(vendor, input.Amount); err != nil {
			return err
		}

		pending, err := repo.HasRequested(ctx, vendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending payouts")
		}
		if pending {
			return s.reject(ReasonDuplicateRequest, "a payout request is already pending")
		}

		now := s.now().UTC()
		payout := &models.Payout{
			ID:       uuid.New(),
			VendorID: vendorID,
			Amount:   input.Amount,
			Status:   enums.PayoutStatusRequested,
			PaymentMethodSnapshot: types.PayoutSnapshot{
				Method:  string(vendor.PayoutMethod),
				Details: vendor.PayoutDetails.Clone(),
			},
			VendorNotes: notes,
			RequestedAt: now,
			UpdatedAt:   now,
		}

		balances, err := s.ledger.ReservePayout(ctx, tx, vendorID, payout.ID, input.Amount)
		if err != nil {
			return err
		}
		if err := repo.Create(ctx, payout); err != nil {
			if dbpkg.IsUniqueViolation(err, uniqueRequestedIndex) {
				return s.reject(ReasonDuplicateRequest, "a payout request is already pending")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
		}
		if err := s.emit(ctx, tx, payout, "", &outbox.ActorRef{UserID: input.ActorUserID, VendorID: &vendorID, Role: enums.RoleVendor.String()}, &balances.AvailableBalance); err != nil {
			return err
		}

		result = &RequestResult{Payout: NewView(payout, true), AvailableBalance: balances.AvailableBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(string(enums.PayoutStatusRequested))
	return result, nil
}

func (s *service) checkEligibility(vendor *models.Vendor, amount decimal.Decimal) error {
	if vendor.Status != enums.VendorStatusApproved {
		return pkgerrors.New(pkgerrors.CodeForbidden, "vendor is not approved for payouts").WithDetails(map[string]any{
			"reason": ReasonVendorNotApproved,
			"status": vendor.Status,
		})
	}
	if vendor.PayoutMethod == enums.PayoutMethodNone || vendor.PayoutMethod == "" {
		return s.reject(ReasonPayoutMethodMissing, "configure a payout method before requesting a withdrawal")
	}
	if amount.LessThan(s.minWithdrawal) {
		return s.reject(ReasonBelowMinimum, fmt.Sprintf("minimum withdrawal is %s", s.minWithdrawal.StringFixed(2)))
	}
	if amount.GreaterThan(vendor.AvailableBalance) {
		return s.reject(ledger.ReasonInsufficientBalance, "insufficient available balance")
	}
	return nil
}

func (s *service) Approve(ctx context.Context, payoutID, adminID uuid.UUID, notes *string) (*PayoutView, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	cleaned, err := cleanNotes(notes)
	if err != nil {
		return nil, err
	}

	var payout *models.Payout
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := s.now().UTC()
		fields := map[string]any{"approved_at": now, "approved_by": adminID}
		if cleaned != nil {
			fields["admin_notes"] = *cleaned
		}
		payout, err = s.transition(ctx, tx, payoutID, enums.PayoutStatusRequested, enums.PayoutStatusApproved, fields)
		if err != nil {
			return err
		}
		return s.emit(ctx, tx, payout, enums.PayoutStatusRequested, adminActor(adminID), nil)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(string(enums.PayoutStatusApproved))
	return NewView(payout, false), nil
}

func (s *service) Reject(ctx context.Context, payoutID, adminID uuid.UUID, reason string) (*PayoutView, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.Validation("reason_required", "rejection reason required")
	}
	if utf8.RuneCountInString(reason) > maxNotesLength {
		return nil, pkgerrors.Validation("reason_too_long", fmt.Sprintf("rejection reason exceeds %d characters", maxNotesLength))
	}

	var payout *models.Payout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		now := s.now().UTC()
		payout, err = s.transition(ctx, tx, payoutID, enums.PayoutStatusRequested, enums.PayoutStatusRejected, map[string]any{
			"rejected_at":      now,
			"rejected_by":      adminID,
			"rejection_reason": reason,
		})
		if err != nil {
			return err
		}
		balances, err := s.ledger.ReleasePayout(ctx, tx, payout.VendorID, payout.ID, payout.Amount, enums.LedgerEventTypePayoutRejected)
		if err != nil {
			return err
		}
		return s.emit(ctx, tx, payout, enums.PayoutStatusRequested, adminActor(adminID), &balances.AvailableBalance)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(string(enums.PayoutStatusRejected))
	return NewView(payout, false), nil
}

func (s *service) MarkPaid(ctx context.Context, payoutID, adminID uuid.UUID, input MarkPaidInput) (*PayoutView, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	ref, err := cleanNotes(input.TransactionRef)
	if err != nil {
		return nil, err
	}
	notes, err := cleanNotes(input.Notes)
	if err != nil {
		return nil, err
	}

	var payout *models.Payout
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := s.now().UTC()
		fields := map[string]any{"paid_at": now, "paid_by": adminID}
		if ref != nil {
			fields["transaction_ref"] = *ref
		}
		if notes != nil {
			fields["admin_notes"] = *notes
		}
		payout, err = s.transition(ctx, tx, payoutID, enums.PayoutStatusApproved, enums.PayoutStatusPaid, fields)
		if err != nil {
			return err
		}
		if _, err := s.ledger.SettlePayout(ctx, tx, payout.VendorID, payout.ID, payout.Amount); err != nil {
			return err
		}
		return s.emit(ctx, tx, payout, enums.PayoutStatusApproved, adminActor(adminID), nil)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(string(enums.PayoutStatusPaid))
	return NewView(payout, false), nil
}

func (s *service) Cancel(ctx context.Context, vendorID, payoutID uuid.UUID) (*PayoutView, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}

	var payout *models.Payout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		current, err := s.repo.WithTx(tx).FindByID(ctx, payoutID)
		if err != nil {
			return notFoundOr(err, "load payout")
		}
		if current.VendorID != vendorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "payout belongs to another vendor")
		}

		payout, err = s.transition(ctx, tx, payoutID, enums.PayoutStatusRequested, enums.PayoutStatusCancelled, map[string]any{
			"cancelled_at": s.now().UTC(),
		})
		if err != nil {
			return err
		}
		balances, err := s.ledger.ReleasePayout(ctx, tx, payout.VendorID, payout.ID, payout.Amount, enums.LedgerEventTypePayoutCancelled)
		if err != nil {
			return err
		}
		actor := &outbox.ActorRef{VendorID: &vendorID, Role: enums.RoleVendor.String()}
		return s.emit(ctx, tx, payout, enums.PayoutStatusRequested, actor, &balances.AvailableBalance)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(string(enums.PayoutStatusCancelled))
	return NewView(payout, true), nil
}

// transition applies the status CAS and reloads the row. A miss is reported
// as NotFound or InvalidTransition depending on what the reload finds.
func (s *service) transition(ctx context.Context, tx *gorm.DB, payoutID uuid.UUID, from, to enums.PayoutStatus, fields map[string]any) (*models.Payout, error) {
	repo := s.repo.WithTx(tx)
	rows, err := repo.Transition(ctx, payoutID, from, to, fields)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payout status")
	}
	payout, err := repo.FindByID(ctx, payoutID)
	if err != nil {
		return nil, notFoundOr(err, "reload payout")
	}
	if rows == 0 {
		return nil, pkgerrors.InvalidTransition("payout", string(payout.Status), string(from))
	}
	return payout, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, payout *models.Payout, previous enums.PayoutStatus, actor *outbox.ActorRef, available *decimal.Decimal) error {
	eventType, ok := payoutEventTypes[payout.Status]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("no event for payout status %s", payout.Status))
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePayout,
		AggregateID:   payout.ID,
		Actor:         actor,
		Data: payloads.PayoutEvent{
			PayoutID:         payout.ID,
			VendorID:         payout.VendorID,
			Amount:           payout.Amount,
			Status:           payout.Status,
			PreviousStatus:   previous,
			Method:           enums.PayoutMethod(payout.PaymentMethodSnapshot.Method),
			Reason:           payout.RejectionReason,
			TransactionRef:   payout.TransactionRef,
			AvailableBalance: available,
			OccurredAt:       s.now().UTC(),
		},
	})
}

func (s *service) reject(reason, msg string) error {
	s.metrics.IncRejection(reason)
	return pkgerrors.Validation(reason, msg)
}

var payoutEventTypes = map[enums.PayoutStatus]enums.OutboxEventType{
	enums.PayoutStatusRequested: enums.EventPayoutRequested,
	enums.PayoutStatusApproved:  enums.EventPayoutApproved,
	enums.PayoutStatusRejected:  enums.EventPayoutRejected,
	enums.PayoutStatusPaid:      enums.EventPayoutPaid,
	enums.PayoutStatusCancelled: enums.EventPayoutCancelled,
}

func adminActor(adminID uuid.UUID) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: adminID, Role: enums.RoleAdmin.String()}
}

func cleanNotes(value *string) (*string, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > maxNotesLength {
		return nil, pkgerrors.Validation("notes_too_long", fmt.Sprintf("notes exceed %d characters", maxNotesLength))
	}
	return &trimmed, nil
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
