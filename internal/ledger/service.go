package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger-backend/pkg/errors"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
	"github.com/angelmondragon/vendorledger-backend/pkg/metrics"
	"github.com/angelmondragon/vendorledger-backend/pkg/money"
)

// ReasonInsufficientBalance tags validation errors raised when a conditional
// debit finds too little available balance.
const ReasonInsufficientBalance = "insufficient_balance"

// Service moves money between a vendor's balance buckets. Each method runs one
// atomic UPDATE plus an audit row inside tx, or inside its own transaction
// when tx is nil.
type Service interface {
	CreditVendorBalance(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, amount decimal.Decimal, reasonRef string) (*models.VendorBalances, error)
	DebitVendorBalance(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, amount decimal.Decimal, reason string) (*models.VendorBalances, error)
	ReservePayout(ctx context.Context, tx *gorm.DB, vendorID, payoutID uuid.UUID, amount decimal.Decimal) (*models.VendorBalances, error)
	ReleasePayout(ctx context.Context, tx *gorm.DB, vendorID, payoutID uuid.UUID, amount decimal.Decimal, eventType enums.LedgerEventType) (*models.VendorBalances, error)
	SettlePayout(ctx context.Context, tx *gorm.DB, vendorID, payoutID uuid.UUID, amount decimal.Decimal) (*models.VendorBalances, error)
	RecordShortfall(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, amount decimal.Decimal, reference string, metadata any) error
	Balances(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalances, error)
	History(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.LedgerEvent, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo    Repository
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
}

// NewService wires a ledger service. logg and m may be nil.
func NewService(repo Repository, tx txRunner, logg *logger.Logger, m *metrics.LedgerMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg, metrics: m}, nil
}

type mutation struct {
	vendorID  uuid.UUID
	amount    decimal.Decimal
	eventType enums.LedgerEventType
	reference string
	metadata  any
	// conditional mutations only match when the available balance covers amount
	conditional bool
	apply       func(ctx context.Context, repo Repository) (int64, error)
}

func (s *service) CreditVendorBalance(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, amount decimal.Decimal, reasonRef string) (*models.VendorBalances, error) {
	return s.mutate(ctx, tx, mutation{
		vendorID:  vendorID,
		amount:    amount,
		eventType: enums.LedgerEventTypeCredit,
		reference: reasonRef,
		apply: func(ctx context.Context, repo Repository) (int64, error) {
			return repo.Credit(ctx, vendorID, amount)
		},
	})
}

func (s *service) DebitVendorBalance(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, amount decimal.Decimal, reason string) (*models.VendorBalances, error) {
	return s.mutate(ctx, tx, mutation{
		vendorID:    vendorID,
		amount:      amount,
		eventType:   enums.LedgerEventTypeDebit,
		reference:   reason,
		conditional: true,
		apply: func(ctx context.Context, repo Repository) (int64, error) {
			return repo.Debit(ctx, vendorID, amount)
		},
	})
}

func (s *service) ReservePayout(ctx context.Context, tx *gorm.DB, vendorID, payoutID uuid.UUID, amount decimal.Decimal) (*models.VendorBalances, error) {
	return s.mutate(ctx, tx, mutation{
		vendorID:    vendorID,
		amount:      amount,
		eventType:   enums.LedgerEventTypePayoutRequested,
		reference:   payoutReference(payoutID),
		conditional: true,
		apply: func(ctx context.Context, repo Repository) (int64, error) {
			return repo.Reserve(ctx, vendorID, amount)
		},
	})
}

func (s *service) ReleasePayout(ctx context.Context, tx *gorm.DB, vendorID, payoutID uuid.UUID, amount decimal.Decimal, eventType enums.LedgerEventType) (*models.VendorBalances, error) {
	if eventType != enums.LedgerEventTypePayoutRejected && eventType != enums.LedgerEventTypePayoutCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("ledger event %q cannot release a payout", eventType))
	}
	return s.mutate(ctx, tx, mutation{
		vendorID:  vendorID,
		amount:    amount,
		eventType: eventType,
		reference: payoutReference(payoutID),
		apply: func(ctx context.Context, repo Repository) (int64, error) {
			return repo.Release(ctx, vendorID, amount)
		},
	})
}

func (s *service) SettlePayout(ctx context.Context, tx *gorm.DB, vendorID, payoutID uuid.UUID, amount decimal.Decimal) (*models.VendorBalances, error) {
	return s.mutate(ctx, tx, mutation{
		vendorID:  vendorID,
		amount:    amount,
		eventType: enums.LedgerEventTypePayoutPaid,
		reference: payoutReference(payoutID),
		apply: func(ctx context.Context, repo Repository) (int64, error) {
			return repo.Settle(ctx, vendorID, amount)
		},
	})
}

// RecordShortfall appends an audit row for a flat fee that exceeded item
// revenue. Balances are not touched.
func (s *service) RecordShortfall(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, amount decimal.Decimal, reference string, metadata any) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if vendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	return s.inTx(ctx, tx, func(tx *gorm.DB) error {
		event, err := newEvent(vendorID, enums.LedgerEventTypeCommissionShortfall, amount, reference, metadata)
		if err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).CreateEvent(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record commission shortfall")
		}
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"vendor_id": vendorID.String(),
				"shortfall": amount.StringFixed(money.Scale),
				"reference": reference,
			})
			s.logg.Warn(logCtx, "flat commission exceeds item revenue")
		}
		s.metrics.ObserveMovement(string(enums.LedgerEventTypeCommissionShortfall), amount)
		return nil
	})
}

func (s *service) Balances(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalances, error) {
	balances, err := s.repo.Balances(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor balances")
	}
	return balances, nil
}

func (s *service) History(ctx context.Context, vendorID uuid.UUID, limit int) ([]models.LedgerEvent, error) {
	events, err := s.repo.ListByVendor(ctx, vendorID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger events")
	}
	return events, nil
}

func (s *service) mutate(ctx context.Context, tx *gorm.DB, m mutation) (*models.VendorBalances, error) {
	if m.vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if err := validateAmount(m.amount); err != nil {
		return nil, err
	}

	var balances *models.VendorBalances
	err := s.inTx(ctx, tx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		rows, err := m.apply(ctx, repo)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("apply %s", m.eventType))
		}
		if rows == 0 {
			return s.explainMiss(ctx, repo, m)
		}

		event, err := newEvent(m.vendorID, m.eventType, m.amount, m.reference, m.metadata)
		if err != nil {
			return err
		}
		if err := repo.CreateEvent(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger event")
		}

		balances, err = repo.Balances(ctx, m.vendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload vendor balances")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveMovement(string(m.eventType), m.amount)
	return balances, nil
}

func (s *service) explainMiss(ctx context.Context, repo Repository, m mutation) error {
	exists, err := repo.VendorExists(ctx, m.vendorID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check vendor")
	}
	if !exists || !m.conditional {
		return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
	}
	s.metrics.IncRejection(ReasonInsufficientBalance)
	return pkgerrors.Validation(ReasonInsufficientBalance, "insufficient available balance")
}

func (s *service) inTx(ctx context.Context, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	if tx != nil {
		return fn(tx)
	}
	return s.tx.WithTx(ctx, fn)
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.Validation("invalid_amount", "amount must be greater than zero")
	}
	if !money.HasCurrencyScale(amount) {
		return pkgerrors.Validation("invalid_amount", "amount must have at most two decimal places")
	}
	return nil
}

func newEvent(vendorID uuid.UUID, eventType enums.LedgerEventType, amount decimal.Decimal, reference string, metadata any) (*models.LedgerEvent, error) {
	var raw json.RawMessage
	if metadata != nil {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode ledger metadata")
		}
		raw = encoded
	}
	return &models.LedgerEvent{
		ID:        uuid.New(),
		VendorID:  vendorID,
		Type:      eventType,
		Amount:    amount,
		Reference: reference,
		Metadata:  raw,
	}, nil
}

func payoutReference(payoutID uuid.UUID) string {
	return "payout:" + payoutID.String()
}
