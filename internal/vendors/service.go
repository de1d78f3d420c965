package vendors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorledger-backend/pkg/errors"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox/payloads"
)

// Service exposes vendor profile reads, payout settings and admin adjustments.
type Service interface {
	Get(ctx context.Context, vendorID uuid.UUID) (*Profile, error)
	UpdatePayoutSettings(ctx context.Context, vendorID uuid.UUID, input PayoutSettingsInput) (*Profile, error)
	Adjust(ctx context.Context, input AdjustmentInput) (*models.VendorBalances, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ledgerDebiter interface {
	DebitVendorBalance(ctx context.Context, tx *gorm.DB, vendorID uuid.UUID, amount decimal.Decimal, reason string) (*models.VendorBalances, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	ledger ledgerDebiter
}

// NewService builds a vendor service with the provided dependencies.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, ledger ledgerDebiter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vendor repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox, ledger: ledger}, nil
}

func (s *service) Get(ctx context.Context, vendorID uuid.UUID) (*Profile, error) {
	vendor, err := s.load(ctx, s.repo, vendorID)
	if err != nil {
		return nil, err
	}
	return FromModel(vendor), nil
}

func (s *service) UpdatePayoutSettings(ctx context.Context, vendorID uuid.UUID, input PayoutSettingsInput) (*Profile, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}
	method, details, err := normalizePayoutSettings(input)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.UpdatePayoutSettings(ctx, vendorID, method, details)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payout settings")
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
	}
	return s.Get(ctx, vendorID)
}

func (s *service) Adjust(ctx context.Context, input AdjustmentInput) (*models.VendorBalances, error) {
	input.Reason = strings.TrimSpace(input.Reason)
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if input.AdminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin identity missing")
	}
	if input.Reason == "" {
		return nil, pkgerrors.Validation("reason_required", "adjustment reason required")
	}

	var balances *models.VendorBalances
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		balances, err = s.ledger.DebitVendorBalance(ctx, tx, input.VendorID, input.Amount, input.Reason)
		if err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVendorBalanceDebit,
			AggregateType: enums.AggregateVendor,
			AggregateID:   input.VendorID,
			Actor:         &outbox.ActorRef{UserID: input.AdminID, Role: enums.RoleAdmin.String()},
			Data: payloads.VendorBalanceDebitedEvent{
				VendorID:         input.VendorID,
				Amount:           input.Amount,
				Reason:           input.Reason,
				AvailableBalance: balances.AvailableBalance,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return balances, nil
}

func (s *service) load(ctx context.Context, repo Repository, vendorID uuid.UUID) (*models.Vendor, error) {
	vendor, err := repo.FindByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	return vendor, nil
}
