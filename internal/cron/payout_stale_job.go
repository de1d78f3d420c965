package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/vendorledger-backend/pkg/db/models"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox/payloads"
)

const (
	defaultStaleAfter   = 48 * time.Hour
	staleAlertBatchSize = 200
)

// PayoutStaleJobParams wire the stale payout alert job.
type PayoutStaleJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository stalePayoutRepo
	Outbox     staleEmitter
	StaleAfter time.Duration
}

type stalePayoutRepo interface {
	ListRequestedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Payout, error)
}

type staleEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (bool, error)
}

// NewPayoutStaleJob queues one payout_stale event per request that has sat
// in requested longer than StaleAfter. Each payout alerts at most once.
func NewPayoutStaleJob(params PayoutStaleJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("payout repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox required")
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &payoutStaleJob{
		logg:       params.Logger,
		db:         params.DB,
		repo:       params.Repository,
		outbox:     params.Outbox,
		staleAfter: staleAfter,
		now:        time.Now,
	}, nil
}

type payoutStaleJob struct {
	logg       *logger.Logger
	db         txRunner
	repo       stalePayoutRepo
	outbox     staleEmitter
	staleAfter time.Duration
	now        func() time.Time
}

func (j *payoutStaleJob) Name() string { return "payout-stale-alert" }

func (j *payoutStaleJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.staleAfter)

	stale, err := j.repo.ListRequestedBefore(ctx, cutoff, staleAlertBatchSize)
	if err != nil {
		return fmt.Errorf("list stale payouts: %w", err)
	}

	var queued int
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		for _, payout := range stale {
			created, err := j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventPayoutStale,
				AggregateType: enums.AggregatePayout,
				AggregateID:   payout.ID,
				Data: payloads.PayoutStaleEvent{
					PayoutID:    payout.ID,
					VendorID:    payout.VendorID,
					Amount:      payout.Amount,
					RequestedAt: payout.RequestedAt,
					AgeHours:    int(now.Sub(payout.RequestedAt).Hours()),
				},
				OccurredAt: now,
			})
			if err != nil {
				return fmt.Errorf("emit stale alert for %s: %w", payout.ID, err)
			}
			if created {
				queued++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":      cutoff,
		"stale_count": len(stale),
		"alerts":      queued,
	}), "stale payout scan complete")
	return nil
}
