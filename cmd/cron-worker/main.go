package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/vendorledger-backend/internal/cron"
	"github.com/angelmondragon/vendorledger-backend/internal/notifications"
	"github.com/angelmondragon/vendorledger-backend/internal/payouts"
	"github.com/angelmondragon/vendorledger-backend/pkg/bootstrap"
	"github.com/angelmondragon/vendorledger-backend/pkg/config"
	"github.com/angelmondragon/vendorledger-backend/pkg/db"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
	"github.com/angelmondragon/vendorledger-backend/pkg/metrics"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox"
)

func main() {
	rt, err := bootstrap.Start(context.Background(), bootstrap.Options{Service: "cron-worker", Redis: true})
	if err != nil {
		os.Exit(1)
	}
	rt.Exit(run(rt))
}

func run(rt *bootstrap.Runtime) error {
	cfg := rt.Config

	locks, err := cron.NewRedisLockFactory(rt.Redis, cfg.App.Env, cfg.Cron.LockTTL)
	if err != nil {
		return err
	}
	registry, err := buildRegistry(cfg, rt.Logger, rt.DB)
	if err != nil {
		return fmt.Errorf("register cron jobs: %w", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     rt.Logger,
		Registry:   registry,
		Locks:      locks,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		RunOnStart: cfg.Cron.RunOnStart,
	})
	if err != nil {
		return err
	}

	ctx, stop := rt.SignalContext()
	defer stop()
	rt.Logger.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	outboxRepo := outbox.NewRepository(dbClient.DB())

	staleJob, err := cron.NewPayoutStaleJob(cron.PayoutStaleJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: payouts.NewRepository(dbClient.DB()),
		Outbox:     outbox.NewService(outboxRepo, logg),
		StaleAfter: cfg.Payout.StaleAfter,
	})
	if err != nil {
		return nil, err
	}

	retentionJob, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Name:   "outbox-retention",
		Logger: logg,
		DB:     dbClient,
		Purge:  outboxRepo.DeletePublishedBefore,
		Days:   cfg.Outbox.RetentionDays,
	})
	if err != nil {
		return nil, err
	}

	cleanupJob, err := cron.NewRetentionJob(cron.RetentionJobParams{
		Name:   "notification-cleanup",
		Logger: logg,
		DB:     dbClient,
		Purge:  notifications.NewRepository(dbClient.DB()).DeleteReadBefore,
		Days:   cfg.Cron.NotificationRetentionDays,
	})
	if err != nil {
		return nil, err
	}

	registry := cron.NewRegistry()
	registry.Register(cfg.Payout.StaleAlertCron, staleJob)
	registry.Register(cfg.Cron.OutboxRetentionSchedule, retentionJob)
	registry.Register(cfg.Cron.NotificationCleanupSchedule, cleanupJob)
	return registry, nil
}
