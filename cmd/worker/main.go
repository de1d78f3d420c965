package main

import (
	"context"
	"fmt"
	"os"

	"github.com/angelmondragon/vendorledger-backend/internal/notifications"
	"github.com/angelmondragon/vendorledger-backend/pkg/bootstrap"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/vendorledger-backend/pkg/pubsub"
)

func main() {
	rt, err := bootstrap.Start(context.Background(), bootstrap.Options{Service: "worker", Redis: true})
	if err != nil {
		os.Exit(1)
	}
	rt.Exit(run(rt))
}

func run(rt *bootstrap.Runtime) error {
	cfg, logg := rt.Config, rt.Logger

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	rt.OnClose("pubsub", pubsubClient.Close)

	claims, err := idempotency.NewManager(rt.Redis, notifications.ConsumerName, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return err
	}

	var mailer notifications.Mailer
	if cfg.Sendgrid.Enabled() {
		mailer = notifications.NewSendGridMailer(cfg.Sendgrid)
	} else {
		logg.Warn(context.Background(), "sendgrid not configured, email delivery disabled")
	}

	consumer, err := notifications.NewConsumer(notifications.ConsumerParams{
		Repo:         notifications.NewRepository(rt.DB.DB()),
		Subscription: pubsubClient.NotificationSubscription(),
		Idempotency:  claims,
		Mailer:       mailer,
		OpsEmail:     cfg.Sendgrid.OpsEmail,
		Logger:       logg,
	})
	if err != nil {
		return fmt.Errorf("notification consumer: %w", err)
	}

	service, err := NewService(ServiceParams{
		Logger: logg,
		Dependencies: []dependency{
			{name: "database", ping: rt.DB.Ping},
			{name: "redis", ping: rt.Redis.Ping},
			{name: "pubsub", ping: pubsubClient.Ping},
		},
		Consumer: consumer,
	})
	if err != nil {
		return err
	}

	ctx, stop := rt.SignalContext()
	defer stop()
	logg.Info(ctx, "starting worker")
	return service.Run(ctx)
}
