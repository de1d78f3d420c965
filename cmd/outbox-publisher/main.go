package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/vendorledger-backend/pkg/bootstrap"
	"github.com/angelmondragon/vendorledger-backend/pkg/metrics"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox/registry"
	"github.com/angelmondragon/vendorledger-backend/pkg/pubsub"
)

func main() {
	rt, err := bootstrap.Start(context.Background(), bootstrap.Options{Service: "outbox-publisher"})
	if err != nil {
		os.Exit(1)
	}
	rt.Exit(run(rt))
}

func run(rt *bootstrap.Runtime) error {
	cfg := rt.Config

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, rt.Logger)
	if err != nil {
		return fmt.Errorf("pubsub: %w", err)
	}
	rt.OnClose("pubsub", pubsubClient.Close)

	topics, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}

	conn := rt.DB.DB()
	service, err := NewService(ServiceParams{
		Config:     cfg.Outbox,
		Logger:     rt.Logger,
		DB:         rt.DB,
		Pinger:     pubsubClient.Ping,
		Publishers: topicPublishers(pubsubClient),
		Repository: outbox.NewRepository(conn),
		DLQ:        outbox.NewDLQRepository(conn),
		Registry:   topics,
		Metrics:    metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}

	ctx, stop := rt.SignalContext()
	defer stop()
	rt.Logger.Info(ctx, "starting outbox publisher")
	return service.Run(ctx)
}

func topicPublishers(client *pubsub.Client) func(topic string) publisher {
	return func(topic string) publisher {
		if pub := client.Publisher(topic); pub != nil {
			return gcpPublisher{p: pub}
		}
		return nil
	}
}
