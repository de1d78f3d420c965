package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/vendorledger-backend/api"
	"github.com/angelmondragon/vendorledger-backend/api/routes"
	"github.com/angelmondragon/vendorledger-backend/internal/commission"
	"github.com/angelmondragon/vendorledger-backend/internal/ledger"
	"github.com/angelmondragon/vendorledger-backend/internal/notifications"
	"github.com/angelmondragon/vendorledger-backend/internal/orders"
	"github.com/angelmondragon/vendorledger-backend/internal/payouts"
	"github.com/angelmondragon/vendorledger-backend/internal/vendors"
	"github.com/angelmondragon/vendorledger-backend/pkg/bootstrap"
	"github.com/angelmondragon/vendorledger-backend/pkg/config"
	"github.com/angelmondragon/vendorledger-backend/pkg/db"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
	"github.com/angelmondragon/vendorledger-backend/pkg/metrics"
	"github.com/angelmondragon/vendorledger-backend/pkg/outbox"
	"github.com/angelmondragon/vendorledger-backend/pkg/redis"
)

func main() {
	rt, err := bootstrap.Start(context.Background(), bootstrap.Options{Service: "api", Redis: true})
	if err != nil {
		os.Exit(1)
	}
	rt.Exit(run(rt))
}

func run(rt *bootstrap.Runtime) error {
	cfg, logg := rt.Config, rt.Logger

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := buildServices(cfg, logg, rt.DB, rt.Redis, reg)
	if err != nil {
		return err
	}

	// PORT is set by the hosting platform and wins over config.
	port := cfg.App.Port
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}
	addr := ":" + port

	ctx, stop := rt.SignalContext()
	defer stop()
	ctx = logg.WithField(ctx, "addr", addr)
	logg.Info(ctx, "starting api server")

	handler := routes.NewRouter(cfg, logg, rt.DB, rt.Redis, reg, metrics.NewHTTPMetrics(reg), services)
	return api.Serve(ctx, api.NewServer(addr, handler), logg)
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, reg prometheus.Registerer) (routes.Services, error) {
	conn := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)
	ledgerMetrics := metrics.NewLedgerMetrics(reg)

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn), dbClient, logg, ledgerMetrics)
	if err != nil {
		return routes.Services{}, err
	}

	payoutRepo := payouts.NewRepository(conn)
	payoutSvc, err := payouts.NewService(payouts.ServiceParams{
		Repo:          payoutRepo,
		Tx:            dbClient,
		Outbox:        outboxSvc,
		Ledger:        ledgerSvc,
		MinWithdrawal: cfg.Payout.MinWithdrawal,
		Metrics:       ledgerMetrics,
		Logger:        logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	console, err := payouts.NewConsole(payouts.ConsoleParams{
		Repo:       payoutRepo,
		Cache:      redisClient,
		CacheKey:   redisClient.CacheKey("payouts", "stats"),
		CacheTTL:   cfg.Payout.StatsCacheTTL,
		StaleAfter: cfg.Payout.StaleAfter,
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	vendorSvc, err := vendors.NewService(vendors.NewRepository(conn), dbClient, outboxSvc, ledgerSvc)
	if err != nil {
		return routes.Services{}, err
	}

	orderSvc, err := orders.NewService(orders.NewRepository(conn), dbClient, outboxSvc, ledgerSvc, commission.DefaultConfig(cfg.Commission), logg)
	if err != nil {
		return routes.Services{}, err
	}

	notificationSvc, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Payouts:       payoutSvc,
		Console:       console,
		Vendors:       vendorSvc,
		Ledger:        ledgerSvc,
		Orders:        orderSvc,
		Notifications: notificationSvc,
		DeadLetters:   outbox.NewDLQRepository(conn),
	}, nil
}
