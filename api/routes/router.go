package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/vendorledger-backend/api/controllers"
	"github.com/angelmondragon/vendorledger-backend/api/middleware"
	"github.com/angelmondragon/vendorledger-backend/internal/ledger"
	"github.com/angelmondragon/vendorledger-backend/internal/notifications"
	"github.com/angelmondragon/vendorledger-backend/internal/orders"
	"github.com/angelmondragon/vendorledger-backend/internal/payouts"
	"github.com/angelmondragon/vendorledger-backend/internal/vendors"
	"github.com/angelmondragon/vendorledger-backend/pkg/config"
	"github.com/angelmondragon/vendorledger-backend/pkg/db"
	"github.com/angelmondragon/vendorledger-backend/pkg/enums"
	"github.com/angelmondragon/vendorledger-backend/pkg/logger"
	"github.com/angelmondragon/vendorledger-backend/pkg/metrics"
)

// redisStore is the slice of the redis client the HTTP layer depends on.
type redisStore interface {
	middleware.IdempotencyStore
	db.Pinger
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Services bundles what the router hands to controllers.
type Services struct {
	Payouts       payouts.Service
	Console       payouts.Console
	Vendors       vendors.Service
	Ledger        ledger.Service
	Orders        orders.Service
	Notifications notifications.Service
	DeadLetters   controllers.DeadLetters
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	store redisStore,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	payoutRequestPolicy := middleware.NewRateLimitPolicy(
		"payout-request",
		cfg.RateLimit.PayoutRequestWindow,
		cfg.RateLimit.PayoutRequestLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]db.Pinger{
			"postgres": dbP,
			"redis":    store,
		}))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		money := middleware.Idempotent(store, logg, middleware.MoneyMovingTTL)
		standard := middleware.Idempotent(store, logg, middleware.StandardTTL)

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.RoleVendor, logg))
			r.Use(middleware.VendorContext(logg))

			r.Get("/me", controllers.VendorProfile(svc.Vendors, logg))
			r.Put("/me/payout-settings", controllers.VendorUpdatePayoutSettings(svc.Vendors, logg))
			r.Get("/me/ledger", controllers.VendorLedgerHistory(svc.Ledger, logg))

			r.Route("/payouts", func(r chi.Router) {
				r.With(middleware.RateLimit(payoutRequestPolicy, store, logg), money).
					Post("/request", controllers.VendorRequestPayout(svc.Payouts, logg))
				r.Get("/", controllers.VendorListPayouts(svc.Console, logg))
				r.Get("/{payoutId}", controllers.VendorGetPayout(svc.Console, logg))
				r.With(money).Post("/{payoutId}/cancel", controllers.VendorCancelPayout(svc.Payouts, logg))
			})

			r.With(standard).Patch("/orders/items/{itemId}/status", controllers.VendorUpdateItemStatus(svc.Orders, logg))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(svc.Notifications, logg))
				r.With(standard).Post("/read-all", controllers.MarkAllNotificationsRead(svc.Notifications, logg))
				r.With(standard).Post("/{notificationId}/read", controllers.MarkNotificationRead(svc.Notifications, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.RoleAdmin, logg))

			r.Route("/payouts", func(r chi.Router) {
				r.Get("/", controllers.AdminListPayouts(svc.Console, logg))
				r.Get("/stats", controllers.AdminPayoutStats(svc.Console, logg))
				r.Get("/{payoutId}", controllers.AdminGetPayout(svc.Console, logg))
				r.With(money).Post("/{payoutId}/approve", controllers.AdminApprovePayout(svc.Payouts, logg))
				r.With(money).Post("/{payoutId}/reject", controllers.AdminRejectPayout(svc.Payouts, logg))
				r.With(money).Post("/{payoutId}/mark-paid", controllers.AdminMarkPayoutPaid(svc.Payouts, logg))
			})
			r.With(money).Post("/vendors/{vendorId}/adjustments", controllers.AdminAdjustVendorBalance(svc.Vendors, logg))
			r.Get("/outbox/dlq", controllers.AdminListDeadLetters(svc.DeadLetters, logg))
			r.Get("/outbox/dlq/{eventId}", controllers.AdminGetDeadLetter(svc.DeadLetters, logg))
		})

		r.Route("/internal", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.RoleSystem, logg))

			r.With(money).Post("/orders", controllers.InternalPlaceOrder(svc.Orders, logg))
			r.Get("/orders/{orderId}", controllers.InternalGetOrder(svc.Orders, logg))
			r.With(standard).Patch("/orders/items/{itemId}/status", controllers.VendorUpdateItemStatus(svc.Orders, logg))
		})
	})

	return r
}
