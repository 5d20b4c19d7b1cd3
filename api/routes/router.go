package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/escrowmarket/api/controllers"
	ordercontrollers "github.com/angelmondragon/escrowmarket/api/controllers/orders"
	"github.com/angelmondragon/escrowmarket/api/middleware"
	"github.com/angelmondragon/escrowmarket/internal/checkout"
	"github.com/angelmondragon/escrowmarket/internal/escrow"
	"github.com/angelmondragon/escrowmarket/internal/ledger"
	"github.com/angelmondragon/escrowmarket/internal/notifications"
	"github.com/angelmondragon/escrowmarket/internal/orders"
	"github.com/angelmondragon/escrowmarket/internal/wallet"
	"github.com/angelmondragon/escrowmarket/pkg/config"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	"github.com/angelmondragon/escrowmarket/pkg/logger"
	"github.com/angelmondragon/escrowmarket/pkg/metrics"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         controllers.Pinger
	Idempotency   middleware.IdempotencyStore
	Gatherer      prometheus.Gatherer
	HTTPMetrics   *metrics.HTTPMetrics
	Checkout      checkout.Service
	Orders        orders.Service
	Escrow        escrow.Service
	Wallet        wallet.Service
	Ledger        ledger.Service
	Notifications notifications.Service
	Settings      controllers.SettingsService
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, d.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    d.DB,
			"redis": d.Redis,
		}))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	critical := middleware.Idempotency(d.Idempotency, middleware.CriticalIdempotencyTTL, logg)
	retryable := middleware.Idempotency(d.Idempotency, middleware.DefaultIdempotencyTTL, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(d.Orders, logg))
			r.With(middleware.RequireRole(logg, enums.ActorRoleBuyer), critical).
				Post("/", ordercontrollers.Place(d.Checkout, logg))

			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(d.Orders, logg))
				r.With(middleware.RequireRole(logg, enums.ActorRoleBuyer)).
					Post("/payment-proof", ordercontrollers.SubmitPaymentProof(d.Escrow, logg))

				r.Route("/units/{merchantId}", func(r chi.Router) {
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireRole(logg, enums.ActorRoleMerchant))
						r.Post("/process", ordercontrollers.StartProcessing(d.Escrow, logg))
						r.Post("/ship", ordercontrollers.Ship(d.Escrow, logg))
						r.Post("/buyer-review", ordercontrollers.SubmitBuyerReview(d.Escrow, logg))
					})
					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireRole(logg, enums.ActorRoleBuyer))
						r.Post("/confirm", ordercontrollers.ConfirmReceipt(d.Escrow, logg))
						r.Post("/dispute", ordercontrollers.OpenDispute(d.Escrow, logg))
						r.Post("/review", ordercontrollers.SubmitReview(d.Escrow, logg))
					})
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleMerchant))
			r.Get("/wallet", controllers.WalletFetch(d.Wallet, logg))
			r.Get("/wallet/ledger", controllers.LedgerList(d.Ledger, logg))
			r.Get("/payouts", controllers.PayoutList(d.Wallet, logg))
			r.With(critical).Post("/payouts", controllers.PayoutRequest(d.Wallet, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(d.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.AdminList(d.Orders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(d.Orders, logg))
				r.Post("/verify", ordercontrollers.AdminVerify(d.Escrow, logg))
				r.Post("/reject", ordercontrollers.AdminReject(d.Escrow, logg))
				r.Post("/units/{merchantId}/resolve", ordercontrollers.AdminResolveDispute(d.Escrow, logg))
			})
		})
		r.Route("/payouts", func(r chi.Router) {
			r.Get("/", controllers.PayoutList(d.Wallet, logg))
			r.With(retryable).Post("/{payoutId}/complete", controllers.AdminPayoutComplete(d.Wallet, logg))
			r.With(retryable).Post("/{payoutId}/reject", controllers.AdminPayoutReject(d.Wallet, logg))
		})
		r.Get("/settings", controllers.AdminSettingsFetch(d.Settings, logg))
		r.Put("/settings", controllers.AdminSettingsUpdate(d.Settings, logg))
	})

	return r
}
