package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eventra-africa/eventra-backend/api/controllers"
	webhookcontrollers "github.com/eventra-africa/eventra-backend/api/controllers/webhooks"
	"github.com/eventra-africa/eventra-backend/api/middleware"
	"github.com/eventra-africa/eventra-backend/internal/balances"
	"github.com/eventra-africa/eventra-backend/internal/ledger"
	"github.com/eventra-africa/eventra-backend/internal/orders"
	"github.com/eventra-africa/eventra-backend/internal/payouts"
	"github.com/eventra-africa/eventra-backend/internal/reconcile"
	"github.com/eventra-africa/eventra-backend/internal/settings"
	"github.com/eventra-africa/eventra-backend/internal/votes"
	"github.com/eventra-africa/eventra-backend/pkg/config"
	"github.com/eventra-africa/eventra-backend/pkg/db"
	"github.com/eventra-africa/eventra-backend/pkg/enums"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
	"github.com/eventra-africa/eventra-backend/pkg/paystack"
	"github.com/eventra-africa/eventra-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         db.Pinger
	Redis      *redis.Client
	Paystack   *paystack.Client
	Reconciler reconcile.Service
	Orders     orders.Service
	Votes      votes.Service
	Payouts    payouts.Service
	Balances   balances.Service
	Ledger     ledger.Service
	Settings   settings.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	webhookPolicy := middleware.NewWebhookRateLimitPolicy(
		"payments",
		cfg.WebhookRL.Window,
		cfg.WebhookRL.IPLimit,
		cfg.WebhookRL.ReferenceLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	r.Get("/api/public/ping", controllers.PublicPing())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Use(middleware.WebhookRateLimit(webhookPolicy, deps.Redis, logg))
		r.Post("/paystack", webhookcontrollers.PaystackWebhook(deps.Paystack, deps.Reconciler, deps.Redis, logg))
		r.Post("/hubtel", webhookcontrollers.HubtelWebhook(deps.Reconciler, deps.Redis, logg))
	})

	// Public checkout: orders and vote purchases open pending payments.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.Redis, logg))
		r.Post("/api/v1/orders", controllers.CreateOrder(deps.Orders, logg))
		r.Post("/api/v1/votes", controllers.CreateVotePurchase(deps.Votes, logg))
	})

	// Admin finance surface.
	r.Group(func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.RequireRole(string(enums.RoleAdmin), logg),
			middleware.Idempotency(deps.Redis, logg),
		)
		r.Get("/api/v1/admin/ping", controllers.AdminPing())
		r.Route("/api/v1/payouts", func(r chi.Router) {
			r.Post("/", controllers.RequestPayout(deps.Payouts, logg))
			r.Get("/{payoutID}", controllers.GetPayout(deps.Payouts, logg))
			r.Post("/{payoutID}/approve", controllers.ApprovePayout(deps.Payouts, logg))
			r.Post("/{payoutID}/reject", controllers.RejectPayout(deps.Payouts, logg))
			r.Post("/{payoutID}/complete", controllers.CompletePayout(deps.Payouts, logg))
		})
		r.Route("/api/v1/organizers/{organizerID}", func(r chi.Router) {
			r.Get("/balance", controllers.GetOrganizerBalance(deps.Balances, logg))
			r.Post("/balance/recalculate", controllers.RecalculateOrganizerBalance(deps.Balances, logg))
			r.Get("/ledger", controllers.ListOrganizerLedger(deps.Ledger, logg))
			r.Get("/payouts", controllers.ListOrganizerPayouts(deps.Payouts, logg))
		})
		r.Put("/api/v1/admin/settings", controllers.UpdateSetting(deps.Settings, logg))
	})

	return r
}
