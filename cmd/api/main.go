package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eventra-africa/eventra-backend/api/routes"
	"github.com/eventra-africa/eventra-backend/internal/balances"
	"github.com/eventra-africa/eventra-backend/internal/ledger"
	"github.com/eventra-africa/eventra-backend/internal/orders"
	"github.com/eventra-africa/eventra-backend/internal/payouts"
	"github.com/eventra-africa/eventra-backend/internal/reconcile"
	"github.com/eventra-africa/eventra-backend/internal/settings"
	"github.com/eventra-africa/eventra-backend/internal/split"
	"github.com/eventra-africa/eventra-backend/internal/votes"
	"github.com/eventra-africa/eventra-backend/pkg/config"
	"github.com/eventra-africa/eventra-backend/pkg/db"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
	"github.com/eventra-africa/eventra-backend/pkg/metrics"
	"github.com/eventra-africa/eventra-backend/pkg/migrate"
	"github.com/eventra-africa/eventra-backend/pkg/outbox"
	"github.com/eventra-africa/eventra-backend/pkg/paystack"
	"github.com/eventra-africa/eventra-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	paystackClient, err := paystack.NewClient(cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)
	financeMetrics := metrics.NewFinanceMetrics(prometheus.DefaultRegisterer)

	ledgerRepo := ledger.NewRepository(gormDB)
	balanceRepo := balances.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)
	voteRepo := votes.NewRepository(gormDB)
	payoutRepo := payouts.NewRepository(gormDB)

	settingsService, err := settings.NewService(settings.Params{
		Repo:    settings.NewRepository(gormDB),
		Finance: cfg.Finance,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	splitCalculator := split.NewCalculator()

	orderService, err := orders.NewService(orders.Params{
		Repo:     orderRepo,
		Tx:       dbClient,
		Split:    splitCalculator,
		Settings: settingsService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	voteService, err := votes.NewService(votes.Params{
		Repo:     voteRepo,
		Tx:       dbClient,
		Split:    splitCalculator,
		Settings: settingsService,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create votes service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledgerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	balanceService, err := balances.NewService(balances.Params{
		Repo:   balanceRepo,
		Ledger: ledgerRepo,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create balances service", err)
		os.Exit(1)
	}

	payoutService, err := payouts.NewService(payouts.Params{
		Repo:     payoutRepo,
		Tx:       dbClient,
		Balances: balanceRepo,
		Ledger:   ledgerRepo,
		Settings: settingsService,
		Outbox:   outboxService,
		Metrics:  financeMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payouts service", err)
		os.Exit(1)
	}

	reconcileService, err := reconcile.NewService(reconcile.Params{
		Tx:            dbClient,
		Orders:        orderRepo,
		Votes:         voteRepo,
		Ledger:        ledgerRepo,
		Balances:      balanceRepo,
		Outbox:        outboxService,
		Metrics:       financeMetrics,
		Logger:        logg,
		PendingMaxAge: cfg.Finance.PendingPaymentMaxAge,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			Paystack:   paystackClient,
			Reconciler: reconcileService,
			Orders:     orderService,
			Votes:      voteService,
			Payouts:    payoutService,
			Balances:   balanceService,
			Ledger:     ledgerService,
			Settings:   settingsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
