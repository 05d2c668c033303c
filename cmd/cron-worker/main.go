package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eventra-africa/eventra-backend/internal/alerts"
	"github.com/eventra-africa/eventra-backend/internal/balances"
	"github.com/eventra-africa/eventra-backend/internal/cron"
	"github.com/eventra-africa/eventra-backend/internal/ledger"
	"github.com/eventra-africa/eventra-backend/internal/orders"
	"github.com/eventra-africa/eventra-backend/internal/reconcile"
	"github.com/eventra-africa/eventra-backend/internal/settings"
	"github.com/eventra-africa/eventra-backend/internal/votes"
	"github.com/eventra-africa/eventra-backend/pkg/config"
	"github.com/eventra-africa/eventra-backend/pkg/db"
	"github.com/eventra-africa/eventra-backend/pkg/hubtel"
	"github.com/eventra-africa/eventra-backend/pkg/instance"
	"github.com/eventra-africa/eventra-backend/pkg/logger"
	"github.com/eventra-africa/eventra-backend/pkg/metrics"
	"github.com/eventra-africa/eventra-backend/pkg/migrate"
	"github.com/eventra-africa/eventra-backend/pkg/outbox"
	"github.com/eventra-africa/eventra-backend/pkg/outbox/idempotency"
	"github.com/eventra-africa/eventra-backend/pkg/pubsub"
	"github.com/eventra-africa/eventra-backend/pkg/redis"
)

const lockKeyFormat = "eventra:cron-worker:lock:%s"

// alertDedupTTL bounds how long processed alert event IDs stay marked.
const alertDedupTTL = 7 * 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	hubtelClient, err := hubtel.NewClient(cfg.Hubtel, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create hubtel client", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	outboxRepo := outbox.NewRepository(gormDB)
	outboxService := outbox.NewService(outboxRepo, logg)
	financeMetrics := metrics.NewFinanceMetrics(prometheus.DefaultRegisterer)

	ledgerRepo := ledger.NewRepository(gormDB)
	balanceRepo := balances.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)
	voteRepo := votes.NewRepository(gormDB)

	settingsService, err := settings.NewService(settings.Params{
		Repo:    settings.NewRepository(gormDB),
		Finance: cfg.Finance,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
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

	releaseJob, err := cron.NewBalanceReleaseJob(cron.BalanceReleaseJobParams{
		Logger:   logg,
		DB:       dbClient,
		Ledger:   ledgerRepo,
		Balances: balanceRepo,
		Settings: settingsService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create balance release job", err)
		os.Exit(1)
	}

	verifyJob, err := cron.NewVerifyPendingPaymentsJob(cron.VerifyPendingPaymentsJobParams{
		Logger:     logg,
		Orders:     orderRepo,
		Votes:      voteRepo,
		Provider:   hubtelClient,
		Reconciler: reconcileService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create verify pending payments job", err)
		os.Exit(1)
	}

	auditJob, err := cron.NewBalanceAuditJob(cron.BalanceAuditJobParams{
		Logger:   logg,
		DB:       dbClient,
		Repo:     balanceRepo,
		Balances: balanceService,
		Outbox:   outboxService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create balance audit job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outboxRepo,
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	var alertsConsumer *alerts.Consumer
	if cfg.PubSub.FinanceSubscription != "" {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub client", err)
			}
		}()

		alertManager, err := idempotency.NewManager(redisClient, alertDedupTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create alert idempotency manager", err)
			os.Exit(1)
		}
		alertsConsumer, err = alerts.NewConsumer(pubsubClient.FinanceSubscription(), alertManager, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create finance alerts consumer", err)
			os.Exit(1)
		}
	}

	registry := cron.NewRegistry(releaseJob, verifyJob, auditJob, retentionJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting cron worker")

	if alertsConsumer != nil {
		go func() {
			if err := alertsConsumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "finance alerts consumer stopped unexpectedly", err)
				stop()
			}
		}()
	}

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
