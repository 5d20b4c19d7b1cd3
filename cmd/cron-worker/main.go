package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/escrowmarket/internal/checkout"
	"github.com/angelmondragon/escrowmarket/internal/cron"
	"github.com/angelmondragon/escrowmarket/internal/escrow"
	"github.com/angelmondragon/escrowmarket/internal/ledger"
	"github.com/angelmondragon/escrowmarket/internal/marketsettings"
	"github.com/angelmondragon/escrowmarket/internal/notifications"
	"github.com/angelmondragon/escrowmarket/internal/orders"
	"github.com/angelmondragon/escrowmarket/internal/wallet"
	"github.com/angelmondragon/escrowmarket/pkg/config"
	"github.com/angelmondragon/escrowmarket/pkg/db"
	"github.com/angelmondragon/escrowmarket/pkg/logger"
	"github.com/angelmondragon/escrowmarket/pkg/metrics"
	"github.com/angelmondragon/escrowmarket/pkg/migrate"
	"github.com/angelmondragon/escrowmarket/pkg/pubsub"
	"github.com/angelmondragon/escrowmarket/pkg/redis"
)

func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

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

	notificationsRepo := notifications.NewRepository(dbClient.DB())
	inbox, err := notifications.NewInboxSink(notificationsRepo)
	exitOnErr(logg, "failed to create inbox sink", err)
	sinks := notifications.MultiSink{inbox}
	if cfg.PubSub.Enabled() {
		psClient, err := pubsub.NewClient(context.Background(), cfg.PubSub, logg)
		exitOnErr(logg, "failed to bootstrap pubsub", err)
		defer psClient.Close()
		publisher := psClient.NotificationPublisher()
		defer publisher.Stop()
		psSink, err := notifications.NewPubSubSink(publisher)
		exitOnErr(logg, "failed to create pubsub sink", err)
		sinks = append(sinks, psSink)
	}
	dispatcher := notifications.NewDispatcher(sinks, logg)

	settings := marketsettings.NewService(cfg.Marketplace, redisClient)

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	exitOnErr(logg, "failed to create ledger service", err)

	walletService, err := wallet.NewService(wallet.ServiceParams{
		TxRunner:   dbClient,
		Repo:       wallet.NewRepository(dbClient.DB()),
		Ledger:     ledgerService,
		Settings:   settings,
		Dispatcher: dispatcher,
		Logger:     logg,
	})
	exitOnErr(logg, "failed to create wallet service", err)

	escrowService, err := escrow.NewService(escrow.ServiceParams{
		TxRunner:   dbClient,
		Orders:     orders.NewRepository(dbClient.DB()),
		Catalog:    checkout.NewCatalogRepository(dbClient.DB()),
		Wallet:     walletService,
		Dispatcher: dispatcher,
		Metrics:    metrics.NewEscrowMetrics(prometheus.DefaultRegisterer),
		Logger:     logg,
	})
	exitOnErr(logg, "failed to create escrow service", err)

	expiryJob, err := cron.NewOrderExpiryJob(cron.OrderExpiryJobParams{
		Logger:    logg,
		Escrow:    escrowService,
		BatchSize: cfg.Cron.BatchSize,
	})
	exitOnErr(logg, "failed to create order expiry job", err)

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: notificationsRepo,
		Retention:  cfg.Cron.NotificationRetention,
	})
	exitOnErr(logg, "failed to create notification cleanup job", err)

	registry, err := cron.NewRegistry(expiryJob, cleanupJob)
	exitOnErr(logg, "failed to build job registry", err)

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron"), cfg.Cron.LockTTL)
	exitOnErr(logg, "failed to create cron lock", err)

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	exitOnErr(logg, "failed to create cron service", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	if *once {
		logg.Info(ctx, "running single cron cycle")
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func exitOnErr(logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
