package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/escrowmarket/api/routes"
	"github.com/angelmondragon/escrowmarket/internal/checkout"
	"github.com/angelmondragon/escrowmarket/internal/escrow"
	"github.com/angelmondragon/escrowmarket/internal/ledger"
	"github.com/angelmondragon/escrowmarket/internal/marketsettings"
	"github.com/angelmondragon/escrowmarket/internal/notifications"
	"github.com/angelmondragon/escrowmarket/internal/orders"
	"github.com/angelmondragon/escrowmarket/internal/wallet"
	"github.com/angelmondragon/escrowmarket/pkg/config"
	"github.com/angelmondragon/escrowmarket/pkg/db"
	"github.com/angelmondragon/escrowmarket/pkg/env"
	"github.com/angelmondragon/escrowmarket/pkg/logger"
	"github.com/angelmondragon/escrowmarket/pkg/metrics"
	"github.com/angelmondragon/escrowmarket/pkg/migrate"
	"github.com/angelmondragon/escrowmarket/pkg/pubsub"
	"github.com/angelmondragon/escrowmarket/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	notificationsRepo := notifications.NewRepository(dbClient.DB())
	inbox, err := notifications.NewInboxSink(notificationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create inbox sink", err)
		os.Exit(1)
	}
	sinks := notifications.MultiSink{inbox}
	if cfg.PubSub.Enabled() {
		psClient, err := pubsub.NewClient(context.Background(), cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer psClient.Close()
		publisher := psClient.NotificationPublisher()
		defer publisher.Stop()
		psSink, err := notifications.NewPubSubSink(publisher)
		if err != nil {
			logg.Error(context.Background(), "failed to create pubsub sink", err)
			os.Exit(1)
		}
		sinks = append(sinks, psSink)
	}
	dispatcher := notifications.NewDispatcher(sinks, logg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	escrowMetrics := metrics.NewEscrowMetrics(reg)

	settings := marketsettings.NewService(cfg.Marketplace, redisClient)
	ordersRepo := orders.NewRepository(dbClient.DB())
	catalogRepo := checkout.NewCatalogRepository(dbClient.DB())

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
		Orders:     ordersRepo,
		Catalog:    catalogRepo,
		Wallet:     walletService,
		Dispatcher: dispatcher,
		Metrics:    escrowMetrics,
		Logger:     logg,
	})
	exitOnErr(logg, "failed to create escrow service", err)

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		TxRunner:   dbClient,
		Catalog:    catalogRepo,
		Orders:     ordersRepo,
		Settings:   settings,
		Dispatcher: dispatcher,
		Metrics:    escrowMetrics,
		Logger:     logg,
	})
	exitOnErr(logg, "failed to create checkout service", err)

	ordersService, err := orders.NewService(ordersRepo)
	exitOnErr(logg, "failed to create orders service", err)

	notificationsService, err := notifications.NewService(notificationsRepo)
	exitOnErr(logg, "failed to create notifications service", err)

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Idempotency:   redisClient,
			Gatherer:      reg,
			HTTPMetrics:   metrics.NewHTTPMetrics(reg),
			Checkout:      checkoutService,
			Orders:        ordersService,
			Escrow:        escrowService,
			Wallet:        walletService,
			Ledger:        ledgerService,
			Notifications: notificationsService,
			Settings:      settings,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "api server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func exitOnErr(logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
