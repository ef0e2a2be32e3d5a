package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/orderdeskhq/orderdesk-backend/api/routes"
	addresssvc "github.com/orderdeskhq/orderdesk-backend/internal/addresses"
	cartsvc "github.com/orderdeskhq/orderdesk-backend/internal/cart"
	"github.com/orderdeskhq/orderdesk-backend/internal/cron"
	customersvc "github.com/orderdeskhq/orderdesk-backend/internal/customers"
	"github.com/orderdeskhq/orderdesk-backend/internal/draft"
	pricingsvc "github.com/orderdeskhq/orderdesk-backend/internal/pricing"
	submitsvc "github.com/orderdeskhq/orderdesk-backend/internal/submit"
	"github.com/orderdeskhq/orderdesk-backend/pkg/config"
	"github.com/orderdeskhq/orderdesk-backend/pkg/logger"
	"github.com/orderdeskhq/orderdesk-backend/pkg/metrics"
	"github.com/orderdeskhq/orderdesk-backend/pkg/pubsub"
	"github.com/orderdeskhq/orderdesk-backend/pkg/redis"
	"github.com/orderdeskhq/orderdesk-backend/pkg/storeapi"
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

	promRegistry := prometheus.NewRegistry()
	composerMetrics := metrics.NewComposerMetrics(promRegistry)
	jobMetrics := metrics.NewJobMetrics(promRegistry)

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	storeClient, err := storeapi.NewClient(cfg.StoreAPI.BaseURL, cfg.StoreAPI.APIKey,
		storeapi.WithTimeout(cfg.StoreAPI.Timeout))
	if err != nil {
		logg.Error(context.Background(), "failed to build store client", err)
		os.Exit(1)
	}

	var pubsubClient *pubsub.Client
	if cfg.EventingEnabled() {
		pubsubClient, err = pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "eventing disabled, order events will not publish")
	}

	registry := draft.NewRegistry(cfg.Composer.DraftTTL, cfg.Composer.SearchDebounce)

	pricing := pricingsvc.NewService(storeClient, cfg.Composer.Currency, logg, composerMetrics)
	addresses := addresssvc.NewService(storeClient, pricing, cfg.Composer.HomeCountryID, logg, composerMetrics)
	customers := customersvc.NewService(storeClient, addresses, logg, composerMetrics)
	cart := cartsvc.NewService(storeClient, pricing, logg, composerMetrics)

	var events submitsvc.EventPublisher
	if pubsubClient != nil {
		events = pubsubClient
	}
	submit := submitsvc.NewService(storeClient, registry, events, cfg.Composer.Currency, logg, composerMetrics)

	expiryJob, err := cron.NewDraftExpiryJob(registry, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build draft expiry job", err)
		os.Exit(1)
	}
	cronService, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(expiryJob),
		Lock:     cron.NewLocalLock(),
		Metrics:  jobMetrics,
		Interval: cfg.Composer.SweepInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := cronService.Run(ctx); err != nil && ctx.Err() == nil {
			logg.Error(ctx, "cron service stopped unexpectedly", err)
		}
	}()

	deps := routes.Deps{
		Cfg:       cfg,
		Logg:      logg,
		Registry:  registry,
		Customers: customers,
		Addresses: addresses,
		Cart:      cart,
		Pricing:   pricing,
		Submit:    submit,
		Redis:     redisClient,
		Metrics:   promRegistry,
	}
	if pubsubClient != nil {
		deps.EventsPing = pubsubClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	logCtx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(deps),
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var closeErr error
	closeErr = multierr.Append(closeErr, server.Shutdown(shutdownCtx))
	closeErr = multierr.Append(closeErr, redisClient.Close())
	if pubsubClient != nil {
		closeErr = multierr.Append(closeErr, pubsubClient.Close())
	}
	if closeErr != nil {
		logg.Error(logCtx, "shutdown finished with errors", closeErr)
		os.Exit(1)
	}
	logg.Info(logCtx, "shutdown complete")
}
