package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"costs/internal/amqp"
	"costs/internal/cache"
	"costs/internal/cli"
	apphttp "costs/internal/http"
	"costs/internal/log"
	"costs/internal/prefs"
	"costs/internal/rates"
	"costs/internal/report"
	"costs/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	store, err := cli.InitStore(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to open cost store", log.FieldError, err)
		os.Exit(1)
	}
	defer store.Close()

	preferences, err := prefs.Open(cfg.PrefsPath, cfg.DefaultRatesURL())
	if err != nil {
		logger.Error("Failed to load preferences", log.FieldError, err, "path", cfg.PrefsPath)
		os.Exit(1)
	}
	logger.WithComponent(log.ComponentPrefs).Info("Preferences loaded",
		"rates_url", preferences.RatesURL(), "default", preferences.IsDefault())

	janitor := cache.NewJanitor(logger.Logger)
	defer janitor.Stop()

	source := rates.NewCachedSource(rates.NewHTTPSource(preferences, cfg.RatesTimeout), preferences, cfg.RatesCacheTTL)
	if cached, ok := source.(*rates.CachedSource); ok {
		janitor.Register(cached.Cleaner())
		janitor.Start(cfg.RatesCacheTTL)
		logger.WithComponent(log.ComponentRates).Info("Rate caching enabled", "ttl", cfg.RatesCacheTTL)
	}

	// Only assign the publisher when the client exists; a nil *amqp.Client in
	// the interface would not compare equal to nil.
	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.WithComponent(log.ComponentAMQP).Warn("AMQP unavailable, cost events disabled", log.FieldError, err)
		} else {
			publisher = client
			logger.WithComponent(log.ComponentAMQP).Info("AMQP publisher connected",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewCostService(store, publisher)
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Error("Failed to close cost service", log.FieldError, err)
		}
	}()

	opts := apphttp.Options{
		Costs:    svc,
		Reports:  report.New(store, source),
		Settings: preferences,
		Ready: func(ctx context.Context) error {
			_, err := store.SchemaVersion(ctx)
			return err
		},
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	}
	if cfg.ServeStaticRates {
		opts.StaticRates = rates.StaticHandler(rates.DefaultTable())
	}
	srv := apphttp.NewServer(":"+cfg.Port, opts)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	}()

	logger.Info("Starting costs server", "port", cfg.Port, "static_rates", cfg.ServeStaticRates)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-shutdownDone
	logger.Info("Server stopped gracefully")
}
