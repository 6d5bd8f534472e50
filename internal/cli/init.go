// Package cli provides the start-up and shutdown steps of cmd/costs.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"costs/internal/config"
	"costs/internal/log"
	"costs/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the application logger from cfg and installs it as the
// slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	logger := log.New(log.Config{
		Level:     level,
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
	})
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", log.FieldError, err)
	}
	return logger
}

// InitStore opens the cost store at the configured schema version.
func InitStore(ctx context.Context, logger *log.Logger, cfg *config.Config) (*storage.Store, error) {
	store, err := storage.Open(ctx, cfg.SQLiteDBPath, uint(cfg.SchemaVersion))
	if err != nil {
		return nil, fmt.Errorf("init store %s: %w", cfg.SQLiteDBPath, err)
	}
	logger.WithComponent(log.ComponentStorage).Info("Cost store ready",
		"path", cfg.SQLiteDBPath, "schema_version", cfg.SchemaVersion)
	return store, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}()
	return ctx, cancel
}
