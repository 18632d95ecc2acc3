// Package cli provides common CLI initialization utilities shared by
// cmd/finman and cmd/finman-events.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finman/internal/amqp"
	"finman/internal/config"
	applog "finman/internal/log"
	"finman/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from configuration and installs it
// as the slog default, so packages logging through slog share its handler.
func SetupLogger(cfg *config.Config) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: applog.ComponentApp,
		Output:    os.Stderr,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process on validation failure; logging is not configured yet,
// so the bootstrap logger reports it.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		applog.New(applog.DefaultConfig()).Error("Configuration validation failed",
			applog.FieldErrorType, applog.ErrorTypeConfiguration,
			applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitStore creates the expense store and ensures its schema. The
// application must not start without it, so failure exits the process.
func InitStore(ctx context.Context, logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo := storage.NewSQLiteRepository(dbPath)
	if err := repo.Initialize(ctx); err != nil {
		logger.Error("Failed to initialize expense store",
			applog.FieldErrorType, applog.ErrorTypeDatabase,
			applog.FieldError, err,
			"path", dbPath)
		os.Exit(1)
	}
	return repo
}

// InitPublisher connects the optional event publisher. A broker that is
// down at startup only disables events; expenses still work.
func InitPublisher(logger *applog.Logger, cfg *config.Config) *amqp.Client {
	if !cfg.AMQPEnabled() {
		logger.Info("AMQP disabled, expense events will not be published")
		return nil
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
	if err != nil {
		logger.Warn("AMQP unavailable, expense events will not be published",
			applog.FieldError, err,
			"exchange", cfg.AMQPExchange)
		return nil
	}

	logger.Info("AMQP publisher connected",
		"exchange", cfg.AMQPExchange,
		"routing_key", cfg.AMQPRoutingKey)
	return client
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down", applog.FieldOperation, applog.OpShutdown)
	}()
	return ctx, stop
}
