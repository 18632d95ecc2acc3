package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"finman/internal/cli"
	apphttp "finman/internal/http"
	applog "finman/internal/log"
	"finman/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	repo := cli.InitStore(ctx, logger, cfg.DBPath)

	// A nil *amqp.Client must not become a non-nil interface.
	var publisher services.EventPublisher
	if client := cli.InitPublisher(logger, cfg); client != nil {
		defer client.Close()
		publisher = client
	}

	svc := services.NewExpenseService(repo, publisher, cfg.CurrencySymbol)

	srv, err := apphttp.NewServer(":"+cfg.Port, svc, logger, apphttp.Options{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:    cfg.TrustedProxies,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server",
			applog.FieldErrorType, applog.ErrorTypeConfiguration,
			applog.FieldError, err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting finman server",
			applog.FieldOperation, applog.OpStartup,
			"port", cfg.Port,
			"db_path", cfg.DBPath,
			"events", publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
