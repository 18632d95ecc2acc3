// Command finman-events follows the expense event stream and logs every
// change made through the web app. It needs AMQP_URL.
package main

import (
	"context"
	"errors"
	"os"

	"finman/internal/amqp"
	"finman/internal/cli"
	applog "finman/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg).WithComponent(applog.ComponentAMQP)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required",
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
	if err != nil {
		logger.Error("Failed to connect to AMQP", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	logger.Info("Following expense events",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)

	err = client.ConsumeWithRetry(ctx, cfg.AMQPQueue, func(ctx context.Context, e *amqp.ExpenseEvent) error {
		logger.InfoContext(ctx, "Expense event",
			"event_id", e.EventID.String(),
			"type", e.Type,
			applog.FieldExpenseID, e.ExpenseID,
			"timestamp", e.Timestamp)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption stopped", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Event follower stopped")
}
