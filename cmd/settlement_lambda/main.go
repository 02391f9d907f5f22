package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chris/prepaid-credit-ledger/pkg/bootstrap"
	"github.com/chris/prepaid-credit-ledger/pkg/config"
	"github.com/chris/prepaid-credit-ledger/pkg/logger"
	"github.com/chris/prepaid-credit-ledger/pkg/worker"
)

var processor *worker.Processor

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	appLogger := logger.New(cfg.LogLevel)
	slog.SetDefault(appLogger)

	// Initialize dependencies once per container.
	app, err := bootstrap.New(context.Background(), cfg, appLogger)
	if err != nil {
		log.Fatalf("failed to bootstrap: %v", err)
	}
	processor = app.Processor()
}

// Settlement tasks (cancel refunds, withdraw refunds) arrive from SQS. Failed
// messages are reported per item so only they are redelivered.
func main() {
	lambda.Start(processor.HandleSQS)
}
