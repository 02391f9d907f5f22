package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chris/prepaid-credit-ledger/pkg/bootstrap"
	"github.com/chris/prepaid-credit-ledger/pkg/config"
	"github.com/chris/prepaid-credit-ledger/pkg/logger"
)

var app *bootstrap.App

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	appLogger := logger.New(cfg.LogLevel)
	slog.SetDefault(appLogger)

	app, err = bootstrap.New(context.Background(), cfg, appLogger)
	if err != nil {
		log.Fatalf("failed to bootstrap: %v", err)
	}
}

// SweepResult is returned to the scheduler for the invocation log.
type SweepResult struct {
	Scanned int `json:"scanned"`
	Matched int `json:"matched"`
	Expired int `json:"expired"`
}

// HandleRequest is triggered by an EventBridge Schedule. It matches new bank
// deposits against open charge orders, then expires stale charge orders.
// Expiry runs second so a deposit that arrived just before the deadline
// still matches.
func HandleRequest(ctx context.Context) (SweepResult, error) {
	sweep, err := app.Matcher.AutoMatchOnce(ctx, app.Config.SweepLimit)
	if err != nil {
		app.Logger.ErrorContext(ctx, "auto-match sweep failed", "error", err)
		return SweepResult{}, err
	}

	expired, err := app.Orders.ExpireChargeOrders(ctx)
	if err != nil {
		app.Logger.ErrorContext(ctx, "failed to expire charge orders", "error", err)
		return SweepResult{Scanned: sweep.Scanned, Matched: sweep.Matched}, err
	}

	app.Logger.InfoContext(ctx, "reconciliation sweep finished",
		"scanned", sweep.Scanned, "matched", sweep.Matched, "expired", expired)
	return SweepResult{Scanned: sweep.Scanned, Matched: sweep.Matched, Expired: expired}, nil
}

func main() {
	lambda.Start(HandleRequest)
}
