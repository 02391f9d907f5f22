package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/bootstrap"
	"github.com/chris/prepaid-credit-ledger/pkg/config"
	"github.com/chris/prepaid-credit-ledger/pkg/logger"
	"github.com/chris/prepaid-credit-ledger/pkg/scheduler"
	"golang.org/x/sync/errgroup"
)

const (
	localQueueSize  = 256
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.LogLevel)
	slog.SetDefault(appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("failed to bootstrap", "error", err)
		os.Exit(1)
	}

	g, ctx := errgroup.WithContext(ctx)

	var queue scheduler.Queue
	if cfg.UseMemoryStore() || cfg.SQSQueueURL == "" {
		if cfg.IsProduction() {
			appLogger.Error("SQS_QUEUE_URL environment variable not set")
			os.Exit(1)
		}
		local := scheduler.NewLocalQueue(localQueueSize, app.Processor().Handler(), appLogger)
		g.Go(func() error { return local.Run(ctx) })
		queue = local
		appLogger.Info("settlement tasks run in-process")
	} else {
		sqsQueue, err := app.SQSQueue()
		if err != nil {
			appLogger.Error("failed to create task queue", "error", err)
			os.Exit(1)
		}
		queue = sqsQueue
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           newRouter(app, queue, appLogger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		appLogger.Info("starting server", "port", cfg.HTTPPort, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		appLogger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
