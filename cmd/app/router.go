package main

import (
	"log/slog"
	"net/http"

	"github.com/chris/prepaid-credit-ledger/pkg/bootstrap"
	"github.com/chris/prepaid-credit-ledger/pkg/handlers/bplan"
	"github.com/chris/prepaid-credit-ledger/pkg/handlers/credits"
	"github.com/chris/prepaid-credit-ledger/pkg/handlers/ledger"
	"github.com/chris/prepaid-credit-ledger/pkg/handlers/requests"
	"github.com/chris/prepaid-credit-ledger/pkg/handlers/webhooks"
	"github.com/chris/prepaid-credit-ledger/pkg/middleware"
	"github.com/chris/prepaid-credit-ledger/pkg/scheduler"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newRouter mounts every handler. Payment callbacks and /metrics sit
// outside the identity middleware.
func newRouter(app *bootstrap.App, queue scheduler.Queue, logger *slog.Logger) http.Handler {
	creditsHandler := credits.NewCreditsHandler(app.Orders, app.Coord, queue)
	bplanHandler := bplan.NewBPlanHandler(app.Orders, app.Matcher)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewStructuredLogger(logger))
	r.Use(middleware.Metrics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())
	webhooks.NewWebhooksHandler(app.Ingestor, app.Config.WebhookMaxBytes, logger).Routes(r)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Identify)

		creditsHandler.Routes(r)
		bplanHandler.Routes(r)
		requests.NewRequestsHandler(app.Coord, app.Store, queue, app.Orders).Routes(r)
		ledger.NewLedgerHandler(app.Store).Routes(r)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			creditsHandler.AdminRoutes(r)
			bplanHandler.AdminRoutes(r)
		})
	})
	return r
}
