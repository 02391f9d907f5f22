// Package bplan serves bank-transfer top-ups: charge orders for members and
// the deposit reconciliation console for admins.
package bplan

import (
	"net/http"

	"github.com/chris/prepaid-credit-ledger/pkg/api"
	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/handlers"
	"github.com/chris/prepaid-credit-ledger/pkg/mapping"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/orders"
	"github.com/chris/prepaid-credit-ledger/pkg/reconciliation"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// BPlanHandler holds the dependencies for charge order and bank
// reconciliation handlers.
type BPlanHandler struct {
	Orders  *orders.Service
	Matcher *reconciliation.Matcher
}

// NewBPlanHandler creates a new BPlanHandler.
func NewBPlanHandler(svc *orders.Service, matcher *reconciliation.Matcher) *BPlanHandler {
	return &BPlanHandler{Orders: svc, Matcher: matcher}
}

// Routes mounts the organization-scoped endpoints.
func (h *BPlanHandler) Routes(r chi.Router) {
	r.Route("/bplan/charge-orders", func(r chi.Router) {
		r.Post("/", h.CreateChargeOrder)
		r.Get("/", h.ListChargeOrders)
		r.Get("/{orderID}", h.GetChargeOrder)
		r.Post("/{orderID}/cancel", h.CancelChargeOrder)
	})
}

// AdminRoutes mounts the reconciliation console behind middleware.RequireAdmin.
func (h *BPlanHandler) AdminRoutes(r chi.Router) {
	r.Route("/bplan", func(r chi.Router) {
		r.Post("/bank-transactions", h.IngestBankTransaction)
		r.Get("/bank-transactions", h.ListBankTransactions)
		r.Post("/bank-transactions/{txID}/ignore", h.IgnoreBankTransaction)
		r.Post("/auto-match", h.AutoMatch)
		r.Post("/manual-match", h.ManualMatch)
		r.Post("/charge-orders/expire", h.ExpireChargeOrders)
		r.Post("/charge-orders/{orderID}/approve", h.ApproveChargeOrder)
		r.Post("/charge-orders/{orderID}/reject", h.RejectChargeOrder)
		r.Post("/charge-orders/{orderID}/verify", h.VerifyChargeOrder)
		r.Post("/charge-orders/{orderID}/lock", h.LockChargeOrder)
		r.Post("/charge-orders/{orderID}/unlock", h.UnlockChargeOrder)
		r.Get("/audit-logs/{refID}", h.ListAuditLogs)
	})
}

// CreateChargeOrder opens a charge order, or hands back the organization's
// open one with 200.
func (h *BPlanHandler) CreateChargeOrder(w http.ResponseWriter, r *http.Request) {
	var body api.CreateOrderRequest
	if err := handlers.Decode(r, &body); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	caller := handlers.Caller(r)
	res, err := h.Orders.CreateChargeOrder(r.Context(), caller.OrganizationID, caller.UserID, body.SupplyAmount)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	handlers.WriteJSON(w, status, res)
}

// ListChargeOrders returns the organization's charge orders.
func (h *BPlanHandler) ListChargeOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListChargeOrders(r.Context(), handlers.Caller(r).OrganizationID)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, list)
}

// GetChargeOrder returns one charge order with the deposit account.
func (h *BPlanHandler) GetChargeOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Orders.GetChargeOrder(r.Context(), handlers.Caller(r).OrganizationID, chi.URLParam(r, "orderID"))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, orders.ChargeOrderResult{Order: order, DepositAccount: h.Orders.DepositAccount()})
}

// CancelChargeOrder withdraws a pending charge order.
func (h *BPlanHandler) CancelChargeOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Orders.CancelChargeOrder(r.Context(), handlers.Caller(r).OrganizationID, chi.URLParam(r, "orderID"))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, order)
}

// IngestBankTransaction records a deposit from the bank feed.
func (h *BPlanHandler) IngestBankTransaction(w http.ResponseWriter, r *http.Request) {
	var body api.IngestBankTransactionRequest
	if err := handlers.Decode(r, &body); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	tx, err := h.Matcher.IngestBankTransaction(r.Context(), mapping.ToIngestInput(&body))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, tx)
}

// ListBankTransactions lists deposits by status, NEW by default.
func (h *BPlanHandler) ListBankTransactions(w http.ResponseWriter, r *http.Request) {
	var params api.ListBankTransactionsParams
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "status", q, &params.Status); err != nil {
		handlers.WriteError(w, r, credit.NewValidationError("status", "%v", err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &params.Limit); err != nil {
		handlers.WriteError(w, r, credit.NewValidationError("limit", "%v", err))
		return
	}

	status := models.BankTransactionNew
	if params.Status != nil && *params.Status != "" {
		status = models.BankTransactionStatus(*params.Status)
		switch status {
		case models.BankTransactionNew, models.BankTransactionMatched, models.BankTransactionIgnored:
		default:
			handlers.WriteError(w, r, credit.NewValidationError("status", "unknown bank transaction status %q", status))
			return
		}
	}
	var limit int
	if params.Limit != nil {
		limit = *params.Limit
	}

	txs, err := h.Matcher.ListBankTransactions(r.Context(), status, limit)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, txs)
}

// IgnoreBankTransaction sets a NEW deposit aside.
func (h *BPlanHandler) IgnoreBankTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.Matcher.IgnoreBankTransaction(r.Context(), chi.URLParam(r, "txID"))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, tx)
}

// AutoMatch runs one sweep. An empty body uses the default limit.
func (h *BPlanHandler) AutoMatch(w http.ResponseWriter, r *http.Request) {
	var body api.SweepRequest
	if err := decodeOptional(r, &body); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	res, err := h.Matcher.AutoMatchOnce(r.Context(), body.Limit)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, res)
}

// ManualMatch pairs a deposit with a charge order on the admin's say-so.
func (h *BPlanHandler) ManualMatch(w http.ResponseWriter, r *http.Request) {
	var body api.ManualMatchRequest
	if err := handlers.Decode(r, &body); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	res, err := h.Matcher.ManualMatch(r.Context(), mapping.ToManualMatchInput(handlers.Actor(r), &body))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	h.Orders.InvalidateBalance(res.ChargeOrder.OrganizationID)
	handlers.WriteJSON(w, http.StatusOK, res)
}

// ExpireChargeOrders closes pending orders past their deposit window.
func (h *BPlanHandler) ExpireChargeOrders(w http.ResponseWriter, r *http.Request) {
	n, err := h.Orders.ExpireChargeOrders(r.Context())
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, api.ExpireResult{Expired: n})
}

// decodeOptional decodes the body when there is one.
func decodeOptional(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	return handlers.Decode(r, v)
}

// ApproveChargeOrder signs off a charge order. The body and its note are optional.
func (h *BPlanHandler) ApproveChargeOrder(w http.ResponseWriter, r *http.Request) {
	var body api.ChargeOrderReviewRequest
	if err := decodeOptional(r, &body); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	order, err := h.Orders.ApproveChargeOrder(r.Context(), chi.URLParam(r, "orderID"), handlers.Actor(r), body.Note)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, order)
}

// RejectChargeOrder turns a charge order down with a note.
func (h *BPlanHandler) RejectChargeOrder(w http.ResponseWriter, r *http.Request) {
	var body api.ChargeOrderReviewRequest
	if err := decodeOptional(r, &body); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	order, err := h.Orders.RejectChargeOrder(r.Context(), chi.URLParam(r, "orderID"), handlers.Actor(r), body.Note)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, order)
}

func (h *BPlanHandler) VerifyChargeOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Orders.VerifyChargeOrder(r.Context(), chi.URLParam(r, "orderID"), handlers.Actor(r))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, order)
}

// LockChargeOrder freezes spending for the order's organization.
func (h *BPlanHandler) LockChargeOrder(w http.ResponseWriter, r *http.Request) {
	var body api.LockChargeOrderRequest
	if err := decodeOptional(r, &body); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	order, err := h.Orders.LockChargeOrder(r.Context(), chi.URLParam(r, "orderID"), handlers.Actor(r), body.Reason)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, order)
}

func (h *BPlanHandler) UnlockChargeOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Orders.UnlockChargeOrder(r.Context(), chi.URLParam(r, "orderID"), handlers.Actor(r))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, order)
}

// ListAuditLogs returns the admin actions on a charge order or bank transaction.
func (h *BPlanHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.Orders.AuditTrail(r.Context(), chi.URLParam(r, "refID"))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	handlers.WriteJSON(w, http.StatusOK, logs)
}
