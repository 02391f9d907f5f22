package credits

import (
	"net/http"

	"github.com/chris/prepaid-credit-ledger/pkg/api"
	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/handlers"
	"github.com/chris/prepaid-credit-ledger/pkg/mapping"
	"github.com/chris/prepaid-credit-ledger/pkg/orders"
	"github.com/chris/prepaid-credit-ledger/pkg/scheduler"
	"github.com/chris/prepaid-credit-ledger/pkg/settlement"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// CreditsHandler holds the dependencies for balance, credit order and
// refund handlers.
type CreditsHandler struct {
	Orders *orders.Service
	Coord  *settlement.Coordinator
	Queue  scheduler.Queue
}

// NewCreditsHandler creates a new CreditsHandler.
func NewCreditsHandler(svc *orders.Service, coord *settlement.Coordinator, queue scheduler.Queue) *CreditsHandler {
	return &CreditsHandler{Orders: svc, Coord: coord, Queue: queue}
}

// Routes mounts the organization-scoped endpoints.
func (h *CreditsHandler) Routes(r chi.Router) {
	r.Route("/credits", func(r chi.Router) {
		r.Get("/balance", h.GetBalance)
		r.Get("/orders", h.ListCreditOrders)
		r.Post("/orders", h.CreateCreditOrder)
		r.Post("/orders/confirm", h.ConfirmCreditOrder)
		r.Get("/orders/{orderID}", h.GetCreditOrder)
		r.Post("/orders/{orderID}/cancel", h.CancelCreditOrder)
		r.Post("/refund", h.RequestRefund)
		r.Post("/withdraw", h.Withdraw)
	})
}

// AdminRoutes mounts the endpoints behind middleware.RequireAdmin.
func (h *CreditsHandler) AdminRoutes(r chi.Router) {
	r.Route("/credits", func(r chi.Router) {
		r.Post("/bonus", h.GrantBonus)
		r.Post("/adjust", h.Adjust)
		r.Post("/refund", h.AdminRefund)
	})
}

// GetBalance returns the caller organization's balance.
func (h *CreditsHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	org := handlers.Caller(r).OrganizationID
	b, err := h.Orders.Balance(r.Context(), org)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, mapping.ToApiBalance(org, b))
}

// ListCreditOrders returns the organization's credit orders, newest first.
func (h *CreditsHandler) ListCreditOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.ListCreditOrders(r.Context(), handlers.Caller(r).OrganizationID)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, list)
}

// CreateCreditOrder starts a gateway top-up.
func (h *CreditsHandler) CreateCreditOrder(w http.ResponseWriter, r *http.Request) {
	var body api.CreateOrderRequest
	if err := handlers.Decode(r, &body); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	caller := handlers.Caller(r)
	order, err := h.Orders.CreateCreditOrder(r.Context(), caller.OrganizationID, caller.UserID, body.SupplyAmount)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, order)
}

// GetCreditOrder returns one of the organization's credit orders.
func (h *CreditsHandler) GetCreditOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Orders.GetCreditOrder(r.Context(), handlers.Caller(r).OrganizationID, chi.URLParam(r, "orderID"))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, order)
}

// ConfirmCreditOrder approves an authorized payment with the gateway.
func (h *CreditsHandler) ConfirmCreditOrder(w http.ResponseWriter, r *http.Request) {
	var body api.ConfirmCreditOrderRequest
	if err := handlers.Decode(r, &body); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	order, err := h.Orders.ConfirmCreditOrder(r.Context(), handlers.Caller(r).OrganizationID, mapping.ToConfirmInput(&body))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, order)
}

// CancelCreditOrder cancels an order that was not paid yet.
func (h *CreditsHandler) CancelCreditOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Orders.CancelCreditOrder(r.Context(), handlers.Caller(r).OrganizationID, chi.URLParam(r, "orderID"))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, order)
}

// RequestRefund is closed to members: paid credit only goes back when the
// organization withdraws.
func (h *CreditsHandler) RequestRefund(w http.ResponseWriter, r *http.Request) {
	handlers.WriteJSON(w, http.StatusForbidden, api.ErrorResponse{
		Error: "Credit refunds are only issued when the organization withdraws",
	})
}

// Withdraw queues a refund of all remaining paid credit.
func (h *CreditsHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var body api.WithdrawRequest
	if err := handlers.Decode(r, &body); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	caller := handlers.Caller(r)
	task := scheduler.NewTask(scheduler.KindWithdrawRefund, caller.OrganizationID, caller.UserID, h.Coord.Now())
	task.RefundAccount = mapping.ToDomainRefundAccount(body.RefundReceiveAccount)
	if err := h.Queue.Enqueue(r.Context(), task); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusAccepted, taskAccepted(task))
}

// GrantBonus appends a BONUS entry for an organization.
func (h *CreditsHandler) GrantBonus(w http.ResponseWriter, r *http.Request) {
	var body api.AdminCreditRequest
	if err := handlers.Decode(r, &body); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	res, err := h.Coord.GrantBonus(r.Context(), body.OrganizationID, handlers.Caller(r).UserID, body.Amount, body.Reference)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	h.Orders.InvalidateBalance(body.OrganizationID)
	handlers.WriteJSON(w, appendStatus(res.Inserted), mapping.ToApiLedgerEntry(&res.Stored))
}

// Adjust appends a signed ADJUST entry for an organization.
func (h *CreditsHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var body api.AdminCreditRequest
	if err := handlers.Decode(r, &body); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	res, err := h.Coord.Adjust(r.Context(), body.OrganizationID, handlers.Caller(r).UserID, body.Amount, body.Reference)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	h.Orders.InvalidateBalance(body.OrganizationID)
	handlers.WriteJSON(w, appendStatus(res.Inserted), mapping.ToApiLedgerEntry(&res.Stored))
}

// AdminRefund refunds part of an organization's paid credit right away.
func (h *CreditsHandler) AdminRefund(w http.ResponseWriter, r *http.Request) {
	var body api.RefundRequest
	if err := handlers.Decode(r, &body); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	if body.OrganizationID == "" {
		handlers.WriteError(w, r, credit.NewValidationError("organizationId", "is required"))
		return
	}
	res, err := h.Orders.Refund(r.Context(), mapping.ToRefundInput(body.OrganizationID, handlers.Caller(r).UserID, &body))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, res)
}

func appendStatus(inserted bool) int {
	if inserted {
		return http.StatusCreated
	}
	return http.StatusOK
}

func taskAccepted(task *scheduler.Task) api.TaskAccepted {
	return api.TaskAccepted{
		TaskID: uuid.MustParse(task.ID),
		Kind:   string(task.Kind),
		Status: "queued",
	}
}
