package requests

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/chris/prepaid-credit-ledger/pkg/api"
	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/handlers"
	"github.com/chris/prepaid-credit-ledger/pkg/mapping"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/scheduler"
	"github.com/chris/prepaid-credit-ledger/pkg/settlement"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// BalanceInvalidator drops an organization's cached balance.
type BalanceInvalidator interface {
	InvalidateBalance(organizationID string)
}

// RequestsHandler bills manufacturing requests against the ledger.
type RequestsHandler struct {
	Coord    *settlement.Coordinator
	Store    storage.RequestStore
	Queue    scheduler.Queue
	Balances BalanceInvalidator
}

// NewRequestsHandler creates a new RequestsHandler.
func NewRequestsHandler(coord *settlement.Coordinator, store storage.RequestStore, queue scheduler.Queue, balances BalanceInvalidator) *RequestsHandler {
	return &RequestsHandler{Coord: coord, Store: store, Queue: queue, Balances: balances}
}

// Routes mounts the request billing endpoints.
func (h *RequestsHandler) Routes(r chi.Router) {
	r.Post("/requests/spend", h.SpendOnCreate)
	r.Get("/requests/{requestID}", h.GetRequest)
	r.Post("/requests/{requestID}/cancel", h.CancelRequest)
}

// SpendOnCreate creates a batch of requests and debits their prices.
func (h *RequestsHandler) SpendOnCreate(w http.ResponseWriter, r *http.Request) {
	var body api.SpendRequest
	if err := handlers.Decode(r, &body); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	caller := handlers.Caller(r)
	res, err := h.Coord.SpendOnCreate(r.Context(), mapping.ToSpendBatch(caller.OrganizationID, caller.UserID, &body))
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	h.Balances.InvalidateBalance(caller.OrganizationID)
	handlers.WriteJSON(w, http.StatusCreated, res)
}

// GetRequest returns the billing record of one request.
func (h *RequestsHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.ownRequest(r)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, req)
}

// CancelRequest queues the refund of a canceled request. The ledger is
// written by the settlement worker.
func (h *RequestsHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.ownRequest(r)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	if req.Status == models.RequestCanceled {
		handlers.WriteJSON(w, http.StatusOK, req)
		return
	}

	caller := handlers.Caller(r)
	task := scheduler.NewTask(scheduler.KindCancelRefund, req.OrganizationID, caller.UserID, h.Coord.Now())
	task.RequestID = req.ID
	if err := h.Queue.Enqueue(r.Context(), task); err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	handlers.WriteJSON(w, http.StatusAccepted, api.TaskAccepted{
		TaskID: uuid.MustParse(task.ID),
		Kind:   string(task.Kind),
		Status: "queued",
	})
}

func (h *RequestsHandler) ownRequest(r *http.Request) (*models.Request, error) {
	req, err := h.Store.GetRequest(r.Context(), chi.URLParam(r, "requestID"))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("request: %w", credit.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	if req.OrganizationID != handlers.Caller(r).OrganizationID {
		return nil, fmt.Errorf("request: %w", credit.ErrNotFound)
	}
	return req, nil
}
