package credits_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/api"
	"github.com/chris/prepaid-credit-ledger/pkg/gateway"
	"github.com/chris/prepaid-credit-ledger/pkg/handlers/credits"
	"github.com/chris/prepaid-credit-ledger/pkg/middleware"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/orders"
	"github.com/chris/prepaid-credit-ledger/pkg/scheduler"
	"github.com/chris/prepaid-credit-ledger/pkg/scheduler/mocks"
	"github.com/chris/prepaid-credit-ledger/pkg/settlement"
	"github.com/chris/prepaid-credit-ledger/pkg/storage/memory"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router http.Handler
	queue  *mocks.Queue
	svc    *orders.Service
	coord  *settlement.Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	coord := settlement.NewCoordinator(store, logger, settlement.WithClock(now))
	svc := orders.NewService(store, coord, &gateway.MockClient{Now: now}, nil, orders.Config{}, logger)
	queue := new(mocks.Queue)
	h := credits.NewCreditsHandler(svc, coord, queue)

	r := chi.NewRouter()
	r.Use(middleware.Identify)
	h.Routes(r)
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		h.AdminRoutes(r)
	})
	return &fixture{router: r, queue: queue, svc: svc, coord: coord}
}

func (f *fixture) do(method, target string, body any, org, role string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if org != "" {
		req.Header.Set(middleware.HeaderOrganizationID, org)
	}
	req.Header.Set(middleware.HeaderUserID, "user-1")
	if role != "" {
		req.Header.Set(middleware.HeaderUserRole, role)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestCreditOrders(t *testing.T) {
	t.Run("Create Confirm And Balance", func(t *testing.T) {
		f := newFixture(t)

		rr := f.do(http.MethodPost, "/credits/orders", api.CreateOrderRequest{SupplyAmount: 500_000}, "org-1", "")
		require.Equal(t, http.StatusCreated, rr.Code)
		var order models.CreditOrder
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &order))
		assert.Equal(t, int64(550_000), order.TotalAmount)

		rr = f.do(http.MethodPost, "/credits/orders/confirm", api.ConfirmCreditOrderRequest{OrderID: order.ID, PaymentKey: "pk-1", Amount: 550_000}, "org-1", "")
		require.Equal(t, http.StatusOK, rr.Code)
		var confirmed models.CreditOrder
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &confirmed))
		assert.Equal(t, models.CreditOrderDone, confirmed.Status)

		rr = f.do(http.MethodGet, "/credits/balance", nil, "org-1", "")
		require.Equal(t, http.StatusOK, rr.Code)
		var bal api.BalanceResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &bal))
		assert.Equal(t, int64(500_000), bal.PaidBalance)
		assert.Equal(t, int64(500_000), bal.Balance)
	})

	t.Run("Invalid Unit", func(t *testing.T) {
		f := newFixture(t)

		rr := f.do(http.MethodPost, "/credits/orders", api.CreateOrderRequest{SupplyAmount: 750_000}, "org-1", "")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "supplyAmount")
	})

	t.Run("Other Organization Is Not Found", func(t *testing.T) {
		f := newFixture(t)
		rr := f.do(http.MethodPost, "/credits/orders", api.CreateOrderRequest{SupplyAmount: 500_000}, "org-1", "")
		var order models.CreditOrder
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &order))

		rr = f.do(http.MethodGet, "/credits/orders/"+order.ID, nil, "org-2", "")

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("Cancel Done Order Conflicts", func(t *testing.T) {
		f := newFixture(t)
		rr := f.do(http.MethodPost, "/credits/orders", api.CreateOrderRequest{SupplyAmount: 500_000}, "org-1", "")
		var order models.CreditOrder
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &order))
		f.do(http.MethodPost, "/credits/orders/confirm", api.ConfirmCreditOrderRequest{OrderID: order.ID, PaymentKey: "pk-1", Amount: 550_000}, "org-1", "")

		rr = f.do(http.MethodPost, "/credits/orders/"+order.ID+"/cancel", nil, "org-1", "")

		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("No Organization", func(t *testing.T) {
		f := newFixture(t)

		rr := f.do(http.MethodGet, "/credits/balance", nil, "", "")

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestRefunds(t *testing.T) {
	account := &api.RefundReceiveAccount{Bank: "88", AccountNumber: "110-222-333", HolderName: "Kim"}

	t.Run("Members Cannot Refund", func(t *testing.T) {
		f := newFixture(t)

		rr := f.do(http.MethodPost, "/credits/refund", api.RefundRequest{SupplyAmount: 100_000, RefundReceiveAccount: account}, "org-1", "")

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("Withdraw Is Queued", func(t *testing.T) {
		f := newFixture(t)
		f.queue.On("Enqueue", mock.Anything, mock.MatchedBy(func(task *scheduler.Task) bool {
			return task.Kind == scheduler.KindWithdrawRefund &&
				task.OrganizationID == "org-1" &&
				task.RefundAccount != nil && task.RefundAccount.AccountNumber == "110-222-333"
		})).Return(nil).Once()

		rr := f.do(http.MethodPost, "/credits/withdraw", api.WithdrawRequest{RefundReceiveAccount: account}, "org-1", "")

		assert.Equal(t, http.StatusAccepted, rr.Code)
		var accepted api.TaskAccepted
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &accepted))
		assert.Equal(t, string(scheduler.KindWithdrawRefund), accepted.Kind)
		f.queue.AssertExpectations(t)
	})

	t.Run("Withdraw Requires Account", func(t *testing.T) {
		f := newFixture(t)

		rr := f.do(http.MethodPost, "/credits/withdraw", api.WithdrawRequest{}, "org-1", "")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		f.queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	})

	t.Run("Queue Failure", func(t *testing.T) {
		f := newFixture(t)
		f.queue.On("Enqueue", mock.Anything, mock.Anything).Return(assert.AnError).Once()

		rr := f.do(http.MethodPost, "/credits/withdraw", api.WithdrawRequest{RefundReceiveAccount: account}, "org-1", "")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("Admin Refund", func(t *testing.T) {
		f := newFixture(t)
		rr := f.do(http.MethodPost, "/credits/orders", api.CreateOrderRequest{SupplyAmount: 500_000}, "org-1", "")
		var order models.CreditOrder
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &order))
		f.do(http.MethodPost, "/credits/orders/confirm", api.ConfirmCreditOrderRequest{OrderID: order.ID, PaymentKey: "pk-1", Amount: 550_000}, "org-1", "")

		rr = f.do(http.MethodPost, "/admin/credits/refund", api.RefundRequest{OrganizationID: "org-1", SupplyAmount: 100_000, RefundReceiveAccount: account}, "", middleware.RoleAdmin)

		require.Equal(t, http.StatusOK, rr.Code)
		var res models.RefundResult
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
		assert.Equal(t, int64(110_000), res.RequestedTotal)
		require.Len(t, res.Allocations, 1)
		assert.Equal(t, order.ID, res.Allocations[0].CreditOrderID)
	})

	t.Run("Admin Refund Exceeding Paid Balance", func(t *testing.T) {
		f := newFixture(t)

		rr := f.do(http.MethodPost, "/admin/credits/refund", api.RefundRequest{OrganizationID: "org-1", SupplyAmount: 100_000, RefundReceiveAccount: account}, "", middleware.RoleAdmin)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}

func TestAdminCredits(t *testing.T) {
	t.Run("Bonus Is Idempotent", func(t *testing.T) {
		f := newFixture(t)
		body := api.AdminCreditRequest{OrganizationID: "org-1", Amount: 10_000, Reference: "welcome"}

		rr := f.do(http.MethodPost, "/admin/credits/bonus", body, "", middleware.RoleAdmin)
		assert.Equal(t, http.StatusCreated, rr.Code)
		rr = f.do(http.MethodPost, "/admin/credits/bonus", body, "", middleware.RoleAdmin)
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = f.do(http.MethodGet, "/credits/balance", nil, "org-1", "")
		var bal api.BalanceResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &bal))
		assert.Equal(t, int64(10_000), bal.BonusBalance)
	})

	t.Run("Adjust Cannot Overdraw", func(t *testing.T) {
		f := newFixture(t)

		rr := f.do(http.MethodPost, "/admin/credits/adjust", api.AdminCreditRequest{OrganizationID: "org-1", Amount: -5_000, Reference: "fix-1"}, "", middleware.RoleAdmin)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("Members Are Rejected", func(t *testing.T) {
		f := newFixture(t)

		rr := f.do(http.MethodPost, "/admin/credits/bonus", api.AdminCreditRequest{OrganizationID: "org-1", Amount: 10_000, Reference: "x"}, "org-1", "")

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}
