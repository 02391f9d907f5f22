package webhooks_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/api"
	"github.com/chris/prepaid-credit-ledger/pkg/handlers/webhooks"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/settlement"
	"github.com/chris/prepaid-credit-ledger/pkg/storage/memory"
	paymentwebhooks "github.com/chris/prepaid-credit-ledger/pkg/webhooks"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, maxBody int64) (http.Handler, *memory.Store, *settlement.Coordinator) {
	t.Helper()
	now := func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	coord := settlement.NewCoordinator(store, logger, settlement.WithClock(now))
	ing := paymentwebhooks.NewIngestor(store, coord, nil, logger)

	r := chi.NewRouter()
	webhooks.NewWebhooksHandler(ing, maxBody, logger).Routes(r)

	require.NoError(t, store.CreateCreditOrder(context.Background(), &models.CreditOrder{
		ID:             "CREDIT_org-1_1_abcdef",
		OrganizationID: "org-1",
		SupplyAmount:   500_000,
		VatAmount:      50_000,
		TotalAmount:    550_000,
		Status:         models.CreditOrderWaitingForDeposit,
		PaymentKey:     "pk-va",
		Secret:         "s3cret",
		CreatedAt:      now(),
	}))
	return r, store, coord
}

func post(router http.Handler, transmissionID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(body))
	if transmissionID != "" {
		req.Header.Set(webhooks.HeaderTransmissionID, transmissionID)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

const depositBody = `{"eventType":"DEPOSIT_CALLBACK","orderId":"CREDIT_org-1_1_abcdef","transactionKey":"txk-1","status":"DONE","secret":"s3cret"}`

func TestHandlePayment(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, _, coord := newRouter(t, 0)

		rr := post(router, "tr-1", depositBody)

		require.Equal(t, http.StatusOK, rr.Code)
		var ack api.WebhookAck
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ack))
		assert.Equal(t, "tr-1", ack.TransmissionID)
		assert.Equal(t, models.WebhookProcessed, ack.Status)

		bal, err := coord.Balance(context.Background(), "org-1")
		require.NoError(t, err)
		assert.Equal(t, int64(500_000), bal.PaidBalance)
	})

	t.Run("Redelivery Is Acknowledged", func(t *testing.T) {
		router, _, coord := newRouter(t, 0)
		post(router, "tr-1", depositBody)

		rr := post(router, "tr-1", depositBody)

		assert.Equal(t, http.StatusOK, rr.Code)
		bal, err := coord.Balance(context.Background(), "org-1")
		require.NoError(t, err)
		assert.Equal(t, int64(500_000), bal.PaidBalance)
	})

	t.Run("Transmission Id From Body", func(t *testing.T) {
		router, store, _ := newRouter(t, 0)

		rr := post(router, "", `{"transmissionId":"tr-body","eventType":"X","orderId":"missing","status":"DONE"}`)

		assert.Equal(t, http.StatusOK, rr.Code)
		ev, err := store.GetWebhookEvent(context.Background(), "tr-body")
		require.NoError(t, err)
		assert.Equal(t, models.WebhookIgnored, ev.ProcessStatus)
	})

	t.Run("Missing Transmission Id", func(t *testing.T) {
		router, _, _ := newRouter(t, 0)

		rr := post(router, "", depositBody)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Secret Mismatch", func(t *testing.T) {
		router, _, coord := newRouter(t, 0)

		rr := post(router, "tr-1", strings.Replace(depositBody, "s3cret", "guess", 1))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		bal, err := coord.Balance(context.Background(), "org-1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), bal.Balance)
	})

	t.Run("Malformed Body", func(t *testing.T) {
		router, _, _ := newRouter(t, 0)

		rr := post(router, "tr-1", `{"status":`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Body Too Large", func(t *testing.T) {
		router, _, _ := newRouter(t, 16)

		rr := post(router, "tr-1", depositBody)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	})
}
