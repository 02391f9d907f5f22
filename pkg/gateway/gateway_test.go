package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIdempotencyKey(t *testing.T) {
	a := IdempotencyKey("refund", "pk-1:0:550000")
	b := IdempotencyKey("refund", "pk-1:0:550000")
	c := IdempotencyKey("refund", "pk-1:500000:550000")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, len("refund_")+64)
}

func TestMockEnabled(t *testing.T) {
	assert.True(t, MockEnabled("mock", "development"))
	assert.True(t, MockEnabled("MOCK", ""))
	assert.False(t, MockEnabled("mock", "production"))
	assert.False(t, MockEnabled("live", "development"))
}

func TestHTTPClientConfirm(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/payments/confirm", r.URL.Path)
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "sk_test", user)
			assert.Empty(t, pass)

			var req ConfirmRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, int64(550000), req.Amount)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"paymentKey":"pk-1","orderId":"CREDIT_org_1_abc","status":"DONE","secret":"s3cr3t","totalAmount":550000,"approvedAt":"2025-03-01T18:00:00+09:00"}`))
		}))
		defer server.Close()

		client := NewHTTPClient(server.URL, "sk_test", 5*time.Second, discardLogger())
		payment, err := client.Confirm(context.Background(), ConfirmRequest{PaymentKey: "pk-1", OrderID: "CREDIT_org_1_abc", Amount: 550000})

		require.NoError(t, err)
		assert.Equal(t, StatusDone, payment.Status)
		assert.Equal(t, "s3cr3t", payment.Secret)
		require.NotNil(t, payment.ApprovedAt)
		assert.Equal(t, 9, payment.ApprovedAt.UTC().Hour())
	})

	t.Run("Gateway Rejects", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":"INVALID_REQUEST","message":"amount mismatch"}`))
		}))
		defer server.Close()

		client := NewHTTPClient(server.URL, "sk_test", 5*time.Second, discardLogger())
		_, err := client.Confirm(context.Background(), ConfirmRequest{PaymentKey: "pk-1", OrderID: "o", Amount: 1})

		var gwErr *Error
		require.True(t, errors.As(err, &gwErr))
		assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
		assert.Equal(t, "INVALID_REQUEST", gwErr.Code)
	})
}

func TestHTTPClientCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/pk-1/cancel", r.URL.Path)
		assert.Equal(t, "refund_abc", r.Header.Get("Idempotency-Key"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, CancelReasonRefund, body["cancelReason"])
		assert.EqualValues(t, 220000, body["cancelAmount"])
		assert.Contains(t, body, "refundReceiveAccount")

		w.Write([]byte(`{"paymentKey":"pk-1","status":"PARTIAL_CANCELED","cancels":[{"transactionKey":"tx-old"},{"transactionKey":"tx-new","cancelAmount":220000}]}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL+"/", "sk_test", 5*time.Second, discardLogger())
	payment, err := client.Cancel(context.Background(), CancelRequest{
		PaymentKey:     "pk-1",
		Reason:         CancelReasonRefund,
		Amount:         220000,
		RefundAccount:  &models.RefundAccount{Bank: "88", AccountNumber: "110123", HolderName: "Kim"},
		IdempotencyKey: "refund_abc",
	})

	require.NoError(t, err)
	assert.Equal(t, "tx-new", payment.LastTransactionKey())
}

func TestMockClient(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	client := &MockClient{Now: func() time.Time { return fixed }}

	t.Run("Confirm Fabricates Done", func(t *testing.T) {
		payment, err := client.Confirm(context.Background(), ConfirmRequest{OrderID: "CREDIT_org_1_abc", Amount: 550000})

		require.NoError(t, err)
		assert.Equal(t, "MOCK_CREDIT_org_1_abc", payment.PaymentKey)
		assert.Equal(t, StatusDone, payment.Status)
		assert.Regexp(t, `^mock_[0-9a-f]{24}$`, payment.Secret)
	})

	t.Run("Cancel Echoes Idempotency Key", func(t *testing.T) {
		payment, err := client.Cancel(context.Background(), CancelRequest{PaymentKey: "pk-1", Amount: 1000, IdempotencyKey: "refund_x"})

		require.NoError(t, err)
		assert.Equal(t, "refund_x", payment.LastTransactionKey())
		assert.Equal(t, StatusPartialCanceled, payment.Status)
	})
}
