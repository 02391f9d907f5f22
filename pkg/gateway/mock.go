package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"
)

// MockClient fabricates successful gateway answers. It is only used outside
// production, see MockEnabled.
type MockClient struct {
	Now func() time.Time
}

// NewMockClient creates a MockClient on the wall clock.
func NewMockClient() *MockClient {
	return &MockClient{Now: time.Now}
}

var _ Client = (*MockClient)(nil)

// Confirm reports every payment as DONE with a random secret.
func (m *MockClient) Confirm(ctx context.Context, req ConfirmRequest) (*Payment, error) {
	paymentKey := req.PaymentKey
	if paymentKey == "" {
		paymentKey = "MOCK_" + req.OrderID
	}
	approvedAt := m.Now()
	return &Payment{
		PaymentKey:  paymentKey,
		OrderID:     req.OrderID,
		Status:      StatusDone,
		Secret:      "mock_" + randomHex(12),
		TotalAmount: req.Amount,
		ApprovedAt:  &approvedAt,
	}, nil
}

// Cancel echoes the idempotency key back as the cancel transaction key.
func (m *MockClient) Cancel(ctx context.Context, req CancelRequest) (*Payment, error) {
	txKey := req.IdempotencyKey
	if txKey == "" {
		txKey = "mock_cancel"
	}
	canceledAt := m.Now()
	status := StatusCanceled
	if req.Amount > 0 {
		status = StatusPartialCanceled
	}
	return &Payment{
		PaymentKey: req.PaymentKey,
		Status:     status,
		Cancels: []Cancel{{
			TransactionKey: txKey,
			CancelReason:   req.Reason,
			CancelAmount:   req.Amount,
			CanceledAt:     &canceledAt,
		}},
	}, nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
