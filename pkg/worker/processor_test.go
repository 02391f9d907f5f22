package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/retry"
	"github.com/chris/prepaid-credit-ledger/pkg/scheduler"
	"github.com/chris/prepaid-credit-ledger/pkg/worker/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(r Refunder) *Processor {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProcessor(r, retry.Policy{MaxAttempts: 3, Backoff: retry.NoDelay}, logger)
}

func TestProcess(t *testing.T) {
	ctx := context.Background()

	t.Run("Cancel Refund", func(t *testing.T) {
		refunder := new(mocks.Refunder)
		refunder.On("CancelRefund", mock.Anything, "org-1", "user-1", "req-1").Return(int64(30_000), nil).Once()

		err := newTestProcessor(refunder).Process(ctx, &scheduler.Task{ID: "t-1", Kind: scheduler.KindCancelRefund, OrganizationID: "org-1", UserID: "user-1", RequestID: "req-1"})
		require.NoError(t, err)
		refunder.AssertExpectations(t)
	})

	t.Run("Transient Error Is Retried", func(t *testing.T) {
		refunder := new(mocks.Refunder)
		account := &models.RefundAccount{Bank: "88", AccountNumber: "1", HolderName: "Kim"}
		refunder.On("RefundAllForWithdraw", mock.Anything, "org-1", "user-1", account).Return(nil, errors.New("gateway timeout")).Twice()
		refunder.On("RefundAllForWithdraw", mock.Anything, "org-1", "user-1", account).Return(&models.RefundResult{RequestedSupply: 500_000}, nil).Once()

		err := newTestProcessor(refunder).Process(ctx, &scheduler.Task{ID: "t-1", Kind: scheduler.KindWithdrawRefund, OrganizationID: "org-1", UserID: "user-1", RefundAccount: account})
		require.NoError(t, err)
		refunder.AssertNumberOfCalls(t, "RefundAllForWithdraw", 3)
	})

	t.Run("Domain Error Is Not Retried", func(t *testing.T) {
		refunder := new(mocks.Refunder)
		refunder.On("CancelRefund", mock.Anything, "org-1", "user-1", "req-x").Return(int64(0), credit.ErrNotFound).Once()

		err := newTestProcessor(refunder).Process(ctx, &scheduler.Task{ID: "t-1", Kind: scheduler.KindCancelRefund, OrganizationID: "org-1", UserID: "user-1", RequestID: "req-x"})
		assert.ErrorIs(t, err, credit.ErrNotFound)
		refunder.AssertNumberOfCalls(t, "CancelRefund", 1)
	})

	t.Run("Unknown Kind", func(t *testing.T) {
		err := newTestProcessor(new(mocks.Refunder)).Process(ctx, &scheduler.Task{ID: "t-1", Kind: "bogus"})

		var verr *credit.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestHandleSQS(t *testing.T) {
	ctx := context.Background()
	refunder := new(mocks.Refunder)
	refunder.On("CancelRefund", mock.Anything, "org-1", "", "req-ok").Return(int64(0), nil).Once()
	refunder.On("CancelRefund", mock.Anything, "org-1", "", "req-down").Return(int64(0), errors.New("dynamodb unavailable"))
	refunder.On("CancelRefund", mock.Anything, "org-1", "", "req-gone").Return(int64(0), credit.ErrNotFound).Once()

	event := events.SQSEvent{Records: []events.SQSMessage{
		{MessageId: "m-1", Body: `{"id":"t-1","kind":"cancel_refund","organizationId":"org-1","requestId":"req-ok"}`},
		{MessageId: "m-2", Body: `{"id":"t-2","kind":"cancel_refund","organizationId":"org-1","requestId":"req-down"}`},
		{MessageId: "m-3", Body: `{"id":"t-3","kind":"cancel_refund","organizationId":"org-1","requestId":"req-gone"}`},
		{MessageId: "m-4", Body: `garbage`},
	}}

	resp, err := newTestProcessor(refunder).HandleSQS(ctx, event)
	require.NoError(t, err)
	require.Len(t, resp.BatchItemFailures, 1)
	assert.Equal(t, "m-2", resp.BatchItemFailures[0].ItemIdentifier)
}
