package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/gateway"
	"github.com/chris/prepaid-credit-ledger/pkg/gateway/mocks"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testRefundAccount = &models.RefundAccount{Bank: "88", AccountNumber: "110-222-333", HolderName: "Kim"}

func TestRefund(t *testing.T) {
	ctx := context.Background()

	t.Run("Newest Order First", func(t *testing.T) {
		f := newFixture(t, nil)
		older := f.paidOrder(t, "org-1", 500_000, "pk-old")
		f.clock.Advance(time.Hour)
		newer := f.paidOrder(t, "org-1", 1_000_000, "pk-new")

		res, err := f.svc.Refund(ctx, RefundInput{OrganizationID: "org-1", UserID: "user-1", SupplyAmount: 1_200_000, RefundAccount: testRefundAccount})
		require.NoError(t, err)

		assert.Equal(t, int64(1_200_000), res.RequestedSupply)
		assert.Equal(t, int64(120_000), res.RequestedVat)
		assert.Equal(t, int64(1_320_000), res.RequestedTotal)
		require.Len(t, res.Allocations, 2)
		assert.Equal(t, newer.ID, res.Allocations[0].CreditOrderID)
		assert.Equal(t, int64(1_000_000), res.Allocations[0].RefundSupply)
		assert.Equal(t, older.ID, res.Allocations[1].CreditOrderID)
		assert.Equal(t, int64(200_000), res.Allocations[1].RefundSupply)
		assert.Equal(t, int64(20_000), res.Allocations[1].RefundVat)

		storedNewer, err := f.store.GetCreditOrder(ctx, newer.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CreditOrderRefunded, storedNewer.Status)
		storedOlder, err := f.store.GetCreditOrder(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CreditOrderDone, storedOlder.Status)
		assert.Equal(t, int64(200_000), storedOlder.RefundedSupplyAmount)

		bal, err := f.svc.Balance(ctx, "org-1")
		require.NoError(t, err)
		assert.Equal(t, int64(300_000), bal.PaidBalance)
	})

	t.Run("Exceeds Paid Balance", func(t *testing.T) {
		f := newFixture(t, nil)
		f.paidOrder(t, "org-1", 500_000, "pk-1")

		_, err := f.svc.Refund(ctx, RefundInput{OrganizationID: "org-1", UserID: "user-1", SupplyAmount: 600_000, RefundAccount: testRefundAccount})
		assert.ErrorIs(t, err, credit.ErrInsufficientPaidBalance)
	})

	t.Run("Requires Refund Account", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.Refund(ctx, RefundInput{OrganizationID: "org-1", SupplyAmount: 100_000})

		var verr *credit.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("Sends Idempotency Key Per Chunk", func(t *testing.T) {
		gw := new(mocks.Client)
		f := newFixture(t, gw)
		order, err := f.svc.CreateCreditOrder(ctx, "org-1", "user-1", 500_000)
		require.NoError(t, err)
		gw.On("Confirm", mock.Anything, mock.Anything).Return(&gateway.Payment{PaymentKey: "pk-1", Status: gateway.StatusDone}, nil).Once()
		_, err = f.svc.ConfirmCreditOrder(ctx, "org-1", ConfirmInput{OrderID: order.ID, PaymentKey: "pk-1", Amount: order.TotalAmount})
		require.NoError(t, err)

		wantKey := gateway.IdempotencyKey("refund", "pk-1:0:110000")
		gw.On("Cancel", mock.Anything, mock.MatchedBy(func(req gateway.CancelRequest) bool {
			return req.IdempotencyKey == wantKey && req.Amount == 110_000 && req.Reason == gateway.CancelReasonRefund
		})).Return(&gateway.Payment{PaymentKey: "pk-1", Cancels: []gateway.Cancel{{TransactionKey: "tx-77", CancelAmount: 110_000}}}, nil).Once()

		res, err := f.svc.Refund(ctx, RefundInput{OrganizationID: "org-1", UserID: "user-1", SupplyAmount: 100_000, RefundAccount: testRefundAccount})
		require.NoError(t, err)
		require.Len(t, res.Allocations, 1)
		assert.Equal(t, "tx-77", res.Allocations[0].TransactionKey)

		_, err = f.store.GetLedgerEntry(ctx, "org-1", "gateway:pk-1:refund:tx-77")
		require.NoError(t, err)
		gw.AssertExpectations(t)
	})

	t.Run("Gateway Failure Leaves Ledger Untouched", func(t *testing.T) {
		gw := new(mocks.Client)
		f := newFixture(t, gw)
		order, err := f.svc.CreateCreditOrder(ctx, "org-1", "user-1", 500_000)
		require.NoError(t, err)
		gw.On("Confirm", mock.Anything, mock.Anything).Return(&gateway.Payment{PaymentKey: "pk-1", Status: gateway.StatusDone}, nil).Once()
		_, err = f.svc.ConfirmCreditOrder(ctx, "org-1", ConfirmInput{OrderID: order.ID, PaymentKey: "pk-1", Amount: order.TotalAmount})
		require.NoError(t, err)
		gw.On("Cancel", mock.Anything, mock.Anything).Return(nil, errors.New("gateway down")).Once()

		res, err := f.svc.Refund(ctx, RefundInput{OrganizationID: "org-1", UserID: "user-1", SupplyAmount: 100_000, RefundAccount: testRefundAccount})
		require.Error(t, err)
		assert.Empty(t, res.Allocations)

		bal, err := f.svc.Balance(ctx, "org-1")
		require.NoError(t, err)
		assert.Equal(t, int64(500_000), bal.PaidBalance)
	})
}

func TestRefundAllForWithdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("Refunds Everything Paid", func(t *testing.T) {
		f := newFixture(t, nil)
		f.paidOrder(t, "org-1", 500_000, "pk-1")
		f.clock.Advance(time.Minute)
		f.paidOrder(t, "org-1", 1_000_000, "pk-2")

		res, err := f.svc.RefundAllForWithdraw(ctx, "org-1", "user-1", testRefundAccount)
		require.NoError(t, err)
		assert.Equal(t, int64(1_500_000), res.RequestedSupply)
		assert.Len(t, res.Allocations, 2)

		bal, err := f.svc.Balance(ctx, "org-1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), bal.PaidBalance)
	})

	t.Run("Capped By Paid Balance", func(t *testing.T) {
		f := newFixture(t, nil)
		f.paidOrder(t, "org-1", 1_000_000, "pk-1")
		_, err := f.coord.Adjust(ctx, "org-1", "admin", -400_000, "correction")
		require.NoError(t, err)

		res, err := f.svc.RefundAllForWithdraw(ctx, "org-1", "user-1", testRefundAccount)
		require.NoError(t, err)
		assert.Equal(t, int64(600_000), res.RequestedSupply)
	})

	t.Run("Nothing To Refund", func(t *testing.T) {
		f := newFixture(t, nil)
		res, err := f.svc.RefundAllForWithdraw(ctx, "org-1", "user-1", testRefundAccount)
		require.NoError(t, err)
		assert.Empty(t, res.Allocations)
	})
}
