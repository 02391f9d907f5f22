package orders

import (
	"context"
	"testing"

	"github.com/chris/prepaid-credit-ledger/pkg/audit"
	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/settlement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reviewer = audit.Actor{UserID: "admin-1", IPAddress: "10.0.0.7"}

// matchedChargeOrder opens a charge order and matches a deposit to it.
func (f *fixture) matchedChargeOrder(t *testing.T, by models.MatchSource) *models.ChargeOrder {
	t.Helper()
	ctx := context.Background()
	res, err := f.svc.CreateChargeOrder(ctx, "org-1", "user-1", 1_000_000)
	require.NoError(t, err)

	tx := &models.BankTransaction{ID: "tx-1", ExternalID: "ext-1", TranAmt: res.Order.AmountTotal, Status: models.BankTransactionNew, OccurredAt: f.clock.Now()}
	_, err = f.store.UpsertBankTransaction(ctx, tx)
	require.NoError(t, err)
	require.NoError(t, f.coord.MatchBankTransaction(ctx, tx, res.Order, settlement.Match{By: by, UserID: "admin-2"}))

	order, err := f.store.GetChargeOrder(ctx, res.Order.ID)
	require.NoError(t, err)
	return order
}

func TestApproveChargeOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, nil)
		res, err := f.svc.CreateChargeOrder(ctx, "org-1", "user-1", 1_000_000)
		require.NoError(t, err)
		require.Equal(t, models.ApprovalPending, res.Order.AdminApprovalStatus)

		order, err := f.svc.ApproveChargeOrder(ctx, res.Order.ID, reviewer, "  deposit slip checked ")
		require.NoError(t, err)

		assert.Equal(t, models.ApprovalApproved, order.AdminApprovalStatus)
		assert.Equal(t, "admin-1", order.AdminApprovalBy)
		assert.Equal(t, "deposit slip checked", order.AdminApprovalNote)
		require.NotNil(t, order.AdminApprovalAt)

		logs, err := f.svc.AuditTrail(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, models.AuditChargeApprove, logs[0].Action)
		assert.Equal(t, "10.0.0.7", logs[0].IPAddress)
		assert.Equal(t, "1100000", logs[0].Details["amountTotal"])
	})

	t.Run("Creator Cannot Approve", func(t *testing.T) {
		f := newFixture(t, nil)
		res, err := f.svc.CreateChargeOrder(ctx, "org-1", "admin-1", 1_000_000)
		require.NoError(t, err)

		_, err = f.svc.ApproveChargeOrder(ctx, res.Order.ID, reviewer, "")
		assert.ErrorIs(t, err, credit.ErrSelfApproval)

		_, err = f.svc.RejectChargeOrder(ctx, res.Order.ID, reviewer, "wrong amount")
		assert.ErrorIs(t, err, credit.ErrSelfApproval)

		stored, err := f.store.GetChargeOrder(ctx, res.Order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalPending, stored.AdminApprovalStatus)
	})

	t.Run("Decided Only Once", func(t *testing.T) {
		f := newFixture(t, nil)
		res, err := f.svc.CreateChargeOrder(ctx, "org-1", "user-1", 1_000_000)
		require.NoError(t, err)
		_, err = f.svc.RejectChargeOrder(ctx, res.Order.ID, reviewer, "duplicate order")
		require.NoError(t, err)

		_, err = f.svc.ApproveChargeOrder(ctx, res.Order.ID, reviewer, "")
		assert.ErrorIs(t, err, credit.ErrInvalidTransition)
	})

	t.Run("Auto Match Approves", func(t *testing.T) {
		f := newFixture(t, nil)
		order := f.matchedChargeOrder(t, models.MatchedByAuto)

		assert.Equal(t, models.ApprovalApproved, order.AdminApprovalStatus)
		_, err := f.svc.ApproveChargeOrder(ctx, order.ID, reviewer, "")
		assert.ErrorIs(t, err, credit.ErrInvalidTransition)
	})

	t.Run("Canceled Order", func(t *testing.T) {
		f := newFixture(t, nil)
		res, err := f.svc.CreateChargeOrder(ctx, "org-1", "user-1", 1_000_000)
		require.NoError(t, err)
		_, err = f.svc.CancelChargeOrder(ctx, "org-1", res.Order.ID)
		require.NoError(t, err)

		_, err = f.svc.ApproveChargeOrder(ctx, res.Order.ID, reviewer, "")
		assert.ErrorIs(t, err, credit.ErrInvalidTransition)
	})

	t.Run("Not Found", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.svc.ApproveChargeOrder(ctx, "missing", reviewer, "")
		assert.ErrorIs(t, err, credit.ErrNotFound)
	})
}

func TestRejectChargeOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Note Required", func(t *testing.T) {
		f := newFixture(t, nil)
		res, err := f.svc.CreateChargeOrder(ctx, "org-1", "user-1", 1_000_000)
		require.NoError(t, err)

		_, err = f.svc.RejectChargeOrder(ctx, res.Order.ID, reviewer, "   ")

		var verr *credit.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "note", verr.Field)
	})

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, nil)
		res, err := f.svc.CreateChargeOrder(ctx, "org-1", "user-1", 1_000_000)
		require.NoError(t, err)

		order, err := f.svc.RejectChargeOrder(ctx, res.Order.ID, reviewer, "duplicate order")
		require.NoError(t, err)
		assert.Equal(t, models.ApprovalRejected, order.AdminApprovalStatus)

		logs, err := f.svc.AuditTrail(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, models.AuditChargeReject, logs[0].Action)
		assert.Equal(t, "duplicate order", logs[0].Details["note"])
	})
}

func TestVerifyChargeOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, nil)
		matched := f.matchedChargeOrder(t, models.MatchedByAdmin)

		order, err := f.svc.VerifyChargeOrder(ctx, matched.ID, reviewer)
		require.NoError(t, err)
		assert.True(t, order.AdminVerified)
		assert.Equal(t, "admin-1", order.AdminVerifiedBy)

		_, err = f.svc.VerifyChargeOrder(ctx, matched.ID, reviewer)
		assert.ErrorIs(t, err, credit.ErrInvalidTransition)

		logs, err := f.svc.AuditTrail(ctx, matched.ID)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, models.AuditChargeVerify, logs[0].Action)
	})

	t.Run("Pending Order", func(t *testing.T) {
		f := newFixture(t, nil)
		res, err := f.svc.CreateChargeOrder(ctx, "org-1", "user-1", 1_000_000)
		require.NoError(t, err)

		_, err = f.svc.VerifyChargeOrder(ctx, res.Order.ID, reviewer)
		assert.ErrorIs(t, err, credit.ErrInvalidTransition)
	})
}

func TestLockChargeOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("Lock Blocks Spending Until Unlocked", func(t *testing.T) {
		f := newFixture(t, nil)
		order := f.matchedChargeOrder(t, models.MatchedByAuto)
		batch := settlement.SpendBatch{
			OrganizationID: "org-1",
			BatchID:        "b1",
			Items:          []settlement.SpendItem{{CaseID: "c1", PriceAmount: 10_000}},
		}

		locked, err := f.svc.LockChargeOrder(ctx, order.ID, reviewer, "")
		require.NoError(t, err)
		assert.True(t, locked.IsLocked)
		assert.Equal(t, DefaultLockReason, locked.LockedReason)

		_, err = f.coord.SpendOnCreate(ctx, batch)
		var lockErr *credit.CreditLockedError
		require.ErrorAs(t, err, &lockErr)
		assert.Equal(t, order.ID, lockErr.ChargeOrderID)

		_, err = f.svc.LockChargeOrder(ctx, order.ID, reviewer, "again")
		assert.ErrorIs(t, err, credit.ErrInvalidTransition)

		unlocked, err := f.svc.UnlockChargeOrder(ctx, order.ID, reviewer)
		require.NoError(t, err)
		assert.False(t, unlocked.IsLocked)
		assert.Empty(t, unlocked.LockedReason)
		assert.Nil(t, unlocked.LockedAt)

		_, err = f.coord.SpendOnCreate(ctx, batch)
		require.NoError(t, err)

		logs, err := f.svc.AuditTrail(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, models.AuditChargeLock, logs[0].Action)
		assert.Equal(t, DefaultLockReason, logs[0].Details["reason"])
		assert.Equal(t, models.AuditChargeUnlock, logs[1].Action)
	})

	t.Run("Unlock Unlocked Order", func(t *testing.T) {
		f := newFixture(t, nil)
		res, err := f.svc.CreateChargeOrder(ctx, "org-1", "user-1", 1_000_000)
		require.NoError(t, err)

		_, err = f.svc.UnlockChargeOrder(ctx, res.Order.ID, reviewer)
		assert.ErrorIs(t, err, credit.ErrInvalidTransition)
	})
}
