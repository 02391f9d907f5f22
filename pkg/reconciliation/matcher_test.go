package reconciliation

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/retry"
	"github.com/chris/prepaid-credit-ledger/pkg/settlement"
	"github.com/chris/prepaid-credit-ledger/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestMatcher(t *testing.T) (*Matcher, *memory.Store) {
	t.Helper()
	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord := settlement.NewCoordinator(store, logger, settlement.WithClock(func() time.Time { return testNow }))
	return NewMatcher(store, coord, retry.Policy{MaxAttempts: 2, Backoff: retry.NoDelay}, logger), store
}

func seedChargeOrder(t *testing.T, store *memory.Store, id, org, code string, created time.Time, expires time.Time) *models.ChargeOrder {
	t.Helper()
	o := &models.ChargeOrder{
		ID:             id,
		OrganizationID: org,
		UserID:         "user-" + org,
		SupplyAmount:   500_000,
		VatAmount:      50_000,
		AmountTotal:    550_000,
		DepositCode:    code,
		DepositorName:  code,
		Status:         models.ChargeOrderPending,
		ExpiresAt:      expires,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	require.NoError(t, store.CreateChargeOrder(context.Background(), o))
	return o
}

func ingest(t *testing.T, m *Matcher, externalID string, amount int64, memo string, at time.Time) *models.BankTransaction {
	t.Helper()
	tx, err := m.IngestBankTransaction(context.Background(), IngestInput{ExternalID: externalID, TranAmt: amount, PrintedContent: memo, OccurredAt: &at})
	require.NoError(t, err)
	return tx
}

func TestIngestBankTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		m, _ := newTestMatcher(t)
		tx := ingest(t, m, "ext-1", 550_000, "KIM 42", testNow)

		assert.Equal(t, BankTransactionID("ext-1"), tx.ID)
		assert.Equal(t, "42", tx.DepositCode)
		assert.Equal(t, models.BankTransactionNew, tx.Status)
	})

	t.Run("Validation", func(t *testing.T) {
		m, _ := newTestMatcher(t)
		var verr *credit.ValidationError

		_, err := m.IngestBankTransaction(ctx, IngestInput{TranAmt: 1})
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "externalId", verr.Field)

		_, err = m.IngestBankTransaction(ctx, IngestInput{ExternalID: "ext-1", TranAmt: 0})
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "tranAmt", verr.Field)
	})

	t.Run("Reingest Keeps Match", func(t *testing.T) {
		m, store := newTestMatcher(t)
		seedChargeOrder(t, store, "co-1", "org-1", "42", testNow.Add(-time.Hour), testNow.Add(time.Hour))
		ingest(t, m, "ext-1", 550_000, "KIM 42", testNow)
		res, err := m.AutoMatchOnce(ctx, 0)
		require.NoError(t, err)
		require.Equal(t, 1, res.Matched)

		again := ingest(t, m, "ext-1", 550_000, "KIM 42 (corrected)", testNow)
		assert.Equal(t, models.BankTransactionMatched, again.Status)
		assert.Equal(t, "co-1", again.ChargeOrderID)
		assert.Equal(t, "KIM 42 (corrected)", again.PrintedContent)
	})
}

func TestAutoMatchOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("Deposit Code Match Credits Organization", func(t *testing.T) {
		m, store := newTestMatcher(t)
		seedChargeOrder(t, store, "co-1", "org-1", "42", testNow.Add(-time.Hour), testNow.Add(time.Hour))
		tx := ingest(t, m, "ext-1", 550_000, "KIM 42", testNow)

		res, err := m.AutoMatchOnce(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, SweepResult{Scanned: 1, Matched: 1}, res)

		order, err := store.GetChargeOrder(ctx, "co-1")
		require.NoError(t, err)
		assert.Equal(t, models.ChargeOrderMatched, order.Status)
		assert.Equal(t, tx.ID, order.BankTransactionID)
		assert.Equal(t, models.MatchedByAuto, order.MatchedBy)

		entry, err := store.GetLedgerEntry(ctx, "org-1", "bplan:bankTx:"+tx.ID+":charge")
		require.NoError(t, err)
		assert.Equal(t, int64(500_000), entry.Amount)
	})

	t.Run("Newest Order Wins On Shared Code", func(t *testing.T) {
		m, store := newTestMatcher(t)
		seedChargeOrder(t, store, "co-old", "org-1", "42", testNow.Add(-2*time.Hour), testNow.Add(time.Hour))
		seedChargeOrder(t, store, "co-new", "org-2", "42", testNow.Add(-time.Hour), testNow.Add(time.Hour))
		ingest(t, m, "ext-1", 550_000, "42", testNow)

		_, err := m.AutoMatchOnce(ctx, 0)
		require.NoError(t, err)

		order, err := store.GetChargeOrder(ctx, "co-new")
		require.NoError(t, err)
		assert.Equal(t, models.ChargeOrderMatched, order.Status)
	})

	t.Run("Skips Expired Wrong Amount And Empty Memo", func(t *testing.T) {
		m, store := newTestMatcher(t)
		seedChargeOrder(t, store, "co-expired", "org-1", "42", testNow.Add(-25*time.Hour), testNow.Add(-time.Hour))
		seedChargeOrder(t, store, "co-1", "org-2", "55", testNow.Add(-time.Hour), testNow.Add(time.Hour))
		ingest(t, m, "ext-1", 550_000, "42", testNow)
		ingest(t, m, "ext-2", 600_000, "55", testNow.Add(time.Second))
		ingest(t, m, "ext-3", 550_000, "", testNow.Add(2*time.Second))

		res, err := m.AutoMatchOnce(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, SweepResult{Scanned: 3, Matched: 0}, res)
	})

	t.Run("One Deposit Per Order", func(t *testing.T) {
		m, store := newTestMatcher(t)
		seedChargeOrder(t, store, "co-1", "org-1", "42", testNow.Add(-time.Hour), testNow.Add(time.Hour))
		ingest(t, m, "ext-1", 550_000, "42", testNow)
		ingest(t, m, "ext-2", 550_000, "42", testNow.Add(time.Second))

		res, err := m.AutoMatchOnce(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Matched)

		bal, err := store.ListLedgerEntries(ctx, "org-1")
		require.NoError(t, err)
		assert.Len(t, bal, 1)
	})

	t.Run("Limit", func(t *testing.T) {
		m, _ := newTestMatcher(t)
		for i, id := range []string{"ext-1", "ext-2", "ext-3"} {
			ingest(t, m, id, 550_000, "memo", testNow.Add(time.Duration(i)*time.Second))
		}

		res, err := m.AutoMatchOnce(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Scanned)
	})
}

func TestManualMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("Admin Claims Expired Order", func(t *testing.T) {
		m, store := newTestMatcher(t)
		seedChargeOrder(t, store, "co-1", "org-1", "42", testNow.Add(-25*time.Hour), testNow.Add(-time.Hour))
		require.NoError(t, store.UpdateChargeOrderStatus(ctx, "co-1", models.ChargeOrderPending, models.ChargeOrderExpired, testNow))
		tx := ingest(t, m, "ext-1", 550_000, "late deposit", testNow)

		res, err := m.ManualMatch(ctx, ManualMatchInput{BankTransactionID: tx.ID, ChargeOrderID: "co-1", AdminUserID: "admin-1", Note: "late"})
		require.NoError(t, err)
		assert.Equal(t, models.ChargeOrderMatched, res.ChargeOrder.Status)
		assert.Equal(t, models.MatchedByAdmin, res.ChargeOrder.MatchedBy)
		assert.Equal(t, "admin-1", res.BankTransaction.MatchedByUserID)
	})

	t.Run("Writes Audit Record", func(t *testing.T) {
		m, store := newTestMatcher(t)
		seedChargeOrder(t, store, "co-1", "org-1", "42", testNow, testNow.Add(time.Hour))
		tx := ingest(t, m, "ext-1", 550_000, "42", testNow)

		_, err := m.ManualMatch(ctx, ManualMatchInput{BankTransactionID: tx.ID, ChargeOrderID: "co-1", AdminUserID: "admin-1", AdminIPAddress: "10.0.0.7"})
		require.NoError(t, err)

		logs, err := store.ListAuditLogs(ctx, tx.ID)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, models.AuditManualMatch, logs[0].Action)
		assert.Equal(t, models.RefBankTx, logs[0].RefType)
		assert.Equal(t, "admin-1", logs[0].ActorUserID)
		assert.Equal(t, "10.0.0.7", logs[0].IPAddress)
		assert.Equal(t, "co-1", logs[0].Details["chargeOrderId"])
		assert.Equal(t, "false", logs[0].Details["force"])
	})

	t.Run("Force Requires Note", func(t *testing.T) {
		m, _ := newTestMatcher(t)
		_, err := m.ManualMatch(ctx, ManualMatchInput{BankTransactionID: "tx", ChargeOrderID: "co", Force: true, Note: "  "})

		var verr *credit.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "note", verr.Field)
	})

	t.Run("Not Found", func(t *testing.T) {
		m, store := newTestMatcher(t)
		seedChargeOrder(t, store, "co-1", "org-1", "42", testNow, testNow.Add(time.Hour))
		tx := ingest(t, m, "ext-1", 550_000, "42", testNow)

		_, err := m.ManualMatch(ctx, ManualMatchInput{BankTransactionID: "missing", ChargeOrderID: "co-1"})
		assert.ErrorIs(t, err, credit.ErrNotFound)
		_, err = m.ManualMatch(ctx, ManualMatchInput{BankTransactionID: tx.ID, ChargeOrderID: "missing"})
		assert.ErrorIs(t, err, credit.ErrNotFound)
	})

	t.Run("Amount Mismatch Unless Forced", func(t *testing.T) {
		m, store := newTestMatcher(t)
		seedChargeOrder(t, store, "co-1", "org-1", "42", testNow, testNow.Add(time.Hour))
		tx := ingest(t, m, "ext-1", 540_000, "42", testNow)

		_, err := m.ManualMatch(ctx, ManualMatchInput{BankTransactionID: tx.ID, ChargeOrderID: "co-1"})
		assert.ErrorIs(t, err, credit.ErrAmountMismatch)

		_, err = m.ManualMatch(ctx, ManualMatchInput{BankTransactionID: tx.ID, ChargeOrderID: "co-1", AdminUserID: "admin-1", Force: true, Note: "bank fee deducted"})
		require.NoError(t, err)

		logs, err := store.ListAuditLogs(ctx, tx.ID)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, "true", logs[0].Details["force"])
		assert.Equal(t, "bank fee deducted", logs[0].Details["note"])
		assert.Equal(t, "540000", logs[0].Details["txTranAmt"])
		assert.Equal(t, "550000", logs[0].Details["orderAmountTotal"])
	})

	t.Run("Deposit Code Mismatch", func(t *testing.T) {
		m, store := newTestMatcher(t)
		seedChargeOrder(t, store, "co-1", "org-1", "42", testNow, testNow.Add(time.Hour))
		tx := ingest(t, m, "ext-1", 550_000, "17", testNow)

		_, err := m.ManualMatch(ctx, ManualMatchInput{BankTransactionID: tx.ID, ChargeOrderID: "co-1"})
		assert.ErrorIs(t, err, credit.ErrDepositCodeMismatch)
	})

	t.Run("Already Matched", func(t *testing.T) {
		m, store := newTestMatcher(t)
		seedChargeOrder(t, store, "co-1", "org-1", "42", testNow, testNow.Add(time.Hour))
		seedChargeOrder(t, store, "co-2", "org-2", "43", testNow, testNow.Add(time.Hour))
		tx := ingest(t, m, "ext-1", 550_000, "42", testNow)
		_, err := m.ManualMatch(ctx, ManualMatchInput{BankTransactionID: tx.ID, ChargeOrderID: "co-1"})
		require.NoError(t, err)

		_, err = m.ManualMatch(ctx, ManualMatchInput{BankTransactionID: tx.ID, ChargeOrderID: "co-2", Force: true, Note: "retry"})
		assert.ErrorIs(t, err, credit.ErrAlreadyMatched)
	})

	t.Run("Canceled Order", func(t *testing.T) {
		m, store := newTestMatcher(t)
		seedChargeOrder(t, store, "co-1", "org-1", "42", testNow, testNow.Add(time.Hour))
		require.NoError(t, store.UpdateChargeOrderStatus(ctx, "co-1", models.ChargeOrderPending, models.ChargeOrderCanceled, testNow))
		tx := ingest(t, m, "ext-1", 550_000, "42", testNow)

		_, err := m.ManualMatch(ctx, ManualMatchInput{BankTransactionID: tx.ID, ChargeOrderID: "co-1"})
		assert.ErrorIs(t, err, credit.ErrChargeOrderCanceled)
	})
}

func TestIgnoreBankTransaction(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMatcher(t)
	tx := ingest(t, m, "ext-1", 550_000, "refund from vendor", testNow)

	got, err := m.IgnoreBankTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BankTransactionIgnored, got.Status)

	_, err = m.IgnoreBankTransaction(ctx, tx.ID)
	assert.ErrorIs(t, err, credit.ErrInvalidTransition)

	res, err := m.AutoMatchOnce(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Scanned)
}
