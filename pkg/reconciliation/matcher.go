// Package reconciliation pairs deposits seen on the receiving bank account
// with B-plan charge orders, automatically by amount and deposit code or by
// hand from the admin console.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/metrics"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/retry"
	"github.com/chris/prepaid-credit-ledger/pkg/settlement"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
	"github.com/google/uuid"
)

const (
	DefaultSweepLimit = 200
	MaxSweepLimit     = 500
)

// bankTxNamespace derives bank transaction ids from the bank's external id.
var bankTxNamespace = uuid.MustParse("4f1f3a3c-8c59-4b8e-9a51-52c1d5e0b7a2")

// BankTransactionID is the stable id of the deposit with externalID.
func BankTransactionID(externalID string) string {
	return uuid.NewSHA1(bankTxNamespace, []byte(externalID)).String()
}

// Matcher ingests bank deposits and matches them to charge orders.
type Matcher struct {
	store  storage.ApiStore
	coord  *settlement.Coordinator
	retry  retry.Policy
	logger *slog.Logger
}

// NewMatcher creates a Matcher. Transient commit failures are retried with
// policy.
func NewMatcher(store storage.ApiStore, coord *settlement.Coordinator, policy retry.Policy, logger *slog.Logger) *Matcher {
	return &Matcher{store: store, coord: coord, retry: policy, logger: logger}
}

// SweepResult counts what one automatic pass did.
type SweepResult struct {
	Scanned int `json:"scanned"`
	Matched int `json:"matched"`
}

// AutoMatchOnce walks up to limit NEW transactions, oldest first, and claims
// an open charge order for each one it can. Only PENDING, unexpired,
// unmatched orders with the exact total qualify. A deposit code match wins,
// newest order first; otherwise the first order whose depositor name appears
// in the memo is taken. Transactions without a memo are left for an admin.
func (m *Matcher) AutoMatchOnce(ctx context.Context, limit int) (SweepResult, error) {
	if limit <= 0 {
		limit = DefaultSweepLimit
	}
	limit = min(limit, MaxSweepLimit)

	txs, err := m.store.ListBankTransactionsByStatus(ctx, models.BankTransactionNew, int32(limit))
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to list new bank transactions: %w", err)
	}
	pending, err := m.store.ListChargeOrdersByStatus(ctx, models.ChargeOrderPending)
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to list pending charge orders: %w", err)
	}

	now := m.coord.Now()
	open := make([]*models.ChargeOrder, 0, len(pending))
	for i := range pending {
		if o := &pending[i]; !o.Expired(now) && o.BankTransactionID == "" {
			open = append(open, o)
		}
	}

	var res SweepResult
	for i := range txs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		tx := &txs[i]
		res.Scanned++
		if tx.PrintedContent == "" || tx.TranAmt <= 0 {
			continue
		}

		idx := pickCandidate(tx, open)
		if idx < 0 {
			continue
		}
		order := open[idx]
		err := m.retry.Do(ctx, func(ctx context.Context) error {
			err := m.coord.MatchBankTransaction(ctx, tx, order, settlement.Match{By: models.MatchedByAuto})
			if errors.Is(err, credit.ErrAlreadyMatched) {
				return retry.Permanent(err)
			}
			return err
		})
		if err != nil {
			m.logger.WarnContext(ctx, "auto match failed",
				"bank_transaction_id", tx.ID, "charge_order_id", order.ID, "error", err)
			continue
		}
		open = append(open[:idx], open[idx+1:]...)
		res.Matched++
	}

	metrics.ReconciliationScanned.Add(float64(res.Scanned))
	m.logger.InfoContext(ctx, "auto match sweep finished", "scanned", res.Scanned, "matched", res.Matched)
	return res, nil
}

// pickCandidate returns the index in open of the order tx should claim, or -1.
// open is ordered newest first.
func pickCandidate(tx *models.BankTransaction, open []*models.ChargeOrder) int {
	if tx.DepositCode != "" {
		for i, o := range open {
			if o.AmountTotal == tx.TranAmt && o.DepositCode == tx.DepositCode {
				return i
			}
		}
	}
	for i, o := range open {
		if o.AmountTotal != tx.TranAmt {
			continue
		}
		if p := depositorPattern(o.DepositorName); p != nil && p.MatchString(tx.PrintedContent) {
			return i
		}
	}
	return -1
}

// IngestInput is a deposit reported by the bank feed.
type IngestInput struct {
	ExternalID     string
	BankCode       string
	AccountNumber  string
	TranAmt        int64
	PrintedContent string
	OccurredAt     *time.Time
}

// IngestBankTransaction records a deposit. Re-ingesting the same external id
// refreshes the descriptive fields and keeps any match already made.
func (m *Matcher) IngestBankTransaction(ctx context.Context, in IngestInput) (*models.BankTransaction, error) {
	if in.ExternalID == "" {
		return nil, credit.NewValidationError("externalId", "is required")
	}
	if in.TranAmt <= 0 {
		return nil, credit.NewValidationError("tranAmt", "must be positive")
	}

	now := m.coord.Now()
	tx := &models.BankTransaction{
		ID:             BankTransactionID(in.ExternalID),
		ExternalID:     in.ExternalID,
		BankCode:       in.BankCode,
		AccountNumber:  in.AccountNumber,
		TranAmt:        in.TranAmt,
		PrintedContent: in.PrintedContent,
		DepositCode:    ExtractDepositCode(in.PrintedContent),
		OccurredAt:     now,
		Status:         models.BankTransactionNew,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.OccurredAt != nil {
		tx.OccurredAt = in.OccurredAt.UTC()
	}

	stored, err := m.store.UpsertBankTransaction(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert bank transaction: %w", err)
	}
	m.logger.InfoContext(ctx, "bank transaction ingested",
		"bank_transaction_id", stored.ID, "external_id", stored.ExternalID, "amount", stored.TranAmt, "deposit_code", stored.DepositCode)
	return stored, nil
}

// ListBankTransactions returns up to limit transactions in status, oldest first.
func (m *Matcher) ListBankTransactions(ctx context.Context, status models.BankTransactionStatus, limit int) ([]models.BankTransaction, error) {
	if limit <= 0 {
		limit = DefaultSweepLimit
	}
	txs, err := m.store.ListBankTransactionsByStatus(ctx, status, int32(min(limit, MaxSweepLimit)))
	if err != nil {
		return nil, fmt.Errorf("failed to list bank transactions: %w", err)
	}
	return txs, nil
}

// IgnoreBankTransaction marks a NEW deposit as not a top-up so the sweep
// stops looking at it.
func (m *Matcher) IgnoreBankTransaction(ctx context.Context, id string) (*models.BankTransaction, error) {
	tx, err := m.getBankTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Status != models.BankTransactionNew {
		return nil, fmt.Errorf("ignore %s bank transaction: %w", tx.Status, credit.ErrInvalidTransition)
	}
	err = m.store.UpdateBankTransactionStatus(ctx, id, models.BankTransactionNew, models.BankTransactionIgnored, m.coord.Now())
	if errors.Is(err, storage.ErrConditionFailed) {
		return nil, fmt.Errorf("ignore bank transaction: %w", credit.ErrAlreadyMatched)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to ignore bank transaction: %w", err)
	}
	return m.getBankTransaction(ctx, id)
}

func (m *Matcher) getBankTransaction(ctx context.Context, id string) (*models.BankTransaction, error) {
	tx, err := m.store.GetBankTransaction(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("bank transaction: %w", credit.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bank transaction: %w", err)
	}
	return tx, nil
}
