package settlement

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/chris/prepaid-credit-ledger/pkg/balance"
	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/metrics"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
	"github.com/google/uuid"
)

// MaxSpendItems bounds a batch so its commit stays within one DynamoDB
// transaction: each item writes at most a request, a SPEND, a replace
// REFUND and a cancel, plus one account update for the batch.
const MaxSpendItems = 24

var requestNamespace = uuid.MustParse("6f1c2a9e-4d0b-5c8e-9a57-3b1d2e4f6a80")

// RequestID is the deterministic id of the request created for a case in a
// batch. A retried batch therefore targets the same records.
func RequestID(batchID, caseID string) string {
	return uuid.NewSHA1(requestNamespace, []byte(batchID+":"+caseID)).String()
}

// SpendItem is one case of a batch. ReplacesRequestID names an existing
// request this one supersedes; its price is refunded.
type SpendItem struct {
	CaseID            string
	PriceAmount       int64
	ReplacesRequestID string
}

// SpendBatch is a set of requests created together.
type SpendBatch struct {
	OrganizationID string
	UserID         string
	BatchID        string
	Items          []SpendItem
}

// SpendResult reports what the batch created and the balance afterwards.
type SpendResult struct {
	Requests []models.Request `json:"requests"`
	Charged  int64            `json:"charged"`
	Refunded int64            `json:"refunded"`
	Balance  models.Balance   `json:"balance"`
}

func (b SpendBatch) validate() error {
	if b.OrganizationID == "" {
		return credit.NewValidationError("organizationId", "is required")
	}
	if b.BatchID == "" {
		return credit.NewValidationError("batchId", "is required")
	}
	if len(b.Items) == 0 {
		return credit.NewValidationError("items", "must not be empty")
	}
	if len(b.Items) > MaxSpendItems {
		return credit.NewValidationError("items", "at most %d items per batch", MaxSpendItems)
	}
	own := make(map[string]bool, len(b.Items))
	for _, it := range b.Items {
		own[RequestID(b.BatchID, it.CaseID)] = true
	}
	seen := make(map[string]bool, len(b.Items))
	replaced := make(map[string]bool, len(b.Items))
	for i, it := range b.Items {
		if it.CaseID == "" {
			return credit.NewValidationError(fmt.Sprintf("items[%d].caseId", i), "is required")
		}
		if seen[it.CaseID] {
			return credit.NewValidationError(fmt.Sprintf("items[%d].caseId", i), "duplicate case %q", it.CaseID)
		}
		seen[it.CaseID] = true
		if it.PriceAmount < 0 {
			return credit.NewValidationError(fmt.Sprintf("items[%d].priceAmount", i), "must not be negative")
		}
		if it.ReplacesRequestID == "" {
			continue
		}
		// Each replaced request is refunded once, and only if it predates the batch.
		if replaced[it.ReplacesRequestID] {
			return credit.NewValidationError(fmt.Sprintf("items[%d].replacesRequestId", i), "request %s is replaced twice", it.ReplacesRequestID)
		}
		if own[it.ReplacesRequestID] {
			return credit.NewValidationError(fmt.Sprintf("items[%d].replacesRequestId", i), "request %s is created by this batch", it.ReplacesRequestID)
		}
		replaced[it.ReplacesRequestID] = true
	}
	return nil
}

// checkCreditLock fails with a CreditLockedError while any charge order of
// the organization is locked.
func (c *Coordinator) checkCreditLock(ctx context.Context, organizationID string) error {
	orders, err := c.store.ListChargeOrders(ctx, organizationID)
	if err != nil {
		return fmt.Errorf("failed to list charge orders: %w", err)
	}
	for _, o := range orders {
		if o.IsLocked {
			return &credit.CreditLockedError{ChargeOrderID: o.ID, Reason: o.LockedReason, LockedAt: o.LockedAt}
		}
	}
	return nil
}

// SpendOnCreate creates the batch's requests and debits their prices in one
// transaction. A locked organization cannot spend. The balance is checked
// against the ledger as of the account version read first; a concurrent
// ledger write fails the commit with ErrConcurrencyConflict instead of
// overspending.
func (c *Coordinator) SpendOnCreate(ctx context.Context, batch SpendBatch) (*SpendResult, error) {
	if err := batch.validate(); err != nil {
		return nil, err
	}
	org := batch.OrganizationID
	if err := c.checkCreditLock(ctx, org); err != nil {
		return nil, err
	}

	version, err := c.store.GetAccountVersion(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("failed to read account version: %w", err)
	}
	entries, err := c.store.ListLedgerEntries(ctx, org)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	existing := make(map[string]bool, len(entries))
	for _, e := range entries {
		existing[e.UniqueKey] = true
	}

	now := c.Now()
	commit := storage.SpendCommit{OrganizationID: org, ExpectedVersion: version, At: now}
	result := &SpendResult{}
	var required int64
	var pending []models.LedgerEntry

	for _, it := range batch.Items {
		if it.ReplacesRequestID != "" {
			old, err := c.store.GetRequest(ctx, it.ReplacesRequestID)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					return nil, fmt.Errorf("replaced request %s: %w", it.ReplacesRequestID, credit.ErrNotFound)
				}
				return nil, fmt.Errorf("failed to get replaced request: %w", err)
			}
			if old.OrganizationID != org {
				return nil, fmt.Errorf("replaced request %s: %w", it.ReplacesRequestID, credit.ErrNotFound)
			}
			// A canceled request was refunded already unless this is a retry
			// of the batch that replaced it.
			if old.Status == models.RequestCanceled && old.PriceAmount > 0 && !existing[old.ID+":replace_refund"] {
				return nil, credit.NewValidationError("replacesRequestId", "request %s is already canceled", old.ID)
			}
			commit.CanceledRequestIDs = append(commit.CanceledRequestIDs, old.ID)
			if old.PriceAmount > 0 {
				refund := models.LedgerEntry{
					OrganizationID: org,
					UniqueKey:      old.ID + ":replace_refund",
					ID:             newEntryID(),
					UserID:         batch.UserID,
					Type:           models.REFUND,
					Amount:         old.PriceAmount,
					RefType:        models.RefRequest,
					RefID:          old.ID,
					CreatedAt:      now,
				}
				commit.Entries = append(commit.Entries, refund)
				if !existing[refund.UniqueKey] {
					pending = append(pending, refund)
					result.Refunded += old.PriceAmount
				}
			}
		}

		req := models.Request{
			ID:             RequestID(batch.BatchID, it.CaseID),
			OrganizationID: org,
			UserID:         batch.UserID,
			BatchID:        batch.BatchID,
			CaseID:         it.CaseID,
			PriceAmount:    it.PriceAmount,
			Status:         models.RequestActive,
			ReplacesID:     it.ReplacesRequestID,
			CreatedAt:      now,
		}
		commit.Requests = append(commit.Requests, req)
		result.Requests = append(result.Requests, req)

		if it.PriceAmount == 0 {
			continue
		}
		spend := models.LedgerEntry{
			OrganizationID: org,
			UniqueKey:      fmt.Sprintf("%s:case:%s:spend", batch.BatchID, it.CaseID),
			ID:             newEntryID(),
			UserID:         batch.UserID,
			Type:           models.SPEND,
			Amount:         -it.PriceAmount,
			RefType:        models.RefRequest,
			RefID:          req.ID,
			CreatedAt:      now,
		}
		commit.Entries = append(commit.Entries, spend)
		if !existing[spend.UniqueKey] {
			pending = append(pending, spend)
			required += it.PriceAmount
		}
	}

	// Replace refunds land before the spends they fund.
	before := balance.Calculate(slices.Concat(entries, refundsOnly(pending)))
	if before.Balance < required {
		return nil, &credit.InsufficientCreditError{Balance: before.Balance, Required: required}
	}

	if err := c.store.CommitSpend(ctx, commit); err != nil {
		if errors.Is(err, storage.ErrConditionFailed) {
			c.logger.WarnContext(ctx, "spend lost optimistic check", "organization_id", org, "batch_id", batch.BatchID, "version", version)
		}
		return nil, conflict("spend", err, credit.ErrConcurrencyConflict)
	}

	for _, e := range pending {
		metrics.LedgerEntriesWritten.WithLabelValues(string(e.Type)).Inc()
	}
	result.Charged = required
	result.Balance = balance.Calculate(slices.Concat(entries, pending))
	c.logger.InfoContext(ctx, "spend committed",
		"organization_id", org, "batch_id", batch.BatchID, "items", len(batch.Items), "charged", required)
	return result, nil
}

func refundsOnly(entries []models.LedgerEntry) []models.LedgerEntry {
	var out []models.LedgerEntry
	for _, e := range entries {
		if e.Type == models.REFUND {
			out = append(out, e)
		}
	}
	return out
}

// CancelRefund marks a request canceled and refunds what was spent on it,
// net of any refund it already received. It returns the refunded amount.
func (c *Coordinator) CancelRefund(ctx context.Context, organizationID, userID, requestID string) (int64, error) {
	req, err := c.store.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, credit.ErrNotFound
		}
		return 0, fmt.Errorf("failed to get request: %w", err)
	}
	if req.OrganizationID != organizationID {
		return 0, credit.ErrNotFound
	}

	entries, err := c.store.ListLedgerEntriesByRef(ctx, organizationID, requestID)
	if err != nil {
		return 0, fmt.Errorf("failed to list request ledger entries: %w", err)
	}

	key := requestID + ":cancel_refund"
	var refunded int64
	for _, e := range entries {
		if e.UniqueKey == key {
			return e.Amount, c.commitCancel(ctx, organizationID, requestID, nil)
		}
		if e.Type == models.REFUND {
			refunded += e.Amount
		}
	}

	net := balance.SumSpent(entries) - refunded
	var entry *models.LedgerEntry
	if net > 0 {
		entry = &models.LedgerEntry{
			OrganizationID: organizationID,
			UniqueKey:      key,
			ID:             newEntryID(),
			UserID:         userID,
			Type:           models.REFUND,
			Amount:         net,
			RefType:        models.RefRequest,
			RefID:          requestID,
			CreatedAt:      c.Now(),
		}
	}
	if err := c.commitCancel(ctx, organizationID, requestID, entry); err != nil {
		return 0, err
	}
	if entry == nil {
		return 0, nil
	}
	metrics.LedgerEntriesWritten.WithLabelValues(string(models.REFUND)).Inc()
	c.logger.InfoContext(ctx, "request cancel refunded", "organization_id", organizationID, "request_id", requestID, "amount", net)
	return net, nil
}

func (c *Coordinator) commitCancel(ctx context.Context, organizationID, requestID string, entry *models.LedgerEntry) error {
	err := c.store.CommitCancelRefund(ctx, storage.CancelRefundCommit{
		OrganizationID: organizationID,
		RequestID:      requestID,
		Entry:          entry,
		At:             c.Now(),
	})
	if err != nil {
		return conflict("cancel_refund", err, credit.ErrNotFound)
	}
	return nil
}
