// Package settlement is the only writer of ledger entries. Every operation
// here commits the ledger entry together with the record it settles, keyed
// by a deterministic unique key, so a replay of any operation is a no-op.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/balance"
	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/metrics"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
	"github.com/google/uuid"
)

// Coordinator commits settlements against a Storage.
type Coordinator struct {
	store  storage.Storage
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(store storage.Storage, logger *slog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now is the coordinator's clock, truncated to milliseconds so stored and
// in-memory timestamps compare equal.
func (c *Coordinator) Now() time.Time {
	return c.now().UTC().Truncate(time.Millisecond)
}

func newEntryID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Balance replays the organization's ledger. Reads are strongly consistent.
func (c *Coordinator) Balance(ctx context.Context, organizationID string) (models.Balance, error) {
	entries, err := c.store.ListLedgerEntries(ctx, organizationID)
	if err != nil {
		return models.Balance{}, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return balance.Calculate(entries), nil
}

// GrantBonus appends a BONUS entry. reference makes the grant idempotent.
func (c *Coordinator) GrantBonus(ctx context.Context, organizationID, userID string, amount int64, reference string) (*models.AppendResult, error) {
	if amount <= 0 {
		return nil, credit.NewValidationError("amount", "must be positive")
	}
	return c.appendAdmin(ctx, models.BONUS, organizationID, userID, amount, reference)
}

// Adjust appends a signed ADJUST entry against paid credit. A negative
// adjustment may not take the balance below zero.
func (c *Coordinator) Adjust(ctx context.Context, organizationID, userID string, amount int64, reference string) (*models.AppendResult, error) {
	if amount == 0 {
		return nil, credit.NewValidationError("amount", "must not be zero")
	}
	if amount < 0 {
		bal, err := c.Balance(ctx, organizationID)
		if err != nil {
			return nil, err
		}
		if bal.PaidBalance < -amount {
			return nil, &credit.InsufficientCreditError{Balance: bal.PaidBalance, Required: -amount}
		}
	}
	return c.appendAdmin(ctx, models.ADJUST, organizationID, userID, amount, reference)
}

func (c *Coordinator) appendAdmin(ctx context.Context, typ models.LedgerEntryType, organizationID, userID string, amount int64, reference string) (*models.AppendResult, error) {
	if organizationID == "" {
		return nil, credit.NewValidationError("organizationId", "is required")
	}
	if reference == "" {
		return nil, credit.NewValidationError("reference", "is required")
	}

	entry := &models.LedgerEntry{
		OrganizationID: organizationID,
		UniqueKey:      fmt.Sprintf("admin:%s:%s", strings.ToLower(string(typ)), reference),
		ID:             newEntryID(),
		UserID:         userID,
		Type:           typ,
		Amount:         amount,
		RefType:        models.RefAdmin,
		RefID:          reference,
		CreatedAt:      c.Now(),
	}
	result, err := c.store.AppendLedgerEntry(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to append %s entry: %w", typ, err)
	}
	if result.Inserted {
		metrics.LedgerEntriesWritten.WithLabelValues(string(typ)).Inc()
	}
	c.logger.InfoContext(ctx, "ledger entry appended",
		"organization_id", organizationID, "type", typ, "amount", amount, "inserted", result.Inserted)
	return result, nil
}

// conflict translates a lost conditional write into the domain error the
// caller should see and counts it.
func conflict(op string, err, domainErr error) error {
	if errors.Is(err, storage.ErrConditionFailed) {
		metrics.SettlementConflicts.WithLabelValues(op).Inc()
		return domainErr
	}
	return err
}
