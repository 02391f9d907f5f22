package storage

import (
	"context"

	"github.com/chris/prepaid-credit-ledger/pkg/models"
)

// LedgerReader defines the interface for reading ledger data.
//
//go:generate mockery --name LedgerReader
type LedgerReader interface {
	// GetLedgerEntry retrieves an organization's entry by its unique key.
	GetLedgerEntry(ctx context.Context, organizationID, uniqueKey string) (*models.LedgerEntry, error)

	// ListLedgerEntries retrieves every entry of an organization with a
	// strongly consistent read, ordered by createdAt then id.
	ListLedgerEntries(ctx context.Context, organizationID string) ([]models.LedgerEntry, error)

	// ListLedgerEntriesByRef retrieves the organization's entries referencing refID.
	ListLedgerEntriesByRef(ctx context.Context, organizationID, refID string) ([]models.LedgerEntry, error)

	// GetAccountVersion returns the organization's ledger version, 0 if it
	// has never been written.
	GetAccountVersion(ctx context.Context, organizationID string) (int64, error)
}

// LedgerWriter appends standalone entries outside of a settlement commit.
type LedgerWriter interface {
	// AppendLedgerEntry stores entry unless its unique key already exists, in
	// which case the stored entry is returned with Inserted=false.
	AppendLedgerEntry(ctx context.Context, entry *models.LedgerEntry) (*models.AppendResult, error)
}
