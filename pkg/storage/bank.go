package storage

import (
	"context"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/models"
)

// BankTransactionStore manages ingested bank deposits.
type BankTransactionStore interface {
	// UpsertBankTransaction inserts tx or refreshes the descriptive fields of
	// an existing one. Status and match fields of an existing record are kept.
	UpsertBankTransaction(ctx context.Context, tx *models.BankTransaction) (*models.BankTransaction, error)

	GetBankTransaction(ctx context.Context, id string) (*models.BankTransaction, error)

	// ListBankTransactionsByStatus returns up to limit transactions, oldest first.
	ListBankTransactionsByStatus(ctx context.Context, status models.BankTransactionStatus, limit int32) ([]models.BankTransaction, error)

	// UpdateBankTransactionStatus moves an unmatched transaction from one status to another.
	UpdateBankTransactionStatus(ctx context.Context, id string, from, to models.BankTransactionStatus, at time.Time) error
}

// WebhookEventStore records inbound gateway callbacks once per transmission id.
type WebhookEventStore interface {
	GetWebhookEvent(ctx context.Context, transmissionID string) (*models.WebhookEvent, error)

	// CreateWebhookEvent returns false when an event with the same
	// transmission id already exists.
	CreateWebhookEvent(ctx context.Context, event *models.WebhookEvent) (bool, error)

	UpdateWebhookEventStatus(ctx context.Context, transmissionID string, status models.WebhookProcessStatus, detail string, at time.Time) error
}
