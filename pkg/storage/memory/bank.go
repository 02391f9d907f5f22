package memory

import (
	"context"
	"slices"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
)

func (s *Store) UpsertBankTransaction(_ context.Context, tx *models.BankTransaction) (*models.BankTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.bankTxs[tx.ID]
	if !ok {
		stored = *tx
		if stored.Status == "" {
			stored.Status = models.BankTransactionNew
		}
	} else {
		stored.ExternalID = tx.ExternalID
		stored.BankCode = tx.BankCode
		stored.AccountNumber = tx.AccountNumber
		stored.TranAmt = tx.TranAmt
		stored.PrintedContent = tx.PrintedContent
		stored.DepositCode = tx.DepositCode
		stored.OccurredAt = tx.OccurredAt
		stored.UpdatedAt = tx.UpdatedAt
	}
	s.bankTxs[tx.ID] = stored
	out := stored
	return &out, nil
}

func (s *Store) GetBankTransaction(_ context.Context, id string) (*models.BankTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.bankTxs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &tx, nil
}

func (s *Store) ListBankTransactionsByStatus(_ context.Context, status models.BankTransactionStatus, limit int32) ([]models.BankTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.BankTransaction
	for _, tx := range s.bankTxs {
		if tx.Status == status {
			out = append(out, tx)
		}
	}
	slices.SortStableFunc(out, func(a, b models.BankTransaction) int {
		return a.OccurredAt.Compare(b.OccurredAt)
	})
	if limit > 0 && len(out) > int(limit) {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) UpdateBankTransactionStatus(_ context.Context, id string, from, to models.BankTransactionStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.bankTxs[id]
	if !ok || tx.Status != from || tx.ChargeOrderID != "" {
		return storage.ErrConditionFailed
	}
	tx.Status = to
	tx.UpdatedAt = at
	s.bankTxs[id] = tx
	return nil
}

func (s *Store) GetWebhookEvent(_ context.Context, transmissionID string) (*models.WebhookEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.webhooks[transmissionID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &e, nil
}

func (s *Store) CreateWebhookEvent(_ context.Context, event *models.WebhookEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.webhooks[event.TransmissionID]; ok {
		return false, nil
	}
	s.webhooks[event.TransmissionID] = *event
	return true, nil
}

func (s *Store) UpdateWebhookEventStatus(_ context.Context, transmissionID string, status models.WebhookProcessStatus, detail string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.webhooks[transmissionID]
	if !ok {
		return storage.ErrNotFound
	}
	e.ProcessStatus = status
	e.Detail = detail
	e.ProcessedAt = &at
	s.webhooks[transmissionID] = e
	return nil
}
