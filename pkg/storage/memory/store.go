// Package memory is an in-process implementation of storage.Storage with the
// same conditional-write semantics as the DynamoDB store. It backs local
// mock-mode runs and the service tests.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
)

// Store keeps every table in maps guarded by one mutex, so each commit is
// atomic with respect to every other call.
type Store struct {
	mu           sync.Mutex
	ledger       map[string]models.LedgerEntry
	accounts     map[string]int64
	creditOrders map[string]models.CreditOrder
	chargeOrders map[string]models.ChargeOrder
	bankTxs      map[string]models.BankTransaction
	webhooks     map[string]models.WebhookEvent
	requests     map[string]models.Request
	auditLogs    []models.AuditLog
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		ledger:       make(map[string]models.LedgerEntry),
		accounts:     make(map[string]int64),
		creditOrders: make(map[string]models.CreditOrder),
		chargeOrders: make(map[string]models.ChargeOrder),
		bankTxs:      make(map[string]models.BankTransaction),
		webhooks:     make(map[string]models.WebhookEvent),
		requests:     make(map[string]models.Request),
	}
}

// Make sure we conform to the interface
var _ storage.Storage = (*Store)(nil)

func ledgerKey(organizationID, uniqueKey string) string {
	return organizationID + "\x00" + uniqueKey
}

// upsertLedger must be called with mu held.
func (s *Store) upsertLedger(e models.LedgerEntry) bool {
	k := ledgerKey(e.OrganizationID, e.UniqueKey)
	if _, ok := s.ledger[k]; ok {
		return false
	}
	s.ledger[k] = e
	return true
}

func (s *Store) bump(organizationID string) {
	s.accounts[organizationID]++
}

func (s *Store) AppendLedgerEntry(_ context.Context, entry *models.LedgerEntry) (*models.AppendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.ledger[ledgerKey(entry.OrganizationID, entry.UniqueKey)]; ok {
		return &models.AppendResult{Inserted: false, Stored: existing}, nil
	}
	s.upsertLedger(*entry)
	s.bump(entry.OrganizationID)
	return &models.AppendResult{Inserted: true, Stored: *entry}, nil
}

func (s *Store) GetLedgerEntry(_ context.Context, organizationID, uniqueKey string) (*models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.ledger[ledgerKey(organizationID, uniqueKey)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &e, nil
}

func (s *Store) ListLedgerEntries(_ context.Context, organizationID string) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.LedgerEntry
	for _, e := range s.ledger {
		if e.OrganizationID == organizationID {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (s *Store) ListLedgerEntriesByRef(_ context.Context, organizationID, refID string) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.LedgerEntry
	for _, e := range s.ledger {
		if e.OrganizationID == organizationID && e.RefID == refID {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (s *Store) GetAccountVersion(_ context.Context, organizationID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[organizationID], nil
}

func sortEntries(entries []models.LedgerEntry) {
	slices.SortFunc(entries, func(a, b models.LedgerEntry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}

func newestFirst[T any](items []T, createdAt func(T) time.Time) {
	slices.SortStableFunc(items, func(a, b T) int {
		return createdAt(b).Compare(createdAt(a))
	})
}
