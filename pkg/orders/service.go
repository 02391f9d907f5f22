// Package orders runs the credit order (payment gateway) and charge order
// (bank transfer) lifecycles. Status changes that touch the ledger are
// delegated to the settlement coordinator.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/cache"
	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/gateway"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/settlement"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
)

// DepositAccount is the receiving account shown for bank-transfer top-ups.
type DepositAccount struct {
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	HolderName    string `json:"holderName"`
}

// Config holds the order lifecycle settings.
type Config struct {
	ChargeOrderTTL time.Duration
	DepositAccount DepositAccount
	MockPayments   bool
}

// Service manages credit and charge orders.
type Service struct {
	store    storage.ApiStore
	coord    *settlement.Coordinator
	gateway  gateway.Client
	balances *cache.TTL[string, models.Balance]
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a Service. balances caches dashboard balance reads and
// may be nil.
func NewService(store storage.ApiStore, coord *settlement.Coordinator, gw gateway.Client, balances *cache.TTL[string, models.Balance], cfg Config, logger *slog.Logger) *Service {
	if cfg.ChargeOrderTTL <= 0 {
		cfg.ChargeOrderTTL = 24 * time.Hour
	}
	return &Service{
		store:    store,
		coord:    coord,
		gateway:  gw,
		balances: balances,
		cfg:      cfg,
		logger:   logger,
		now:      coord.Now,
	}
}

// DepositAccount returns the configured receiving account.
func (s *Service) DepositAccount() DepositAccount {
	return s.cfg.DepositAccount
}

// Balance returns the organization's balance for display. It may be served
// from cache; spend and refund checks never go through here.
func (s *Service) Balance(ctx context.Context, organizationID string) (models.Balance, error) {
	if s.balances != nil {
		if b, ok := s.balances.Get(organizationID); ok {
			return b, nil
		}
	}
	b, err := s.coord.Balance(ctx, organizationID)
	if err != nil {
		return models.Balance{}, err
	}
	if s.balances != nil {
		s.balances.Set(organizationID, b)
	}
	return b, nil
}

// InvalidateBalance drops the cached balance of an organization after a
// ledger write.
func (s *Service) InvalidateBalance(organizationID string) {
	if s.balances != nil {
		s.balances.Delete(organizationID)
	}
}

func notFound(err error, what string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, credit.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
