package orders

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/cache"
	"github.com/chris/prepaid-credit-ledger/pkg/gateway"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/settlement"
	"github.com/chris/prepaid-credit-ledger/pkg/storage/memory"
	"github.com/stretchr/testify/require"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time           { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	svc   *Service
	coord *settlement.Coordinator
	store *memory.Store
	clock *testClock
}

func newFixture(t *testing.T, gw gateway.Client) *fixture {
	t.Helper()
	clock := &testClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coord := settlement.NewCoordinator(store, logger, settlement.WithClock(clock.Now))
	if gw == nil {
		gw = &gateway.MockClient{Now: clock.Now}
	}
	balances := cache.NewTTL[string, models.Balance](time.Minute, 100, clock.Now)
	cfg := Config{
		ChargeOrderTTL: 24 * time.Hour,
		DepositAccount: DepositAccount{BankName: "Test Bank", AccountNumber: "100-200-300", HolderName: "Credit Co"},
	}
	return &fixture{
		svc:   NewService(store, coord, gw, balances, cfg, logger),
		coord: coord,
		store: store,
		clock: clock,
	}
}

// paidOrder creates and confirms a credit order for supply.
func (f *fixture) paidOrder(t *testing.T, org string, supply int64, paymentKey string) *models.CreditOrder {
	t.Helper()
	ctx := context.Background()
	order, err := f.svc.CreateCreditOrder(ctx, org, "user-1", supply)
	require.NoError(t, err)
	confirmed, err := f.svc.ConfirmCreditOrder(ctx, org, ConfirmInput{OrderID: order.ID, PaymentKey: paymentKey, Amount: order.TotalAmount})
	require.NoError(t, err)
	require.Equal(t, models.CreditOrderDone, confirmed.Status)
	return confirmed
}
