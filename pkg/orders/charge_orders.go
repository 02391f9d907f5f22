package orders

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
	"github.com/google/uuid"
)

// depositCodeSpace is the number of distinct two-digit codes, 01 through 99.
const depositCodeSpace = 99

// ErrDepositCodesExhausted is returned when every deposit code is held by a
// pending charge order.
var ErrDepositCodesExhausted = errors.New("orders: no free deposit code")

// ChargeOrderResult is a charge order together with where to send the money.
type ChargeOrderResult struct {
	Order          *models.ChargeOrder `json:"order"`
	DepositAccount DepositAccount      `json:"depositAccount"`
	// Created is false when an open order was handed back instead.
	Created bool `json:"-"`
}

// CreateChargeOrder opens a bank-transfer top-up. An organization has at most
// one open order: if a PENDING, unexpired, unmatched one exists it is returned
// as is, keeping its code and expiry.
func (s *Service) CreateChargeOrder(ctx context.Context, organizationID, userID string, supply int64) (*ChargeOrderResult, error) {
	quote, err := credit.NewQuote(supply)
	if err != nil {
		return nil, err
	}

	now := s.now()
	existing, err := s.store.ListChargeOrders(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list charge orders: %w", err)
	}
	for i := range existing {
		o := &existing[i]
		if o.Status == models.ChargeOrderPending && o.BankTransactionID == "" && !o.Expired(now) {
			return &ChargeOrderResult{Order: o, DepositAccount: s.cfg.DepositAccount}, nil
		}
	}

	code, err := s.allocateDepositCode(ctx)
	if err != nil {
		return nil, err
	}

	order := &models.ChargeOrder{
		ID:             uuid.Must(uuid.NewV7()).String(),
		OrganizationID: organizationID,
		UserID:         userID,
		SupplyAmount:   quote.Supply,
		VatAmount:      quote.VAT,
		AmountTotal:    quote.Total,
		DepositCode:    code,
		DepositorName:  code,
		Status:         models.ChargeOrderPending,
		ExpiresAt:      now.Add(s.cfg.ChargeOrderTTL),
		CreatedAt:      now,
		UpdatedAt:      now,

		AdminApprovalStatus: models.ApprovalPending,
	}
	if err := s.store.CreateChargeOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create charge order: %w", err)
	}
	s.logger.InfoContext(ctx, "charge order created",
		"order_id", order.ID, "organization_id", organizationID, "deposit_code", code, "total", order.AmountTotal)
	return &ChargeOrderResult{Order: order, DepositAccount: s.cfg.DepositAccount, Created: true}, nil
}

// allocateDepositCode picks a random code not held by any pending order.
// Two concurrent creates can still draw the same code; the matcher then
// falls back to amount plus newest order, and admins can match by hand.
func (s *Service) allocateDepositCode(ctx context.Context) (string, error) {
	pending, err := s.store.ListChargeOrdersByStatus(ctx, models.ChargeOrderPending)
	if err != nil {
		return "", fmt.Errorf("failed to list pending charge orders: %w", err)
	}
	now := s.now()
	used := make(map[string]bool, len(pending))
	for _, o := range pending {
		if !o.Expired(now) {
			used[o.DepositCode] = true
		}
	}

	free := make([]string, 0, depositCodeSpace)
	for i := 1; i <= depositCodeSpace; i++ {
		code := fmt.Sprintf("%02d", i)
		if !used[code] {
			free = append(free, code)
		}
	}
	if len(free) == 0 {
		return "", ErrDepositCodesExhausted
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(free))))
	if err != nil {
		return "", fmt.Errorf("failed to draw deposit code: %w", err)
	}
	return free[n.Int64()], nil
}

// GetChargeOrder returns one of the organization's charge orders.
func (s *Service) GetChargeOrder(ctx context.Context, organizationID, orderID string) (*models.ChargeOrder, error) {
	order, err := s.store.GetChargeOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "charge order")
	}
	if order.OrganizationID != organizationID {
		return nil, fmt.Errorf("charge order: %w", credit.ErrNotFound)
	}
	return order, nil
}

// ListChargeOrders returns the organization's charge orders, newest first.
func (s *Service) ListChargeOrders(ctx context.Context, organizationID string) ([]models.ChargeOrder, error) {
	orders, err := s.store.ListChargeOrders(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list charge orders: %w", err)
	}
	return orders, nil
}

// CancelChargeOrder withdraws a pending order before any deposit was matched.
func (s *Service) CancelChargeOrder(ctx context.Context, organizationID, orderID string) (*models.ChargeOrder, error) {
	order, err := s.GetChargeOrder(ctx, organizationID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.ChargeOrderPending || order.BankTransactionID != "" {
		return nil, fmt.Errorf("cancel %s charge order: %w", order.Status, credit.ErrInvalidTransition)
	}

	err = s.store.UpdateChargeOrderStatus(ctx, order.ID, models.ChargeOrderPending, models.ChargeOrderCanceled, s.now())
	if errors.Is(err, storage.ErrConditionFailed) {
		return nil, fmt.Errorf("cancel charge order: %w", credit.ErrInvalidTransition)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel charge order: %w", err)
	}
	s.logger.InfoContext(ctx, "charge order canceled", "order_id", order.ID, "organization_id", organizationID)
	return s.GetChargeOrder(ctx, organizationID, orderID)
}

// ExpireChargeOrders moves every PENDING order past its expiry to EXPIRED
// and returns how many were moved. Orders matched concurrently are skipped.
func (s *Service) ExpireChargeOrders(ctx context.Context) (int, error) {
	pending, err := s.store.ListChargeOrdersByStatus(ctx, models.ChargeOrderPending)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending charge orders: %w", err)
	}

	now := s.now()
	expired := 0
	for _, o := range pending {
		if !o.Expired(now) || o.BankTransactionID != "" {
			continue
		}
		err := s.store.UpdateChargeOrderStatus(ctx, o.ID, models.ChargeOrderPending, models.ChargeOrderExpired, now)
		if errors.Is(err, storage.ErrConditionFailed) {
			continue
		}
		if err != nil {
			return expired, fmt.Errorf("failed to expire charge order %s: %w", o.ID, err)
		}
		expired++
	}
	if expired > 0 {
		s.logger.InfoContext(ctx, "charge orders expired", "count", expired)
	}
	return expired, nil
}
