package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"

	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/gateway"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/settlement"
)

var (
	confirmableStatuses  = []models.CreditOrderStatus{models.CreditOrderCreated, models.CreditOrderWaitingForDeposit}
	cancelableStatuses   = confirmableStatuses
	terminalCanceled     = []models.CreditOrderStatus{models.CreditOrderCanceled, models.CreditOrderExpired}
	settledOrderStatuses = []models.CreditOrderStatus{models.CreditOrderDone, models.CreditOrderRefunded}
)

func newCreditOrderID(organizationID string, ms int64) string {
	b := make([]byte, 3)
	_, _ = rand.Read(b)
	return fmt.Sprintf("CREDIT_%s_%d_%s", organizationID, ms, hex.EncodeToString(b))
}

// CreateCreditOrder opens a gateway top-up for supply.
func (s *Service) CreateCreditOrder(ctx context.Context, organizationID, userID string, supply int64) (*models.CreditOrder, error) {
	quote, err := credit.NewQuote(supply)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order := &models.CreditOrder{
		ID:             newCreditOrderID(organizationID, now.UnixMilli()),
		OrganizationID: organizationID,
		UserID:         userID,
		SupplyAmount:   quote.Supply,
		VatAmount:      quote.VAT,
		TotalAmount:    quote.Total,
		Status:         models.CreditOrderCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateCreditOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create credit order: %w", err)
	}
	s.logger.InfoContext(ctx, "credit order created", "order_id", order.ID, "organization_id", organizationID, "total", order.TotalAmount)
	return order, nil
}

// GetCreditOrder returns one of the organization's credit orders.
func (s *Service) GetCreditOrder(ctx context.Context, organizationID, orderID string) (*models.CreditOrder, error) {
	order, err := s.store.GetCreditOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "credit order")
	}
	if order.OrganizationID != organizationID {
		return nil, fmt.Errorf("credit order: %w", credit.ErrNotFound)
	}
	return order, nil
}

// ListCreditOrders returns the organization's credit orders, newest first.
func (s *Service) ListCreditOrders(ctx context.Context, organizationID string) ([]models.CreditOrder, error) {
	orders, err := s.store.ListCreditOrders(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credit orders: %w", err)
	}
	return orders, nil
}

// ConfirmInput is what the browser hands back after the customer authorized
// a payment.
type ConfirmInput struct {
	OrderID    string
	PaymentKey string
	Amount     int64
}

// ConfirmCreditOrder approves the payment with the gateway and records the
// outcome. A DONE payment credits the order's supply.
func (s *Service) ConfirmCreditOrder(ctx context.Context, organizationID string, in ConfirmInput) (*models.CreditOrder, error) {
	if in.OrderID == "" {
		return nil, credit.NewValidationError("orderId", "is required")
	}
	if in.PaymentKey == "" && !s.cfg.MockPayments {
		return nil, credit.NewValidationError("paymentKey", "is required")
	}

	order, err := s.GetCreditOrder(ctx, organizationID, in.OrderID)
	if err != nil {
		return nil, err
	}
	if order.TotalAmount != in.Amount {
		return nil, credit.NewValidationError("amount", "%d does not match order total %d", in.Amount, order.TotalAmount)
	}
	if slices.Contains(settledOrderStatuses, order.Status) {
		return order, nil
	}
	if !slices.Contains(confirmableStatuses, order.Status) {
		return nil, fmt.Errorf("confirm %s order: %w", order.Status, credit.ErrInvalidTransition)
	}

	paymentKey := in.PaymentKey
	if paymentKey == "" {
		paymentKey = "MOCK_" + order.ID
	}
	payment, err := s.gateway.Confirm(ctx, gateway.ConfirmRequest{PaymentKey: paymentKey, OrderID: order.ID, Amount: in.Amount})
	if err != nil {
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}

	result := settlement.PaymentResult{
		Status:         confirmedStatus(payment.Status),
		PaymentKey:     payment.PaymentKey,
		Secret:         payment.Secret,
		VirtualAccount: virtualAccount(payment.VirtualAccount),
		ApprovedAt:     payment.ApprovedAt,
	}
	if result.PaymentKey == "" {
		result.PaymentKey = paymentKey
	}
	if result.ApprovedAt == nil {
		now := s.now()
		result.ApprovedAt = &now
	}
	if _, err := s.coord.ApplyPayment(ctx, order, confirmableStatuses, result); err != nil {
		return nil, err
	}
	s.InvalidateBalance(organizationID)

	return s.GetCreditOrder(ctx, organizationID, order.ID)
}

// confirmedStatus maps the gateway answer onto the order lifecycle. Anything
// unexpected is treated as still awaiting the deposit.
func confirmedStatus(st gateway.Status) models.CreditOrderStatus {
	switch st {
	case gateway.StatusDone:
		return models.CreditOrderDone
	case gateway.StatusCanceled, gateway.StatusAborted:
		return models.CreditOrderCanceled
	default:
		return models.CreditOrderWaitingForDeposit
	}
}

func virtualAccount(va *gateway.VirtualAccount) *models.VirtualAccount {
	if va == nil {
		return nil
	}
	return &models.VirtualAccount{
		Bank:          va.BankCode,
		AccountNumber: va.AccountNumber,
		CustomerName:  va.CustomerName,
		DueDate:       va.DueDate,
	}
}

// CancelCreditOrder cancels an order that has not been paid. Canceling an
// already canceled or expired order returns it unchanged.
func (s *Service) CancelCreditOrder(ctx context.Context, organizationID, orderID string) (*models.CreditOrder, error) {
	order, err := s.GetCreditOrder(ctx, organizationID, orderID)
	if err != nil {
		return nil, err
	}
	if slices.Contains(terminalCanceled, order.Status) {
		return order, nil
	}
	if !slices.Contains(cancelableStatuses, order.Status) {
		return nil, fmt.Errorf("cancel %s order: %w", order.Status, credit.ErrInvalidTransition)
	}
	if order.Status == models.CreditOrderWaitingForDeposit && order.PaymentKey == "" {
		return nil, fmt.Errorf("cancel order without payment key: %w", credit.ErrInvalidTransition)
	}

	if order.PaymentKey != "" {
		_, err := s.gateway.Cancel(ctx, gateway.CancelRequest{
			PaymentKey:     order.PaymentKey,
			Reason:         gateway.CancelReasonUser,
			IdempotencyKey: gateway.IdempotencyKey("cancel", order.PaymentKey+":"+order.ID),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to cancel payment: %w", err)
		}
	}

	if err := s.coord.CancelCreditOrder(ctx, order.ID, []models.CreditOrderStatus{order.Status}); err != nil {
		if !errors.Is(err, credit.ErrConcurrencyConflict) {
			return nil, err
		}
		// A webhook may have canceled it first.
		current, getErr := s.GetCreditOrder(ctx, organizationID, orderID)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status != models.CreditOrderCanceled {
			return nil, err
		}
		return current, nil
	}
	s.logger.InfoContext(ctx, "credit order canceled", "order_id", order.ID, "organization_id", organizationID)
	return s.GetCreditOrder(ctx, organizationID, orderID)
}
