package orders

import (
	"context"
	"fmt"

	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/gateway"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
)

// RefundInput asks for paid credit to be returned through the gateway.
type RefundInput struct {
	OrganizationID string
	UserID         string
	SupplyAmount   int64
	RefundAccount  *models.RefundAccount
}

func (in RefundInput) validate() error {
	if in.RefundAccount == nil || in.RefundAccount.Bank == "" || in.RefundAccount.AccountNumber == "" || in.RefundAccount.HolderName == "" {
		return credit.NewValidationError("refundReceiveAccount", "bank, account number and holder name are required")
	}
	if in.SupplyAmount <= 0 {
		return credit.NewValidationError("supplyAmount", "must be positive")
	}
	return nil
}

// Refund returns SupplyAmount of paid credit plus its VAT. The amount is
// carved out of DONE orders newest first, one gateway cancel and one commit
// per order. If a later chunk fails, the earlier ones stay refunded and the
// partial result is returned with the error.
func (s *Service) Refund(ctx context.Context, in RefundInput) (*models.RefundResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	bal, err := s.coord.Balance(ctx, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	if in.SupplyAmount > bal.PaidBalance {
		return nil, &credit.InsufficientPaidBalanceError{Available: bal.PaidBalance, Required: in.SupplyAmount}
	}

	orders, byID, err := s.refundableOrders(ctx, in.OrganizationID)
	if err != nil {
		return nil, err
	}
	plan, err := credit.PlanRefund(in.SupplyAmount, orders)
	if err != nil {
		return nil, err
	}

	result := &models.RefundResult{
		RequestedSupply: plan.Supply,
		RequestedVat:    plan.VAT,
		RequestedTotal:  plan.Total(),
		Allocations:     []models.RefundAllocation{},
	}
	defer s.InvalidateBalance(in.OrganizationID)

	for _, chunk := range plan.Chunks {
		idempotencyKey := gateway.IdempotencyKey("refund",
			fmt.Sprintf("%s:%d:%d", chunk.PaymentKey, chunk.PriorRefundedSupply, chunk.Total()))
		payment, err := s.gateway.Cancel(ctx, gateway.CancelRequest{
			PaymentKey:     chunk.PaymentKey,
			Reason:         gateway.CancelReasonRefund,
			Amount:         chunk.Total(),
			RefundAccount:  in.RefundAccount,
			IdempotencyKey: idempotencyKey,
		})
		if err != nil {
			return result, fmt.Errorf("failed to refund order %s: %w", chunk.OrderID, err)
		}

		txKey := payment.LastTransactionKey()
		if txKey == "" {
			txKey = idempotencyKey
		}
		if err := s.coord.ApplyRefundChunk(ctx, byID[chunk.OrderID], in.UserID, chunk, txKey); err != nil {
			s.logger.ErrorContext(ctx, "gateway refunded but commit failed",
				"order_id", chunk.OrderID, "transaction_key", txKey, "amount", chunk.Total(), "error", err)
			return result, err
		}

		result.Allocations = append(result.Allocations, models.RefundAllocation{
			CreditOrderID:  chunk.OrderID,
			PaymentKey:     chunk.PaymentKey,
			RefundSupply:   chunk.Supply,
			RefundVat:      chunk.VAT,
			RefundTotal:    chunk.Total(),
			TransactionKey: txKey,
		})
	}

	s.logger.InfoContext(ctx, "paid credit refunded",
		"organization_id", in.OrganizationID, "supply", plan.Supply, "vat", plan.VAT, "chunks", len(plan.Chunks))
	return result, nil
}

// RefundAllForWithdraw refunds all paid credit of an organization that is
// closing its account. The amount is capped at what DONE orders can still
// return; with nothing to refund an empty result is returned.
func (s *Service) RefundAllForWithdraw(ctx context.Context, organizationID, userID string, account *models.RefundAccount) (*models.RefundResult, error) {
	bal, err := s.coord.Balance(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	orders, _, err := s.refundableOrders(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	var refundable int64
	for _, o := range orders {
		refundable += o.SupplyAmount - o.RefundedSupply
	}

	amount := min(bal.PaidBalance, refundable)
	if amount <= 0 {
		return &models.RefundResult{Allocations: []models.RefundAllocation{}}, nil
	}
	return s.Refund(ctx, RefundInput{
		OrganizationID: organizationID,
		UserID:         userID,
		SupplyAmount:   amount,
		RefundAccount:  account,
	})
}

func (s *Service) refundableOrders(ctx context.Context, organizationID string) ([]credit.RefundableOrder, map[string]*models.CreditOrder, error) {
	all, err := s.store.ListCreditOrders(ctx, organizationID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list credit orders: %w", err)
	}
	var out []credit.RefundableOrder
	byID := make(map[string]*models.CreditOrder)
	for i := range all {
		o := &all[i]
		if o.Status != models.CreditOrderDone || o.PaymentKey == "" || o.RefundableSupply() <= 0 {
			continue
		}
		byID[o.ID] = o
		out = append(out, credit.RefundableOrder{
			OrderID:        o.ID,
			PaymentKey:     o.PaymentKey,
			SupplyAmount:   o.SupplyAmount,
			RefundedSupply: o.RefundedSupplyAmount,
			CreatedAt:      o.CreatedAt,
		})
	}
	return out, byID, nil
}
