package worker

import (
	"context"

	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/orders"
	"github.com/chris/prepaid-credit-ledger/pkg/settlement"
)

// Refunds joins the coordinator and the order service into a Refunder.
type Refunds struct {
	Coordinator *settlement.Coordinator
	Orders      *orders.Service
}

var _ Refunder = Refunds{}

func (r Refunds) CancelRefund(ctx context.Context, organizationID, userID, requestID string) (int64, error) {
	amount, err := r.Coordinator.CancelRefund(ctx, organizationID, userID, requestID)
	if err == nil && amount > 0 {
		r.Orders.InvalidateBalance(organizationID)
	}
	return amount, err
}

func (r Refunds) RefundAllForWithdraw(ctx context.Context, organizationID, userID string, account *models.RefundAccount) (*models.RefundResult, error) {
	return r.Orders.RefundAllForWithdraw(ctx, organizationID, userID, account)
}
