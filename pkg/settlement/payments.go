package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/metrics"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
)

// PaymentResult is a gateway outcome to record on a credit order.
type PaymentResult struct {
	Status         models.CreditOrderStatus
	PaymentKey     string
	Secret         string
	VirtualAccount *models.VirtualAccount
	ApprovedAt     *time.Time
}

// ApplyPayment moves order from one of from to result.Status. A DONE result
// also writes the CHARGE entry for the order's supply in the same
// transaction. It reports false when the order had already left from, which
// callers treat as an idempotent replay.
func (c *Coordinator) ApplyPayment(ctx context.Context, order *models.CreditOrder, from []models.CreditOrderStatus, result PaymentResult) (bool, error) {
	now := c.Now()
	commit := storage.GatewayPaymentCommit{
		OrderID:          order.ID,
		ExpectedStatuses: from,
		Status:           result.Status,
		PaymentKey:       result.PaymentKey,
		Secret:           result.Secret,
		VirtualAccount:   result.VirtualAccount,
		ApprovedAt:       result.ApprovedAt,
		At:               now,
	}

	if result.Status == models.CreditOrderDone {
		paymentKey := result.PaymentKey
		if paymentKey == "" {
			paymentKey = order.PaymentKey
		}
		if paymentKey == "" {
			return false, credit.NewValidationError("paymentKey", "is required to settle order %s", order.ID)
		}
		commit.DepositedAt = &now
		commit.Entry = &models.LedgerEntry{
			OrganizationID: order.OrganizationID,
			UniqueKey:      fmt.Sprintf("gateway:%s:charge", paymentKey),
			ID:             newEntryID(),
			UserID:         order.UserID,
			Type:           models.CHARGE,
			Amount:         order.SupplyAmount,
			RefType:        models.RefCreditOrder,
			RefID:          order.ID,
			CreatedAt:      now,
		}
	}

	applied, err := c.store.CommitGatewayPayment(ctx, commit)
	if err != nil {
		return false, fmt.Errorf("failed to commit gateway payment: %w", err)
	}
	if !applied {
		c.logger.InfoContext(ctx, "gateway payment already applied", "order_id", order.ID, "status", result.Status)
		return false, nil
	}
	if commit.Entry != nil {
		metrics.LedgerEntriesWritten.WithLabelValues(string(models.CHARGE)).Inc()
	}
	c.logger.InfoContext(ctx, "gateway payment applied", "order_id", order.ID, "organization_id", order.OrganizationID, "status", result.Status)
	return true, nil
}

// CancelCreditOrder flips an order to CANCELED if it is still in one of from.
func (c *Coordinator) CancelCreditOrder(ctx context.Context, orderID string, from []models.CreditOrderStatus) error {
	if err := c.store.CancelCreditOrder(ctx, orderID, from, c.Now()); err != nil {
		return conflict("cancel_credit_order", err, credit.ErrConcurrencyConflict)
	}
	return nil
}

// ApplyRefundChunk records one gateway refund against order: the refunded
// totals move forward and a REFUND entry for the chunk's supply is written.
// transactionKey identifies the gateway cancel and keys the entry.
func (c *Coordinator) ApplyRefundChunk(ctx context.Context, order *models.CreditOrder, userID string, chunk credit.RefundChunk, transactionKey string) error {
	now := c.Now()
	err := c.store.CommitRefundChunk(ctx, storage.RefundChunkCommit{
		OrderID:             order.ID,
		PriorRefundedSupply: chunk.PriorRefundedSupply,
		Supply:              chunk.Supply,
		VAT:                 chunk.VAT,
		FullyRefunded:       chunk.FullyRefunded,
		Entry: models.LedgerEntry{
			OrganizationID: order.OrganizationID,
			UniqueKey:      fmt.Sprintf("gateway:%s:refund:%s", chunk.PaymentKey, transactionKey),
			ID:             newEntryID(),
			UserID:         userID,
			Type:           models.REFUND,
			Amount:         -chunk.Supply,
			RefType:        models.RefCreditOrder,
			RefID:          order.ID,
			CreatedAt:      now,
		},
		At: now,
	})
	if err != nil {
		return conflict("refund_chunk", err, credit.ErrConcurrencyConflict)
	}
	metrics.LedgerEntriesWritten.WithLabelValues(string(models.REFUND)).Inc()
	c.logger.InfoContext(ctx, "refund chunk applied",
		"order_id", order.ID, "supply", chunk.Supply, "vat", chunk.VAT, "transaction_key", transactionKey)
	return nil
}
