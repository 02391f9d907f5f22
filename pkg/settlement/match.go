package settlement

import (
	"context"
	"fmt"

	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/metrics"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
)

// Match describes who pairs a bank transaction with a charge order.
type Match struct {
	By     models.MatchSource
	UserID string
	Note   string
}

// MatchBankTransaction claims tx and order together and credits the order's
// supply. Automatic matches may only claim PENDING orders; an admin may also
// claim an EXPIRED one. Losing either claim returns ErrAlreadyMatched.
func (c *Coordinator) MatchBankTransaction(ctx context.Context, tx *models.BankTransaction, order *models.ChargeOrder, m Match) error {
	statuses := []models.ChargeOrderStatus{models.ChargeOrderPending}
	if m.By == models.MatchedByAdmin {
		statuses = append(statuses, models.ChargeOrderExpired)
	}

	now := c.Now()
	err := c.store.CommitBankMatch(ctx, storage.BankMatchCommit{
		BankTransactionID:   tx.ID,
		ChargeOrderID:       order.ID,
		ChargeOrderStatuses: statuses,
		MatchedBy:           m.By,
		MatchedByUserID:     m.UserID,
		Note:                m.Note,
		Entry: models.LedgerEntry{
			OrganizationID: order.OrganizationID,
			UniqueKey:      fmt.Sprintf("bplan:bankTx:%s:charge", tx.ID),
			ID:             newEntryID(),
			UserID:         order.UserID,
			Type:           models.CHARGE,
			Amount:         order.SupplyAmount,
			RefType:        models.RefChargeOrder,
			RefID:          order.ID,
			CreatedAt:      now,
		},
		At: now,
	})
	if err != nil {
		return conflict("bank_match", err, credit.ErrAlreadyMatched)
	}

	metrics.LedgerEntriesWritten.WithLabelValues(string(models.CHARGE)).Inc()
	metrics.BankTransactionsMatched.WithLabelValues(string(m.By)).Inc()
	c.logger.InfoContext(ctx, "bank transaction matched",
		"bank_transaction_id", tx.ID, "charge_order_id", order.ID, "organization_id", order.OrganizationID, "matched_by", m.By)
	return nil
}
