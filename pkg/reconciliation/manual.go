package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chris/prepaid-credit-ledger/pkg/audit"
	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/settlement"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
)

// ManualMatchInput is an admin's decision to pair a deposit with an order.
// Force skips the amount and deposit code checks and requires a Note.
type ManualMatchInput struct {
	BankTransactionID string
	ChargeOrderID     string
	AdminUserID       string
	AdminIPAddress    string
	Note              string
	Force             bool
}

// ManualMatchResult holds both records after the claim.
type ManualMatchResult struct {
	ChargeOrder     *models.ChargeOrder     `json:"chargeOrder"`
	BankTransaction *models.BankTransaction `json:"bankTransaction"`
}

// ManualMatch pairs a deposit with a charge order on an admin's say-so. An
// admin may claim an EXPIRED order; a CANCELED one never. Every match,
// forced or not, leaves an audit record on the bank transaction.
func (m *Matcher) ManualMatch(ctx context.Context, in ManualMatchInput) (*ManualMatchResult, error) {
	if in.BankTransactionID == "" {
		return nil, credit.NewValidationError("bankTransactionId", "is required")
	}
	if in.ChargeOrderID == "" {
		return nil, credit.NewValidationError("chargeOrderId", "is required")
	}
	note := strings.TrimSpace(in.Note)
	if in.Force && note == "" {
		return nil, credit.NewValidationError("note", "is required when forcing a match")
	}

	tx, err := m.getBankTransaction(ctx, in.BankTransactionID)
	if err != nil {
		return nil, err
	}
	order, err := m.store.GetChargeOrder(ctx, in.ChargeOrderID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("charge order: %w", credit.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get charge order: %w", err)
	}

	if tx.Status == models.BankTransactionMatched || tx.ChargeOrderID != "" {
		return nil, fmt.Errorf("bank transaction %s: %w", tx.ID, credit.ErrAlreadyMatched)
	}
	if order.Status == models.ChargeOrderMatched || order.BankTransactionID != "" {
		return nil, fmt.Errorf("charge order %s: %w", order.ID, credit.ErrAlreadyMatched)
	}
	if order.Status == models.ChargeOrderCanceled {
		return nil, credit.ErrChargeOrderCanceled
	}
	if !in.Force && tx.TranAmt != order.AmountTotal {
		return nil, &credit.AmountMismatchError{OrderAmount: order.AmountTotal, TransactionAmount: tx.TranAmt}
	}
	if !in.Force && tx.DepositCode != "" && order.DepositCode != "" && tx.DepositCode != order.DepositCode {
		return nil, &credit.DepositCodeMismatchError{OrderCode: order.DepositCode, TransactionCode: tx.DepositCode}
	}

	err = m.coord.MatchBankTransaction(ctx, tx, order, settlement.Match{
		By:     models.MatchedByAdmin,
		UserID: in.AdminUserID,
		Note:   note,
	})
	if err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "manual match recorded",
		"bank_transaction_id", tx.ID, "charge_order_id", order.ID, "admin_user_id", in.AdminUserID, "force", in.Force)
	audit.Record(ctx, m.store, m.logger, audit.Actor{UserID: in.AdminUserID, IPAddress: in.AdminIPAddress}, models.AuditLog{
		Action:  models.AuditManualMatch,
		RefType: models.RefBankTx,
		RefID:   tx.ID,
		Details: map[string]string{
			"chargeOrderId":    order.ID,
			"note":             note,
			"force":            strconv.FormatBool(in.Force),
			"txTranAmt":        strconv.FormatInt(tx.TranAmt, 10),
			"txDepositCode":    tx.DepositCode,
			"orderAmountTotal": strconv.FormatInt(order.AmountTotal, 10),
			"orderDepositCode": order.DepositCode,
		},
		CreatedAt: m.coord.Now(),
	})

	res := &ManualMatchResult{}
	if res.BankTransaction, err = m.getBankTransaction(ctx, tx.ID); err != nil {
		return nil, err
	}
	if res.ChargeOrder, err = m.store.GetChargeOrder(ctx, order.ID); err != nil {
		return nil, fmt.Errorf("failed to get charge order: %w", err)
	}
	return res, nil
}
