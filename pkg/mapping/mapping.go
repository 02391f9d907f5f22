package mapping

import (
	"github.com/chris/prepaid-credit-ledger/pkg/api"
	"github.com/chris/prepaid-credit-ledger/pkg/audit"
	"github.com/chris/prepaid-credit-ledger/pkg/gateway"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/orders"
	"github.com/chris/prepaid-credit-ledger/pkg/reconciliation"
	"github.com/chris/prepaid-credit-ledger/pkg/settlement"
	"github.com/chris/prepaid-credit-ledger/pkg/webhooks"
)

// ToApiBalance converts a replayed balance to its API view.
func ToApiBalance(organizationID string, b models.Balance) *api.BalanceResponse {
	return &api.BalanceResponse{
		OrganizationID: organizationID,
		Balance:        b.Balance,
		PaidBalance:    b.PaidBalance,
		BonusBalance:   b.BonusBalance,
	}
}

// ToApiLedgerEntry converts a domain LedgerEntry model to an API LedgerEntry model.
func ToApiLedgerEntry(entry *models.LedgerEntry) *api.LedgerEntry {
	return &api.LedgerEntry{
		ID:        entry.ID,
		Type:      entry.Type,
		Amount:    entry.Amount,
		RefType:   entry.RefType,
		RefID:     entry.RefID,
		UserID:    entry.UserID,
		CreatedAt: entry.CreatedAt,
	}
}

// ToDomainRefundAccount converts the API receive account. A nil account stays nil.
func ToDomainRefundAccount(a *api.RefundReceiveAccount) *models.RefundAccount {
	if a == nil {
		return nil
	}
	return &models.RefundAccount{
		Bank:          a.Bank,
		AccountNumber: a.AccountNumber,
		HolderName:    a.HolderName,
	}
}

// ToConfirmInput converts a confirm request.
func ToConfirmInput(r *api.ConfirmCreditOrderRequest) orders.ConfirmInput {
	return orders.ConfirmInput{
		OrderID:    r.OrderID,
		PaymentKey: r.PaymentKey,
		Amount:     r.Amount,
	}
}

// ToRefundInput converts a refund request for the caller's organization.
func ToRefundInput(organizationID, userID string, r *api.RefundRequest) orders.RefundInput {
	return orders.RefundInput{
		OrganizationID: organizationID,
		UserID:         userID,
		SupplyAmount:   r.SupplyAmount,
		RefundAccount:  ToDomainRefundAccount(r.RefundReceiveAccount),
	}
}

// ToSpendBatch converts a spend request for the caller's organization.
func ToSpendBatch(organizationID, userID string, r *api.SpendRequest) settlement.SpendBatch {
	items := make([]settlement.SpendItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = settlement.SpendItem{
			CaseID:            it.CaseID,
			PriceAmount:       it.PriceAmount,
			ReplacesRequestID: it.ReplacesRequestID,
		}
	}
	return settlement.SpendBatch{
		OrganizationID: organizationID,
		UserID:         userID,
		BatchID:        r.BatchID,
		Items:          items,
	}
}

// ToIngestInput converts a bank feed deposit.
func ToIngestInput(r *api.IngestBankTransactionRequest) reconciliation.IngestInput {
	return reconciliation.IngestInput{
		ExternalID:     r.ExternalID,
		BankCode:       r.BankCode,
		AccountNumber:  r.AccountNumber,
		TranAmt:        r.TranAmt,
		PrintedContent: r.PrintedContent,
		OccurredAt:     r.OccurredAt,
	}
}

// ToManualMatchInput converts an admin's match request.
func ToManualMatchInput(actor audit.Actor, r *api.ManualMatchRequest) reconciliation.ManualMatchInput {
	return reconciliation.ManualMatchInput{
		BankTransactionID: r.BankTransactionID,
		ChargeOrderID:     r.ChargeOrderID,
		AdminUserID:       actor.UserID,
		AdminIPAddress:    actor.IPAddress,
		Note:              r.Note,
		Force:             r.Force,
	}
}

// ToWebhookEvent converts a gateway callback. The header transmission id wins
// over the one in the body.
func ToWebhookEvent(transmissionID string, p *api.WebhookPayload, raw []byte) webhooks.Event {
	if transmissionID == "" {
		transmissionID = p.TransmissionID
	}
	return webhooks.Event{
		TransmissionID: transmissionID,
		EventType:      p.EventType,
		OrderID:        p.OrderID,
		TransactionKey: p.TransactionKey,
		Status:         gateway.Status(p.Status),
		Secret:         p.Secret,
		Payload:        string(raw),
	}
}
