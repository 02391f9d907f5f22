// Package api holds the JSON request and response bodies of the HTTP API.
// Request shapes are checked through the validate tags when a handler
// decodes them; amount rules and ownership are checked by the services.
package api

import (
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/models"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error    string     `json:"error"`
	Field    string     `json:"field,omitempty"`
	Balance  *int64     `json:"balance,omitempty"`
	Required *int64     `json:"required,omitempty"`
	LockedAt *time.Time `json:"lockedAt,omitempty"`
}

// CreateOrderRequest starts a credit order or a charge order.
type CreateOrderRequest struct {
	SupplyAmount int64 `json:"supplyAmount" validate:"gt=0"`
}

// ConfirmCreditOrderRequest is posted by the checkout page after the
// customer authorized a payment.
type ConfirmCreditOrderRequest struct {
	OrderID    string `json:"orderId" validate:"required,notblank,max=128"`
	PaymentKey string `json:"paymentKey" validate:"max=256"`
	Amount     int64  `json:"amount" validate:"gt=0"`
}

// RefundReceiveAccount is where a virtual-account refund is deposited.
type RefundReceiveAccount struct {
	Bank          string `json:"bank" validate:"required,notblank,max=32"`
	AccountNumber string `json:"accountNumber" validate:"required,notblank,max=64"`
	HolderName    string `json:"holderName" validate:"required,notblank,max=128"`
}

// RefundRequest asks for part of the paid credit back. Only admins issue
// partial refunds, naming the organization.
type RefundRequest struct {
	OrganizationID       string                `json:"organizationId,omitempty"`
	SupplyAmount         int64                 `json:"supplyAmount" validate:"gt=0"`
	RefundReceiveAccount *RefundReceiveAccount `json:"refundReceiveAccount" validate:"required"`
}

// WithdrawRequest refunds every remaining paid credit of the organization.
type WithdrawRequest struct {
	RefundReceiveAccount *RefundReceiveAccount `json:"refundReceiveAccount" validate:"required"`
}

// SpendItem is one case billed in a batch.
type SpendItem struct {
	CaseID            string `json:"caseId" validate:"required,notblank,max=128"`
	PriceAmount       int64  `json:"priceAmount" validate:"gte=0"`
	ReplacesRequestID string `json:"replacesRequestId,omitempty" validate:"max=128"`
}

// SpendRequest bills a batch of new requests.
type SpendRequest struct {
	BatchID string      `json:"batchId" validate:"required,notblank,max=128"`
	Items   []SpendItem `json:"items" validate:"required,min=1,max=24,dive"`
}

// IngestBankTransactionRequest is one deposit from the bank feed.
type IngestBankTransactionRequest struct {
	ExternalID     string     `json:"externalId" validate:"required,notblank,max=128"`
	BankCode       string     `json:"bankCode,omitempty"`
	AccountNumber  string     `json:"accountNumber,omitempty"`
	TranAmt        int64      `json:"tranAmt" validate:"gt=0"`
	PrintedContent string     `json:"printedContent,omitempty" validate:"max=256"`
	OccurredAt     *time.Time `json:"occurredAt,omitempty"`
}

// ManualMatchRequest pairs a deposit with a charge order by hand.
type ManualMatchRequest struct {
	BankTransactionID string `json:"bankTransactionId" validate:"required"`
	ChargeOrderID     string `json:"chargeOrderId" validate:"required"`
	Note              string `json:"note,omitempty" validate:"required_if=Force true,max=500"`
	Force             bool   `json:"force,omitempty"`
}

// ChargeOrderReviewRequest approves or rejects a charge order. A rejection
// needs a note.
type ChargeOrderReviewRequest struct {
	Note string `json:"note,omitempty" validate:"max=500"`
}

// LockChargeOrderRequest locks a charge order, which freezes spending for
// its organization until unlocked.
type LockChargeOrderRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// AdminCreditRequest grants bonus credit or posts an adjustment.
type AdminCreditRequest struct {
	OrganizationID string `json:"organizationId" validate:"required"`
	Amount         int64  `json:"amount" validate:"ne=0"`
	Reference      string `json:"reference" validate:"required,notblank,max=128"`
}

// WebhookPayload is the body the payment gateway posts.
type WebhookPayload struct {
	TransmissionID string `json:"transmissionId,omitempty"`
	EventType      string `json:"eventType"`
	OrderID        string `json:"orderId"`
	TransactionKey string `json:"transactionKey,omitempty"`
	Status         string `json:"status"`
	Secret         string `json:"secret,omitempty"`
}

// BalanceResponse is the dashboard balance view.
type BalanceResponse struct {
	OrganizationID string `json:"organizationId"`
	Balance        int64  `json:"balance"`
	PaidBalance    int64  `json:"paidBalance"`
	BonusBalance   int64  `json:"bonusBalance"`
}

// LedgerEntry is a ledger line as shown to the organization.
type LedgerEntry struct {
	ID        string                 `json:"id"`
	Type      models.LedgerEntryType `json:"type"`
	Amount    int64                  `json:"amount"`
	RefType   models.RefType         `json:"refType,omitempty"`
	RefID     string                 `json:"refId,omitempty"`
	UserID    string                 `json:"userId,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`

	// BalanceAfter is the organization's total balance right after this
	// entry, whatever filter the listing used.
	BalanceAfter int64 `json:"balanceAfter"`
}

// ListLedgerEntriesParams are the query parameters of the ledger listing.
// Period is one of 7d, 30d, 90d or all; From overrides the period's start.
// From and To take RFC 3339 timestamps or plain dates.
type ListLedgerEntriesParams struct {
	// OrganizationID is honored for admins only.
	OrganizationID *string `form:"organizationId,omitempty" json:"organizationId,omitempty"`
	Type           *string `form:"type,omitempty" json:"type,omitempty"`
	Period         *string `form:"period,omitempty" json:"period,omitempty"`
	From           *string `form:"from,omitempty" json:"from,omitempty"`
	To             *string `form:"to,omitempty" json:"to,omitempty"`
	Q              *string `form:"q,omitempty" json:"q,omitempty"`
	Page           *int    `form:"page,omitempty" json:"page,omitempty"`
	PageSize       *int    `form:"pageSize,omitempty" json:"pageSize,omitempty"`
}

// LedgerPage is one page of a filtered ledger listing, newest first.
type LedgerPage struct {
	Items    []*LedgerEntry `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

// ListBankTransactionsParams are the query parameters of the deposit listing.
type ListBankTransactionsParams struct {
	Status *string `form:"status,omitempty" json:"status,omitempty"`
	Limit  *int    `form:"limit,omitempty" json:"limit,omitempty"`
}

// SweepRequest bounds one automatic matching pass.
type SweepRequest struct {
	Limit int `json:"limit,omitempty" validate:"gte=0,max=500"`
}

// TaskAccepted is returned when work was queued for the settlement worker.
type TaskAccepted struct {
	TaskID openapi_types.UUID `json:"taskId"`
	Kind   string             `json:"kind"`
	Status string             `json:"status"`
}

// ExpireResult reports the charge order expiry sweep.
type ExpireResult struct {
	Expired int `json:"expired"`
}

// WebhookAck acknowledges a gateway callback.
type WebhookAck struct {
	TransmissionID string                      `json:"transmissionId"`
	Status         models.WebhookProcessStatus `json:"status"`
}
