package models

import "time"

// BankTransactionStatus defines the lifecycle of an ingested bank deposit.
type BankTransactionStatus string

const (
	BankTransactionNew     BankTransactionStatus = "NEW"
	BankTransactionMatched BankTransactionStatus = "MATCHED"
	BankTransactionIgnored BankTransactionStatus = "IGNORED"
)

// BankTransaction is a deposit observed on the receiving bank account.
// ID is derived from ExternalID so re-ingesting the same deposit is an upsert.
type BankTransaction struct {
	ID              string                `json:"id" dynamodbav:"id"`
	ExternalID      string                `json:"externalId" dynamodbav:"external_id"`
	BankCode        string                `json:"bankCode,omitempty" dynamodbav:"bank_code,omitempty"`
	AccountNumber   string                `json:"accountNumber,omitempty" dynamodbav:"account_number,omitempty"`
	TranAmt         int64                 `json:"tranAmt" dynamodbav:"tran_amt"`
	PrintedContent  string                `json:"printedContent,omitempty" dynamodbav:"printed_content,omitempty"`
	DepositCode     string                `json:"depositCode,omitempty" dynamodbav:"deposit_code,omitempty"`
	OccurredAt      time.Time             `json:"occurredAt" dynamodbav:"occurred_at"`
	Status          BankTransactionStatus `json:"status" dynamodbav:"status"`
	ChargeOrderID   string                `json:"chargeOrderId,omitempty" dynamodbav:"charge_order_id,omitempty"`
	MatchedAt       *time.Time            `json:"matchedAt,omitempty" dynamodbav:"matched_at,omitempty"`
	MatchedBy       MatchSource           `json:"matchedBy,omitempty" dynamodbav:"matched_by,omitempty"`
	MatchedByUserID string                `json:"matchedByUserId,omitempty" dynamodbav:"matched_by_user_id,omitempty"`
	MatchNote       string                `json:"matchNote,omitempty" dynamodbav:"match_note,omitempty"`
	CreatedAt       time.Time             `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt       time.Time             `json:"updatedAt" dynamodbav:"updated_at"`
}

// WebhookProcessStatus records what happened to an inbound gateway callback.
type WebhookProcessStatus string

const (
	WebhookReceived  WebhookProcessStatus = "RECEIVED"
	WebhookProcessed WebhookProcessStatus = "PROCESSED"
	WebhookIgnored   WebhookProcessStatus = "IGNORED"
	WebhookFailed    WebhookProcessStatus = "FAILED"
)

// WebhookEvent is stored once per gateway transmission id.
type WebhookEvent struct {
	TransmissionID string               `json:"transmissionId" dynamodbav:"transmission_id"`
	EventType      string               `json:"eventType" dynamodbav:"event_type"`
	OrderID        string               `json:"orderId,omitempty" dynamodbav:"order_id,omitempty"`
	TransactionKey string               `json:"transactionKey,omitempty" dynamodbav:"transaction_key,omitempty"`
	PaymentStatus  string               `json:"paymentStatus,omitempty" dynamodbav:"payment_status,omitempty"`
	ProcessStatus  WebhookProcessStatus `json:"processStatus" dynamodbav:"process_status"`
	Detail         string               `json:"detail,omitempty" dynamodbav:"detail,omitempty"`
	Payload        string               `json:"-" dynamodbav:"payload,omitempty"`
	ReceivedAt     time.Time            `json:"receivedAt" dynamodbav:"received_at"`
	ProcessedAt    *time.Time           `json:"processedAt,omitempty" dynamodbav:"processed_at,omitempty"`
}
