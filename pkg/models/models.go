package models

import (
	"time"
)

// LedgerEntryType defines the kind of financial effect a ledger entry records.
type LedgerEntryType string

const (
	CHARGE LedgerEntryType = "CHARGE"
	BONUS  LedgerEntryType = "BONUS"
	SPEND  LedgerEntryType = "SPEND"
	REFUND LedgerEntryType = "REFUND"
	ADJUST LedgerEntryType = "ADJUST"
)

// RefType names the kind of record a ledger entry points back to.
type RefType string

const (
	RefCreditOrder RefType = "CREDIT_ORDER"
	RefChargeOrder RefType = "CHARGE_ORDER"
	RefRequest     RefType = "REQUEST"
	RefAdmin       RefType = "ADMIN"
	RefBankTx      RefType = "BANK_TRANSACTION"
)

// LedgerEntry is an immutable financial event scoped to an organization.
// (OrganizationID, UniqueKey) is the table key, so the same logical event can
// be stored at most once. Unique keys embed gateway or record ids and never
// repeat across organizations.
type LedgerEntry struct {
	OrganizationID string          `json:"organizationId" dynamodbav:"organization_id"`
	UniqueKey      string          `json:"uniqueKey" dynamodbav:"unique_key"`
	ID             string          `json:"id" dynamodbav:"id"`
	UserID         string          `json:"userId,omitempty" dynamodbav:"user_id,omitempty"`
	Type           LedgerEntryType `json:"type" dynamodbav:"type"`
	Amount         int64           `json:"amount" dynamodbav:"amount"`
	RefType        RefType         `json:"refType,omitempty" dynamodbav:"ref_type,omitempty"`
	RefID          string          `json:"refId,omitempty" dynamodbav:"ref_id,omitempty"`
	CreatedAt      time.Time       `json:"createdAt" dynamodbav:"created_at"`
}

// AppendResult is returned by a ledger append. Inserted is false when an entry
// with the same unique key already existed; Stored is then the existing entry.
type AppendResult struct {
	Inserted bool
	Stored   LedgerEntry
}

// Balance is the replayed view of an organization's ledger.
type Balance struct {
	Balance      int64 `json:"balance"`
	PaidBalance  int64 `json:"paidBalance"`
	BonusBalance int64 `json:"bonusBalance"`
}

// CreditAccount carries the optimistic-concurrency version of an
// organization's ledger. Every ledger write bumps it.
type CreditAccount struct {
	OrganizationID string    `json:"organizationId" dynamodbav:"organization_id"`
	Version        int64     `json:"version" dynamodbav:"version"`
	UpdatedAt      time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}

// RefundAccount is the bank account a virtual-account payment is refunded to.
type RefundAccount struct {
	Bank          string `json:"bank" dynamodbav:"bank"`
	AccountNumber string `json:"accountNumber" dynamodbav:"account_number"`
	HolderName    string `json:"holderName" dynamodbav:"holder_name"`
}

// AuditAction names an admin action recorded in the audit trail.
type AuditAction string

const (
	AuditChargeApprove AuditAction = "CHARGE_ORDER_APPROVE"
	AuditChargeReject  AuditAction = "CHARGE_ORDER_REJECT"
	AuditChargeVerify  AuditAction = "CHARGE_ORDER_VERIFY"
	AuditChargeLock    AuditAction = "CHARGE_ORDER_LOCK"
	AuditChargeUnlock  AuditAction = "CHARGE_ORDER_UNLOCK"
	AuditManualMatch   AuditAction = "MANUAL_MATCH"
)

// AuditLog is one admin action on a financial record. Details holds the
// values the admin acted on, as they were at the time.
type AuditLog struct {
	ID          string            `json:"id" dynamodbav:"id"`
	ActorUserID string            `json:"actorUserId" dynamodbav:"actor_user_id"`
	Action      AuditAction       `json:"action" dynamodbav:"action"`
	RefType     RefType           `json:"refType" dynamodbav:"ref_type"`
	RefID       string            `json:"refId" dynamodbav:"ref_id"`
	Details     map[string]string `json:"details,omitempty" dynamodbav:"details,omitempty"`
	IPAddress   string            `json:"ipAddress,omitempty" dynamodbav:"ip_address,omitempty"`
	CreatedAt   time.Time         `json:"createdAt" dynamodbav:"created_at"`
}
