package models

import "time"

// CreditOrderStatus defines the lifecycle of a gateway-backed credit order.
type CreditOrderStatus string

const (
	CreditOrderCreated           CreditOrderStatus = "CREATED"
	CreditOrderWaitingForDeposit CreditOrderStatus = "WAITING_FOR_DEPOSIT"
	CreditOrderDone              CreditOrderStatus = "DONE"
	CreditOrderCanceled          CreditOrderStatus = "CANCELED"
	CreditOrderExpired           CreditOrderStatus = "EXPIRED"
	CreditOrderRefunded          CreditOrderStatus = "REFUNDED"
)

// VirtualAccount is the deposit account issued by the gateway for
// virtual-account payments.
type VirtualAccount struct {
	Bank          string     `json:"bank,omitempty" dynamodbav:"bank,omitempty"`
	AccountNumber string     `json:"accountNumber,omitempty" dynamodbav:"account_number,omitempty"`
	CustomerName  string     `json:"customerName,omitempty" dynamodbav:"customer_name,omitempty"`
	DueDate       *time.Time `json:"dueDate,omitempty" dynamodbav:"due_date,omitempty"`
}

// CreditOrder is a top-up paid through the payment gateway.
type CreditOrder struct {
	ID                   string            `json:"id" dynamodbav:"id"`
	OrganizationID       string            `json:"organizationId" dynamodbav:"organization_id"`
	UserID               string            `json:"userId,omitempty" dynamodbav:"user_id,omitempty"`
	SupplyAmount         int64             `json:"supplyAmount" dynamodbav:"supply_amount"`
	VatAmount            int64             `json:"vatAmount" dynamodbav:"vat_amount"`
	TotalAmount          int64             `json:"totalAmount" dynamodbav:"total_amount"`
	Status               CreditOrderStatus `json:"status" dynamodbav:"status"`
	PaymentKey           string            `json:"paymentKey,omitempty" dynamodbav:"payment_key,omitempty"`
	Secret               string            `json:"-" dynamodbav:"secret,omitempty"`
	VirtualAccount       *VirtualAccount   `json:"virtualAccount,omitempty" dynamodbav:"virtual_account,omitempty"`
	RefundedSupplyAmount int64             `json:"refundedSupplyAmount" dynamodbav:"refunded_supply_amount"`
	RefundedVatAmount    int64             `json:"refundedVatAmount" dynamodbav:"refunded_vat_amount"`
	RefundedTotalAmount  int64             `json:"refundedTotalAmount" dynamodbav:"refunded_total_amount"`
	ApprovedAt           *time.Time        `json:"approvedAt,omitempty" dynamodbav:"approved_at,omitempty"`
	DepositedAt          *time.Time        `json:"depositedAt,omitempty" dynamodbav:"deposited_at,omitempty"`
	CanceledAt           *time.Time        `json:"canceledAt,omitempty" dynamodbav:"canceled_at,omitempty"`
	CreatedAt            time.Time         `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt            time.Time         `json:"updatedAt" dynamodbav:"updated_at"`
}

// RefundableSupply is the supply amount of the order not yet refunded.
func (o *CreditOrder) RefundableSupply() int64 {
	return max(0, o.SupplyAmount-o.RefundedSupplyAmount)
}

// ChargeOrderStatus defines the lifecycle of a bank-transfer charge order.
type ChargeOrderStatus string

const (
	ChargeOrderPending  ChargeOrderStatus = "PENDING"
	ChargeOrderMatched  ChargeOrderStatus = "MATCHED"
	ChargeOrderExpired  ChargeOrderStatus = "EXPIRED"
	ChargeOrderCanceled ChargeOrderStatus = "CANCELED"
)

// MatchSource records who paired a bank transaction with a charge order.
type MatchSource string

const (
	MatchedByAuto  MatchSource = "AUTO"
	MatchedByAdmin MatchSource = "ADMIN"
)

// ApprovalStatus is an admin's sign-off on a charge order.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// ChargeOrder is a top-up paid by manual bank transfer (B-plan). The
// depositor is asked to put DepositCode in the transfer memo. A locked
// order freezes spending for its whole organization.
type ChargeOrder struct {
	ID                string            `json:"id" dynamodbav:"id"`
	OrganizationID    string            `json:"organizationId" dynamodbav:"organization_id"`
	UserID            string            `json:"userId,omitempty" dynamodbav:"user_id,omitempty"`
	SupplyAmount      int64             `json:"supplyAmount" dynamodbav:"supply_amount"`
	VatAmount         int64             `json:"vatAmount" dynamodbav:"vat_amount"`
	AmountTotal       int64             `json:"amountTotal" dynamodbav:"amount_total"`
	DepositCode       string            `json:"depositCode" dynamodbav:"deposit_code"`
	DepositorName     string            `json:"depositorName" dynamodbav:"depositor_name"`
	Status            ChargeOrderStatus `json:"status" dynamodbav:"status"`
	ExpiresAt         time.Time         `json:"expiresAt" dynamodbav:"expires_at"`
	BankTransactionID string            `json:"bankTransactionId,omitempty" dynamodbav:"bank_transaction_id,omitempty"`
	MatchedAt         *time.Time        `json:"matchedAt,omitempty" dynamodbav:"matched_at,omitempty"`
	MatchedBy         MatchSource       `json:"matchedBy,omitempty" dynamodbav:"matched_by,omitempty"`
	MatchedByUserID   string            `json:"matchedByUserId,omitempty" dynamodbav:"matched_by_user_id,omitempty"`
	MatchNote         string            `json:"matchNote,omitempty" dynamodbav:"match_note,omitempty"`
	CreatedAt         time.Time         `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt         time.Time         `json:"updatedAt" dynamodbav:"updated_at"`

	AdminApprovalStatus ApprovalStatus `json:"adminApprovalStatus,omitempty" dynamodbav:"admin_approval_status,omitempty"`
	AdminApprovalNote   string         `json:"adminApprovalNote,omitempty" dynamodbav:"admin_approval_note,omitempty"`
	AdminApprovalBy     string         `json:"adminApprovalBy,omitempty" dynamodbav:"admin_approval_by,omitempty"`
	AdminApprovalAt     *time.Time     `json:"adminApprovalAt,omitempty" dynamodbav:"admin_approval_at,omitempty"`
	AdminVerified       bool           `json:"adminVerified" dynamodbav:"admin_verified"`
	AdminVerifiedBy     string         `json:"adminVerifiedBy,omitempty" dynamodbav:"admin_verified_by,omitempty"`
	AdminVerifiedAt     *time.Time     `json:"adminVerifiedAt,omitempty" dynamodbav:"admin_verified_at,omitempty"`
	IsLocked            bool           `json:"isLocked" dynamodbav:"is_locked"`
	LockedReason        string         `json:"lockedReason,omitempty" dynamodbav:"locked_reason,omitempty"`
	LockedBy            string         `json:"lockedBy,omitempty" dynamodbav:"locked_by,omitempty"`
	LockedAt            *time.Time     `json:"lockedAt,omitempty" dynamodbav:"locked_at,omitempty"`
}

// Expired reports whether the order's deposit window has passed at now.
func (o *ChargeOrder) Expired(now time.Time) bool {
	return !o.ExpiresAt.IsZero() && !now.Before(o.ExpiresAt)
}

// RequestStatus is the billing state of a manufacturing request.
type RequestStatus string

const (
	RequestActive   RequestStatus = "ACTIVE"
	RequestCanceled RequestStatus = "CANCELED"
)

// Request is the billing record of one manufacturing order line. The order
// workflow itself lives elsewhere; here only its price matters.
type Request struct {
	ID             string        `json:"id" dynamodbav:"id"`
	OrganizationID string        `json:"organizationId" dynamodbav:"organization_id"`
	UserID         string        `json:"userId,omitempty" dynamodbav:"user_id,omitempty"`
	BatchID        string        `json:"batchId" dynamodbav:"batch_id"`
	CaseID         string        `json:"caseId" dynamodbav:"case_id"`
	PriceAmount    int64         `json:"priceAmount" dynamodbav:"price_amount"`
	Status         RequestStatus `json:"status" dynamodbav:"status"`
	ReplacesID     string        `json:"replacesId,omitempty" dynamodbav:"replaces_id,omitempty"`
	CreatedAt      time.Time     `json:"createdAt" dynamodbav:"created_at"`
	CanceledAt     *time.Time    `json:"canceledAt,omitempty" dynamodbav:"canceled_at,omitempty"`
}

// RefundAllocation is one gateway refund carved out of a credit order.
type RefundAllocation struct {
	CreditOrderID  string `json:"creditOrderId"`
	PaymentKey     string `json:"paymentKey"`
	RefundSupply   int64  `json:"refundSupply"`
	RefundVat      int64  `json:"refundVat"`
	RefundTotal    int64  `json:"refundTotal"`
	TransactionKey string `json:"transactionKey"`
}

// RefundResult summarizes a paid-credit refund across orders.
type RefundResult struct {
	RequestedSupply int64              `json:"requestedSupply"`
	RequestedVat    int64              `json:"requestedVat"`
	RequestedTotal  int64              `json:"requestedTotal"`
	Allocations     []RefundAllocation `json:"allocations"`
}
