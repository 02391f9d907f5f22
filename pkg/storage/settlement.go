package storage

import (
	"context"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/models"
)

// SettlementStore defines the highly-privileged atomic commits that write
// ledger entries together with the records they settle. Every commit either
// applies completely or not at all, and every ledger entry it carries is
// upserted by unique key so replays are no-ops.
type SettlementStore interface {
	// CommitSpend creates request records and their SPEND entries (plus any
	// replace refunds) only if the organization's ledger version still equals
	// ExpectedVersion. A lost race returns ErrConditionFailed.
	CommitSpend(ctx context.Context, c SpendCommit) error

	// CommitCancelRefund marks the request CANCELED and upserts its refund entry.
	CommitCancelRefund(ctx context.Context, c CancelRefundCommit) error

	// CommitGatewayPayment records a gateway payment result on the credit
	// order. It reports false, with no error, if the order had already left
	// ExpectedStatuses.
	CommitGatewayPayment(ctx context.Context, c GatewayPaymentCommit) (bool, error)

	// CommitRefundChunk bumps the order's refunded totals and upserts the
	// REFUND entry. ErrConditionFailed means the refunded totals moved.
	CommitRefundChunk(ctx context.Context, c RefundChunkCommit) error

	// CommitBankMatch claims both records and upserts the CHARGE entry.
	// ErrConditionFailed means either record was already claimed.
	CommitBankMatch(ctx context.Context, c BankMatchCommit) error
}

// SpendCommit is one spend-on-create batch.
type SpendCommit struct {
	OrganizationID  string
	ExpectedVersion int64
	Requests        []models.Request
	Entries         []models.LedgerEntry
	// CanceledRequestIDs are existing requests superseded by a replace.
	CanceledRequestIDs []string
	At                 time.Time
}

// CancelRefundCommit refunds what was spent on a canceled request. Entry is
// nil when nothing was spent.
type CancelRefundCommit struct {
	OrganizationID string
	RequestID      string
	Entry          *models.LedgerEntry
	At             time.Time
}

// GatewayPaymentCommit applies a confirm or webhook result to a credit order.
// Entry is set only when the payment is DONE.
type GatewayPaymentCommit struct {
	OrderID          string
	ExpectedStatuses []models.CreditOrderStatus
	Status           models.CreditOrderStatus
	PaymentKey       string
	Secret           string
	VirtualAccount   *models.VirtualAccount
	ApprovedAt       *time.Time
	DepositedAt      *time.Time
	Entry            *models.LedgerEntry
	At               time.Time
}

// RefundChunkCommit records one gateway refund against a credit order.
type RefundChunkCommit struct {
	OrderID             string
	PriorRefundedSupply int64
	Supply              int64
	VAT                 int64
	FullyRefunded       bool
	Entry               models.LedgerEntry
	At                  time.Time
}

// BankMatchCommit pairs a NEW bank transaction with an unmatched charge order.
type BankMatchCommit struct {
	BankTransactionID   string
	ChargeOrderID       string
	ChargeOrderStatuses []models.ChargeOrderStatus
	MatchedBy           models.MatchSource
	MatchedByUserID     string
	Note                string
	Entry               models.LedgerEntry
	At                  time.Time
}
