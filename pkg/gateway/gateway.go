// Package gateway talks to the card and virtual-account payment gateway.
//
// Calls made here are never retried by the caller: every cancel carries a
// deterministic idempotency key so a repeated call is recognized by the
// gateway instead of refunding twice.
package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/models"
)

// Status is the gateway's view of a payment.
type Status string

const (
	StatusReady             Status = "READY"
	StatusInProgress        Status = "IN_PROGRESS"
	StatusWaitingForDeposit Status = "WAITING_FOR_DEPOSIT"
	StatusDone              Status = "DONE"
	StatusCanceled          Status = "CANCELED"
	StatusPartialCanceled   Status = "PARTIAL_CANCELED"
	StatusAborted           Status = "ABORTED"
	StatusExpired           Status = "EXPIRED"
)

// Payment is the subset of the gateway payment object the ledger uses.
type Payment struct {
	PaymentKey     string          `json:"paymentKey"`
	OrderID        string          `json:"orderId"`
	Status         Status          `json:"status"`
	Secret         string          `json:"secret,omitempty"`
	TotalAmount    int64           `json:"totalAmount"`
	ApprovedAt     *time.Time      `json:"approvedAt,omitempty"`
	VirtualAccount *VirtualAccount `json:"virtualAccount,omitempty"`
	Cancels        []Cancel        `json:"cancels,omitempty"`
}

// VirtualAccount is the deposit account issued for a virtual-account payment.
type VirtualAccount struct {
	BankCode      string     `json:"bankCode"`
	AccountNumber string     `json:"accountNumber"`
	CustomerName  string     `json:"customerName"`
	DueDate       *time.Time `json:"dueDate,omitempty"`
}

// Cancel is one cancel or partial refund recorded on a payment.
type Cancel struct {
	TransactionKey string     `json:"transactionKey"`
	CancelReason   string     `json:"cancelReason"`
	CancelAmount   int64      `json:"cancelAmount"`
	CanceledAt     *time.Time `json:"canceledAt,omitempty"`
}

// LastTransactionKey returns the transaction key of the most recent cancel,
// or "" when the payment carries none.
func (p *Payment) LastTransactionKey() string {
	if len(p.Cancels) == 0 {
		return ""
	}
	return p.Cancels[len(p.Cancels)-1].TransactionKey
}

// ConfirmRequest approves a payment the customer authorized in the browser.
type ConfirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

// CancelRequest cancels a payment fully (Amount 0) or partially.
type CancelRequest struct {
	PaymentKey     string                `json:"-"`
	Reason         string                `json:"cancelReason"`
	Amount         int64                 `json:"cancelAmount,omitempty"`
	RefundAccount  *models.RefundAccount `json:"refundReceiveAccount,omitempty"`
	IdempotencyKey string                `json:"-"`
}

const (
	CancelReasonUser   = "USER_CANCEL"
	CancelReasonRefund = "CREDIT_REFUND"
)

//go:generate mockery --name Client --output ./mocks --outpkg mocks

// Client is the payment gateway.
type Client interface {
	Confirm(ctx context.Context, req ConfirmRequest) (*Payment, error)
	Cancel(ctx context.Context, req CancelRequest) (*Payment, error)
}

// IdempotencyKey derives a stable key from prefix and seed. The same seed
// always yields the same key, so a retried cancel is deduplicated upstream.
func IdempotencyKey(prefix, seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return prefix + "_" + hex.EncodeToString(sum[:])
}

// MockEnabled reports whether mock payments may be used. Production never
// runs against the mock regardless of the mode setting.
func MockEnabled(mode, environment string) bool {
	return strings.EqualFold(mode, "mock") && !strings.EqualFold(environment, "production")
}

// Config selects and configures the gateway client.
type Config struct {
	Mode        string
	Environment string
	BaseURL     string
	SecretKey   string
	Timeout     time.Duration
}

// New returns the mock client when mock payments are enabled and the HTTP
// client otherwise.
func New(cfg Config, logger *slog.Logger) Client {
	if MockEnabled(cfg.Mode, cfg.Environment) {
		logger.Warn("payment gateway running in mock mode", "environment", cfg.Environment)
		return NewMockClient()
	}
	return NewHTTPClient(cfg.BaseURL, cfg.SecretKey, cfg.Timeout, logger)
}
