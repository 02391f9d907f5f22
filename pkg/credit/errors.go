package credit

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInsufficientCredit is matched by InsufficientCreditError.
	ErrInsufficientCredit = errors.New("credit: insufficient credit")

	// ErrInsufficientPaidBalance is matched by InsufficientPaidBalanceError.
	ErrInsufficientPaidBalance = errors.New("credit: refund exceeds paid balance")

	// ErrNoRefundableOrders is returned when no DONE order has refundable supply left.
	ErrNoRefundableOrders = errors.New("credit: no refundable orders")

	// ErrAlreadyMatched is returned when a bank transaction or charge order was
	// already claimed, including when a concurrent match won the race.
	ErrAlreadyMatched = errors.New("credit: already matched")

	// ErrConcurrencyConflict is returned when an optimistic write lost against a
	// concurrent writer. The operation is safe to retry from scratch.
	ErrConcurrencyConflict = errors.New("credit: concurrent modification")

	ErrAmountMismatch      = errors.New("credit: amount mismatch")
	ErrDepositCodeMismatch = errors.New("credit: deposit code mismatch")

	// ErrWebhookSecretMismatch is returned when a webhook carries a secret that
	// differs from the one stored on the order. It must not be retried.
	ErrWebhookSecretMismatch = errors.New("credit: webhook secret mismatch")

	// ErrCreditLocked is matched by CreditLockedError.
	ErrCreditLocked = errors.New("credit: credit use is locked")

	// ErrSelfApproval is returned when an admin decides on a charge order
	// they created themselves.
	ErrSelfApproval = errors.New("credit: cannot decide on own charge order")

	ErrChargeOrderCanceled = errors.New("credit: charge order canceled")
	ErrInvalidTransition   = errors.New("credit: invalid status transition")
	ErrNotFound            = errors.New("credit: not found")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InsufficientCreditError carries the balance seen and the amount required.
type InsufficientCreditError struct {
	Balance  int64
	Required int64
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("insufficient credit: balance %d, required %d", e.Balance, e.Required)
}

func (e *InsufficientCreditError) Is(target error) bool { return target == ErrInsufficientCredit }

// InsufficientPaidBalanceError carries the refundable amount available and
// the amount requested.
type InsufficientPaidBalanceError struct {
	Available int64
	Required  int64
}

func (e *InsufficientPaidBalanceError) Error() string {
	return fmt.Sprintf("refund exceeds paid balance: available %d, required %d", e.Available, e.Required)
}

func (e *InsufficientPaidBalanceError) Is(target error) bool {
	return target == ErrInsufficientPaidBalance
}

// CreditLockedError is returned when a locked charge order freezes the
// organization's spending.
type CreditLockedError struct {
	ChargeOrderID string
	Reason        string
	LockedAt      *time.Time
}

func (e *CreditLockedError) Error() string {
	return fmt.Sprintf("credit use is locked by charge order %s: %s", e.ChargeOrderID, e.Reason)
}

func (e *CreditLockedError) Is(target error) bool { return target == ErrCreditLocked }

// AmountMismatchError is returned when a bank deposit does not equal the
// charge order total.
type AmountMismatchError struct {
	OrderAmount       int64
	TransactionAmount int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount mismatch: charge order %d, bank transaction %d", e.OrderAmount, e.TransactionAmount)
}

func (e *AmountMismatchError) Is(target error) bool { return target == ErrAmountMismatch }

// DepositCodeMismatchError is returned when both records carry a deposit
// code and the codes differ.
type DepositCodeMismatchError struct {
	OrderCode       string
	TransactionCode string
}

func (e *DepositCodeMismatchError) Error() string {
	return fmt.Sprintf("deposit code mismatch: charge order %q, bank transaction %q", e.OrderCode, e.TransactionCode)
}

func (e *DepositCodeMismatchError) Is(target error) bool { return target == ErrDepositCodeMismatch }
