package storage

import (
	"context"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/models"
)

// CreditOrderStore manages gateway-backed credit orders. Transitions that
// write ledger entries go through SettlementStore instead.
type CreditOrderStore interface {
	CreateCreditOrder(ctx context.Context, order *models.CreditOrder) error
	GetCreditOrder(ctx context.Context, orderID string) (*models.CreditOrder, error)

	// ListCreditOrders returns an organization's orders, newest first.
	ListCreditOrders(ctx context.Context, organizationID string) ([]models.CreditOrder, error)

	// CancelCreditOrder flips the order to CANCELED if its status is one of from.
	CancelCreditOrder(ctx context.Context, orderID string, from []models.CreditOrderStatus, at time.Time) error
}

// ChargeOrderStore manages bank-transfer charge orders.
type ChargeOrderStore interface {
	CreateChargeOrder(ctx context.Context, order *models.ChargeOrder) error
	GetChargeOrder(ctx context.Context, orderID string) (*models.ChargeOrder, error)

	// ListChargeOrders returns an organization's orders, newest first.
	ListChargeOrders(ctx context.Context, organizationID string) ([]models.ChargeOrder, error)

	// ListChargeOrdersByStatus returns every order in status, newest first.
	ListChargeOrdersByStatus(ctx context.Context, status models.ChargeOrderStatus) ([]models.ChargeOrder, error)

	// UpdateChargeOrderStatus moves an unmatched order from one status to another.
	UpdateChargeOrderStatus(ctx context.Context, orderID string, from, to models.ChargeOrderStatus, at time.Time) error

	// SetChargeOrderApproval records an admin's decision on an order whose
	// approval is still PENDING. ErrConditionFailed means it was decided already.
	SetChargeOrderApproval(ctx context.Context, orderID string, status models.ApprovalStatus, adminUserID, note string, at time.Time) error

	// SetChargeOrderVerified marks a MATCHED order as verified once.
	SetChargeOrderVerified(ctx context.Context, orderID, adminUserID string, at time.Time) error

	// SetChargeOrderLock locks or unlocks an order. ErrConditionFailed means
	// the order was already in the requested state.
	SetChargeOrderLock(ctx context.Context, orderID string, locked bool, reason, adminUserID string, at time.Time) error
}

// AuditLogStore keeps the trail of admin actions.
type AuditLogStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error

	// ListAuditLogs returns the actions taken on refID, oldest first.
	ListAuditLogs(ctx context.Context, refID string) ([]models.AuditLog, error)
}

// RequestStore reads the billing records of manufacturing requests.
type RequestStore interface {
	GetRequest(ctx context.Context, requestID string) (*models.Request, error)
}
