package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chris/prepaid-credit-ledger/pkg/audit"
	"github.com/chris/prepaid-credit-ledger/pkg/credit"
	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
)

// DefaultLockReason is stored when an admin locks an order without a reason.
const DefaultLockReason = "admin review required"

// ApproveChargeOrder signs off a PENDING or MATCHED charge order whose
// approval is still pending.
func (s *Service) ApproveChargeOrder(ctx context.Context, orderID string, actor audit.Actor, note string) (*models.ChargeOrder, error) {
	return s.decideChargeOrder(ctx, orderID, actor, strings.TrimSpace(note), models.ApprovalApproved)
}

// RejectChargeOrder turns down a charge order. The note is required.
func (s *Service) RejectChargeOrder(ctx context.Context, orderID string, actor audit.Actor, note string) (*models.ChargeOrder, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, credit.NewValidationError("note", "is required to reject")
	}
	return s.decideChargeOrder(ctx, orderID, actor, note, models.ApprovalRejected)
}

// decideChargeOrder records an approval decision. The admin who created the
// order may not decide on it.
func (s *Service) decideChargeOrder(ctx context.Context, orderID string, actor audit.Actor, note string, decision models.ApprovalStatus) (*models.ChargeOrder, error) {
	order, err := s.store.GetChargeOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "charge order")
	}
	if order.Status != models.ChargeOrderPending && order.Status != models.ChargeOrderMatched {
		return nil, fmt.Errorf("decide on %s charge order: %w", order.Status, credit.ErrInvalidTransition)
	}
	if order.AdminApprovalStatus != models.ApprovalPending {
		return nil, fmt.Errorf("charge order approval already %s: %w", order.AdminApprovalStatus, credit.ErrInvalidTransition)
	}
	if order.UserID != "" && order.UserID == actor.UserID {
		return nil, credit.ErrSelfApproval
	}

	now := s.now()
	err = s.store.SetChargeOrderApproval(ctx, order.ID, decision, actor.UserID, note, now)
	if errors.Is(err, storage.ErrConditionFailed) {
		return nil, fmt.Errorf("charge order approval already decided: %w", credit.ErrInvalidTransition)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record approval: %w", err)
	}

	action := models.AuditChargeApprove
	if decision == models.ApprovalRejected {
		action = models.AuditChargeReject
	}
	audit.Record(ctx, s.store, s.logger, actor, models.AuditLog{
		Action:  action,
		RefType: models.RefChargeOrder,
		RefID:   order.ID,
		Details: map[string]string{
			"organizationId": order.OrganizationID,
			"amountTotal":    strconv.FormatInt(order.AmountTotal, 10),
			"note":           note,
		},
		CreatedAt: now,
	})
	s.logger.InfoContext(ctx, "charge order decided",
		"order_id", order.ID, "decision", decision, "admin_user_id", actor.UserID)
	return s.getChargeOrder(ctx, order.ID)
}

// VerifyChargeOrder marks a MATCHED charge order as checked by an admin.
func (s *Service) VerifyChargeOrder(ctx context.Context, orderID string, actor audit.Actor) (*models.ChargeOrder, error) {
	order, err := s.store.GetChargeOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "charge order")
	}
	if order.Status != models.ChargeOrderMatched {
		return nil, fmt.Errorf("verify %s charge order: %w", order.Status, credit.ErrInvalidTransition)
	}
	if order.AdminVerified {
		return nil, fmt.Errorf("charge order already verified: %w", credit.ErrInvalidTransition)
	}

	now := s.now()
	err = s.store.SetChargeOrderVerified(ctx, order.ID, actor.UserID, now)
	if errors.Is(err, storage.ErrConditionFailed) {
		return nil, fmt.Errorf("charge order already verified: %w", credit.ErrInvalidTransition)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to verify charge order: %w", err)
	}

	audit.Record(ctx, s.store, s.logger, actor, models.AuditLog{
		Action:  models.AuditChargeVerify,
		RefType: models.RefChargeOrder,
		RefID:   order.ID,
		Details: map[string]string{
			"organizationId": order.OrganizationID,
			"supplyAmount":   strconv.FormatInt(order.SupplyAmount, 10),
		},
		CreatedAt: now,
	})
	return s.getChargeOrder(ctx, order.ID)
}

// LockChargeOrder locks a charge order. While any of its charge orders is
// locked, the organization cannot spend credit.
func (s *Service) LockChargeOrder(ctx context.Context, orderID string, actor audit.Actor, reason string) (*models.ChargeOrder, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = DefaultLockReason
	}
	return s.setLock(ctx, orderID, actor, true, reason)
}

// UnlockChargeOrder lifts a lock.
func (s *Service) UnlockChargeOrder(ctx context.Context, orderID string, actor audit.Actor) (*models.ChargeOrder, error) {
	return s.setLock(ctx, orderID, actor, false, "")
}

func (s *Service) setLock(ctx context.Context, orderID string, actor audit.Actor, locked bool, reason string) (*models.ChargeOrder, error) {
	order, err := s.store.GetChargeOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "charge order")
	}
	if order.IsLocked == locked {
		return nil, fmt.Errorf("charge order lock is already %t: %w", locked, credit.ErrInvalidTransition)
	}

	now := s.now()
	err = s.store.SetChargeOrderLock(ctx, order.ID, locked, reason, actor.UserID, now)
	if errors.Is(err, storage.ErrConditionFailed) {
		return nil, fmt.Errorf("charge order lock is already %t: %w", locked, credit.ErrInvalidTransition)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set charge order lock: %w", err)
	}

	entry := models.AuditLog{
		Action:    models.AuditChargeUnlock,
		RefType:   models.RefChargeOrder,
		RefID:     order.ID,
		Details:   map[string]string{"organizationId": order.OrganizationID},
		CreatedAt: now,
	}
	if locked {
		entry.Action = models.AuditChargeLock
		entry.Details["reason"] = reason
	}
	audit.Record(ctx, s.store, s.logger, actor, entry)
	s.logger.InfoContext(ctx, "charge order lock changed",
		"order_id", order.ID, "organization_id", order.OrganizationID, "locked", locked, "admin_user_id", actor.UserID)
	return s.getChargeOrder(ctx, order.ID)
}

// AuditTrail returns the admin actions recorded against a charge order or a
// bank transaction, oldest first.
func (s *Service) AuditTrail(ctx context.Context, refID string) ([]models.AuditLog, error) {
	logs, err := s.store.ListAuditLogs(ctx, refID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

func (s *Service) getChargeOrder(ctx context.Context, orderID string) (*models.ChargeOrder, error) {
	order, err := s.store.GetChargeOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "charge order")
	}
	return order, nil
}
