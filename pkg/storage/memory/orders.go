package memory

import (
	"context"
	"slices"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
)

func (s *Store) CreateCreditOrder(_ context.Context, order *models.CreditOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.creditOrders[order.ID]; ok {
		return storage.ErrAlreadyExists
	}
	s.creditOrders[order.ID] = *order
	return nil
}

func (s *Store) GetCreditOrder(_ context.Context, orderID string) (*models.CreditOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.creditOrders[orderID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &o, nil
}

func (s *Store) ListCreditOrders(_ context.Context, organizationID string) ([]models.CreditOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.CreditOrder
	for _, o := range s.creditOrders {
		if o.OrganizationID == organizationID {
			out = append(out, o)
		}
	}
	newestFirst(out, func(o models.CreditOrder) time.Time { return o.CreatedAt })
	return out, nil
}

func (s *Store) CancelCreditOrder(_ context.Context, orderID string, from []models.CreditOrderStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.creditOrders[orderID]
	if !ok || !slices.Contains(from, o.Status) {
		return storage.ErrConditionFailed
	}
	o.Status = models.CreditOrderCanceled
	o.CanceledAt = &at
	o.UpdatedAt = at
	s.creditOrders[orderID] = o
	return nil
}

func (s *Store) CreateChargeOrder(_ context.Context, order *models.ChargeOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chargeOrders[order.ID]; ok {
		return storage.ErrAlreadyExists
	}
	s.chargeOrders[order.ID] = *order
	return nil
}

func (s *Store) GetChargeOrder(_ context.Context, orderID string) (*models.ChargeOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.chargeOrders[orderID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &o, nil
}

func (s *Store) ListChargeOrders(_ context.Context, organizationID string) ([]models.ChargeOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ChargeOrder
	for _, o := range s.chargeOrders {
		if o.OrganizationID == organizationID {
			out = append(out, o)
		}
	}
	newestFirst(out, func(o models.ChargeOrder) time.Time { return o.CreatedAt })
	return out, nil
}

func (s *Store) ListChargeOrdersByStatus(_ context.Context, status models.ChargeOrderStatus) ([]models.ChargeOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.ChargeOrder
	for _, o := range s.chargeOrders {
		if o.Status == status {
			out = append(out, o)
		}
	}
	newestFirst(out, func(o models.ChargeOrder) time.Time { return o.CreatedAt })
	return out, nil
}

func (s *Store) UpdateChargeOrderStatus(_ context.Context, orderID string, from, to models.ChargeOrderStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.chargeOrders[orderID]
	if !ok || o.Status != from || o.BankTransactionID != "" {
		return storage.ErrConditionFailed
	}
	o.Status = to
	o.UpdatedAt = at
	s.chargeOrders[orderID] = o
	return nil
}

func (s *Store) SetChargeOrderApproval(_ context.Context, orderID string, status models.ApprovalStatus, adminUserID, note string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.chargeOrders[orderID]
	if !ok || o.AdminApprovalStatus != models.ApprovalPending {
		return storage.ErrConditionFailed
	}
	o.AdminApprovalStatus = status
	o.AdminApprovalBy = adminUserID
	o.AdminApprovalNote = note
	o.AdminApprovalAt = &at
	o.UpdatedAt = at
	s.chargeOrders[orderID] = o
	return nil
}

func (s *Store) SetChargeOrderVerified(_ context.Context, orderID, adminUserID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.chargeOrders[orderID]
	if !ok || o.Status != models.ChargeOrderMatched || o.AdminVerified {
		return storage.ErrConditionFailed
	}
	o.AdminVerified = true
	o.AdminVerifiedBy = adminUserID
	o.AdminVerifiedAt = &at
	o.UpdatedAt = at
	s.chargeOrders[orderID] = o
	return nil
}

func (s *Store) SetChargeOrderLock(_ context.Context, orderID string, locked bool, reason, adminUserID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.chargeOrders[orderID]
	if !ok || o.IsLocked == locked {
		return storage.ErrConditionFailed
	}
	o.IsLocked = locked
	if locked {
		o.LockedReason = reason
		o.LockedBy = adminUserID
		o.LockedAt = &at
	} else {
		o.LockedReason, o.LockedBy, o.LockedAt = "", "", nil
	}
	o.UpdatedAt = at
	s.chargeOrders[orderID] = o
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auditLogs = append(s.auditLogs, *log)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, refID string) ([]models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.AuditLog
	for _, l := range s.auditLogs {
		if l.RefID == refID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Store) GetRequest(_ context.Context, requestID string) (*models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[requestID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &r, nil
}
