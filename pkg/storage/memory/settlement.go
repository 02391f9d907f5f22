package memory

import (
	"context"
	"slices"

	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/chris/prepaid-credit-ledger/pkg/storage"
)

func (s *Store) CommitSpend(_ context.Context, c storage.SpendCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accounts[c.OrganizationID] != c.ExpectedVersion {
		return storage.ErrConditionFailed
	}
	for _, id := range c.CanceledRequestIDs {
		if _, ok := s.requests[id]; !ok {
			return storage.ErrConditionFailed
		}
	}

	for _, r := range c.Requests {
		if _, ok := s.requests[r.ID]; !ok {
			s.requests[r.ID] = r
		}
	}
	for _, id := range c.CanceledRequestIDs {
		r := s.requests[id]
		if r.Status != models.RequestCanceled {
			at := c.At
			r.Status = models.RequestCanceled
			r.CanceledAt = &at
			s.requests[id] = r
		}
	}
	for _, e := range c.Entries {
		s.upsertLedger(e)
	}
	s.bump(c.OrganizationID)
	return nil
}

func (s *Store) CommitCancelRefund(_ context.Context, c storage.CancelRefundCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[c.RequestID]
	if !ok {
		return storage.ErrConditionFailed
	}
	if r.Status != models.RequestCanceled {
		at := c.At
		r.Status = models.RequestCanceled
		r.CanceledAt = &at
		s.requests[c.RequestID] = r
	}
	if c.Entry != nil {
		s.upsertLedger(*c.Entry)
		s.bump(c.OrganizationID)
	}
	return nil
}

func (s *Store) CommitGatewayPayment(_ context.Context, c storage.GatewayPaymentCommit) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.creditOrders[c.OrderID]
	if !ok {
		return false, storage.ErrNotFound
	}
	if !slices.Contains(c.ExpectedStatuses, o.Status) {
		return false, nil
	}

	o.Status = c.Status
	if c.PaymentKey != "" {
		o.PaymentKey = c.PaymentKey
	}
	if c.Secret != "" {
		o.Secret = c.Secret
	}
	if c.VirtualAccount != nil {
		o.VirtualAccount = c.VirtualAccount
	}
	if c.ApprovedAt != nil {
		o.ApprovedAt = c.ApprovedAt
	}
	if c.DepositedAt != nil {
		o.DepositedAt = c.DepositedAt
	}
	if c.Status == models.CreditOrderCanceled {
		at := c.At
		o.CanceledAt = &at
	}
	o.UpdatedAt = c.At
	s.creditOrders[c.OrderID] = o

	if c.Entry != nil {
		s.upsertLedger(*c.Entry)
		s.bump(o.OrganizationID)
	}
	return true, nil
}

func (s *Store) CommitRefundChunk(_ context.Context, c storage.RefundChunkCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.creditOrders[c.OrderID]
	if !ok || o.Status != models.CreditOrderDone || o.RefundedSupplyAmount != c.PriorRefundedSupply {
		return storage.ErrConditionFailed
	}

	o.RefundedSupplyAmount += c.Supply
	o.RefundedVatAmount += c.VAT
	o.RefundedTotalAmount += c.Supply + c.VAT
	if c.FullyRefunded {
		o.Status = models.CreditOrderRefunded
	}
	o.UpdatedAt = c.At
	s.creditOrders[c.OrderID] = o

	s.upsertLedger(c.Entry)
	s.bump(o.OrganizationID)
	return nil
}

func (s *Store) CommitBankMatch(_ context.Context, c storage.BankMatchCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.bankTxs[c.BankTransactionID]
	if !ok || tx.Status != models.BankTransactionNew || tx.ChargeOrderID != "" {
		return storage.ErrConditionFailed
	}
	o, ok := s.chargeOrders[c.ChargeOrderID]
	if !ok || !slices.Contains(c.ChargeOrderStatuses, o.Status) || o.BankTransactionID != "" {
		return storage.ErrConditionFailed
	}

	at := c.At
	tx.Status = models.BankTransactionMatched
	tx.ChargeOrderID = o.ID
	tx.MatchedAt = &at
	tx.MatchedBy = c.MatchedBy
	tx.MatchedByUserID = c.MatchedByUserID
	tx.MatchNote = c.Note
	tx.UpdatedAt = at
	s.bankTxs[tx.ID] = tx

	o.Status = models.ChargeOrderMatched
	o.BankTransactionID = tx.ID
	o.MatchedAt = &at
	o.MatchedBy = c.MatchedBy
	o.MatchedByUserID = c.MatchedByUserID
	o.MatchNote = c.Note
	if c.MatchedBy == models.MatchedByAuto {
		o.AdminApprovalStatus = models.ApprovalApproved
		o.AdminApprovalAt = &at
	}
	o.UpdatedAt = at
	s.chargeOrders[o.ID] = o

	s.upsertLedger(c.Entry)
	s.bump(o.OrganizationID)
	return nil
}
