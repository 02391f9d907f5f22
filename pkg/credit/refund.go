package credit

import (
	"cmp"
	"slices"
	"time"
)

// RefundableOrder is the view of a DONE credit order the refund planner needs.
type RefundableOrder struct {
	OrderID        string
	PaymentKey     string
	SupplyAmount   int64
	RefundedSupply int64
	CreatedAt      time.Time
}

// RefundChunk is the slice of one order refunded by one gateway cancel.
type RefundChunk struct {
	OrderID             string
	PaymentKey          string
	PriorRefundedSupply int64
	Supply              int64
	VAT                 int64
	FullyRefunded       bool
}

// Total is the gross amount sent to the gateway for the chunk.
func (c RefundChunk) Total() int64 { return c.Supply + c.VAT }

// RefundPlan is the ordered list of chunks that together refund the
// requested supply amount.
type RefundPlan struct {
	Supply int64
	VAT    int64
	Chunks []RefundChunk
}

// Total is the gross amount of the whole plan.
func (p RefundPlan) Total() int64 { return p.Supply + p.VAT }

// PlanRefund allocates desired supply across orders, most recently created
// first. Each chunk's VAT is rounded on its own except the chunk that
// completes the request, which takes whatever VAT is left so the chunks sum
// to exactly VAT(desired).
func PlanRefund(desired int64, orders []RefundableOrder) (RefundPlan, error) {
	if desired <= 0 {
		return RefundPlan{}, NewValidationError("desiredSupplyAmount", "must be positive")
	}

	eligible := make([]RefundableOrder, 0, len(orders))
	var refundable int64
	for _, o := range orders {
		if o.PaymentKey == "" || o.SupplyAmount-o.RefundedSupply <= 0 {
			continue
		}
		eligible = append(eligible, o)
		refundable += o.SupplyAmount - o.RefundedSupply
	}
	if len(eligible) == 0 {
		return RefundPlan{}, ErrNoRefundableOrders
	}
	if refundable < desired {
		return RefundPlan{}, &InsufficientPaidBalanceError{Available: refundable, Required: desired}
	}

	slices.SortStableFunc(eligible, func(a, b RefundableOrder) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.OrderID, a.OrderID)
	})

	plan := RefundPlan{Supply: desired, VAT: VAT(desired)}
	remaining, remainingVAT := desired, plan.VAT
	for _, o := range eligible {
		if remaining == 0 {
			break
		}
		available := o.SupplyAmount - o.RefundedSupply
		take := min(available, remaining)
		vat := VAT(take)
		if take == remaining {
			vat = remainingVAT
		}
		plan.Chunks = append(plan.Chunks, RefundChunk{
			OrderID:             o.OrderID,
			PaymentKey:          o.PaymentKey,
			PriorRefundedSupply: o.RefundedSupply,
			Supply:              take,
			VAT:                 vat,
			FullyRefunded:       o.RefundedSupply+take >= o.SupplyAmount,
		})
		remaining -= take
		remainingVAT -= vat
	}
	return plan, nil
}
