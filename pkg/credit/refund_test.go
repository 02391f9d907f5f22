package credit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanRefund(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	older := RefundableOrder{OrderID: "old", PaymentKey: "pk_old", SupplyAmount: 500000, CreatedAt: t0}
	newer := RefundableOrder{OrderID: "new", PaymentKey: "pk_new", SupplyAmount: 1000000, CreatedAt: t0.Add(time.Hour)}

	t.Run("Newest First Allocation", func(t *testing.T) {
		plan, err := PlanRefund(1200000, []RefundableOrder{older, newer})
		require.NoError(t, err)
		require.Len(t, plan.Chunks, 2)

		assert.Equal(t, "new", plan.Chunks[0].OrderID)
		assert.Equal(t, int64(1000000), plan.Chunks[0].Supply)
		assert.True(t, plan.Chunks[0].FullyRefunded)

		assert.Equal(t, "old", plan.Chunks[1].OrderID)
		assert.Equal(t, int64(200000), plan.Chunks[1].Supply)
		assert.False(t, plan.Chunks[1].FullyRefunded)

		var supply, vat int64
		for _, c := range plan.Chunks {
			supply += c.Supply
			vat += c.VAT
		}
		assert.Equal(t, int64(1200000), supply)
		assert.Equal(t, plan.VAT, vat)
		assert.Equal(t, int64(120000), plan.VAT)
	})

	t.Run("Last Chunk Absorbs Remaining VAT", func(t *testing.T) {
		a := RefundableOrder{OrderID: "a", PaymentKey: "pk_a", SupplyAmount: 15, CreatedAt: t0.Add(time.Minute)}
		b := RefundableOrder{OrderID: "b", PaymentKey: "pk_b", SupplyAmount: 15, CreatedAt: t0}

		plan, err := PlanRefund(30, []RefundableOrder{a, b})
		require.NoError(t, err)
		require.Len(t, plan.Chunks, 2)
		assert.Equal(t, int64(3), plan.VAT)
		assert.Equal(t, int64(2), plan.Chunks[0].VAT)
		assert.Equal(t, int64(1), plan.Chunks[1].VAT)
	})

	t.Run("Partially Refunded Order", func(t *testing.T) {
		partial := newer
		partial.RefundedSupply = 900000

		plan, err := PlanRefund(300000, []RefundableOrder{older, partial})
		require.NoError(t, err)
		require.Len(t, plan.Chunks, 2)
		assert.Equal(t, int64(100000), plan.Chunks[0].Supply)
		assert.Equal(t, int64(900000), plan.Chunks[0].PriorRefundedSupply)
		assert.True(t, plan.Chunks[0].FullyRefunded)
		assert.Equal(t, int64(200000), plan.Chunks[1].Supply)
	})

	t.Run("No Refundable Orders", func(t *testing.T) {
		done := older
		done.RefundedSupply = done.SupplyAmount
		noKey := newer
		noKey.PaymentKey = ""

		_, err := PlanRefund(1000, []RefundableOrder{done, noKey})
		assert.ErrorIs(t, err, ErrNoRefundableOrders)
	})

	t.Run("Exceeds Refundable", func(t *testing.T) {
		_, err := PlanRefund(2000000, []RefundableOrder{older, newer})
		var perr *InsufficientPaidBalanceError
		require.True(t, errors.As(err, &perr))
		assert.Equal(t, int64(1500000), perr.Available)
		assert.ErrorIs(t, err, ErrInsufficientPaidBalance)
	})

	t.Run("Non Positive Amount", func(t *testing.T) {
		_, err := PlanRefund(0, []RefundableOrder{older})
		var verr *ValidationError
		assert.True(t, errors.As(err, &verr))
	})
}
