package balance

import (
	"testing"
	"time"

	"github.com/chris/prepaid-credit-ledger/pkg/models"
	"github.com/stretchr/testify/assert"
)

func entry(id string, typ models.LedgerEntryType, amount int64, at time.Time) models.LedgerEntry {
	return models.LedgerEntry{ID: id, UniqueKey: id, OrganizationID: "org1", Type: typ, Amount: amount, CreatedAt: at}
}

func TestCalculate(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Empty Ledger", func(t *testing.T) {
		assert.Equal(t, models.Balance{}, Calculate(nil))
	})

	t.Run("Bonus Consumed Before Paid", func(t *testing.T) {
		b := Calculate([]models.LedgerEntry{
			entry("a", models.BONUS, 10000, t0),
			entry("b", models.CHARGE, 5000, t0.Add(time.Second)),
			entry("c", models.SPEND, -12000, t0.Add(2*time.Second)),
		})
		assert.Equal(t, int64(0), b.BonusBalance)
		assert.Equal(t, int64(3000), b.PaidBalance)
		assert.Equal(t, int64(3000), b.Balance)
	})

	t.Run("Replays In CreatedAt Order", func(t *testing.T) {
		// Spend happens before the bonus is granted, so it must come out of paid.
		b := Calculate([]models.LedgerEntry{
			entry("bonus", models.BONUS, 10000, t0.Add(2*time.Second)),
			entry("spend", models.SPEND, -4000, t0.Add(time.Second)),
			entry("charge", models.CHARGE, 5000, t0),
		})
		assert.Equal(t, int64(1000), b.PaidBalance)
		assert.Equal(t, int64(10000), b.BonusBalance)
	})

	t.Run("Ties Broken By ID", func(t *testing.T) {
		b := Calculate([]models.LedgerEntry{
			entry("2", models.SPEND, -3000, t0),
			entry("1", models.BONUS, 3000, t0),
			entry("0", models.CHARGE, 1000, t0),
		})
		assert.Equal(t, int64(0), b.BonusBalance)
		assert.Equal(t, int64(1000), b.PaidBalance)
	})

	t.Run("Refunds And Adjustments Affect Paid", func(t *testing.T) {
		b := Calculate([]models.LedgerEntry{
			entry("a", models.CHARGE, 1000000, t0),
			entry("b", models.REFUND, -200000, t0.Add(time.Second)),
			entry("c", models.ADJUST, 5000, t0.Add(2*time.Second)),
			entry("d", models.BONUS, 100, t0.Add(3*time.Second)),
		})
		assert.Equal(t, int64(805000), b.PaidBalance)
		assert.Equal(t, int64(100), b.BonusBalance)
		assert.Equal(t, int64(805100), b.Balance)
	})

	t.Run("Floors At Zero", func(t *testing.T) {
		b := Calculate([]models.LedgerEntry{
			entry("a", models.CHARGE, 1000, t0),
			entry("b", models.SPEND, -5000, t0.Add(time.Second)),
		})
		assert.Equal(t, models.Balance{}, b)
	})

	t.Run("Does Not Reorder Input", func(t *testing.T) {
		in := []models.LedgerEntry{
			entry("b", models.CHARGE, 1, t0.Add(time.Second)),
			entry("a", models.CHARGE, 1, t0),
		}
		Calculate(in)
		assert.Equal(t, "b", in[0].ID)
	})
}

func TestSumSpent(t *testing.T) {
	t0 := time.Now()
	total := SumSpent([]models.LedgerEntry{
		entry("a", models.SPEND, -3000, t0),
		entry("b", models.SPEND, -2000, t0),
		entry("c", models.REFUND, 3000, t0),
	})
	assert.Equal(t, int64(5000), total)
}
