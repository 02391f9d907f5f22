// Package balance replays an organization's ledger into its spendable
// balance. Bonus credit is always consumed before paid credit, so only
// the paid part is ever refundable.
package balance

import (
	"slices"
	"strings"

	"github.com/chris/prepaid-credit-ledger/pkg/models"
)

// Calculate replays entries in createdAt order (id breaks ties) and returns
// the resulting balance. The input slice is not modified.
func Calculate(entries []models.LedgerEntry) models.Balance {
	ordered := slices.Clone(entries)
	slices.SortStableFunc(ordered, func(a, b models.LedgerEntry) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	var paid, bonus int64
	for _, e := range ordered {
		switch e.Type {
		case models.CHARGE, models.REFUND, models.ADJUST:
			paid += e.Amount
		case models.BONUS:
			bonus += e.Amount
		case models.SPEND:
			spend := e.Amount
			if spend < 0 {
				spend = -spend
			}
			fromBonus := min(max(bonus, 0), spend)
			bonus -= fromBonus
			paid -= spend - fromBonus
		}
	}

	paid = max(paid, 0)
	bonus = max(bonus, 0)
	return models.Balance{
		Balance:      paid + bonus,
		PaidBalance:  paid,
		BonusBalance: bonus,
	}
}

// SumSpent returns the absolute total of SPEND entries in entries.
func SumSpent(entries []models.LedgerEntry) int64 {
	var total int64
	for _, e := range entries {
		if e.Type != models.SPEND {
			continue
		}
		if e.Amount < 0 {
			total -= e.Amount
		} else {
			total += e.Amount
		}
	}
	return total
}
