// Package credit holds the pricing rules and error vocabulary shared by the
// order, reconciliation and settlement services.
package credit

const (
	MinSupplyAmount int64 = 500_000
	MaxSupplyAmount int64 = 5_000_000

	lowerTierCeiling int64 = 1_000_000
	lowerTierUnit    int64 = 500_000
	upperTierUnit    int64 = 1_000_000

	// VATRatePercent is the fixed VAT rate applied to every top-up.
	VATRatePercent int64 = 10
)

// Quote is the priced breakdown of a top-up.
type Quote struct {
	Supply int64
	VAT    int64
	Total  int64
}

// ValidateSupplyAmount enforces the tiered top-up unit rule: amounts up to
// 1,000,000 go in steps of 500,000, larger amounts in steps of 1,000,000,
// within [500,000, 5,000,000].
func ValidateSupplyAmount(supply int64) error {
	if supply <= 0 {
		return NewValidationError("supplyAmount", "must be positive")
	}
	if supply < MinSupplyAmount || supply > MaxSupplyAmount {
		return NewValidationError("supplyAmount", "must be between %d and %d", MinSupplyAmount, MaxSupplyAmount)
	}
	if supply <= lowerTierCeiling {
		if supply%lowerTierUnit != 0 {
			return NewValidationError("supplyAmount", "amounts up to %d must be a multiple of %d", lowerTierCeiling, lowerTierUnit)
		}
		return nil
	}
	if supply%upperTierUnit != 0 {
		return NewValidationError("supplyAmount", "amounts above %d must be a multiple of %d", lowerTierCeiling, upperTierUnit)
	}
	return nil
}

// VAT returns round(amount * 10%), rounding halves up.
func VAT(amount int64) int64 {
	return floorDiv(amount*VATRatePercent+50, 100)
}

// NewQuote validates supply and prices it.
func NewQuote(supply int64) (Quote, error) {
	if err := ValidateSupplyAmount(supply); err != nil {
		return Quote{}, err
	}
	vat := VAT(supply)
	return Quote{Supply: supply, VAT: vat, Total: supply + vat}, nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
