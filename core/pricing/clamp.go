package pricing

import (
	"github.com/shopspring/decimal"

	"permit-fees/core/types"
)

// Clamp bounds amount by whichever of min and max is present. The note
// describes the bound that was applied, or is empty.
func Clamp(amount decimal.Decimal, min, max decimal.NullDecimal) (decimal.Decimal, string) {
	if min.Valid && amount.LessThan(min.Decimal) {
		return min.Decimal, "minimum " + types.FormatUSD(min.Decimal) + " applied"
	}
	if max.Valid && amount.GreaterThan(max.Decimal) {
		return max.Decimal, "maximum " + types.FormatUSD(max.Decimal) + " applied"
	}
	return amount, ""
}
