// Package units parses free-text rate-unit labels such as "per 1,000 sq ft"
// or "per month" into a divisor and a billing cadence.
package units

import (
	"strings"

	"github.com/shopspring/decimal"

	"permit-fees/core/types"
)

var thousand = decimal.NewFromInt(1000)

// Label is the structured reading of a unit label
type Label struct {
	// Divisor scales per-sqft quantities; 1000 for "per 1,000 sq ft"
	Divisor decimal.Decimal

	Cadence types.Cadence
}

// Recurring reports whether the label describes a monthly charge
func (l Label) Recurring() bool {
	return l.Cadence == types.CadenceRecurring
}

// Parse reads a unit label. An empty label yields divisor 1, one-time.
func Parse(label string) Label {
	lower := strings.ToLower(label)

	out := Label{Divisor: decimal.NewFromInt(1), Cadence: types.CadenceOneTime}
	if strings.Contains(lower, "1,000") || strings.Contains(lower, "1000") {
		out.Divisor = thousand
	}
	if strings.Contains(lower, "month") {
		out.Cadence = types.CadenceRecurring
	}
	return out
}

// ForRule reads the rule's label and also honors its separately stored frequency
func ForRule(rule *types.FeeCalculationRule) Label {
	l := Parse(rule.UnitLabel)
	if MonthlyFrequency(rule.Frequency) {
		l.Cadence = types.CadenceRecurring
	}
	return l
}

// MonthlyFrequency reports whether a stored frequency value means monthly
func MonthlyFrequency(freq string) bool {
	f := strings.ToLower(strings.TrimSpace(freq))
	return f == "monthly" || strings.Contains(f, "month")
}

// DriverFor guesses which project quantity a label is priced against
func DriverFor(label string) types.Quantity {
	lower := strings.ToLower(label)
	switch {
	case strings.Contains(lower, "sq"), strings.Contains(lower, "square"):
		return types.QuantitySqft
	case strings.Contains(lower, "valuation"), strings.Contains(lower, "value"), strings.Contains(lower, "$"):
		return types.QuantityValue
	default:
		return types.QuantityUnits
	}
}
