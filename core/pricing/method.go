// Package pricing computes the dollar amount of a single fee.
//
// Calculation methods form a closed set of variants. Each variant
// implements the unexported compute method, so no type outside this
// package can join the set, and MethodFor is the only place a stored
// calc_type tag is turned into a variant.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"permit-fees/core/match"
	"permit-fees/core/types"
	"permit-fees/core/units"
	"permit-fees/internal/errors"
)

// Method is one calculation strategy
type Method interface {
	// Tag returns the calc_type this variant handles
	Tag() types.CalcType

	compute(c *calc) outcome
}

type (
	// Flat charges the rule's rate
	Flat struct{}
	// PerUnit multiplies the rate by the dwelling-unit count
	PerUnit struct{}
	// PerSqft multiplies the rate by square feet over the label divisor
	PerSqft struct{}
	// PerMeterSize charges the rate of the project's meter size
	PerMeterSize struct{}
	// Percentage multiplies a fractional rate by project value
	Percentage struct{}
	// Formula evaluates a structured list of weighted terms
	Formula struct{}
	// Tiered selects or splits across a tier table
	Tiered struct{}
)

func (Flat) Tag() types.CalcType         { return types.CalcFlat }
func (PerUnit) Tag() types.CalcType      { return types.CalcPerUnit }
func (PerSqft) Tag() types.CalcType      { return types.CalcPerSqft }
func (PerMeterSize) Tag() types.CalcType { return types.CalcPerMeterSize }
func (Percentage) Tag() types.CalcType   { return types.CalcPercentage }
func (Formula) Tag() types.CalcType      { return types.CalcFormula }
func (Tiered) Tag() types.CalcType       { return types.CalcTiered }

// Methods lists every variant
var Methods = []Method{Flat{}, PerUnit{}, PerSqft{}, PerMeterSize{}, Percentage{}, Formula{}, Tiered{}}

// MethodFor resolves a stored tag. Unknown tags are a calculation error.
func MethodFor(tag types.CalcType) (Method, error) {
	switch tag {
	case types.CalcFlat:
		return Flat{}, nil
	case types.CalcPerUnit:
		return PerUnit{}, nil
	case types.CalcPerSqft:
		return PerSqft{}, nil
	case types.CalcPerMeterSize:
		return PerMeterSize{}, nil
	case types.CalcPercentage:
		return Percentage{}, nil
	case types.CalcFormula:
		return Formula{}, nil
	case types.CalcTiered:
		return Tiered{}, nil
	}
	return nil, errors.Calculation(fmt.Sprintf("unknown calculation method %q", tag), nil)
}

// calc carries everything a variant may read
type calc struct {
	rule    *types.FeeCalculationRule
	project *types.ProjectInputs
	label   units.Label
}

// outcome is a variant's raw result before clamping
type outcome struct {
	amount    decimal.Decimal
	narrative string

	// issue is set when the fee could not be priced as intended
	issue *types.FeeIssue
	// needsRules marks an unresolvable method rather than missing inputs
	needsRules bool

	// unpriced means amount is a placeholder zero, not a computation
	unpriced bool
}

// priced reports whether the outcome reflects a real computation and so
// should be clamped to the rule's bounds
func (o outcome) priced() bool {
	return !o.unpriced
}

func missing(what string) outcome {
	return outcome{
		narrative: fmt.Sprintf("%s not provided", what),
		unpriced:  true,
		issue:     issueOf(errors.Validation(fmt.Sprintf("%s required but not provided", what))),
	}
}

func issueOf(err error) *types.FeeIssue {
	return &types.FeeIssue{Kind: string(errors.TypeOf(err)), Reason: errors.Message(err)}
}

func unresolved(kind errors.Type, reason string) outcome {
	return outcome{
		narrative:  "Needs rules: " + reason,
		issue:      issueOf(errors.New(kind, reason)),
		needsRules: true,
		unpriced:   true,
	}
}

func quantityName(q types.Quantity) string {
	switch q {
	case types.QuantityUnits:
		return "Unit count"
	case types.QuantitySqft:
		return "Square footage"
	case types.QuantityValue:
		return "Project value"
	}
	return string(q)
}

func (Flat) compute(c *calc) outcome {
	amount := c.rule.Rate
	if c.label.Recurring() {
		return outcome{amount: amount, narrative: types.FormatUSD(amount) + " per month"}
	}
	return outcome{amount: amount, narrative: "Flat fee: " + types.FormatUSD(amount)}
}

func (PerUnit) compute(c *calc) outcome {
	n, ok := c.project.Quantity(types.QuantityUnits)
	if !ok {
		return missing(quantityName(types.QuantityUnits))
	}
	amount := c.rule.Rate.Mul(n)
	return outcome{
		amount:    amount,
		narrative: fmt.Sprintf("%s × %s units = %s", types.FormatUSD(c.rule.Rate), n.String(), types.FormatUSD(amount)),
	}
}

func (PerSqft) compute(c *calc) outcome {
	sqft, ok := c.project.Quantity(types.QuantitySqft)
	if !ok {
		return missing(quantityName(types.QuantitySqft))
	}
	return perSqft(c.rule.Rate, sqft, c.label.Divisor)
}

func perSqft(rate, sqft, divisor decimal.Decimal) outcome {
	scaled := sqft.Div(divisor)
	amount := rate.Mul(scaled)
	if divisor.Equal(decimal.NewFromInt(1)) {
		return outcome{
			amount:    amount,
			narrative: fmt.Sprintf("%s × %s sq ft = %s", types.FormatUSD(rate), sqft.String(), types.FormatUSD(amount)),
		}
	}
	return outcome{
		amount: amount,
		narrative: fmt.Sprintf("%s × %s (%s sq ft units) = %s",
			types.FormatUSD(rate), scaled.StringFixed(2), divisor.String(), types.FormatUSD(amount)),
	}
}

func (PerMeterSize) compute(c *calc) outcome {
	if c.project.MeterSize == "" {
		return missing("Meter size")
	}
	mr, ok := match.MatchMeter(c.rule, c.project.MeterSize)
	if !ok {
		return outcome{
			narrative: fmt.Sprintf("No rate for %s meter", c.project.MeterSize),
			unpriced:  true,
			issue:     issueOf(errors.DataIntegrity("no meter rate matches " + c.project.MeterSize)),
		}
	}
	narrative := fmt.Sprintf("%s meter: %s", c.project.MeterSize, types.FormatUSD(mr.Rate))
	if c.label.Recurring() {
		narrative += " per month"
	}
	return outcome{amount: mr.Rate, narrative: narrative}
}

func (Percentage) compute(c *calc) outcome {
	value, ok := c.project.Quantity(types.QuantityValue)
	if !ok {
		return missing(quantityName(types.QuantityValue))
	}
	return percentage(c.rule.Rate, value)
}

func percentage(rate, value decimal.Decimal) outcome {
	amount := rate.Mul(value)
	return outcome{
		amount: amount,
		narrative: fmt.Sprintf("%s%% of %s = %s",
			rate.Mul(decimal.NewFromInt(100)).String(), types.FormatUSD(value), types.FormatUSD(amount)),
	}
}

func (Formula) compute(c *calc) outcome {
	return evaluateFormula(c)
}

func (Tiered) compute(c *calc) outcome {
	return priceTiers(c)
}
