package pricing

import (
	"github.com/shopspring/decimal"

	"permit-fees/core/types"
	"permit-fees/core/units"
	"permit-fees/internal/errors"
)

// DefaultCategory is used when a fee has no category
const DefaultCategory = "Other"

// Calculator prices one fee at a time. It holds no state and is safe for
// concurrent use.
type Calculator struct{}

// NewCalculator creates a calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate applies rule to the project. It never fails: unresolvable
// methods come back with NeedsRules set and missing inputs come back as a
// zero amount with a validation issue.
func (c *Calculator) Calculate(fee *types.FeeDefinition, rule *types.FeeCalculationRule, p *types.ProjectInputs) types.CalculatedFee {
	label := units.ForRule(rule)

	var out outcome
	method, err := MethodFor(rule.CalcType)
	switch {
	case rule.Defect != "":
		out = unresolved(errors.TypeCalculation, rule.Defect)
	case err != nil:
		out = unresolved(errors.TypeOf(err), errors.Message(err))
	default:
		out = method.compute(&calc{rule: rule, project: p, label: label})
	}

	amount := out.amount
	narrative := out.narrative
	if out.priced() {
		var note string
		amount, note = Clamp(amount, rule.MinFee, rule.MaxFee)
		if note != "" {
			narrative += " (" + note + ")"
		}
	}
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	result := types.CalculatedFee{
		FeeID:       fee.ID,
		FeeName:     fee.Name,
		AgencyName:  fee.AgencyName,
		ServiceArea: serviceAreaName(fee),
		Category:    fee.Category,
		CalcType:    rule.CalcType,
		Amount:      amount.Round(2),
		Calculation: narrative,
		Recurring:   label.Recurring(),
		NeedsRules:  out.needsRules,
		Issue:       out.issue,
	}
	if result.Category == "" {
		result.Category = DefaultCategory
	}
	if result.Recurring {
		result.RecurringPeriod = types.RecurringPeriodMonth
	}
	return result
}

func serviceAreaName(fee *types.FeeDefinition) string {
	if fee.Citywide() || fee.ServiceAreaName == "" {
		return types.CitywideServiceArea
	}
	return fee.ServiceAreaName
}
