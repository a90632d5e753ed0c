package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"permit-fees/core/types"
	"permit-fees/core/units"
	"permit-fees/internal/errors"
)

// priceTiers prices a tiered rule. In bracket mode the single tier whose
// [Min, Max) range contains the driver quantity is applied according to
// its basis. In graduated mode the quantity is split across tiers and
// each slice is charged at its tier's rate.
func priceTiers(c *calc) outcome {
	rule := c.rule
	if len(rule.Tiers) == 0 {
		return unresolved(errors.TypeDataIntegrity, "tiered rule has no tiers")
	}
	if err := validateTiers(rule.Tiers); err != nil {
		return unresolved(errors.TypeCalculation, errors.Message(err))
	}

	driver := rule.TierDriver
	if driver == "" {
		driver = units.DriverFor(rule.UnitLabel)
	}
	q, ok := c.project.Quantity(driver)
	if !ok {
		return missing(quantityName(driver))
	}

	switch rule.TierMode {
	case "", types.TierModeBracket:
		return bracket(c, driver, q)
	case types.TierModeGraduated:
		return graduated(c, driver, q)
	}
	return unresolved(errors.TypeCalculation, fmt.Sprintf("unknown tier mode %q", rule.TierMode))
}

func validateTiers(tiers []types.Tier) error {
	for i, t := range tiers {
		if t.Max.Valid && t.Max.Decimal.LessThan(t.Min) {
			return errors.Newf(errors.TypeCalculation, "tier %d has max %s below min %s", i, t.Max.Decimal, t.Min)
		}
		switch t.Basis {
		case "", types.TierFlat, types.TierPerUnit, types.TierPerSqft, types.TierPercentage:
		default:
			return errors.Newf(errors.TypeCalculation, "tier %d has unknown basis %q", i, t.Basis)
		}
	}
	return nil
}

func contains(t types.Tier, q decimal.Decimal) bool {
	if q.LessThan(t.Min) {
		return false
	}
	return !t.Max.Valid || q.LessThan(t.Max.Decimal)
}

func tierRange(t types.Tier) string {
	if !t.Max.Valid {
		return t.Min.String() + "+"
	}
	return t.Min.String() + "-" + t.Max.Decimal.String()
}

func bracket(c *calc, driver types.Quantity, q decimal.Decimal) outcome {
	for _, t := range c.rule.Tiers {
		if !contains(t, q) {
			continue
		}
		out := applyBasis(c, t)
		if out.priced() {
			out.narrative = fmt.Sprintf("Tier %s: %s", tierRange(t), out.narrative)
		}
		return out
	}
	return unresolved(errors.TypeDataIntegrity,
		fmt.Sprintf("no tier covers %s %s", q.String(), driver))
}

// applyBasis charges one tier's rate the way its basis says
func applyBasis(c *calc, t types.Tier) outcome {
	switch t.Basis {
	case types.TierPerUnit:
		n, ok := c.project.Quantity(types.QuantityUnits)
		if !ok {
			return missing(quantityName(types.QuantityUnits))
		}
		amount := t.Rate.Mul(n)
		return outcome{
			amount:    amount,
			narrative: fmt.Sprintf("%s × %s units = %s", types.FormatUSD(t.Rate), n.String(), types.FormatUSD(amount)),
		}
	case types.TierPerSqft:
		sqft, ok := c.project.Quantity(types.QuantitySqft)
		if !ok {
			return missing(quantityName(types.QuantitySqft))
		}
		return perSqft(t.Rate, sqft, c.label.Divisor)
	case types.TierPercentage:
		value, ok := c.project.Quantity(types.QuantityValue)
		if !ok {
			return missing(quantityName(types.QuantityValue))
		}
		return percentage(t.Rate, value)
	default:
		return outcome{amount: t.Rate, narrative: "Flat fee: " + types.FormatUSD(t.Rate)}
	}
}

func graduated(c *calc, driver types.Quantity, q decimal.Decimal) outcome {
	tiers := append([]types.Tier(nil), c.rule.Tiers...)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].Min.LessThan(tiers[j].Min) })

	scale := decimal.NewFromInt(1)
	if driver == types.QuantitySqft {
		scale = c.label.Divisor
	}

	total := decimal.Zero
	var parts []string
	for _, t := range tiers {
		if !q.GreaterThan(t.Min) {
			break
		}
		upper := q
		if t.Max.Valid && t.Max.Decimal.LessThan(q) {
			upper = t.Max.Decimal
		}
		portion := upper.Sub(t.Min)
		cost := portion.Div(scale).Mul(t.Rate)
		total = total.Add(cost)
		parts = append(parts, fmt.Sprintf("%s × %s = %s", portion.String(), types.FormatUSD(t.Rate), types.FormatUSD(cost)))
	}
	if q.LessThan(tiers[0].Min) {
		return unresolved(errors.TypeDataIntegrity,
			fmt.Sprintf("no tier covers %s %s", q.String(), driver))
	}
	if len(parts) == 0 {
		return outcome{amount: decimal.Zero, narrative: "No billable quantity"}
	}
	return outcome{
		amount:    total,
		narrative: strings.Join(parts, " + ") + " = " + types.FormatUSD(total),
	}
}
