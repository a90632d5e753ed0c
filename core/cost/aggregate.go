// Package cost aggregates calculated fees into a breakdown.
// One-time and recurring fees are totalled separately and every fee is
// also summed by category and by agency.
package cost

import (
	"sort"

	"github.com/shopspring/decimal"

	"permit-fees/core/types"
)

// MonthsPerYear annualizes recurring monthly fees
const MonthsPerYear = 12

var months = decimal.NewFromInt(MonthsPerYear)

// Breakdown accumulates fees for one jurisdiction
type Breakdown struct {
	result *types.FeeBreakdown
}

// NewBreakdown creates an empty breakdown for the project
func NewBreakdown(project types.ProjectInputs) *Breakdown {
	return &Breakdown{
		result: &types.FeeBreakdown{
			TotalFees:            decimal.Zero,
			MonthlyFees:          decimal.Zero,
			AnnualOperatingCosts: decimal.Zero,
			FirstYearTotal:       decimal.Zero,
			Fees:                 []types.CalculatedFee{},
			ByCategory:           make(map[string]decimal.Decimal),
			ByAgency:             make(map[string]decimal.Decimal),
			Project:              project,
		},
	}
}

// Add records a fee and updates every total
func (b *Breakdown) Add(fee types.CalculatedFee) {
	r := b.result
	r.Fees = append(r.Fees, fee)

	if fee.Recurring {
		r.MonthlyFees = r.MonthlyFees.Add(fee.Amount)
	} else {
		r.TotalFees = r.TotalFees.Add(fee.Amount)
	}

	r.ByCategory[fee.Category] = r.ByCategory[fee.Category].Add(fee.Amount)
	r.ByAgency[fee.AgencyName] = r.ByAgency[fee.AgencyName].Add(fee.Amount)

	if fee.NeedsRules {
		reason := ""
		if fee.Issue != nil {
			reason = fee.Issue.Reason
		}
		r.NeedsRules = append(r.NeedsRules, types.NeedsRulesEntry{
			FeeID:   fee.FeeID,
			FeeName: fee.FeeName,
			Reason:  reason,
		})
	}
}

// Result derives annual and per-unit figures and returns the breakdown
func (b *Breakdown) Result() *types.FeeBreakdown {
	r := b.result
	r.AnnualOperatingCosts = r.MonthlyFees.Mul(months)
	r.FirstYearTotal = r.TotalFees.Add(r.AnnualOperatingCosts)

	r.PerUnit = nil
	if n, ok := r.Project.Quantity(types.QuantityUnits); ok && n.IsPositive() {
		r.PerUnit = &types.PerUnitCosts{
			DevelopmentCost: r.TotalFees.Div(n).Round(2),
			MonthlyCost:     r.MonthlyFees.Div(n).Round(2),
			FirstYearCost:   r.FirstYearTotal.Div(n).Round(2),
		}
	}
	return r
}

// Aggregate builds a breakdown from already calculated fees
func Aggregate(project types.ProjectInputs, fees []types.CalculatedFee) *types.FeeBreakdown {
	b := NewBreakdown(project)
	for _, fee := range fees {
		b.Add(fee)
	}
	return b.Result()
}

// Split partitions fees into one-time and recurring, preserving order
func Split(fees []types.CalculatedFee) (oneTime, recurring []types.CalculatedFee) {
	for _, fee := range fees {
		if fee.Recurring {
			recurring = append(recurring, fee)
		} else {
			oneTime = append(oneTime, fee)
		}
	}
	return oneTime, recurring
}

// Group is a named subtotal
type Group struct {
	Name   string
	Amount decimal.Decimal
}

// SortedGroups returns subtotals ordered by amount, largest first, with
// ties broken by name
func SortedGroups(m map[string]decimal.Decimal) []Group {
	groups := make([]Group, 0, len(m))
	for name, amount := range m {
		groups = append(groups, Group{Name: name, Amount: amount})
	}
	sort.Slice(groups, func(i, j int) bool {
		if c := groups[i].Amount.Cmp(groups[j].Amount); c != 0 {
			return c > 0
		}
		return groups[i].Name < groups[j].Name
	})
	return groups
}
