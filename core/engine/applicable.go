package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"permit-fees/core/types"
)

// ApplicableFee is a fee that applies to a project, listed with its
// current rule but not priced
type ApplicableFee struct {
	FeeID       string `json:"feeId"`
	FeeName     string `json:"feeName"`
	AgencyName  string `json:"agencyName"`
	ServiceArea string `json:"serviceArea"`
	Category    string `json:"category"`

	// Rule fields are empty when the fee has no calculation rule
	CalcType       types.CalcType  `json:"calcType,omitempty"`
	Rate           decimal.Decimal `json:"rate"`
	UnitLabel      string          `json:"unitLabel,omitempty"`
	FormulaDisplay string          `json:"formulaDisplay,omitempty"`

	AppliesTo   []string `json:"appliesTo"`
	UseSubtypes []string `json:"useSubtypes"`
}

// ApplicableFees lists the fees in scope for the project's location that
// pass the applicability matcher, in catalog order. Fees with unreadable
// catalog data are left out.
func (e *Engine) ApplicableFees(ctx context.Context, inputs types.ProjectInputs) ([]ApplicableFee, error) {
	p, _, fees, err := e.scopedFees(ctx, inputs)
	if err != nil {
		return nil, err
	}

	out := []ApplicableFee{}
	for i := range fees {
		fee := &fees[i]
		if fee.Defect != "" {
			continue
		}
		rule := fee.CurrentRule()
		if !e.matcher.Applies(fee, rule, &p) {
			continue
		}

		af := ApplicableFee{
			FeeID:       fee.ID,
			FeeName:     fee.Name,
			AgencyName:  fee.AgencyName,
			ServiceArea: types.CitywideServiceArea,
			Category:    fee.Category,
			AppliesTo:   nonNil(fee.AppliesTo),
			UseSubtypes: nonNil(fee.UseSubtypes),
		}
		if !fee.Citywide() && fee.ServiceAreaName != "" {
			af.ServiceArea = fee.ServiceAreaName
		}
		if rule != nil {
			af.CalcType = rule.CalcType
			af.Rate = rule.Rate
			af.UnitLabel = rule.UnitLabel
			af.FormulaDisplay = rule.FormulaDisplay
		}
		out = append(out, af)
	}
	return out, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
