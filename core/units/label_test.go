package units

import (
	"testing"

	"github.com/shopspring/decimal"

	"permit-fees/core/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		label     string
		divisor   int64
		recurring bool
	}{
		{name: "empty label", label: "", divisor: 1},
		{name: "per 1,000 square feet", label: "per 1,000 square feet", divisor: 1000},
		{name: "per 1000 sq ft", label: "Per 1000 Sq Ft", divisor: 1000},
		{name: "per square foot", label: "per sq ft", divisor: 1},
		{name: "per month", label: "per month", divisor: 1, recurring: true},
		{name: "monthly meter charge", label: `1" meter, Monthly`, divisor: 1, recurring: true},
		{name: "per unit", label: "per dwelling unit", divisor: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.label)
			if !got.Divisor.Equal(decimal.NewFromInt(tt.divisor)) {
				t.Errorf("divisor: expected %d, got %s", tt.divisor, got.Divisor)
			}
			if got.Recurring() != tt.recurring {
				t.Errorf("recurring: expected %v, got %v", tt.recurring, got.Recurring())
			}
		})
	}
}

func TestForRuleHonorsFrequency(t *testing.T) {
	rule := &types.FeeCalculationRule{UnitLabel: "per meter", Frequency: "Monthly"}
	if got := ForRule(rule); got.Cadence != types.CadenceRecurring {
		t.Errorf("expected recurring cadence from frequency, got %s", got.Cadence)
	}

	rule.Frequency = "one-time"
	if got := ForRule(rule); got.Cadence != types.CadenceOneTime {
		t.Errorf("expected one-time cadence, got %s", got.Cadence)
	}
}

func TestDriverFor(t *testing.T) {
	tests := map[string]types.Quantity{
		"per 1,000 sq ft":      types.QuantitySqft,
		"per square foot":      types.QuantitySqft,
		"of project valuation": types.QuantityValue,
		"per $1,000 of value":  types.QuantityValue,
		"per dwelling unit":    types.QuantityUnits,
		"":                     types.QuantityUnits,
	}
	for label, want := range tests {
		if got := DriverFor(label); got != want {
			t.Errorf("DriverFor(%q): expected %s, got %s", label, want, got)
		}
	}
}
