// Package types - Calculation result types
package types

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// RecurringPeriodMonth is the only recurring period the engine prices
const RecurringPeriodMonth = "month"

// FeeIssue records why a fee could not be priced with confidence
type FeeIssue struct {
	// Kind is the error type, e.g. VALIDATION_ERROR or CALCULATION_ERROR
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

// CalculatedFee is the result of applying a rule to project inputs
type CalculatedFee struct {
	FeeID       string   `json:"feeId"`
	FeeName     string   `json:"feeName"`
	AgencyName  string   `json:"agencyName"`
	ServiceArea string   `json:"serviceArea"`
	Category    string   `json:"category"`
	CalcType    CalcType `json:"calcType"`

	// Amount is non-negative and already clamped to the rule's bounds
	Amount decimal.Decimal `json:"calculatedAmount"`

	// Calculation is a human-readable narrative of how Amount was derived
	Calculation string `json:"calculation"`

	Recurring       bool   `json:"isRecurring"`
	RecurringPeriod string `json:"recurringPeriod,omitempty"`

	// NeedsRules flags a fee whose method could not be resolved
	NeedsRules bool      `json:"needsRules,omitempty"`
	Issue      *FeeIssue `json:"issue,omitempty"`
}

// NeedsRulesEntry lists a fee that requires manual follow-up
type NeedsRulesEntry struct {
	FeeID   string `json:"feeId"`
	FeeName string `json:"feeName"`
	Reason  string `json:"reason"`
}

// PerUnitCosts divides the totals by the project's unit count
type PerUnitCosts struct {
	DevelopmentCost decimal.Decimal `json:"developmentCost"`
	MonthlyCost     decimal.Decimal `json:"monthlyCost"`
	FirstYearCost   decimal.Decimal `json:"firstYearCost"`
}

// FeeBreakdown is the aggregated report for one jurisdiction
type FeeBreakdown struct {
	// TotalFees is the one-time total
	TotalFees decimal.Decimal `json:"totalFees"`

	// MonthlyFees is the recurring monthly total
	MonthlyFees decimal.Decimal `json:"monthlyFees"`

	// AnnualOperatingCosts is MonthlyFees × 12
	AnnualOperatingCosts decimal.Decimal `json:"annualOperatingCosts"`

	// FirstYearTotal is TotalFees + MonthlyFees × 12
	FirstYearTotal decimal.Decimal `json:"firstYearTotal"`

	Fees       []CalculatedFee            `json:"fees"`
	ByCategory map[string]decimal.Decimal `json:"byCategory"`
	ByAgency   map[string]decimal.Decimal `json:"byAgency"`

	NeedsRules []NeedsRulesEntry `json:"needsRules,omitempty"`
	PerUnit    *PerUnitCosts     `json:"perUnitCosts,omitempty"`

	Jurisdiction *Jurisdiction `json:"jurisdiction,omitempty"`
	Project      ProjectInputs `json:"project"`
}

// FormatUSD renders an amount as "$1,234.56"
func FormatUSD(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-$" + humanize.FormatFloat("#,###.##", d.Neg().InexactFloat64())
	}
	return "$" + humanize.FormatFloat("#,###.##", d.InexactFloat64())
}
