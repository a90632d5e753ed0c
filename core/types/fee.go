// Package types - Fee catalog types
package types

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// CalcType is the calculation-method tag stored on a rule
type CalcType string

const (
	CalcFlat         CalcType = "flat"
	CalcPerUnit      CalcType = "per_unit"
	CalcPerSqft      CalcType = "per_sqft"
	CalcPerMeterSize CalcType = "per_meter_size"
	CalcPercentage   CalcType = "percentage"
	CalcFormula      CalcType = "formula"
	CalcTiered       CalcType = "tiered"
)

// Cadence distinguishes one-time from recurring monthly fees
type Cadence string

const (
	CadenceOneTime   Cadence = "one_time"
	CadenceRecurring Cadence = "recurring"
)

// TierBasis is how a selected tier's rate is applied
type TierBasis string

const (
	TierFlat       TierBasis = "flat"
	TierPerUnit    TierBasis = "per_unit"
	TierPerSqft    TierBasis = "per_sqft"
	TierPercentage TierBasis = "percentage"
)

// TierMode selects between picking one bracket and splitting across brackets
type TierMode string

const (
	TierModeBracket   TierMode = "bracket"
	TierModeGraduated TierMode = "graduated"
)

// FeeDefinition is one fee in a jurisdiction's catalog
type FeeDefinition struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	AgencyID   string `json:"agency_id,omitempty"`
	AgencyName string `json:"agency_name"`

	JurisdictionID string `json:"jurisdiction_id"`

	// ServiceAreaID is empty for citywide fees
	ServiceAreaID   string `json:"service_area_id,omitempty"`
	ServiceAreaName string `json:"service_area_name,omitempty"`

	Category string `json:"category"`

	// AppliesTo lists project types; empty applies to all
	AppliesTo []string `json:"applies_to,omitempty"`

	// UseSubtypes lists use-subtypes; empty applies to all
	UseSubtypes []string `json:"use_subtypes,omitempty"`

	Active bool `json:"is_active"`

	Rules []FeeCalculationRule `json:"rules,omitempty"`

	// Defect describes a stored field that could not be read. Such a fee
	// cannot be matched and is skipped.
	Defect string `json:"-"`
}

// Citywide reports whether the fee has no service area
func (f *FeeDefinition) Citywide() bool {
	return f.ServiceAreaID == ""
}

// CurrentRule returns the published rule, falling back to the first rule.
// It returns nil when the fee has no rules at all.
func (f *FeeDefinition) CurrentRule() *FeeCalculationRule {
	for i := range f.Rules {
		if f.Rules[i].Current {
			return &f.Rules[i]
		}
	}
	if len(f.Rules) > 0 {
		return &f.Rules[0]
	}
	return nil
}

// FeeCalculationRule describes how a fee's amount is derived
type FeeCalculationRule struct {
	ID       string   `json:"id,omitempty"`
	CalcType CalcType `json:"calc_type"`

	Rate      decimal.Decimal `json:"rate"`
	UnitLabel string          `json:"unit_label,omitempty"`

	// Frequency is stored separately from the label in some catalogs ("monthly")
	Frequency string `json:"frequency,omitempty"`

	MinFee decimal.NullDecimal `json:"min_fee"`
	MaxFee decimal.NullDecimal `json:"max_fee"`

	Tiers      []Tier   `json:"tiers,omitempty"`
	TierDriver Quantity `json:"tier_driver,omitempty"`
	TierMode   TierMode `json:"tier_mode,omitempty"`

	// Formula is the raw formula configuration, parsed at calculation time
	Formula        json.RawMessage `json:"formula_config,omitempty"`
	FormulaDisplay string          `json:"formula_display,omitempty"`

	MeterRates []MeterRate `json:"meter_rates,omitempty"`

	// Current marks the published version when several are stored
	Current bool `json:"is_current,omitempty"`

	// Defect describes a stored field that could not be read. The rule
	// prices to zero and is flagged for manual review.
	Defect string `json:"-"`
}

// Tier is one bracket of a tiered rule, covering [Min, Max)
type Tier struct {
	Min   decimal.Decimal     `json:"min"`
	Max   decimal.NullDecimal `json:"max"`
	Rate  decimal.Decimal     `json:"rate"`
	Basis TierBasis           `json:"basis,omitempty"`
}

// MeterRate is the rate charged for one water-meter size
type MeterRate struct {
	Size string          `json:"size"`
	Rate decimal.Decimal `json:"rate"`
}
