// Package types - Project input types
package types

import "github.com/shopspring/decimal"

// ProjectType is the closed set of project classifications a fee can target
type ProjectType string

const (
	ProjectResidential ProjectType = "Residential"
	ProjectCommercial  ProjectType = "Commercial"
	ProjectIndustrial  ProjectType = "Industrial"
	ProjectMixedUse    ProjectType = "Mixed-use"
	ProjectPublic      ProjectType = "Public"
)

// ProjectTypes lists every valid ProjectType
var ProjectTypes = []ProjectType{
	ProjectResidential,
	ProjectCommercial,
	ProjectIndustrial,
	ProjectMixedUse,
	ProjectPublic,
}

// String returns the string representation
func (t ProjectType) String() string {
	return string(t)
}

// CitywideServiceArea is the display name for fees without a service area
const CitywideServiceArea = "Citywide"

// ProjectInputs describes a construction project and where it is built
type ProjectInputs struct {
	// JurisdictionName is the city or county, e.g. "Denver" or "Austin, TX"
	JurisdictionName string `json:"jurisdictionName" yaml:"jurisdictionName"`

	// StateCode is the two-letter state code
	StateCode string `json:"stateCode" yaml:"stateCode"`

	// ServiceArea is an optional service-area name; empty or "Citywide" selects none
	ServiceArea string `json:"serviceArea,omitempty" yaml:"serviceArea,omitempty"`

	// ServiceAreaIDs selects service areas by identifier
	ServiceAreaIDs []string `json:"selectedServiceAreaIds,omitempty" yaml:"selectedServiceAreaIds,omitempty"`

	// Preset is a UI label such as "Multi-Family Residential" that fills
	// ProjectType and UseSubtype when they are empty
	Preset string `json:"projectPreset,omitempty" yaml:"projectPreset,omitempty"`

	ProjectType ProjectType `json:"projectType" yaml:"projectType"`
	UseSubtype  string      `json:"useSubtype,omitempty" yaml:"useSubtype,omitempty"`

	NumUnits     *int     `json:"numUnits,omitempty" yaml:"numUnits,omitempty"`
	SquareFeet   *float64 `json:"squareFeet,omitempty" yaml:"squareFeet,omitempty"`
	ProjectValue *float64 `json:"projectValue,omitempty" yaml:"projectValue,omitempty"`
	Acreage      *float64 `json:"acreage,omitempty" yaml:"acreage,omitempty"`
	MeterSize    string   `json:"meterSize,omitempty" yaml:"meterSize,omitempty"`
}

// Quantity names a project quantity that can drive a calculation
type Quantity string

const (
	QuantityUnits Quantity = "units"
	QuantitySqft  Quantity = "sqft"
	QuantityValue Quantity = "value"
)

// Quantity returns the named quantity and whether the project supplied it
func (p *ProjectInputs) Quantity(q Quantity) (decimal.Decimal, bool) {
	switch q {
	case QuantityUnits:
		if p.NumUnits != nil {
			return decimal.NewFromInt(int64(*p.NumUnits)), true
		}
	case QuantitySqft:
		if p.SquareFeet != nil {
			return decimal.NewFromFloat(*p.SquareFeet), true
		}
	case QuantityValue:
		if p.ProjectValue != nil {
			return decimal.NewFromFloat(*p.ProjectValue), true
		}
	}
	return decimal.Zero, false
}

// HasSizing reports whether any sizing quantity is present
func (p *ProjectInputs) HasSizing() bool {
	return p.NumUnits != nil || p.SquareFeet != nil || p.ProjectValue != nil
}

// Clone returns a deep copy so callers can adjust inputs without aliasing
func (p ProjectInputs) Clone() ProjectInputs {
	out := p
	if p.ServiceAreaIDs != nil {
		out.ServiceAreaIDs = append([]string(nil), p.ServiceAreaIDs...)
	}
	if p.NumUnits != nil {
		v := *p.NumUnits
		out.NumUnits = &v
	}
	if p.SquareFeet != nil {
		v := *p.SquareFeet
		out.SquareFeet = &v
	}
	if p.ProjectValue != nil {
		v := *p.ProjectValue
		out.ProjectValue = &v
	}
	if p.Acreage != nil {
		v := *p.Acreage
		out.Acreage = &v
	}
	return out
}

// Jurisdiction is a government entity that owns a set of fees
type Jurisdiction struct {
	ID        string `json:"id"`
	Name      string `json:"jurisdictionName"`
	StateCode string `json:"stateCode"`
	StateName string `json:"stateName,omitempty"`
	Type      string `json:"jurisdictionType,omitempty"`
}

// ServiceArea is a geographic subdivision of a jurisdiction.
// An empty ID denotes the synthetic citywide entry.
type ServiceArea struct {
	ID             string `json:"id"`
	JurisdictionID string `json:"jurisdictionId,omitempty"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
}

// State is a distinct state present in the catalog
type State struct {
	Code string `json:"stateCode"`
	Name string `json:"stateName"`
}

// JurisdictionStats summarizes a jurisdiction's catalog footprint
type JurisdictionStats struct {
	TotalFees     int `json:"totalFees"`
	TotalAgencies int `json:"totalAgencies"`
}
