package match

import "permit-fees/core/types"

// Preset maps a user-facing project label to catalog values
type Preset struct {
	Label       string            `json:"label"`
	ProjectType types.ProjectType `json:"projectType"`
	UseSubtype  string            `json:"useSubtype"`
	Description string            `json:"description,omitempty"`
	MeterSizes  []string          `json:"recommendedMeterSizes"`
}

var defaultMeterSizes = []string{`3/4"`, `1"`, `1-1/2"`, `2"`, `3"`, `4"`, `6"`}

// Presets lists the project labels offered to users
var Presets = []Preset{
	{Label: "Single-Family Residential", ProjectType: types.ProjectResidential, UseSubtype: "Single Family",
		Description: "Single-family homes, subdivisions", MeterSizes: []string{`3/4"`, `1"`}},
	{Label: "Multi-Family Residential", ProjectType: types.ProjectResidential, UseSubtype: "Multifamily",
		Description: "Apartments, condos, townhomes", MeterSizes: []string{`1"`, `1-1/2"`, `2"`}},
	{Label: "Commercial", ProjectType: types.ProjectCommercial,
		Description: "General commercial projects", MeterSizes: defaultMeterSizes},
	{Label: "Office", ProjectType: types.ProjectCommercial, UseSubtype: "Office",
		Description: "Office buildings, professional services", MeterSizes: []string{`2"`, `3"`, `4"`}},
	{Label: "Retail", ProjectType: types.ProjectCommercial, UseSubtype: "Retail",
		Description: "Shopping centers, stores, retail spaces", MeterSizes: []string{`2"`, `3"`, `4"`}},
	{Label: "Restaurant/Food Service", ProjectType: types.ProjectCommercial, UseSubtype: "Restaurant",
		Description: "Restaurants, food service establishments", MeterSizes: defaultMeterSizes},
	{Label: "Industrial", ProjectType: types.ProjectIndustrial,
		Description: "Warehouses, manufacturing, distribution centers", MeterSizes: []string{`3"`, `4"`, `6"`}},
}

// LookupPreset finds a preset by label, ignoring case and punctuation
func LookupPreset(label string) (Preset, bool) {
	for _, p := range Presets {
		if Equal(p.Label, label) {
			return p, true
		}
	}
	return Preset{}, false
}

// ApplyPreset fills an empty project type and use-subtype from the
// project's preset label. It reports false for an unknown label.
func ApplyPreset(p *types.ProjectInputs) bool {
	if p.Preset == "" {
		return true
	}
	preset, ok := LookupPreset(p.Preset)
	if !ok {
		return false
	}
	if p.ProjectType == "" {
		p.ProjectType = preset.ProjectType
	}
	if p.UseSubtype == "" {
		p.UseSubtype = preset.UseSubtype
	}
	return true
}
