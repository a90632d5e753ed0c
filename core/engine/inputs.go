package engine

import (
	"math"
	"strings"

	"permit-fees/core/match"
	"permit-fees/core/types"
	"permit-fees/internal/errors"
)

// NormalizeInputs checks the request shape and rewrites p into canonical
// form: preset applied, jurisdiction name stripped of a trailing state,
// state code upper-cased and project type resolved to the closed set.
func NormalizeInputs(p *types.ProjectInputs) error {
	if !match.ApplyPreset(p) {
		return errors.Input("unknown project preset").WithContext("projectPreset", p.Preset)
	}

	name, state := match.NormalizeJurisdictionName(p.JurisdictionName)
	if name == "" {
		return errors.Input("jurisdictionName is required")
	}
	p.JurisdictionName = name
	p.StateCode = strings.ToUpper(strings.TrimSpace(p.StateCode))
	if p.StateCode == "" {
		p.StateCode = state
	}

	if p.ProjectType == "" {
		return errors.Input("projectType is required")
	}
	pt, ok := match.ParseProjectType(string(p.ProjectType))
	if !ok {
		return errors.Input("projectType must be one of Residential, Commercial, Industrial, Mixed-use, Public").
			WithContext("projectType", string(p.ProjectType))
	}
	p.ProjectType = pt
	p.UseSubtype = strings.TrimSpace(p.UseSubtype)
	p.MeterSize = strings.TrimSpace(p.MeterSize)

	if p.NumUnits != nil && *p.NumUnits < 0 {
		return errors.Input("numUnits must not be negative")
	}
	quantities := []struct {
		field string
		value *float64
	}{
		{"squareFeet", p.SquareFeet},
		{"projectValue", p.ProjectValue},
		{"acreage", p.Acreage},
	}
	for _, q := range quantities {
		if q.value == nil {
			continue
		}
		if math.IsNaN(*q.value) || math.IsInf(*q.value, 0) {
			return errors.Input(q.field + " must be a finite number")
		}
		if *q.value < 0 {
			return errors.Input(q.field + " must not be negative")
		}
	}
	return nil
}
