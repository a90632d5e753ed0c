package match

import (
	"fmt"

	"permit-fees/core/types"
)

// Options tunes matching behavior
type Options struct {
	// SubtypeContainment falls back to substring containment when exact
	// normalized use-subtype matching fails. Off by default.
	SubtypeContainment bool
}

// Decision is the outcome of an applicability check
type Decision struct {
	Applicable bool
	// Reason names the first failed condition when not applicable
	Reason string
}

// Matcher evaluates fee applicability against project inputs
type Matcher struct {
	opts Options
}

// NewMatcher creates a matcher
func NewMatcher(opts Options) *Matcher {
	return &Matcher{opts: opts}
}

// Applies reports whether fee (priced by rule) applies to the project
func (m *Matcher) Applies(fee *types.FeeDefinition, rule *types.FeeCalculationRule, p *types.ProjectInputs) bool {
	return m.Evaluate(fee, rule, p).Applicable
}

// Evaluate checks every applicability condition and reports the first failure
func (m *Matcher) Evaluate(fee *types.FeeDefinition, rule *types.FeeCalculationRule, p *types.ProjectInputs) Decision {
	if !fee.Active {
		return Decision{Reason: "fee is inactive"}
	}
	if !m.MatchesProjectType(fee.AppliesTo, p.ProjectType) {
		return Decision{Reason: fmt.Sprintf("applies_to %v excludes project type %q", fee.AppliesTo, p.ProjectType)}
	}
	if !m.MatchesSubtype(fee.UseSubtypes, p.UseSubtype) {
		return Decision{Reason: fmt.Sprintf("use_subtypes %v exclude %q", fee.UseSubtypes, p.UseSubtype)}
	}
	if rule != nil && rule.CalcType == types.CalcPerMeterSize {
		if _, ok := MatchMeter(rule, p.MeterSize); !ok {
			return Decision{Reason: fmt.Sprintf("no eligible meter size for %q", p.MeterSize)}
		}
	}
	return Decision{Applicable: true}
}

// MatchesProjectType applies containment in either direction, so
// "Residential" matches "residential-single-family".
func (m *Matcher) MatchesProjectType(appliesTo []string, pt types.ProjectType) bool {
	if len(appliesTo) == 0 {
		return true
	}
	for _, entry := range appliesTo {
		if IsWildcard(entry) || Contains(entry, string(pt)) {
			return true
		}
	}
	return false
}

// MatchesSubtype requires exact normalized equality unless containment
// fallback is enabled. An empty list or an absent project subtype matches.
func (m *Matcher) MatchesSubtype(subtypes []string, subtype string) bool {
	if len(subtypes) == 0 || Canonical(subtype) == "" {
		return true
	}
	for _, entry := range subtypes {
		if IsWildcard(entry) || Equal(entry, subtype) {
			return true
		}
	}
	if m.opts.SubtypeContainment {
		for _, entry := range subtypes {
			if Contains(entry, subtype) {
				return true
			}
		}
	}
	return false
}
