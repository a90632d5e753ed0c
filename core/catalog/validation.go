package catalog

import (
	"fmt"

	"permit-fees/core/match"
	"permit-fees/core/pricing"
	"permit-fees/core/types"
)

// Problem is a data-quality finding in a snapshot
type Problem struct {
	FeeID   string `json:"feeId,omitempty"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (p Problem) Error() string {
	return fmt.Sprintf("%s: %s", p.Subject, p.Message)
}

// ValidationRule inspects a snapshot and reports problems
type ValidationRule func(s *Snapshot) []Problem

// DefaultValidationRules returns the standard snapshot checks
func DefaultValidationRules() []ValidationRule {
	return []ValidationRule{
		validateFeeOwnership,
		validateRules,
		validateDuplicateAreas,
	}
}

// Validate runs rules against the snapshot. Problems never block loading;
// they describe fees that will be skipped or flagged at calculation time.
func (s *Snapshot) Validate(rules []ValidationRule) []Problem {
	var problems []Problem
	for _, rule := range rules {
		problems = append(problems, rule(s)...)
	}
	return problems
}

// validateFeeOwnership checks that every fee names a known jurisdiction and,
// when scoped, a service area of that same jurisdiction
func validateFeeOwnership(s *Snapshot) []Problem {
	jurisdictions := make(map[string]bool)
	for _, j := range s.Jurisdictions {
		jurisdictions[j.ID] = true
	}
	areaOwner := make(map[string]string)
	for _, a := range s.ServiceAreas {
		areaOwner[a.ID] = a.JurisdictionID
	}

	var problems []Problem
	for _, f := range s.Fees {
		if !jurisdictions[f.JurisdictionID] {
			problems = append(problems, Problem{FeeID: f.ID, Subject: "fee " + f.ID,
				Message: fmt.Sprintf("unknown jurisdiction %q", f.JurisdictionID)})
		}
		if f.Citywide() {
			continue
		}
		owner, ok := areaOwner[f.ServiceAreaID]
		switch {
		case !ok:
			problems = append(problems, Problem{FeeID: f.ID, Subject: "fee " + f.ID,
				Message: fmt.Sprintf("unknown service area %q", f.ServiceAreaID)})
		case owner != f.JurisdictionID:
			problems = append(problems, Problem{FeeID: f.ID, Subject: "fee " + f.ID,
				Message: fmt.Sprintf("service area %q belongs to jurisdiction %q", f.ServiceAreaID, owner)})
		}
	}
	return problems
}

// validateRules reports active fees without a rule or with an unknown method
func validateRules(s *Snapshot) []Problem {
	var problems []Problem
	for _, f := range s.Fees {
		if !f.Active {
			continue
		}
		rule := f.CurrentRule()
		if rule == nil {
			problems = append(problems, Problem{FeeID: f.ID, Subject: "fee " + f.ID, Message: "no calculation rule"})
			continue
		}
		if _, err := pricing.MethodFor(rule.CalcType); err != nil {
			problems = append(problems, Problem{FeeID: f.ID, Subject: "fee " + f.ID,
				Message: fmt.Sprintf("unknown calc_type %q", rule.CalcType)})
		}
	}
	return problems
}

// validateDuplicateAreas reports service areas of one jurisdiction whose
// names share a canonical form
func validateDuplicateAreas(s *Snapshot) []Problem {
	seen := make(map[string]types.ServiceArea)
	var problems []Problem
	for _, a := range s.ServiceAreas {
		key := a.JurisdictionID + "/" + match.Canonical(a.Name)
		if first, ok := seen[key]; ok {
			problems = append(problems, Problem{Subject: "service area " + a.ID,
				Message: fmt.Sprintf("duplicates %q (%s)", first.Name, first.ID)})
			continue
		}
		seen[key] = a
	}
	return problems
}
