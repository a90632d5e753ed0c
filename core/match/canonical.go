// Package match decides whether a catalog fee applies to a project.
//
// All fuzzy string comparison in the engine goes through Canonical and
// Contains so that project types, use-subtypes, service-area names and
// jurisdiction names follow one documented rule: compare lowercase
// alphabetic-only tokens, optionally by containment in either direction.
package match

import (
	"regexp"
	"strings"
	"unicode"

	"permit-fees/core/types"
)

// Canonical lowercases s and drops every non-letter.
// "Single-Family", "single family" and "SINGLE_FAMILY" all become "singlefamily".
func Canonical(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Equal reports whether a and b share a non-empty canonical form
func Equal(a, b string) bool {
	ca := Canonical(a)
	return ca != "" && ca == Canonical(b)
}

// Contains reports whether either canonical form contains the other.
// Empty canonical forms never match.
func Contains(a, b string) bool {
	ca, cb := Canonical(a), Canonical(b)
	if ca == "" || cb == "" {
		return false
	}
	return strings.Contains(ca, cb) || strings.Contains(cb, ca)
}

// IsWildcard reports whether a catalog list entry means "everyone"
func IsWildcard(entry string) bool {
	switch Canonical(entry) {
	case "allusers", "all":
		return true
	}
	return false
}

// ParseProjectType resolves free text to the closed ProjectType set
func ParseProjectType(s string) (types.ProjectType, bool) {
	for _, pt := range types.ProjectTypes {
		if Equal(string(pt), s) {
			return pt, true
		}
	}
	return "", false
}

var trailingState = regexp.MustCompile(`(?i),\s*([a-z]{2})\s*$`)

// NormalizeJurisdictionName strips a trailing ", ST" and collapses whitespace.
// The stripped state code is returned upper-cased, or "" when absent.
func NormalizeJurisdictionName(name string) (string, string) {
	state := ""
	if m := trailingState.FindStringSubmatch(name); m != nil {
		state = strings.ToUpper(m[1])
		name = name[:len(name)-len(m[0])]
	}
	return strings.Join(strings.Fields(name), " "), state
}

// IsCitywide reports whether a service-area name selects no area
func IsCitywide(serviceArea string) bool {
	return Canonical(serviceArea) == "" || Equal(serviceArea, types.CitywideServiceArea)
}

// FindServiceArea picks the area whose name equals name canonically, then
// the first whose name contains it (or is contained by it).
func FindServiceArea(areas []types.ServiceArea, name string) (types.ServiceArea, bool) {
	for _, a := range areas {
		if Equal(a.Name, name) {
			return a, true
		}
	}
	for _, a := range areas {
		if Contains(a.Name, name) {
			return a, true
		}
	}
	return types.ServiceArea{}, false
}
