// Package catalog defines the boundary between the fee engine and the
// data store that holds jurisdictions, service areas and fee definitions.
//
// Accessors only read. FetchFees returns active fees in a stable order:
// citywide fees are always included, and area-scoped fees only when their
// area is among the selected identifiers.
package catalog

import (
	"context"
	"sort"
	"strings"

	"permit-fees/core/match"
	"permit-fees/core/types"
	"permit-fees/internal/errors"
)

// Accessor is the read-only catalog contract
type Accessor interface {
	// ResolveJurisdiction finds a jurisdiction by display name. The name may
	// carry a trailing ", ST" and stateCode may be empty. It returns a
	// NOT_FOUND error when nothing matches.
	ResolveJurisdiction(ctx context.Context, name, stateCode string) (*types.Jurisdiction, error)

	// GetJurisdiction looks a jurisdiction up by identifier
	GetJurisdiction(ctx context.Context, id string) (*types.Jurisdiction, error)

	// ListJurisdictions lists jurisdictions, optionally limited to one state
	ListJurisdictions(ctx context.Context, stateCode string) ([]types.Jurisdiction, error)

	// ListServiceAreas lists the service areas of a jurisdiction
	ListServiceAreas(ctx context.Context, jurisdictionID string) ([]types.ServiceArea, error)

	// FetchFees returns the active fees of a jurisdiction, scoped to the
	// selected service areas. An empty selection returns citywide fees only.
	FetchFees(ctx context.Context, jurisdictionID string, serviceAreaIDs []string) ([]types.FeeDefinition, error)

	// ListUnitLabels returns the distinct unit labels used by active rules
	ListUnitLabels(ctx context.Context) ([]string, error)

	// ListCategories returns the distinct categories of active fees
	ListCategories(ctx context.Context) ([]string, error)

	// ListStates returns the distinct states that have jurisdictions
	ListStates(ctx context.Context) ([]types.State, error)

	// Stats counts a jurisdiction's active fees and distinct agencies
	Stats(ctx context.Context, jurisdictionID string) (*types.JurisdictionStats, error)
}

// Snapshot is a materialized catalog
type Snapshot struct {
	Jurisdictions []types.Jurisdiction  `json:"jurisdictions"`
	ServiceAreas  []types.ServiceArea   `json:"service_areas"`
	Fees          []types.FeeDefinition `json:"fees"`
}

// InScope reports whether a fee belongs in a fetch for the selected areas
func InScope(fee *types.FeeDefinition, selected map[string]bool) bool {
	return fee.Citywide() || selected[fee.ServiceAreaID]
}

// SelectionSet turns a list of area identifiers into a lookup set
func SelectionSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = true
		}
	}
	return set
}

// SortFees orders fees citywide first, then by name, then by identifier
func SortFees(fees []types.FeeDefinition) {
	sort.SliceStable(fees, func(i, j int) bool {
		a, b := &fees[i], &fees[j]
		if a.Citywide() != b.Citywide() {
			return a.Citywide()
		}
		if a.ServiceAreaID != b.ServiceAreaID {
			return a.ServiceAreaID < b.ServiceAreaID
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

// SortJurisdictions orders jurisdictions by state, then name
func SortJurisdictions(js []types.Jurisdiction) {
	sort.SliceStable(js, func(i, j int) bool {
		if js[i].StateCode != js[j].StateCode {
			return js[i].StateCode < js[j].StateCode
		}
		return js[i].Name < js[j].Name
	})
}

// Distinct returns the sorted distinct non-empty strings of values
func Distinct(values []string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Resolve picks the jurisdiction named name from js. A trailing ", ST" on
// the name supplies the state when stateCode is empty.
func Resolve(js []types.Jurisdiction, name, stateCode string) (*types.Jurisdiction, error) {
	base, parsedState := match.NormalizeJurisdictionName(name)
	if base == "" {
		return nil, errors.Input("jurisdiction name is required")
	}
	state := strings.ToUpper(strings.TrimSpace(stateCode))
	if state == "" {
		state = parsedState
	}

	for i := range js {
		if !match.Equal(js[i].Name, base) {
			continue
		}
		if state != "" && !strings.EqualFold(js[i].StateCode, state) {
			continue
		}
		j := js[i]
		return &j, nil
	}
	if state != "" {
		return nil, errors.NotFound("jurisdiction", base+", "+state)
	}
	return nil, errors.NotFound("jurisdiction", base)
}
