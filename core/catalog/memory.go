package catalog

import (
	"context"
	"strings"

	"permit-fees/core/types"
	"permit-fees/internal/errors"
)

// Memory serves a snapshot held in memory. It is immutable after
// construction and safe for concurrent use.
type Memory struct {
	jurisdictions []types.Jurisdiction
	byID          map[string]types.Jurisdiction
	areas         map[string][]types.ServiceArea
	fees          map[string][]types.FeeDefinition
}

// NewMemory indexes a snapshot. Inactive fees are dropped here so every
// read sees active fees only.
func NewMemory(s *Snapshot) *Memory {
	m := &Memory{
		byID:  make(map[string]types.Jurisdiction),
		areas: make(map[string][]types.ServiceArea),
		fees:  make(map[string][]types.FeeDefinition),
	}
	if s == nil {
		return m
	}

	m.jurisdictions = append([]types.Jurisdiction(nil), s.Jurisdictions...)
	SortJurisdictions(m.jurisdictions)
	for _, j := range m.jurisdictions {
		m.byID[j.ID] = j
	}

	for _, a := range s.ServiceAreas {
		m.areas[a.JurisdictionID] = append(m.areas[a.JurisdictionID], a)
	}

	for _, f := range s.Fees {
		if !f.Active {
			continue
		}
		m.fees[f.JurisdictionID] = append(m.fees[f.JurisdictionID], f)
	}
	for id := range m.fees {
		SortFees(m.fees[id])
	}
	return m
}

func (m *Memory) ResolveJurisdiction(ctx context.Context, name, stateCode string) (*types.Jurisdiction, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.DataUnavailable("catalog lookup cancelled", err)
	}
	return Resolve(m.jurisdictions, name, stateCode)
}

func (m *Memory) GetJurisdiction(ctx context.Context, id string) (*types.Jurisdiction, error) {
	j, ok := m.byID[id]
	if !ok {
		return nil, errors.NotFound("jurisdiction", id)
	}
	return &j, nil
}

func (m *Memory) ListJurisdictions(ctx context.Context, stateCode string) ([]types.Jurisdiction, error) {
	out := []types.Jurisdiction{}
	for _, j := range m.jurisdictions {
		if stateCode == "" || strings.EqualFold(j.StateCode, stateCode) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *Memory) ListServiceAreas(ctx context.Context, jurisdictionID string) ([]types.ServiceArea, error) {
	if _, ok := m.byID[jurisdictionID]; !ok {
		return nil, errors.NotFound("jurisdiction", jurisdictionID)
	}
	return append([]types.ServiceArea{}, m.areas[jurisdictionID]...), nil
}

func (m *Memory) FetchFees(ctx context.Context, jurisdictionID string, serviceAreaIDs []string) ([]types.FeeDefinition, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.DataUnavailable("catalog fetch cancelled", err)
	}
	if _, ok := m.byID[jurisdictionID]; !ok {
		return nil, errors.NotFound("jurisdiction", jurisdictionID)
	}

	selected := SelectionSet(serviceAreaIDs)
	out := []types.FeeDefinition{}
	for i := range m.fees[jurisdictionID] {
		if InScope(&m.fees[jurisdictionID][i], selected) {
			out = append(out, m.fees[jurisdictionID][i])
		}
	}
	return out, nil
}

func (m *Memory) ListUnitLabels(ctx context.Context) ([]string, error) {
	var labels []string
	for _, fees := range m.fees {
		for _, f := range fees {
			for _, r := range f.Rules {
				labels = append(labels, r.UnitLabel)
			}
		}
	}
	return Distinct(labels), nil
}

func (m *Memory) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	for _, fees := range m.fees {
		for _, f := range fees {
			categories = append(categories, f.Category)
		}
	}
	return Distinct(categories), nil
}

func (m *Memory) ListStates(ctx context.Context) ([]types.State, error) {
	seen := make(map[string]bool)
	out := []types.State{}
	// jurisdictions are sorted by state already
	for _, j := range m.jurisdictions {
		if j.StateCode == "" || seen[j.StateCode] {
			continue
		}
		seen[j.StateCode] = true
		out = append(out, types.State{Code: j.StateCode, Name: j.StateName})
	}
	return out, nil
}

func (m *Memory) Stats(ctx context.Context, jurisdictionID string) (*types.JurisdictionStats, error) {
	if _, ok := m.byID[jurisdictionID]; !ok {
		return nil, errors.NotFound("jurisdiction", jurisdictionID)
	}
	agencies := make(map[string]bool)
	for _, f := range m.fees[jurisdictionID] {
		agencies[agencyKey(&f)] = true
	}
	return &types.JurisdictionStats{
		TotalFees:     len(m.fees[jurisdictionID]),
		TotalAgencies: len(agencies),
	}, nil
}

func agencyKey(f *types.FeeDefinition) string {
	if f.AgencyID != "" {
		return f.AgencyID
	}
	return f.AgencyName
}

var _ Accessor = (*Memory)(nil)
