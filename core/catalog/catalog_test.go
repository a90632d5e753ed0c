package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"permit-fees/core/types"
	"permit-fees/internal/errors"
)

func snapshot() *Snapshot {
	rule := func(rate int64) []types.FeeCalculationRule {
		return []types.FeeCalculationRule{{CalcType: types.CalcFlat, Rate: decimal.NewFromInt(rate), UnitLabel: "per permit"}}
	}
	return &Snapshot{
		Jurisdictions: []types.Jurisdiction{
			{ID: "den", Name: "Denver", StateCode: "CO", StateName: "Colorado"},
			{ID: "aus", Name: "Austin", StateCode: "TX", StateName: "Texas"},
			{ID: "por", Name: "Portland", StateCode: "OR", StateName: "Oregon"},
			{ID: "por-me", Name: "Portland", StateCode: "ME", StateName: "Maine"},
		},
		ServiceAreas: []types.ServiceArea{
			{ID: "den-in", JurisdictionID: "den", Name: "Inside Denver"},
			{ID: "den-out", JurisdictionID: "den", Name: "Outside Denver"},
		},
		Fees: []types.FeeDefinition{
			{ID: "f-city", Name: "Building Permit", AgencyName: "Development Services", JurisdictionID: "den",
				Category: "Permit", Active: true, Rules: rule(100)},
			{ID: "f-in", Name: "Water Tap", AgencyName: "Denver Water", JurisdictionID: "den", ServiceAreaID: "den-in",
				Category: "Utility", Active: true, Rules: rule(200)},
			{ID: "f-out", Name: "Water Tap", AgencyName: "Denver Water", JurisdictionID: "den", ServiceAreaID: "den-out",
				Category: "Utility", Active: true, Rules: []types.FeeCalculationRule{{CalcType: types.CalcFlat, UnitLabel: "per month"}}},
			{ID: "f-old", Name: "Retired Fee", AgencyName: "Development Services", JurisdictionID: "den",
				Category: "Permit", Active: false, Rules: rule(1)},
		},
	}
}

func feeIDs(fees []types.FeeDefinition) []string {
	ids := make([]string, len(fees))
	for i, f := range fees {
		ids[i] = f.ID
	}
	return ids
}

func TestFetchFeesScoping(t *testing.T) {
	m := NewMemory(snapshot())
	ctx := context.Background()

	tests := []struct {
		name     string
		selected []string
		want     []string
	}{
		{"no selection is citywide only", nil, []string{"f-city"}},
		{"inside", []string{"den-in"}, []string{"f-city", "f-in"}},
		{"outside", []string{"den-out"}, []string{"f-city", "f-out"}},
		{"both", []string{"den-out", "den-in"}, []string{"f-city", "f-in", "f-out"}},
		{"unrelated id", []string{"elsewhere"}, []string{"f-city"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fees, err := m.FetchFees(ctx, "den", tt.selected)
			if err != nil {
				t.Fatalf("FetchFees returned error: %v", err)
			}
			got := feeIDs(fees)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Expected %v, got %v", tt.want, got)
					break
				}
			}
		})
	}
}

func TestFetchFeesEmptyJurisdiction(t *testing.T) {
	fees, err := NewMemory(snapshot()).FetchFees(context.Background(), "aus", nil)
	if err != nil {
		t.Fatalf("Expected no error for a jurisdiction without fees, got %v", err)
	}
	if fees == nil || len(fees) != 0 {
		t.Errorf("Expected empty list, got %v", fees)
	}
}

func TestFetchFeesUnknownJurisdiction(t *testing.T) {
	_, err := NewMemory(snapshot()).FetchFees(context.Background(), "nowhere", nil)
	if !errors.IsType(err, errors.TypeNotFound) {
		t.Errorf("Expected NOT_FOUND, got %v", err)
	}
}

func TestFetchFeesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemory(snapshot()).FetchFees(ctx, "den", nil)
	if !errors.IsType(err, errors.TypeDataUnavailable) {
		t.Errorf("Expected DATA_UNAVAILABLE, got %v", err)
	}
}

func TestResolveJurisdiction(t *testing.T) {
	m := NewMemory(snapshot())
	ctx := context.Background()

	tests := []struct {
		name, state string
		wantID      string
		wantErr     errors.Type
	}{
		{"Denver", "", "den", ""},
		{"  denver ", "co", "den", ""},
		{"Austin, TX", "", "aus", ""},
		{"Portland", "ME", "por-me", ""},
		{"Portland, OR", "", "por", ""},
		{"Austin", "CO", "", errors.TypeNotFound},
		{"Springfield", "", "", errors.TypeNotFound},
		{"   ", "", "", errors.TypeInput},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.state, func(t *testing.T) {
			j, err := m.ResolveJurisdiction(ctx, tt.name, tt.state)
			if tt.wantErr != "" {
				if !errors.IsType(err, tt.wantErr) {
					t.Errorf("Expected %s, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveJurisdiction returned error: %v", err)
			}
			if j.ID != tt.wantID {
				t.Errorf("Expected %s, got %s", tt.wantID, j.ID)
			}
		})
	}
}

func TestReadOnlyQueries(t *testing.T) {
	m := NewMemory(snapshot())
	ctx := context.Background()

	labels, _ := m.ListUnitLabels(ctx)
	if len(labels) != 2 || labels[0] != "per month" || labels[1] != "per permit" {
		t.Errorf("Unexpected unit labels %v", labels)
	}

	categories, _ := m.ListCategories(ctx)
	if len(categories) != 2 || categories[0] != "Permit" || categories[1] != "Utility" {
		t.Errorf("Unexpected categories %v", categories)
	}

	states, _ := m.ListStates(ctx)
	if len(states) != 4 || states[0].Code != "CO" {
		t.Errorf("Unexpected states %v", states)
	}

	texas, _ := m.ListJurisdictions(ctx, "tx")
	if len(texas) != 1 || texas[0].ID != "aus" {
		t.Errorf("Unexpected Texas jurisdictions %v", texas)
	}

	stats, err := m.Stats(ctx, "den")
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats.TotalFees != 3 || stats.TotalAgencies != 2 {
		t.Errorf("Expected 3 fees and 2 agencies, got %+v", stats)
	}

	if _, err := m.ListServiceAreas(ctx, "nowhere"); !errors.IsType(err, errors.TypeNotFound) {
		t.Errorf("Expected NOT_FOUND for unknown jurisdiction, got %v", err)
	}
}

type countingAccessor struct {
	Accessor
	fetches int
	fail    bool
}

func (c *countingAccessor) FetchFees(ctx context.Context, jurisdictionID string, ids []string) ([]types.FeeDefinition, error) {
	c.fetches++
	if c.fail {
		return nil, errors.DataUnavailable("database down", nil)
	}
	return c.Accessor.FetchFees(ctx, jurisdictionID, ids)
}

func TestCachedFetchFees(t *testing.T) {
	inner := &countingAccessor{Accessor: NewMemory(snapshot())}
	c := NewCached(inner, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.FetchFees(ctx, "den", []string{"den-out", "den-in"}); err != nil {
			t.Fatalf("FetchFees returned error: %v", err)
		}
	}
	// Same selection in a different order hits the same entry.
	if _, err := c.FetchFees(ctx, "den", []string{"den-in", "den-out"}); err != nil {
		t.Fatal(err)
	}
	if inner.fetches != 1 {
		t.Errorf("Expected 1 fetch, got %d", inner.fetches)
	}

	c.Flush()
	if _, err := c.FetchFees(ctx, "den", nil); err != nil {
		t.Fatal(err)
	}
	if inner.fetches != 2 {
		t.Errorf("Expected 2 fetches after flush, got %d", inner.fetches)
	}
}

func TestCachedDoesNotCacheErrors(t *testing.T) {
	inner := &countingAccessor{Accessor: NewMemory(snapshot()), fail: true}
	c := NewCached(inner, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := c.FetchFees(context.Background(), "den", nil); err == nil {
			t.Fatal("Expected error")
		}
	}
	if inner.fetches != 2 {
		t.Errorf("Expected every failing call to reach the accessor, got %d", inner.fetches)
	}
	if c.ItemCount() != 0 {
		t.Errorf("Expected empty cache, got %d items", c.ItemCount())
	}
}

func TestSnapshotValidate(t *testing.T) {
	s := snapshot()
	s.ServiceAreas = append(s.ServiceAreas, types.ServiceArea{ID: "den-in-2", JurisdictionID: "den", Name: "inside-denver"})
	s.Fees = append(s.Fees,
		types.FeeDefinition{ID: "f-norule", JurisdictionID: "den", Active: true},
		types.FeeDefinition{ID: "f-acre", JurisdictionID: "den", Active: true,
			Rules: []types.FeeCalculationRule{{CalcType: "per_acre"}}},
		types.FeeDefinition{ID: "f-orphan", JurisdictionID: "den", ServiceAreaID: "ghost", Active: true,
			Rules: []types.FeeCalculationRule{{CalcType: types.CalcFlat}}},
	)

	problems := s.Validate(DefaultValidationRules())
	if len(problems) != 4 {
		t.Fatalf("Expected 4 problems, got %d: %v", len(problems), problems)
	}

	if got := snapshot().Validate(DefaultValidationRules()); len(got) != 0 {
		t.Errorf("Expected clean snapshot, got %v", got)
	}
}
