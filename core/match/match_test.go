package match

import (
	"testing"

	"github.com/shopspring/decimal"

	"permit-fees/core/types"
)

func TestCanonical(t *testing.T) {
	tests := map[string]string{
		"Single Family":     "singlefamily",
		"single-family":     "singlefamily",
		"SINGLE_FAMILY (1)": "singlefamily",
		"Mixed-use":         "mixeduse",
		"":                  "",
		"  -- ":             "",
	}
	for in, want := range tests {
		if got := Canonical(in); got != want {
			t.Errorf("Canonical(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestContains(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Residential", "residential-single-family", true},
		{"residential-single-family", "Residential", true},
		{"Commercial", "Residential", false},
		{"", "Residential", false},
		{"Residential", "", false},
	}
	for _, tt := range tests {
		if got := Contains(tt.a, tt.b); got != tt.want {
			t.Errorf("Contains(%q, %q): expected %v, got %v", tt.a, tt.b, tt.want, got)
		}
	}
}

func TestParseProjectType(t *testing.T) {
	for in, want := range map[string]types.ProjectType{
		"residential": types.ProjectResidential,
		"Mixed Use":   types.ProjectMixedUse,
		"PUBLIC":      types.ProjectPublic,
	} {
		got, ok := ParseProjectType(in)
		if !ok || got != want {
			t.Errorf("ParseProjectType(%q): expected %s, got %s (ok=%v)", in, want, got, ok)
		}
	}
	if _, ok := ParseProjectType("Agricultural"); ok {
		t.Error("expected Agricultural to be rejected")
	}
}

func TestNormalizeJurisdictionName(t *testing.T) {
	tests := []struct {
		in, name, state string
	}{
		{"Austin, TX", "Austin", "TX"},
		{"Seattle,WA", "Seattle", "WA"},
		{"Las Vegas,  NV", "Las Vegas", "NV"},
		{"Denver,co", "Denver", "CO"},
		{"  Portland  ", "Portland", ""},
		{"Salt Lake  City", "Salt Lake City", ""},
	}
	for _, tt := range tests {
		name, state := NormalizeJurisdictionName(tt.in)
		if name != tt.name || state != tt.state {
			t.Errorf("NormalizeJurisdictionName(%q): expected (%q, %q), got (%q, %q)", tt.in, tt.name, tt.state, name, state)
		}
	}
}

func TestFindServiceArea(t *testing.T) {
	areas := []types.ServiceArea{
		{ID: "a1", Name: "Outside Denver"},
		{ID: "a2", Name: "Inside Denver"},
	}
	if a, ok := FindServiceArea(areas, "inside denver"); !ok || a.ID != "a2" {
		t.Errorf("expected exact match a2, got %+v (ok=%v)", a, ok)
	}
	if a, ok := FindServiceArea(areas, "Inside"); !ok || a.ID != "a2" {
		t.Errorf("expected containment match a2, got %+v (ok=%v)", a, ok)
	}
	if _, ok := FindServiceArea(areas, "Aurora"); ok {
		t.Error("expected no match for Aurora")
	}
}

func TestParseMeterSize(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{`1-1/2"`, 1.5, true},
		{`1 1/2"`, 1.5, true},
		{`1.5"`, 1.5, true},
		{`3/4"`, 0.75, true},
		{`2 inch`, 2, true},
		{`5/8" x 3/4"`, 0.625, true},
		{`1”`, 1, true},
		{``, 0, false},
		{`large`, 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseMeterSize(tt.in)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("ParseMeterSize(%q): expected (%v, %v), got (%v, %v)", tt.in, tt.want, tt.ok, got, ok)
		}
	}
}

func TestMeterSizesMatchEquivalentForms(t *testing.T) {
	forms := []string{`1-1/2"`, `1 1/2"`, `1.5"`, `1.5 inch`}
	for _, a := range forms {
		for _, b := range forms {
			if !MeterSizesMatch(a, b) {
				t.Errorf("expected %q and %q to match", a, b)
			}
		}
	}
	if MeterSizesMatch(`1"`, `2"`) {
		t.Error(`1" and 2" must not match`)
	}
}

func TestMatchMeter(t *testing.T) {
	table := &types.FeeCalculationRule{
		CalcType: types.CalcPerMeterSize,
		MeterRates: []types.MeterRate{
			{Size: `3/4"`, Rate: decimal.NewFromInt(4000)},
			{Size: `1-1/2"`, Rate: decimal.NewFromInt(12000)},
		},
	}
	mr, ok := MatchMeter(table, `1.5"`)
	if !ok || !mr.Rate.Equal(decimal.NewFromInt(12000)) {
		t.Errorf("expected 12000 rate for 1.5 inch meter, got %+v (ok=%v)", mr, ok)
	}
	if _, ok := MatchMeter(table, `2"`); ok {
		t.Error("expected no rate for 2 inch meter")
	}

	fromLabel := &types.FeeCalculationRule{
		CalcType:  types.CalcPerMeterSize,
		Rate:      decimal.NewFromInt(900),
		UnitLabel: `per 1" meter`,
	}
	if _, ok := MatchMeter(fromLabel, `1"`); !ok {
		t.Error("expected label-derived 1 inch eligibility")
	}
	if _, ok := MatchMeter(fromLabel, `3/4"`); ok {
		t.Error("expected 3/4 inch to be ineligible")
	}

	upTo := &types.FeeCalculationRule{
		CalcType:  types.CalcPerMeterSize,
		Rate:      decimal.NewFromInt(50),
		UnitLabel: `meters up to 2"`,
	}
	if _, ok := MatchMeter(upTo, `1-1/2"`); !ok {
		t.Error("expected 1-1/2 inch to be within up to 2 inch")
	}
	if _, ok := MatchMeter(upTo, `3"`); ok {
		t.Error("expected 3 inch to exceed up to 2 inch")
	}
}

func baseFee() *types.FeeDefinition {
	return &types.FeeDefinition{
		ID:     "fee-1",
		Name:   "Water Connection",
		Active: true,
	}
}

func TestMatcherProjectType(t *testing.T) {
	m := NewMatcher(Options{})
	p := &types.ProjectInputs{ProjectType: types.ProjectResidential}
	rule := &types.FeeCalculationRule{CalcType: types.CalcFlat}

	tests := []struct {
		name      string
		appliesTo []string
		want      bool
	}{
		{"empty is wildcard", nil, true},
		{"exact", []string{"Residential"}, true},
		{"containment", []string{"residential-single-family"}, true},
		{"all users", []string{"All Users"}, true},
		{"commercial only", []string{"Commercial"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee := baseFee()
			fee.AppliesTo = tt.appliesTo
			if got := m.Applies(fee, rule, p); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMatcherSubtype(t *testing.T) {
	exact := NewMatcher(Options{})
	loose := NewMatcher(Options{SubtypeContainment: true})

	tests := []struct {
		name      string
		subtypes  []string
		subtype   string
		wantExact bool
		wantLoose bool
	}{
		{"empty list", nil, "Office", true, true},
		{"absent project subtype", []string{"Office"}, "", true, true},
		{"normalized equality", []string{"single-family"}, "Single Family", true, true},
		{"multifamily spelling", []string{"Multi-Family"}, "Multifamily", true, true},
		{"containment only", []string{"Multifamily 5+ units"}, "Multifamily", false, true},
		{"no overlap", []string{"Retail"}, "Office", false, false},
		{"all users", []string{"All Users"}, "Office", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exact.MatchesSubtype(tt.subtypes, tt.subtype); got != tt.wantExact {
				t.Errorf("exact: expected %v, got %v", tt.wantExact, got)
			}
			if got := loose.MatchesSubtype(tt.subtypes, tt.subtype); got != tt.wantLoose {
				t.Errorf("containment: expected %v, got %v", tt.wantLoose, got)
			}
		})
	}
}

func TestMatcherInactiveAndMeter(t *testing.T) {
	m := NewMatcher(Options{})
	p := &types.ProjectInputs{ProjectType: types.ProjectCommercial, MeterSize: `2"`}

	inactive := baseFee()
	inactive.Active = false
	if d := m.Evaluate(inactive, &types.FeeCalculationRule{CalcType: types.CalcFlat}, p); d.Applicable {
		t.Error("inactive fee must not apply")
	}

	meterRule := &types.FeeCalculationRule{
		CalcType:   types.CalcPerMeterSize,
		MeterRates: []types.MeterRate{{Size: `1"`, Rate: decimal.NewFromInt(10)}},
	}
	d := m.Evaluate(baseFee(), meterRule, p)
	if d.Applicable {
		t.Error("meter fee without the project's size must not apply")
	}
	if d.Reason == "" {
		t.Error("expected a reason for the meter mismatch")
	}

	p.MeterSize = `1.0"`
	if !m.Applies(baseFee(), meterRule, p) {
		t.Error(`expected 1.0" to match 1"`)
	}
}

func TestApplyPreset(t *testing.T) {
	p := &types.ProjectInputs{Preset: "multi-family residential"}
	if !ApplyPreset(p) {
		t.Fatal("expected preset to resolve")
	}
	if p.ProjectType != types.ProjectResidential || p.UseSubtype != "Multifamily" {
		t.Errorf("unexpected preset result: %s / %s", p.ProjectType, p.UseSubtype)
	}

	explicit := &types.ProjectInputs{Preset: "Office", UseSubtype: "Medical Office"}
	ApplyPreset(explicit)
	if explicit.UseSubtype != "Medical Office" {
		t.Errorf("explicit subtype must win, got %q", explicit.UseSubtype)
	}

	if ApplyPreset(&types.ProjectInputs{Preset: "Spaceport"}) {
		t.Error("expected unknown preset to be rejected")
	}
}
