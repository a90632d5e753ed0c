package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"permit-fees/core/cost"
	"permit-fees/core/engine"
	"permit-fees/core/types"
	"permit-fees/internal/errors"
)

func sampleBreakdown() *types.FeeBreakdown {
	units := 50
	project := types.ProjectInputs{
		JurisdictionName: "Denver", StateCode: "CO",
		ProjectType: types.ProjectResidential, UseSubtype: "Multifamily", NumUnits: &units,
	}
	return cost.Aggregate(project, []types.CalculatedFee{
		{FeeID: "sdc", FeeName: "System Development Charge", AgencyName: "Denver Water", ServiceArea: "Citywide",
			Category: "Impact Fee", Amount: decimal.NewFromInt(502000), Calculation: "$10,040.00 × 50 units = $502,000.00"},
		{FeeID: "sewer", FeeName: "Sewer Service", AgencyName: "Metro Wastewater", ServiceArea: "Citywide",
			Category: "Utility", Amount: decimal.NewFromInt(1500), Recurring: true, RecurringPeriod: "month"},
		{FeeID: "parks", FeeName: "Parks Fee", AgencyName: "Parks", Category: "Impact Fee", NeedsRules: true,
			Issue: &types.FeeIssue{Kind: "DATA_INTEGRITY", Reason: "no tier covers 50 units"}},
	})
}

func TestTextReport(t *testing.T) {
	f, err := NewRegistry().Get(FormatText)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := f.Render(&buf, &Report{Breakdown: sampleBreakdown()}); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"CONSTRUCTION FEASIBILITY REPORT",
		"Project: Residential - Multifamily",
		"Location: Denver, CO",
		"Service Area: Citywide",
		"Units: 50",
		"$502,000.00",
		"Monthly: $1,500.00",
		"Annual: $18,000.00",
		"$520,000.00",
		"Parks Fee: no tier covers 50 units",
		"END OF REPORT",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected report to contain %q", want)
		}
	}
	if strings.Index(out, "ONE-TIME DEVELOPMENT FEES") > strings.Index(out, "MONTHLY OPERATING COSTS") {
		t.Error("One-time fees must precede monthly fees")
	}
}

func TestJSONReport(t *testing.T) {
	f, _ := NewRegistry().Get(FormatJSON)
	var buf bytes.Buffer
	report := &Report{Breakdown: sampleBreakdown(), Metadata: Metadata{InputHash: "abc123"}}
	if err := f.Render(&buf, report); err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Breakdown struct {
			FirstYearTotal string `json:"firstYearTotal"`
			Fees           []any  `json:"fees"`
		} `json:"breakdown"`
		Metadata struct {
			InputHash string `json:"inputHash"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if decoded.Breakdown.FirstYearTotal != "520000" {
		t.Errorf("Expected firstYearTotal 520000, got %q", decoded.Breakdown.FirstYearTotal)
	}
	if len(decoded.Breakdown.Fees) != 3 || decoded.Metadata.InputHash != "abc123" {
		t.Errorf("Unexpected decoded report %+v", decoded)
	}
}

func TestTextComparison(t *testing.T) {
	cmp := &engine.Comparison{
		Results: []engine.LocationResult{
			{Index: 0, Location: engine.Location{JurisdictionName: "Denver", StateCode: "CO"}, Rank: 1, Breakdown: sampleBreakdown()},
			{Index: 1, Location: engine.Location{JurisdictionName: "Gotham"}, Error: "jurisdiction not found: Gotham", ErrorType: errors.TypeNotFound},
		},
		Ranking: []int{0},
	}
	var buf bytes.Buffer
	f, _ := NewRegistry().Get(FormatText)
	if err := f.RenderComparison(&buf, cmp); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, " 1. Denver, CO") || !strings.Contains(out, "NOT_FOUND") {
		t.Errorf("Unexpected comparison output:\n%s", out)
	}
}

func TestRegistryUnknownFormat(t *testing.T) {
	if _, err := NewRegistry().Get("html"); err == nil {
		t.Error("Expected error for unknown format")
	}
}
