package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"permit-fees/core/catalog"
	"permit-fees/core/engine"
	"permit-fees/core/pricing"
	"permit-fees/core/types"
	"permit-fees/internal/errors"
)

const denverCatalog = `
jurisdiction "denver" {
  name       = "Denver"
  state_code = "co"
  state_name = "Colorado"

  service_area "den-in" {
    name = "Inside Denver"
  }

  fee "water-sdc" {
    name         = "Water System Development Charge"
    agency       = "Denver Water"
    category     = "Impact Fee"
    service_area = "den-in"
    applies_to   = ["Residential"]

    rule {
      calc_type  = "per_unit"
      rate       = 10040
      unit_label = "per dwelling unit"
    }
  }

  fee "building-permit" {
    name     = "Building Permit"
    agency   = "Community Planning"
    category = "Permit"

    rule {
      calc_type  = "percentage"
      rate       = "0.008"
      unit_label = "of valuation"
      min_fee    = 250
    }
  }

  fee "parks" {
    name   = "Parks Fee"
    agency = "Parks"

    rule {
      calc_type   = "tiered"
      tier_driver = "units"

      tier {
        min  = 0
        max  = 10
        rate = 500
      }
      tier {
        min   = 10
        rate  = 100
        basis = "per_unit"
      }
    }
  }

  fee "impact" {
    name   = "Transportation Impact"
    agency = "Public Works"

    rule {
      calc_type = "formula"
      rate      = 2

      formula {
        operator = "max"
        term {
          kind = "per_unit"
          rate = 1000
        }
        term {
          kind = "per_sqft"
        }
      }
    }
  }

  fee "retired" {
    name   = "Retired Fee"
    agency = "Old Agency"
    active = false

    rule {
      calc_type = "flat"
      rate      = 99
    }
  }
}
`

func writeCatalog(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("Failed to write catalog: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), "denver.hcl", denverCatalog)

	snapshot, err := NewLoader(nil).Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if len(snapshot.Jurisdictions) != 1 {
		t.Fatalf("Expected 1 jurisdiction, got %d", len(snapshot.Jurisdictions))
	}
	j := snapshot.Jurisdictions[0]
	if j.ID != "denver" || j.StateCode != "CO" || j.StateName != "Colorado" {
		t.Errorf("Unexpected jurisdiction %+v", j)
	}
	if len(snapshot.ServiceAreas) != 1 || snapshot.ServiceAreas[0].JurisdictionID != "denver" {
		t.Errorf("Unexpected service areas %+v", snapshot.ServiceAreas)
	}
	if len(snapshot.Fees) != 5 {
		t.Fatalf("Expected 5 fees, got %d", len(snapshot.Fees))
	}

	byID := make(map[string]types.FeeDefinition)
	for _, f := range snapshot.Fees {
		byID[f.ID] = f
	}

	sdc := byID["water-sdc"]
	if sdc.ServiceAreaName != "Inside Denver" || sdc.JurisdictionID != "denver" {
		t.Errorf("Expected scoped fee to carry its area name, got %+v", sdc)
	}
	if !sdc.Rules[0].Rate.Equal(decimal.NewFromInt(10040)) {
		t.Errorf("Expected rate 10040, got %s", sdc.Rules[0].Rate)
	}
	if sdc.Rules[0].ID == "" {
		t.Error("Expected generated rule ID")
	}

	permit := byID["building-permit"].Rules[0]
	if !permit.Rate.Equal(decimal.RequireFromString("0.008")) {
		t.Errorf("Expected exact rate 0.008, got %s", permit.Rate)
	}
	if !permit.MinFee.Valid || !permit.MinFee.Decimal.Equal(decimal.NewFromInt(250)) || permit.MaxFee.Valid {
		t.Errorf("Unexpected bounds min=%v max=%v", permit.MinFee, permit.MaxFee)
	}

	parks := byID["parks"].Rules[0]
	if len(parks.Tiers) != 2 || parks.Tiers[0].Max.Valid != true || parks.Tiers[1].Max.Valid {
		t.Errorf("Unexpected tiers %+v", parks.Tiers)
	}
	if parks.Tiers[1].Basis != types.TierPerUnit {
		t.Errorf("Expected per_unit basis, got %q", parks.Tiers[1].Basis)
	}

	cfg, err := pricing.ParseFormula(byID["impact"].Rules[0].Formula)
	if err != nil {
		t.Fatalf("Stored formula does not parse: %v", err)
	}
	if cfg.Operator != pricing.OperatorMax || len(cfg.Terms) != 2 || cfg.Terms[1].Rate != nil {
		t.Errorf("Unexpected formula %+v", cfg)
	}

	if byID["retired"].Active {
		t.Error("Expected retired fee to be inactive")
	}
	if !byID["parks"].Active {
		t.Error("Expected fees to default to active")
	}
}

func TestRuleIDsAreStable(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), "denver.hcl", denverCatalog)
	a, _ := NewLoader(nil).Load(path)
	b, _ := NewLoader(nil).Load(path)
	if a.Fees[0].Rules[0].ID != b.Fees[0].Rules[0].ID {
		t.Errorf("Expected stable rule IDs, got %q and %q", a.Fees[0].Rules[0].ID, b.Fees[0].Rules[0].ID)
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "a-denver.hcl", denverCatalog)
	writeCatalog(t, dir, "b-austin.hcl", `
jurisdiction "austin" {
  name       = "Austin"
  state_code = "TX"
}
`)
	writeCatalog(t, dir, "notes.txt", "not a catalog")

	snapshot, err := NewLoader(nil).Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(snapshot.Jurisdictions) != 2 || snapshot.Jurisdictions[1].ID != "austin" {
		t.Errorf("Expected files merged in name order, got %+v", snapshot.Jurisdictions)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `jurisdiction "x" {`},
		{"missing name", `jurisdiction "x" { state_code = "CO" }`},
		{"bad rate", `
jurisdiction "x" {
  name = "X"
  state_code = "CO"
  fee "f" {
    name = "F"
    agency = "A"
    rule {
      calc_type = "flat"
      rate = "twelve"
    }
  }
}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCatalog(t, t.TempDir(), "bad.hcl", tt.src)
			_, err := NewLoader(nil).Load(path)
			if !errors.IsType(err, errors.TypeConfig) {
				t.Errorf("Expected CONFIG_ERROR, got %v", err)
			}
		})
	}

	if _, err := NewLoader(nil).Load(filepath.Join(t.TempDir(), "missing.hcl")); !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("Expected CONFIG_ERROR for missing file, got %v", err)
	}
}

func TestLoadLogsProblems(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), "bad-area.hcl", `
jurisdiction "x" {
  name = "X"
  state_code = "CO"
  fee "f" {
    name = "F"
    agency = "A"
    service_area = "nowhere"
    rule {
      calc_type = "flat"
      rate = 10
    }
  }
}`)
	core, logs := observer.New(zapcore.WarnLevel)
	if _, err := NewLoader(zap.New(core)).Load(path); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if logs.FilterMessage("catalog problem").Len() != 1 {
		t.Errorf("Expected one logged problem, got %d", logs.FilterMessage("catalog problem").Len())
	}
}

func TestLoadedCatalogPrices(t *testing.T) {
	path := writeCatalog(t, t.TempDir(), "denver.hcl", denverCatalog)
	snapshot, err := NewLoader(nil).Load(path)
	if err != nil {
		t.Fatal(err)
	}

	units := 12
	value := 1000000.0
	sqft := 9000.0
	e := engine.New(catalog.NewMemory(snapshot))
	b, err := e.Calculate(context.Background(), types.ProjectInputs{
		JurisdictionName: "Denver, CO",
		ServiceArea:      "Inside Denver",
		ProjectType:      types.ProjectResidential,
		NumUnits:         &units,
		SquareFeet:       &sqft,
		ProjectValue:     &value,
	})
	if err != nil {
		t.Fatalf("Calculate returned error: %v", err)
	}

	// sdc 120480 + permit 8000 + parks tier 10+ 1200 + impact max(12000, 18000)
	want := decimal.NewFromInt(120480 + 8000 + 1200 + 18000)
	if !b.TotalFees.Equal(want) {
		t.Errorf("Expected total %s, got %s", want, b.TotalFees)
	}
}
