package determinism

import (
	"testing"

	"permit-fees/core/types"
)

func TestIDGeneratorIsStable(t *testing.T) {
	g := NewIDGenerator("fee")
	a := g.Generate("den", "Building Permit")
	b := g.Generate("den", "Building Permit")
	if a != b {
		t.Errorf("Expected equal IDs, got %s and %s", a, b)
	}
	if a == g.Generate("den", "Building", "Permit") {
		t.Error("Part boundaries must affect the ID")
	}
	if a == NewIDGenerator("area").Generate("den", "Building Permit") {
		t.Error("Namespace must affect the ID")
	}
	if len(a) != 16 {
		t.Errorf("Expected 16 characters, got %d", len(a))
	}
}

func TestHashJSON(t *testing.T) {
	units := 50
	p := types.ProjectInputs{JurisdictionName: "Denver", ProjectType: types.ProjectResidential, NumUnits: &units}

	h1, err := HashJSON(p)
	if err != nil {
		t.Fatal(err)
	}
	h2, _ := HashJSON(p.Clone())
	if h1 != h2 {
		t.Error("Expected equal hashes for equal inputs")
	}

	other := 51
	p.NumUnits = &other
	h3, _ := HashJSON(p)
	if h1 == h3 {
		t.Error("Expected different hashes for different inputs")
	}
	if len(h1.Hex()) != 64 || len(h1.Short()) != 16 {
		t.Errorf("Unexpected hash lengths %d / %d", len(h1.Hex()), len(h1.Short()))
	}
}
