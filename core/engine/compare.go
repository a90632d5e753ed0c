package engine

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"permit-fees/core/types"
	"permit-fees/internal/errors"
)

// Location is one candidate site in a comparison
type Location struct {
	JurisdictionName string   `json:"jurisdictionName" yaml:"jurisdictionName"`
	StateCode        string   `json:"stateCode,omitempty" yaml:"stateCode,omitempty"`
	ServiceArea      string   `json:"serviceArea,omitempty" yaml:"serviceArea,omitempty"`
	ServiceAreaIDs   []string `json:"selectedServiceAreaIds,omitempty" yaml:"selectedServiceAreaIds,omitempty"`
}

// LocationResult is the outcome for one requested location. Exactly one
// of Breakdown and Error is set.
type LocationResult struct {
	// Index is the position of the location in the request
	Index    int      `json:"index"`
	Location Location `json:"location"`

	// Rank is 1 for the cheapest first-year total, 0 on failure
	Rank int `json:"rank,omitempty"`

	Breakdown *types.FeeBreakdown `json:"breakdown,omitempty"`
	Error     string              `json:"error,omitempty"`
	ErrorType errors.Type         `json:"errorType,omitempty"`
}

// Comparison holds per-location results in request order
type Comparison struct {
	Results []LocationResult `json:"results"`

	// Ranking lists result indices from cheapest to most expensive
	Ranking []int `json:"ranking"`
}

// Compare calculates the same project at several locations concurrently.
// A failure at one location is recorded in its slot and does not affect
// the others. Successful results are ranked by first-year total, with
// ties kept in request order.
func (e *Engine) Compare(ctx context.Context, base types.ProjectInputs, locations []Location) (*Comparison, error) {
	if len(locations) == 0 {
		return nil, errors.Input("at least one location is required")
	}

	results := make([]LocationResult, len(locations))
	var g errgroup.Group
	g.SetLimit(e.compareConcurrency)

	for i, loc := range locations {
		g.Go(func() error {
			p := base.Clone()
			p.JurisdictionName = loc.JurisdictionName
			p.StateCode = loc.StateCode
			p.ServiceArea = loc.ServiceArea
			p.ServiceAreaIDs = append([]string(nil), loc.ServiceAreaIDs...)

			r := LocationResult{Index: i, Location: loc}
			b, err := e.Calculate(ctx, p)
			if err != nil {
				r.Error = errors.Message(err)
				r.ErrorType = errors.TypeOf(err)
			} else {
				r.Breakdown = b
			}
			results[i] = r
			return nil
		})
	}
	// Goroutines report failures in their slot and never return an error.
	_ = g.Wait()

	return &Comparison{Results: results, Ranking: rank(results)}, nil
}

func rank(results []LocationResult) []int {
	ranking := []int{}
	for i := range results {
		if results[i].Breakdown != nil {
			ranking = append(ranking, i)
		}
	}
	sort.SliceStable(ranking, func(a, b int) bool {
		return results[ranking[a]].Breakdown.FirstYearTotal.LessThan(results[ranking[b]].Breakdown.FirstYearTotal)
	})
	for pos, idx := range ranking {
		results[idx].Rank = pos + 1
	}
	return ranking
}
