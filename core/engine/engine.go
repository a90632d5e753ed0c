// Package engine computes fee breakdowns.
// The HTTP API and the CLI are thin wrappers around Engine.
//
// A calculation resolves the jurisdiction and service areas, fetches the
// scoped fees through a catalog.Accessor, filters them with the
// applicability matcher, prices each survivor and aggregates the results.
// Only request-shape problems, unresolvable locations and catalog failures
// abort a calculation; every per-fee problem degrades into the fee record.
package engine

import (
	"context"
	stderrors "errors"
	"time"

	"permit-fees/core/catalog"
	"permit-fees/core/cost"
	"permit-fees/core/match"
	"permit-fees/core/pricing"
	"permit-fees/core/types"
	"permit-fees/internal/errors"
)

// DefaultFetchTimeout bounds catalog reads when no timeout is configured
const DefaultFetchTimeout = 10 * time.Second

// DefaultCompareConcurrency bounds parallel calculations in Compare
const DefaultCompareConcurrency = 8

// Engine is the primary API for fee calculation. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	catalog    catalog.Accessor
	matcher    *match.Matcher
	calculator *pricing.Calculator
	observer   Observer

	fetchTimeout       time.Duration
	compareConcurrency int
}

// Option configures an Engine
type Option func(*Engine)

// WithObserver sets the observer notified about skipped and flagged fees
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithFetchTimeout bounds every catalog read. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.fetchTimeout = d
	}
}

// WithMatching sets matcher options
func WithMatching(opts match.Options) Option {
	return func(e *Engine) {
		e.matcher = match.NewMatcher(opts)
	}
}

// WithCompareConcurrency bounds parallel calculations in Compare
func WithCompareConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.compareConcurrency = n
		}
	}
}

// New creates an engine reading from acc
func New(acc catalog.Accessor, opts ...Option) *Engine {
	e := &Engine{
		catalog:            acc,
		matcher:            match.NewMatcher(match.Options{}),
		calculator:         pricing.NewCalculator(),
		observer:           NopObserver{},
		fetchTimeout:       DefaultFetchTimeout,
		compareConcurrency: DefaultCompareConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the accessor the engine reads from
func (e *Engine) Catalog() catalog.Accessor {
	return e.catalog
}

// Calculate produces the fee breakdown for one project in one jurisdiction
func (e *Engine) Calculate(ctx context.Context, inputs types.ProjectInputs) (*types.FeeBreakdown, error) {
	p, j, fees, err := e.scopedFees(ctx, inputs)
	if err != nil {
		return nil, err
	}

	b := cost.NewBreakdown(p)
	for i := range fees {
		fee := &fees[i]
		if fee.Defect != "" {
			e.observer.FeeSkipped(Event{
				FeeID: fee.ID, FeeName: fee.Name, Jurisdiction: j.Name,
				Kind: string(errors.TypeDataIntegrity), Reason: fee.Defect,
			})
			continue
		}
		rule := fee.CurrentRule()
		if rule == nil {
			e.observer.FeeSkipped(Event{
				FeeID: fee.ID, FeeName: fee.Name, Jurisdiction: j.Name,
				Kind: string(errors.TypeDataIntegrity), Reason: "no calculation rule",
			})
			continue
		}

		if d := e.matcher.Evaluate(fee, rule, &p); !d.Applicable {
			e.observer.FeeSkipped(Event{
				FeeID: fee.ID, FeeName: fee.Name, Jurisdiction: j.Name,
				Kind: KindNotApplicable, Reason: d.Reason,
			})
			continue
		}

		calculated := e.calculator.Calculate(fee, rule, &p)
		if calculated.Issue != nil {
			e.observer.FeeFlagged(Event{
				FeeID: fee.ID, FeeName: fee.Name, Jurisdiction: j.Name,
				Kind: calculated.Issue.Kind, Reason: calculated.Issue.Reason,
			})
		}
		b.Add(calculated)
	}

	result := b.Result()
	result.Jurisdiction = j
	return result, nil
}

// scopedFees normalizes inputs, resolves the location and fetches the fees
// in scope for it. The returned inputs carry the resolved state code and
// service-area identifiers.
func (e *Engine) scopedFees(ctx context.Context, inputs types.ProjectInputs) (types.ProjectInputs, *types.Jurisdiction, []types.FeeDefinition, error) {
	p := inputs.Clone()
	if err := NormalizeInputs(&p); err != nil {
		return p, nil, nil, err
	}

	fctx, cancel := e.fetchContext(ctx)
	defer cancel()

	j, err := e.catalog.ResolveJurisdiction(fctx, p.JurisdictionName, p.StateCode)
	if err != nil {
		return p, nil, nil, catalogError(err, "resolve jurisdiction")
	}
	p.StateCode = j.StateCode

	areaIDs, err := e.resolveServiceAreas(fctx, j, &p)
	if err != nil {
		return p, nil, nil, err
	}
	p.ServiceAreaIDs = areaIDs

	fees, err := e.catalog.FetchFees(fctx, j.ID, areaIDs)
	if err != nil {
		return p, nil, nil, catalogError(err, "fetch fees")
	}
	return p, j, fees, nil
}

// resolveServiceAreas combines explicit area identifiers with an area
// selected by name. Unknown identifiers and names are NOT_FOUND.
func (e *Engine) resolveServiceAreas(ctx context.Context, j *types.Jurisdiction, p *types.ProjectInputs) ([]string, error) {
	byName := !match.IsCitywide(p.ServiceArea)
	if len(p.ServiceAreaIDs) == 0 && !byName {
		return []string{}, nil
	}

	areas, err := e.catalog.ListServiceAreas(ctx, j.ID)
	if err != nil {
		return nil, catalogError(err, "list service areas")
	}
	known := make(map[string]bool, len(areas))
	for _, a := range areas {
		known[a.ID] = true
	}

	seen := make(map[string]bool)
	ids := []string{}
	for _, id := range p.ServiceAreaIDs {
		if id == "" || seen[id] {
			continue
		}
		if !known[id] {
			return nil, errors.NotFound("service area", id).WithContext("jurisdiction", j.Name)
		}
		seen[id] = true
		ids = append(ids, id)
	}

	if byName {
		a, ok := match.FindServiceArea(areas, p.ServiceArea)
		if !ok {
			return nil, errors.NotFound("service area", p.ServiceArea).WithContext("jurisdiction", j.Name)
		}
		p.ServiceArea = a.Name
		if !seen[a.ID] {
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

func (e *Engine) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.fetchTimeout > 0 {
		return context.WithTimeout(ctx, e.fetchTimeout)
	}
	return context.WithCancel(ctx)
}

// catalogError keeps domain errors from the accessor and classifies
// anything else as the catalog being unavailable
func catalogError(err error, op string) error {
	var domain *errors.Error
	if stderrors.As(err, &domain) {
		return err
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.DataUnavailable(op+": catalog timed out", err)
	}
	return errors.DataUnavailable(op, err)
}
