package api

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"permit-fees/core/determinism"
	"permit-fees/core/engine"
	"permit-fees/core/match"
	"permit-fees/core/output"
	"permit-fees/core/types"
	"permit-fees/internal/errors"
)

// CitywideDescription describes the synthetic citywide service area
const CitywideDescription = "Default - applies citywide"

type actionFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Handler executes actions against the engine
type Handler struct {
	engine  *engine.Engine
	report  output.Formatter
	version string

	actions  map[string]actionFunc
	readOnly map[string]bool
}

// NewHandler creates a handler
func NewHandler(e *engine.Engine, version string) *Handler {
	h := &Handler{
		engine:  e,
		report:  &output.TextFormatter{Width: output.DefaultWidth},
		version: version,
	}
	h.actions = map[string]actionFunc{
		"calculateFees":             h.calculateFees,
		"calculateProjectFees":      h.calculateFees,
		"getApplicableFees":         h.getApplicableFees,
		"compareJurisdictions":      h.compareJurisdictions,
		"generateFeasibilityReport": h.generateReport,
		"getJurisdictions":          h.getJurisdictions,
		"getStates":                 h.getStates,
		"getUniqueStates":           h.getStates,
		"getStatesCount":            h.getStatesCount,
		"getServiceAreas":           h.getServiceAreas,
		"getUnitLabels":             h.getUnitLabels,
		"getCategories":             h.getCategories,
		"getJurisdictionStats":      h.getJurisdictionStats,
		"getProjectPresets":         h.getProjectPresets,
	}
	h.readOnly = map[string]bool{
		"getJurisdictions":     true,
		"getStates":            true,
		"getUniqueStates":      true,
		"getStatesCount":       true,
		"getServiceAreas":      true,
		"getUnitLabels":        true,
		"getCategories":        true,
		"getJurisdictionStats": true,
		"getProjectPresets":    true,
	}
	return h
}

// Execute runs one action
func (h *Handler) Execute(ctx context.Context, action string, params json.RawMessage) (any, error) {
	fn, ok := h.actions[action]
	if !ok {
		return nil, errors.Newf(errors.TypeInput, "Unknown action: %s", action)
	}
	return fn(ctx, params)
}

// ReadOnly reports whether action may be served over GET
func (h *Handler) ReadOnly(action string) bool {
	return h.readOnly[action]
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrap(errors.TypeInput, "invalid params", err)
	}
	return nil
}

// inputHash fingerprints the inputs as the engine sees them
func inputHash(p types.ProjectInputs) string {
	normalized := p.Clone()
	if err := engine.NormalizeInputs(&normalized); err != nil {
		normalized = p
	}
	hash, err := determinism.HashJSON(normalized)
	if err != nil {
		return ""
	}
	return hash.Hex()
}

func (h *Handler) calculateFees(ctx context.Context, raw json.RawMessage) (any, error) {
	var p types.ProjectInputs
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	b, err := h.engine.Calculate(ctx, p)
	if err != nil {
		return nil, err
	}
	return &CalculateResult{FeeBreakdown: b, InputHash: inputHash(p)}, nil
}

func (h *Handler) getApplicableFees(ctx context.Context, raw json.RawMessage) (any, error) {
	var p types.ProjectInputs
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	return h.engine.ApplicableFees(ctx, p)
}

func (h *Handler) compareJurisdictions(ctx context.Context, raw json.RawMessage) (any, error) {
	var params CompareParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	return h.engine.Compare(ctx, params.Project, params.Locations)
}

func (h *Handler) generateReport(ctx context.Context, raw json.RawMessage) (any, error) {
	var p types.ProjectInputs
	if err := decodeParams(raw, &p); err != nil {
		return nil, err
	}
	b, err := h.engine.Calculate(ctx, p)
	if err != nil {
		return nil, err
	}

	hash := inputHash(p)
	var buf bytes.Buffer
	report := &output.Report{
		Breakdown: b,
		Metadata:  output.Metadata{GeneratedAt: time.Now().UTC(), InputHash: hash, Version: h.version},
	}
	if err := h.report.Render(&buf, report); err != nil {
		return nil, errors.Internal("failed to render report", err)
	}
	return &ReportResult{
		Report: buf.String(),
		Breakdown: ReportTotals{
			OneTimeFees:    b.TotalFees,
			MonthlyFees:    b.MonthlyFees,
			FirstYearTotal: b.FirstYearTotal,
		},
		InputHash: hash,
	}, nil
}

func (h *Handler) getJurisdictions(ctx context.Context, raw json.RawMessage) (any, error) {
	var params JurisdictionParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	return h.engine.Catalog().ListJurisdictions(ctx, params.StateCode)
}

func (h *Handler) getStates(ctx context.Context, _ json.RawMessage) (any, error) {
	return h.engine.Catalog().ListStates(ctx)
}

func (h *Handler) getStatesCount(ctx context.Context, _ json.RawMessage) (any, error) {
	states, err := h.engine.Catalog().ListStates(ctx)
	if err != nil {
		return nil, err
	}
	return CountResult{Count: len(states)}, nil
}

// getServiceAreas lists a jurisdiction's areas behind a synthetic
// citywide entry with an empty ID
func (h *Handler) getServiceAreas(ctx context.Context, raw json.RawMessage) (any, error) {
	j, err := h.jurisdiction(ctx, raw)
	if err != nil {
		return nil, err
	}
	areas, err := h.engine.Catalog().ListServiceAreas(ctx, j.ID)
	if err != nil {
		return nil, err
	}
	out := make([]types.ServiceArea, 0, len(areas)+1)
	out = append(out, types.ServiceArea{Name: types.CitywideServiceArea, Description: CitywideDescription})
	return append(out, areas...), nil
}

func (h *Handler) getUnitLabels(ctx context.Context, _ json.RawMessage) (any, error) {
	return h.engine.Catalog().ListUnitLabels(ctx)
}

func (h *Handler) getCategories(ctx context.Context, _ json.RawMessage) (any, error) {
	return h.engine.Catalog().ListCategories(ctx)
}

func (h *Handler) getJurisdictionStats(ctx context.Context, raw json.RawMessage) (any, error) {
	j, err := h.jurisdiction(ctx, raw)
	if err != nil {
		return nil, err
	}
	return h.engine.Catalog().Stats(ctx, j.ID)
}

func (h *Handler) getProjectPresets(context.Context, json.RawMessage) (any, error) {
	return match.Presets, nil
}

// jurisdiction resolves JurisdictionParams by ID, falling back to name
func (h *Handler) jurisdiction(ctx context.Context, raw json.RawMessage) (*types.Jurisdiction, error) {
	var params JurisdictionParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	if params.JurisdictionID != "" {
		return h.engine.Catalog().GetJurisdiction(ctx, params.JurisdictionID)
	}
	if params.JurisdictionName == "" {
		return nil, errors.Input("jurisdictionId or jurisdictionName is required")
	}
	return h.engine.Catalog().ResolveJurisdiction(ctx, params.JurisdictionName, params.StateCode)
}
