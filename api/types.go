// Package api - HTTP/JSON boundary for the fee engine
// Requests name an action and carry its parameters. Every response uses
// the same envelope. No fee logic lives here.
package api

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"permit-fees/core/engine"
	"permit-fees/core/types"
	"permit-fees/internal/errors"
)

// Request is the body of POST /api/fees
type Request struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the envelope of every API response
type Response struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`

	// Error is a human-readable message when Success is false
	Error     string      `json:"error,omitempty"`
	ErrorType errors.Type `json:"errorType,omitempty"`

	RequestID string `json:"requestId,omitempty"`
}

// CalculateResult is the data of calculateFees
type CalculateResult struct {
	*types.FeeBreakdown

	// InputHash fingerprints the normalized request
	InputHash string `json:"inputHash"`
}

// CompareParams are the params of compareJurisdictions
type CompareParams struct {
	// Project holds everything except the location
	Project   types.ProjectInputs `json:"project"`
	Locations []engine.Location   `json:"locations"`
}

// ReportResult is the data of generateFeasibilityReport
type ReportResult struct {
	Report    string       `json:"report"`
	Breakdown ReportTotals `json:"breakdown"`
	InputHash string       `json:"inputHash"`
}

// ReportTotals are the headline figures of a report
type ReportTotals struct {
	OneTimeFees    decimal.Decimal `json:"oneTimeFees"`
	MonthlyFees    decimal.Decimal `json:"monthlyFees"`
	FirstYearTotal decimal.Decimal `json:"firstYearTotal"`
}

// JurisdictionParams identify a jurisdiction by ID or by name and state
type JurisdictionParams struct {
	JurisdictionID   string `json:"jurisdictionId,omitempty"`
	JurisdictionName string `json:"jurisdictionName,omitempty"`
	StateCode        string `json:"stateCode,omitempty"`
}

// CountResult is the data of counting actions
type CountResult struct {
	Count int `json:"count"`
}
