// Package output renders fee breakdowns for people and machines.
package output

import (
	"fmt"
	"io"
	"sort"
	"time"

	"permit-fees/core/engine"
	"permit-fees/core/types"
)

// Format represents output format type
type Format string

const (
	// FormatText is the human-readable feasibility report
	FormatText Format = "text"

	// FormatJSON is machine-readable JSON
	FormatJSON Format = "json"
)

// Formatter produces output in a specific format
type Formatter interface {
	// Format returns the format type
	Format() Format

	// Render writes a feasibility report
	Render(w io.Writer, report *Report) error

	// RenderComparison writes a multi-location comparison
	RenderComparison(w io.Writer, cmp *engine.Comparison) error
}

// Report is a breakdown plus the context it was produced in
type Report struct {
	Breakdown *types.FeeBreakdown `json:"breakdown"`

	// Metadata describes the run
	Metadata Metadata `json:"metadata"`
}

// Metadata contains execution context
type Metadata struct {
	// GeneratedAt is when the report was produced
	GeneratedAt time.Time `json:"generatedAt"`

	// InputHash fingerprints the request
	InputHash string `json:"inputHash,omitempty"`

	// Version is the tool version
	Version string `json:"version,omitempty"`
}

// Registry maps formats to formatters
type Registry struct {
	formatters map[Format]Formatter
}

// NewRegistry creates a registry with the built-in formatters
func NewRegistry() *Registry {
	r := &Registry{formatters: make(map[Format]Formatter)}
	r.Register(&TextFormatter{Width: DefaultWidth})
	r.Register(&JSONFormatter{Indent: true})
	return r
}

// Register adds or replaces a formatter
func (r *Registry) Register(f Formatter) {
	r.formatters[f.Format()] = f
}

// Get returns the formatter for format
func (r *Registry) Get(format Format) (Formatter, error) {
	f, ok := r.formatters[format]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (available: %v)", format, r.Formats())
	}
	return f, nil
}

// Formats lists registered formats in sorted order
func (r *Registry) Formats() []Format {
	out := make([]Format, 0, len(r.formatters))
	for f := range r.formatters {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
