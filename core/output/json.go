package output

import (
	"encoding/json"
	"io"

	"permit-fees/core/engine"
)

// JSONFormatter writes reports as JSON
type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) Format() Format { return FormatJSON }

func (f *JSONFormatter) Render(w io.Writer, report *Report) error {
	return f.encode(w, report)
}

func (f *JSONFormatter) RenderComparison(w io.Writer, cmp *engine.Comparison) error {
	return f.encode(w, cmp)
}

func (f *JSONFormatter) encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
