package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"permit-fees/core/types"
	"permit-fees/internal/errors"
)

// FormulaOperator combines term values
type FormulaOperator string

const (
	OperatorSum FormulaOperator = "sum"
	OperatorMax FormulaOperator = "max"
	OperatorMin FormulaOperator = "min"
)

// TermKind selects the quantity a formula term multiplies
type TermKind string

const (
	TermFlat       TermKind = "flat"
	TermPerUnit    TermKind = "per_unit"
	TermPerSqft    TermKind = "per_sqft"
	TermPercentage TermKind = "percentage"
)

// FormulaConfig is the structured formula stored on a rule
type FormulaConfig struct {
	Operator FormulaOperator `json:"operator"`
	Terms    []FormulaTerm   `json:"terms"`
}

// FormulaTerm is one weighted term. Rate defaults to the rule's rate and
// Divisor to the unit label's divisor.
type FormulaTerm struct {
	Kind    TermKind         `json:"kind"`
	Rate    *decimal.Decimal `json:"rate,omitempty"`
	Divisor *decimal.Decimal `json:"divisor,omitempty"`
}

// ParseFormula decodes and checks a formula configuration. Unknown fields,
// kinds and operators are rejected.
func ParseFormula(raw json.RawMessage) (*FormulaConfig, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var cfg FormulaConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Calculation("malformed formula configuration", err)
	}
	if cfg.Operator == "" {
		cfg.Operator = OperatorSum
	}
	switch cfg.Operator {
	case OperatorSum, OperatorMax, OperatorMin:
	default:
		return nil, errors.Calculation(fmt.Sprintf("unknown formula operator %q", cfg.Operator), nil)
	}
	if len(cfg.Terms) == 0 {
		return nil, errors.Calculation("formula has no terms", nil)
	}
	for i, term := range cfg.Terms {
		switch term.Kind {
		case TermFlat, TermPerUnit, TermPerSqft, TermPercentage:
		default:
			return nil, errors.Calculation(fmt.Sprintf("formula term %d has unknown kind %q", i, term.Kind), nil)
		}
		if term.Divisor != nil && !term.Divisor.IsPositive() {
			return nil, errors.Calculation(fmt.Sprintf("formula term %d has non-positive divisor", i), nil)
		}
	}
	return &cfg, nil
}

var displayAmount = regexp.MustCompile(`=\s*\$\s*([\d,]+(?:\.\d+)?)\s*$`)

// formulaFromDisplay builds a one-term formula from display text ending in
// "= $N". The term is per-unit when the project has units, flat otherwise.
func formulaFromDisplay(display string, p *types.ProjectInputs) (*FormulaConfig, bool) {
	m := displayAmount.FindStringSubmatch(strings.TrimSpace(display))
	if m == nil {
		return nil, false
	}
	rate, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return nil, false
	}
	kind := TermFlat
	if _, ok := p.Quantity(types.QuantityUnits); ok {
		kind = TermPerUnit
	}
	return &FormulaConfig{
		Operator: OperatorSum,
		Terms:    []FormulaTerm{{Kind: kind, Rate: &rate}},
	}, true
}

func emptyFormula(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null")) || bytes.Equal(t, []byte("{}"))
}

func evaluateFormula(c *calc) outcome {
	var cfg *FormulaConfig
	if emptyFormula(c.rule.Formula) {
		fallback, ok := formulaFromDisplay(c.rule.FormulaDisplay, c.project)
		if !ok {
			return unresolved(errors.TypeDataIntegrity, "formula rule has no configuration")
		}
		cfg = fallback
	} else {
		parsed, err := ParseFormula(c.rule.Formula)
		if err != nil {
			return unresolved(errors.TypeCalculation, errors.Message(err))
		}
		cfg = parsed
	}

	var (
		values []decimal.Decimal
		parts  []string
		issue  *types.FeeIssue
		misses int
	)
	for _, term := range cfg.Terms {
		v, text, miss := evaluateTerm(c, term)
		if miss != nil {
			misses++
			if issue == nil {
				issue = miss
			}
		}
		parts = append(parts, text)
		// A missing term counts as zero in a sum but takes no part in min or max.
		if miss != nil && cfg.Operator != OperatorSum {
			continue
		}
		values = append(values, v)
	}

	total := combine(cfg.Operator, values)
	narrative := strings.Join(parts, " + ")
	if cfg.Operator != OperatorSum {
		narrative = fmt.Sprintf("%s(%s)", cfg.Operator, strings.Join(parts, ", "))
	}
	if len(parts) > 1 || cfg.Operator != OperatorSum {
		narrative += " = " + types.FormatUSD(total)
	}
	// Clamping applies unless no term could be evaluated at all.
	return outcome{amount: total, narrative: narrative, issue: issue, unpriced: misses == len(cfg.Terms)}
}

func combine(op FormulaOperator, values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	switch op {
	case OperatorMax:
		return decimal.Max(values[0], values[1:]...)
	case OperatorMin:
		return decimal.Min(values[0], values[1:]...)
	default:
		return decimal.Sum(decimal.Zero, values...)
	}
}

// evaluateTerm returns a term's value and narrative, plus a validation
// issue when the term's quantity is missing
func evaluateTerm(c *calc, term FormulaTerm) (decimal.Decimal, string, *types.FeeIssue) {
	rate := c.rule.Rate
	if term.Rate != nil {
		rate = *term.Rate
	}

	var out outcome
	switch term.Kind {
	case TermPerUnit:
		n, ok := c.project.Quantity(types.QuantityUnits)
		if !ok {
			out = missing(quantityName(types.QuantityUnits))
			break
		}
		amount := rate.Mul(n)
		out = outcome{
			amount:    amount,
			narrative: fmt.Sprintf("%s × %s units = %s", types.FormatUSD(rate), n.String(), types.FormatUSD(amount)),
		}
	case TermPerSqft:
		sqft, ok := c.project.Quantity(types.QuantitySqft)
		if !ok {
			out = missing(quantityName(types.QuantitySqft))
			break
		}
		divisor := c.label.Divisor
		if term.Divisor != nil {
			divisor = *term.Divisor
		}
		out = perSqft(rate, sqft, divisor)
	case TermPercentage:
		value, ok := c.project.Quantity(types.QuantityValue)
		if !ok {
			out = missing(quantityName(types.QuantityValue))
			break
		}
		out = percentage(rate, value)
	default:
		out = outcome{amount: rate, narrative: types.FormatUSD(rate)}
	}
	return out.amount, out.narrative, out.issue
}
