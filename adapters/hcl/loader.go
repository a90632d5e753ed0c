// Package hcl loads fee catalog snapshots from HCL files.
//
// A catalog file declares jurisdictions with their service areas and
// fees:
//
//	jurisdiction "denver" {
//	  name       = "Denver"
//	  state_code = "CO"
//
//	  service_area "den-in" {
//	    name = "Inside Denver"
//	  }
//
//	  fee "water-sdc" {
//	    name         = "Water System Development Charge"
//	    agency       = "Denver Water"
//	    service_area = "den-in"
//	    applies_to   = ["Residential"]
//
//	    rule {
//	      calc_type  = "per_unit"
//	      rate       = 10040
//	      unit_label = "per dwelling unit"
//	    }
//	  }
//	}
package hcl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"permit-fees/core/catalog"
	"permit-fees/core/determinism"
	"permit-fees/core/pricing"
	"permit-fees/core/types"
	"permit-fees/internal/errors"
)

// FileExtension is the suffix of catalog files read from a directory
const FileExtension = ".hcl"

// Loader reads HCL catalog files into a snapshot
type Loader struct {
	parser *hclparse.Parser
	ids    *determinism.IDGenerator
	logger *zap.Logger
}

// NewLoader creates a loader. A nil logger discards output.
func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		parser: hclparse.NewParser(),
		ids:    determinism.NewIDGenerator("rule"),
		logger: logger,
	}
}

// Load reads a single file, or every *.hcl file of a directory in name
// order, and validates the merged snapshot. Validation problems are
// logged, not returned.
func (l *Loader) Load(path string) (*catalog.Snapshot, error) {
	files, err := catalogFiles(path)
	if err != nil {
		return nil, err
	}

	snapshot := &catalog.Snapshot{}
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.Config("failed to read catalog file", err).WithContext("file", file)
		}
		part, err := l.Parse(src, file)
		if err != nil {
			return nil, err
		}
		snapshot.Jurisdictions = append(snapshot.Jurisdictions, part.Jurisdictions...)
		snapshot.ServiceAreas = append(snapshot.ServiceAreas, part.ServiceAreas...)
		snapshot.Fees = append(snapshot.Fees, part.Fees...)
	}

	problems := snapshot.Validate(catalog.DefaultValidationRules())
	for _, p := range problems {
		l.logger.Warn("catalog problem",
			zap.String("subject", p.Subject),
			zap.String("fee_id", p.FeeID),
			zap.String("problem", p.Message))
	}
	l.logger.Info("catalog loaded",
		zap.Int("files", len(files)),
		zap.Int("jurisdictions", len(snapshot.Jurisdictions)),
		zap.Int("fees", len(snapshot.Fees)),
		zap.Int("problems", len(problems)))
	return snapshot, nil
}

func catalogFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Config("catalog path not readable", err).WithContext("path", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, FileExtension) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Config("failed to walk catalog directory", err).WithContext("path", path)
	}
	sort.Strings(files)
	return files, nil
}

// Parse decodes one catalog file's source
func (l *Loader) Parse(src []byte, filename string) (*catalog.Snapshot, error) {
	file, diags := l.parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diagError(filename, diags)
	}

	var schema fileSchema
	if diags := gohcl.DecodeBody(file.Body, nil, &schema); diags.HasErrors() {
		return nil, diagError(filename, diags)
	}

	snapshot := &catalog.Snapshot{}
	for _, jb := range schema.Jurisdictions {
		if err := l.addJurisdiction(snapshot, jb); err != nil {
			return nil, errors.Wrap(errors.TypeConfig, "invalid catalog", err).WithContext("file", filename)
		}
	}
	return snapshot, nil
}

func diagError(filename string, diags hcl.Diagnostics) error {
	var msgs []string
	for _, diag := range diags {
		if diag.Severity != hcl.DiagError {
			continue
		}
		line := 0
		if diag.Subject != nil {
			line = diag.Subject.Start.Line
		}
		msgs = append(msgs, fmt.Sprintf("line %d: %s: %s", line, diag.Summary, diag.Detail))
	}
	return errors.Newf(errors.TypeConfig, "failed to parse %s: %s", filename, strings.Join(msgs, "; "))
}

func (l *Loader) addJurisdiction(s *catalog.Snapshot, jb jurisdictionBlock) error {
	j := types.Jurisdiction{
		ID:        jb.ID,
		Name:      strings.TrimSpace(jb.Name),
		StateCode: strings.ToUpper(strings.TrimSpace(jb.StateCode)),
		StateName: str(jb.StateName),
		Type:      str(jb.Type),
	}
	s.Jurisdictions = append(s.Jurisdictions, j)

	areaNames := make(map[string]string, len(jb.ServiceAreas))
	for _, ab := range jb.ServiceAreas {
		areaNames[ab.ID] = ab.Name
		s.ServiceAreas = append(s.ServiceAreas, types.ServiceArea{
			ID:             ab.ID,
			JurisdictionID: j.ID,
			Name:           ab.Name,
			Description:    str(ab.Description),
		})
	}

	for _, fb := range jb.Fees {
		fee, err := l.fee(j.ID, fb, areaNames)
		if err != nil {
			return fmt.Errorf("fee %q: %w", fb.ID, err)
		}
		s.Fees = append(s.Fees, fee)
	}
	return nil
}

func (l *Loader) fee(jurisdictionID string, fb feeBlock, areaNames map[string]string) (types.FeeDefinition, error) {
	fee := types.FeeDefinition{
		ID:             fb.ID,
		Name:           fb.Name,
		AgencyID:       str(fb.AgencyID),
		AgencyName:     fb.Agency,
		JurisdictionID: jurisdictionID,
		ServiceAreaID:  str(fb.ServiceArea),
		Category:       str(fb.Category),
		AppliesTo:      fb.AppliesTo,
		UseSubtypes:    fb.UseSubtypes,
		Active:         fb.Active == nil || *fb.Active,
	}
	if fee.ServiceAreaID != "" {
		// Unknown areas are left for snapshot validation to report.
		fee.ServiceAreaName = areaNames[fee.ServiceAreaID]
	}

	for i, rb := range fb.Rules {
		rule, err := l.rule(fb.ID, i, rb)
		if err != nil {
			return fee, fmt.Errorf("rule %d: %w", i, err)
		}
		fee.Rules = append(fee.Rules, rule)
	}
	return fee, nil
}

func (l *Loader) rule(feeID string, index int, rb ruleBlock) (types.FeeCalculationRule, error) {
	rule := types.FeeCalculationRule{
		ID:             str(rb.ID),
		CalcType:       types.CalcType(rb.CalcType),
		UnitLabel:      str(rb.UnitLabel),
		Frequency:      str(rb.Frequency),
		TierDriver:     types.Quantity(str(rb.TierDriver)),
		TierMode:       types.TierMode(str(rb.TierMode)),
		FormulaDisplay: str(rb.FormulaDisplay),
		Current:        rb.Current != nil && *rb.Current,
	}
	if rule.ID == "" {
		rule.ID = string(l.ids.Generate(feeID, strconv.Itoa(index)))
	}

	var err error
	if rule.Rate, err = amount(str(rb.Rate), "rate"); err != nil {
		return rule, err
	}
	if rule.MinFee, err = bound(rb.MinFee, "min_fee"); err != nil {
		return rule, err
	}
	if rule.MaxFee, err = bound(rb.MaxFee, "max_fee"); err != nil {
		return rule, err
	}

	for i, tb := range rb.Tiers {
		tier := types.Tier{Basis: types.TierBasis(str(tb.Basis))}
		if tier.Min, err = amount(tb.Min, "min"); err != nil {
			return rule, fmt.Errorf("tier %d: %w", i, err)
		}
		if tier.Max, err = bound(tb.Max, "max"); err != nil {
			return rule, fmt.Errorf("tier %d: %w", i, err)
		}
		if tier.Rate, err = amount(tb.Rate, "rate"); err != nil {
			return rule, fmt.Errorf("tier %d: %w", i, err)
		}
		rule.Tiers = append(rule.Tiers, tier)
	}

	for _, mb := range rb.MeterRates {
		rate, err := amount(mb.Rate, "meter rate")
		if err != nil {
			return rule, fmt.Errorf("meter %q: %w", mb.Size, err)
		}
		rule.MeterRates = append(rule.MeterRates, types.MeterRate{Size: mb.Size, Rate: rate})
	}

	if rb.Formula != nil {
		raw, err := formulaJSON(rb.Formula)
		if err != nil {
			return rule, err
		}
		rule.Formula = raw
	}
	return rule, nil
}

// formulaJSON converts a formula block into the stored JSON configuration.
// Operator and kinds are checked when the rule is priced.
func formulaJSON(fb *formulaBlock) (json.RawMessage, error) {
	cfg := pricing.FormulaConfig{Operator: pricing.FormulaOperator(str(fb.Operator))}
	for i, tb := range fb.Terms {
		term := pricing.FormulaTerm{Kind: pricing.TermKind(tb.Kind)}
		if tb.Rate != nil {
			rate, err := amount(*tb.Rate, "rate")
			if err != nil {
				return nil, fmt.Errorf("formula term %d: %w", i, err)
			}
			term.Rate = &rate
		}
		if tb.Divisor != nil {
			divisor, err := amount(*tb.Divisor, "divisor")
			if err != nil {
				return nil, fmt.Errorf("formula term %d: %w", i, err)
			}
			term.Divisor = &divisor
		}
		cfg.Terms = append(cfg.Terms, term)
	}
	return json.Marshal(cfg)
}

func amount(s, field string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %q is not a number", field, s)
	}
	return d, nil
}

func bound(s *string, field string) (decimal.NullDecimal, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := amount(*s, field)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
