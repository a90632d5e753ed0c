package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"permit-fees/core/catalog"
	"permit-fees/core/determinism"
	"permit-fees/core/types"
	"permit-fees/internal/errors"
)

// ImportResult summarizes one import
type ImportResult struct {
	ID            string `json:"id"`
	ContentHash   string `json:"contentHash"`
	Jurisdictions int    `json:"jurisdictions"`
	ServiceAreas  int    `json:"serviceAreas"`
	Fees          int    `json:"fees"`
	Rules         int    `json:"rules"`
}

// Import replaces every jurisdiction in the snapshot, with its service
// areas, fees and rules, inside one transaction. Jurisdictions not in the
// snapshot are left untouched. Jurisdictions must carry an ID; service
// areas, fees and rules without one get a random one.
func (s *Store) Import(ctx context.Context, snapshot *catalog.Snapshot) (*ImportResult, error) {
	if err := checkOwnership(snapshot); err != nil {
		return nil, err
	}
	hash, err := determinism.HashJSON(snapshot)
	if err != nil {
		return nil, errors.Internal("failed to hash snapshot", err)
	}
	result := &ImportResult{ID: uuid.NewString(), ContentHash: hash.Hex()}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, queryError(err)
	}
	defer tx.Rollback()

	for _, j := range snapshot.Jurisdictions {
		if err := s.replaceJurisdiction(ctx, tx, j); err != nil {
			return nil, err
		}
		result.Jurisdictions++
	}

	for _, a := range snapshot.ServiceAreas {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, s.rebind(
			`INSERT INTO service_areas (id, jurisdiction_id, name, description) VALUES (?, ?, ?, ?)`),
			a.ID, a.JurisdictionID, a.Name, a.Description); err != nil {
			return nil, importError("service area", a.ID, err)
		}
		result.ServiceAreas++
	}

	for _, f := range snapshot.Fees {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		if err := s.insertFee(ctx, tx, f); err != nil {
			return nil, err
		}
		result.Fees++
		result.Rules += len(f.Rules)
	}

	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO catalog_imports (id, content_hash, jurisdictions, fees, imported_at) VALUES (?, ?, ?, ?, ?)`),
		result.ID, result.ContentHash, result.Jurisdictions, result.Fees,
		time.Now().UTC().Format(time.RFC3339)); err != nil {
		return nil, importError("import record", result.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, queryError(err)
	}

	s.logger.Info("catalog imported",
		zap.String("import_id", result.ID),
		zap.String("content_hash", hash.Short()),
		zap.Int("jurisdictions", result.Jurisdictions),
		zap.Int("fees", result.Fees),
		zap.Int("rules", result.Rules))
	return result, nil
}

// checkOwnership rejects records that would be stored without a
// jurisdiction to own them
func checkOwnership(snapshot *catalog.Snapshot) error {
	for _, j := range snapshot.Jurisdictions {
		if j.ID == "" {
			return errors.DataIntegrity("jurisdiction has no id").WithContext("name", j.Name)
		}
	}
	for _, a := range snapshot.ServiceAreas {
		if a.JurisdictionID == "" {
			return errors.DataIntegrity("service area has no jurisdiction").WithContext("name", a.Name)
		}
	}
	for _, f := range snapshot.Fees {
		if f.JurisdictionID == "" {
			return errors.DataIntegrity("fee has no jurisdiction").WithContext("name", f.Name)
		}
	}
	return nil
}

func (s *Store) replaceJurisdiction(ctx context.Context, tx *sql.Tx, j types.Jurisdiction) error {
	deletes := []string{
		`DELETE FROM fee_rules WHERE fee_id IN (SELECT id FROM fees WHERE jurisdiction_id = ?)`,
		`DELETE FROM fees WHERE jurisdiction_id = ?`,
		`DELETE FROM service_areas WHERE jurisdiction_id = ?`,
		`DELETE FROM jurisdictions WHERE id = ?`,
	}
	for _, stmt := range deletes {
		if _, err := tx.ExecContext(ctx, s.rebind(stmt), j.ID); err != nil {
			return importError("jurisdiction", j.ID, err)
		}
	}
	_, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO jurisdictions (id, name, state_code, state_name, jurisdiction_type) VALUES (?, ?, ?, ?, ?)`),
		j.ID, j.Name, j.StateCode, j.StateName, j.Type)
	if err != nil {
		return importError("jurisdiction", j.ID, err)
	}
	return nil
}

func (s *Store) insertFee(ctx context.Context, tx *sql.Tx, f types.FeeDefinition) error {
	appliesTo, err := encodeJSON(f.AppliesTo)
	if err != nil {
		return importError("fee", f.ID, err)
	}
	subtypes, err := encodeJSON(f.UseSubtypes)
	if err != nil {
		return importError("fee", f.ID, err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(
		`INSERT INTO fees (id, jurisdiction_id, service_area_id, name, agency_id, agency_name,
		                   category, applies_to, use_subtypes, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		f.ID, f.JurisdictionID, f.ServiceAreaID, f.Name, f.AgencyID, f.AgencyName,
		f.Category, appliesTo, subtypes, f.Active); err != nil {
		return importError("fee", f.ID, err)
	}

	for pos, r := range f.Rules {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		tiers, err := encodeJSON(r.Tiers)
		if err != nil {
			return importError("rule", r.ID, err)
		}
		meters, err := encodeJSON(r.MeterRates)
		if err != nil {
			return importError("rule", r.ID, err)
		}
		var formula sql.NullString
		if len(r.Formula) > 0 {
			formula = sql.NullString{String: string(r.Formula), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, s.rebind(
			`INSERT INTO fee_rules (id, fee_id, position, calc_type, rate, unit_label, frequency,
			                        min_fee, max_fee, tiers, tier_driver, tier_mode,
			                        formula_config, formula_display, meter_rates, is_current)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			r.ID, f.ID, pos, string(r.CalcType), r.Rate.String(), r.UnitLabel, r.Frequency,
			r.MinFee, r.MaxFee, tiers, string(r.TierDriver), string(r.TierMode),
			formula, r.FormulaDisplay, meters, r.Current); err != nil {
			return importError("rule", r.ID, err)
		}
	}
	return nil
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func importError(kind, id string, err error) error {
	return errors.Wrapf(errors.TypeDataUnavailable, err, "failed to import %s %s", kind, id)
}
