// Package db provides a SQL-backed fee catalog. The same queries run on
// PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite).
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"permit-fees/core/catalog"
	"permit-fees/core/types"
	"permit-fees/internal/errors"
)

// Supported drivers, named as registered with database/sql
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store reads the catalog from a SQL database
type Store struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

// Open connects to the database and verifies the connection
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, errors.Config(fmt.Sprintf("unsupported catalog driver %q", driver), nil)
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(errors.TypeDataUnavailable, "failed to open catalog database", err)
	}
	if driver == DriverSQLite {
		// An in-memory database exists per connection.
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, errors.Wrap(errors.TypeDataUnavailable, "catalog database unreachable", err)
	}
	return New(conn, driver, logger), nil
}

// New wraps an open database handle
func New(conn *sql.DB, driver string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: conn, driver: driver, logger: logger}
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ResolveJurisdiction(ctx context.Context, name, stateCode string) (*types.Jurisdiction, error) {
	js, err := s.ListJurisdictions(ctx, "")
	if err != nil {
		return nil, err
	}
	return catalog.Resolve(js, name, stateCode)
}

const jurisdictionColumns = `id, name, state_code, state_name, jurisdiction_type`

func scanJurisdiction(row interface{ Scan(...any) error }) (types.Jurisdiction, error) {
	var j types.Jurisdiction
	err := row.Scan(&j.ID, &j.Name, &j.StateCode, &j.StateName, &j.Type)
	return j, err
}

func (s *Store) GetJurisdiction(ctx context.Context, id string) (*types.Jurisdiction, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+jurisdictionColumns+` FROM jurisdictions WHERE id = ?`), id)
	j, err := scanJurisdiction(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("jurisdiction", id)
	}
	if err != nil {
		return nil, queryError(err)
	}
	return &j, nil
}

func (s *Store) ListJurisdictions(ctx context.Context, stateCode string) ([]types.Jurisdiction, error) {
	query := `SELECT ` + jurisdictionColumns + ` FROM jurisdictions`
	var args []any
	if stateCode != "" {
		query += ` WHERE UPPER(state_code) = ?`
		args = append(args, strings.ToUpper(stateCode))
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, queryError(err)
	}
	defer rows.Close()

	out := []types.Jurisdiction{}
	for rows.Next() {
		j, err := scanJurisdiction(rows)
		if err != nil {
			return nil, queryError(err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err)
	}
	catalog.SortJurisdictions(out)
	return out, nil
}

func (s *Store) ListServiceAreas(ctx context.Context, jurisdictionID string) ([]types.ServiceArea, error) {
	if _, err := s.GetJurisdiction(ctx, jurisdictionID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT id, jurisdiction_id, name, description FROM service_areas
		 WHERE jurisdiction_id = ? ORDER BY name, id`), jurisdictionID)
	if err != nil {
		return nil, queryError(err)
	}
	defer rows.Close()

	out := []types.ServiceArea{}
	for rows.Next() {
		var a types.ServiceArea
		if err := rows.Scan(&a.ID, &a.JurisdictionID, &a.Name, &a.Description); err != nil {
			return nil, queryError(err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err)
	}
	return out, nil
}

func (s *Store) FetchFees(ctx context.Context, jurisdictionID string, serviceAreaIDs []string) ([]types.FeeDefinition, error) {
	if _, err := s.GetJurisdiction(ctx, jurisdictionID); err != nil {
		return nil, err
	}
	fees, err := s.activeFees(ctx, jurisdictionID)
	if err != nil {
		return nil, err
	}

	selected := catalog.SelectionSet(serviceAreaIDs)
	out := []types.FeeDefinition{}
	for i := range fees {
		if catalog.InScope(&fees[i], selected) {
			out = append(out, fees[i])
		}
	}
	if err := s.attachRules(ctx, jurisdictionID, out); err != nil {
		return nil, err
	}
	catalog.SortFees(out)
	return out, nil
}

// activeFees loads a jurisdiction's active fees without rules
func (s *Store) activeFees(ctx context.Context, jurisdictionID string) ([]types.FeeDefinition, error) {
	query := `SELECT f.id, f.name, f.agency_id, f.agency_name, f.jurisdiction_id,
	                 f.service_area_id, COALESCE(a.name, ''), f.category,
	                 f.applies_to, f.use_subtypes, f.is_active
	          FROM fees f LEFT JOIN service_areas a ON a.id = f.service_area_id
	          WHERE f.jurisdiction_id = ? AND f.is_active = ?`
	rows, err := s.db.QueryContext(ctx, s.rebind(query), jurisdictionID, true)
	if err != nil {
		return nil, queryError(err)
	}
	defer rows.Close()

	var fees []types.FeeDefinition
	for rows.Next() {
		var (
			f                   types.FeeDefinition
			appliesTo, subtypes string
		)
		if err := rows.Scan(&f.ID, &f.Name, &f.AgencyID, &f.AgencyName, &f.JurisdictionID,
			&f.ServiceAreaID, &f.ServiceAreaName, &f.Category, &appliesTo, &subtypes, &f.Active); err != nil {
			return nil, queryError(err)
		}
		if err := decodeJSON(appliesTo, &f.AppliesTo); err != nil {
			f.AppliesTo, f.Defect = nil, s.unreadable(f.ID, "applies_to", err)
		}
		if err := decodeJSON(subtypes, &f.UseSubtypes); err != nil {
			f.UseSubtypes, f.Defect = nil, s.unreadable(f.ID, "use_subtypes", err)
		}
		fees = append(fees, f)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err)
	}
	return fees, nil
}

// attachRules loads the rules of the given fees in stored order
func (s *Store) attachRules(ctx context.Context, jurisdictionID string, fees []types.FeeDefinition) error {
	if len(fees) == 0 {
		return nil
	}
	index := make(map[string]int, len(fees))
	for i := range fees {
		index[fees[i].ID] = i
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT r.fee_id, r.id, r.calc_type, r.rate, r.unit_label, r.frequency, r.min_fee, r.max_fee,
		        r.tiers, r.tier_driver, r.tier_mode, r.formula_config, r.formula_display,
		        r.meter_rates, r.is_current
		 FROM fee_rules r JOIN fees f ON f.id = r.fee_id
		 WHERE f.jurisdiction_id = ?
		 ORDER BY r.fee_id, r.position`), jurisdictionID)
	if err != nil {
		return queryError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			feeID, rate, tiers, meters string
			minFee, maxFee, formula    sql.NullString
			r                          types.FeeCalculationRule
		)
		if err := rows.Scan(&feeID, &r.ID, &r.CalcType, &rate, &r.UnitLabel, &r.Frequency,
			&minFee, &maxFee, &tiers, &r.TierDriver, &r.TierMode, &formula,
			&r.FormulaDisplay, &meters, &r.Current); err != nil {
			return queryError(err)
		}
		i, ok := index[feeID]
		if !ok {
			continue
		}
		r.Defect = s.decodeRule(feeID, &r, rate, minFee, maxFee, tiers, meters)
		if formula.Valid && formula.String != "" {
			r.Formula = json.RawMessage(formula.String)
		}
		fees[i].Rules = append(fees[i].Rules, r)
	}
	if err := rows.Err(); err != nil {
		return queryError(err)
	}
	return nil
}

func (s *Store) ListUnitLabels(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT r.unit_label FROM fee_rules r
		JOIN fees f ON f.id = r.fee_id WHERE f.is_active = ?`, true)
}

func (s *Store) ListCategories(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, `SELECT DISTINCT category FROM fees WHERE is_active = ?`, true)
}

func (s *Store) distinct(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, queryError(err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, queryError(err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err)
	}
	return catalog.Distinct(values), nil
}

func (s *Store) ListStates(ctx context.Context) ([]types.State, error) {
	js, err := s.ListJurisdictions(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	out := []types.State{}
	for _, j := range js {
		if j.StateCode == "" || seen[j.StateCode] {
			continue
		}
		seen[j.StateCode] = true
		out = append(out, types.State{Code: j.StateCode, Name: j.StateName})
	}
	return out, nil
}

func (s *Store) Stats(ctx context.Context, jurisdictionID string) (*types.JurisdictionStats, error) {
	if _, err := s.GetJurisdiction(ctx, jurisdictionID); err != nil {
		return nil, err
	}
	var stats types.JurisdictionStats
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*),
		        COUNT(DISTINCT CASE WHEN agency_id <> '' THEN agency_id ELSE agency_name END)
		 FROM fees WHERE jurisdiction_id = ? AND is_active = ?`), jurisdictionID, true).
		Scan(&stats.TotalFees, &stats.TotalAgencies)
	if err != nil {
		return nil, queryError(err)
	}
	return &stats, nil
}

func decodeJSON(text string, v any) error {
	if text == "" {
		return nil
	}
	return json.Unmarshal([]byte(text), v)
}

func queryError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.DataUnavailable("catalog timed out", err)
	}
	return errors.DataUnavailable("catalog query failed", err)
}

// decodeRule parses the text columns of a rule row. It returns the
// description of the last unreadable column, or "".
func (s *Store) decodeRule(feeID string, r *types.FeeCalculationRule, rate string, minFee, maxFee sql.NullString, tiers, meters string) string {
	var defect string
	var err error
	if r.Rate, err = decimal.NewFromString(strings.TrimSpace(rate)); err != nil {
		r.Rate, defect = decimal.Zero, s.unreadable(feeID, "rate", err)
	}
	if r.MinFee, err = nullDecimal(minFee); err != nil {
		defect = s.unreadable(feeID, "min_fee", err)
	}
	if r.MaxFee, err = nullDecimal(maxFee); err != nil {
		defect = s.unreadable(feeID, "max_fee", err)
	}
	if err := decodeJSON(tiers, &r.Tiers); err != nil {
		r.Tiers, defect = nil, s.unreadable(feeID, "tiers", err)
	}
	if err := decodeJSON(meters, &r.MeterRates); err != nil {
		r.MeterRates, defect = nil, s.unreadable(feeID, "meter_rates", err)
	}
	return defect
}

func nullDecimal(v sql.NullString) (decimal.NullDecimal, error) {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v.String))
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// unreadable logs a stored column that failed to decode and returns the
// defect recorded on the fee or rule
func (s *Store) unreadable(feeID, column string, err error) string {
	s.logger.Warn("unreadable catalog column",
		zap.String("fee_id", feeID),
		zap.String("column", column),
		zap.Error(err))
	return fmt.Sprintf("stored %s is malformed", column)
}

var _ catalog.Accessor = (*Store)(nil)
