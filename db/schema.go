package db

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"permit-fees/internal/errors"
)

// Decimal amounts are stored as TEXT so both drivers keep them exact.
// Lists, tiers, meter rates and formulas are stored as JSON text.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS jurisdictions (
		id                TEXT PRIMARY KEY,
		name              TEXT NOT NULL,
		state_code        TEXT NOT NULL,
		state_name        TEXT NOT NULL DEFAULT '',
		jurisdiction_type TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS service_areas (
		id              TEXT PRIMARY KEY,
		jurisdiction_id TEXT NOT NULL REFERENCES jurisdictions(id),
		name            TEXT NOT NULL,
		description     TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS fees (
		id              TEXT PRIMARY KEY,
		jurisdiction_id TEXT NOT NULL REFERENCES jurisdictions(id),
		service_area_id TEXT NOT NULL DEFAULT '',
		name            TEXT NOT NULL,
		agency_id       TEXT NOT NULL DEFAULT '',
		agency_name     TEXT NOT NULL DEFAULT '',
		category        TEXT NOT NULL DEFAULT '',
		applies_to      TEXT NOT NULL DEFAULT '[]',
		use_subtypes    TEXT NOT NULL DEFAULT '[]',
		is_active       BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS fee_rules (
		id              TEXT PRIMARY KEY,
		fee_id          TEXT NOT NULL REFERENCES fees(id),
		position        INTEGER NOT NULL,
		calc_type       TEXT NOT NULL,
		rate            TEXT NOT NULL DEFAULT '0',
		unit_label      TEXT NOT NULL DEFAULT '',
		frequency       TEXT NOT NULL DEFAULT '',
		min_fee         TEXT,
		max_fee         TEXT,
		tiers           TEXT NOT NULL DEFAULT '[]',
		tier_driver     TEXT NOT NULL DEFAULT '',
		tier_mode       TEXT NOT NULL DEFAULT '',
		formula_config  TEXT,
		formula_display TEXT NOT NULL DEFAULT '',
		meter_rates     TEXT NOT NULL DEFAULT '[]',
		is_current      BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS catalog_imports (
		id            TEXT PRIMARY KEY,
		content_hash  TEXT NOT NULL,
		jurisdictions INTEGER NOT NULL,
		fees          INTEGER NOT NULL,
		imported_at   TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_service_areas_jurisdiction ON service_areas(jurisdiction_id)`,
	`CREATE INDEX IF NOT EXISTS idx_fees_jurisdiction ON fees(jurisdiction_id)`,
	`CREATE INDEX IF NOT EXISTS idx_fee_rules_fee ON fee_rules(fee_id)`,
}

// Migrate creates any missing tables and indexes. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(errors.TypeDataUnavailable, "failed to migrate catalog schema", err)
		}
	}
	s.logger.Info("catalog schema ensured", zap.String("driver", s.driver))
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
