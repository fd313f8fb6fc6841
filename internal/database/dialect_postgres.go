package database

import (
	"fmt"
	"strings"
	"time"
)

// pgQuoteCol wraps a column name in double quotes if it is a PostgreSQL reserved word.
// capture_meta.offset is the only stored column that needs it. Non-reserved names are
// returned as-is so PostgreSQL folds them to lowercase consistently with unquoted DDL.
func pgQuoteCol(name string) string {
	switch name {
	case "offset", "user", "order":
		return `"` + name + `"`
	default:
		return name
	}
}

// PostgresDialect implements the Dialect interface for PostgreSQL databases.
// It also satisfies query.QueryDialect through structural typing.
type PostgresDialect struct{}

func (d *PostgresDialect) DriverName() string             { return "pgx" }
func (d *PostgresDialect) DSN(pathOrConnStr string) string { return pathOrConnStr }
func (d *PostgresDialect) Placeholder(index int) string    { return fmt.Sprintf("$%d", index) }
func (d *PostgresDialect) QuoteColumn(name string) string  { return pgQuoteCol(name) }

func (d *PostgresDialect) TimeValue(t time.Time) interface{} { return t.UTC() }

// SanitizeText strips null bytes (0x00). SQLite stores these fine but
// PostgreSQL rejects them with "invalid byte sequence for encoding UTF8".
func (d *PostgresDialect) SanitizeText(s string) string {
	if strings.ContainsRune(s, '\x00') {
		return strings.ReplaceAll(s, "\x00", "")
	}
	return s
}

func (d *PostgresDialect) CreateEventTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS event (
		event_id BIGSERIAL PRIMARY KEY,
		event_time_utc TIMESTAMP(6) NOT NULL,
		location TEXT NOT NULL,
		system_name TEXT NOT NULL,
		classification TEXT NOT NULL DEFAULT '',
		grouped INT NOT NULL DEFAULT 1,
		archive INT NOT NULL DEFAULT 0,
		to_be_deleted INT NOT NULL DEFAULT 0,
		UNIQUE (event_time_utc, location, system_name, classification)
	)`
}

func (d *PostgresDialect) CreateCaptureTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS capture (
		capture_id BIGSERIAL PRIMARY KEY,
		event_id BIGINT NOT NULL REFERENCES event (event_id) ON DELETE CASCADE,
		filename TEXT NOT NULL,
		sample_start DOUBLE PRECISION, sample_end DOUBLE PRECISION, sample_step DOUBLE PRECISION,
		UNIQUE (event_id, filename)
	)`
}

func (d *PostgresDialect) CreateCaptureWaveformTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS capture_wf (
		cwf_id BIGSERIAL PRIMARY KEY,
		capture_id BIGINT NOT NULL REFERENCES capture (capture_id) ON DELETE CASCADE,
		waveform_name TEXT NOT NULL
	)`
}

func (d *PostgresDialect) CreateCaptureMetaTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS capture_meta (
		meta_id BIGSERIAL PRIMARY KEY,
		capture_id BIGINT NOT NULL REFERENCES capture (capture_id) ON DELETE CASCADE,
		meta_name TEXT NOT NULL,
		type TEXT NOT NULL,
		value TEXT, start DOUBLE PRECISION, "offset" DOUBLE PRECISION
	)`
}

func (d *PostgresDialect) CreateLabelTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS label (
		label_id BIGSERIAL PRIMARY KEY,
		event_id BIGINT NOT NULL REFERENCES event (event_id) ON DELETE CASCADE,
		label_time_utc TIMESTAMP(6) NOT NULL,
		model_name TEXT NOT NULL,
		label_name TEXT NOT NULL,
		label_value TEXT NOT NULL,
		label_confidence DOUBLE PRECISION,
		UNIQUE (event_id, label_name)
	)`
}

func (d *PostgresDialect) CreateSeriesTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS series (
		series_id BIGSERIAL PRIMARY KEY,
		series_name TEXT NOT NULL,
		pattern TEXT NOT NULL,
		system_name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		units TEXT NOT NULL DEFAULT '',
		ymin DOUBLE PRECISION, ymax DOUBLE PRECISION,
		UNIQUE (series_name, system_name)
	)`
}

func (d *PostgresDialect) CreateIndexSQL(indexName, tableName, column string) string {
	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s)", indexName, tableName, pgQuoteCol(column))
}
