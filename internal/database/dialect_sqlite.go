package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/jlab/wfbrowser/internal/query"
)

// SQLiteDialect implements the Dialect interface for SQLite databases.
// It also satisfies query.QueryDialect through structural typing.
type SQLiteDialect struct{}

func (d *SQLiteDialect) DriverName() string             { return "sqlite" }
func (d *SQLiteDialect) Placeholder(index int) string   { return "?" }
func (d *SQLiteDialect) QuoteColumn(name string) string { return name }
func (d *SQLiteDialect) SanitizeText(s string) string   { return s }

func (d *SQLiteDialect) TimeValue(t time.Time) interface{} { return query.FormatTime(t) }

// DSN enables foreign keys so deleting an event cascades to its rows.
func (d *SQLiteDialect) DSN(pathOrConnStr string) string {
	sep := "?"
	if strings.Contains(pathOrConnStr, "?") {
		sep = "&"
	}
	return pathOrConnStr + sep + "_pragma=foreign_keys(1)"
}

func (d *SQLiteDialect) CreateEventTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS event (
		event_id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_time_utc TEXT NOT NULL,
		location TEXT NOT NULL,
		system_name TEXT NOT NULL,
		classification TEXT NOT NULL DEFAULT '',
		grouped INT NOT NULL DEFAULT 1,
		archive INT NOT NULL DEFAULT 0,
		to_be_deleted INT NOT NULL DEFAULT 0,
		UNIQUE (event_time_utc, location, system_name, classification)
	)`
}

func (d *SQLiteDialect) CreateCaptureTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS capture (
		capture_id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id INTEGER NOT NULL REFERENCES event (event_id) ON DELETE CASCADE,
		filename TEXT NOT NULL,
		sample_start REAL, sample_end REAL, sample_step REAL,
		UNIQUE (event_id, filename)
	)`
}

func (d *SQLiteDialect) CreateCaptureWaveformTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS capture_wf (
		cwf_id INTEGER PRIMARY KEY AUTOINCREMENT,
		capture_id INTEGER NOT NULL REFERENCES capture (capture_id) ON DELETE CASCADE,
		waveform_name TEXT NOT NULL
	)`
}

func (d *SQLiteDialect) CreateCaptureMetaTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS capture_meta (
		meta_id INTEGER PRIMARY KEY AUTOINCREMENT,
		capture_id INTEGER NOT NULL REFERENCES capture (capture_id) ON DELETE CASCADE,
		meta_name TEXT NOT NULL,
		type TEXT NOT NULL,
		value TEXT, start REAL, offset REAL
	)`
}

func (d *SQLiteDialect) CreateLabelTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS label (
		label_id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id INTEGER NOT NULL REFERENCES event (event_id) ON DELETE CASCADE,
		label_time_utc TEXT NOT NULL,
		model_name TEXT NOT NULL,
		label_name TEXT NOT NULL,
		label_value TEXT NOT NULL,
		label_confidence REAL,
		UNIQUE (event_id, label_name)
	)`
}

func (d *SQLiteDialect) CreateSeriesTableSQL() string {
	return `CREATE TABLE IF NOT EXISTS series (
		series_id INTEGER PRIMARY KEY AUTOINCREMENT,
		series_name TEXT NOT NULL,
		pattern TEXT NOT NULL,
		system_name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		units TEXT NOT NULL DEFAULT '',
		ymin REAL, ymax REAL,
		UNIQUE (series_name, system_name)
	)`
}

func (d *SQLiteDialect) CreateIndexSQL(indexName, tableName, column string) string {
	return fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s)", indexName, tableName, column)
}
