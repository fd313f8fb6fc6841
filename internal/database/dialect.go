package database

import (
	"fmt"
	"strings"
	"time"
)

// Dialect abstracts all database-specific SQL generation.
// Each database backend (SQLite, PostgreSQL) implements this interface.
// The Placeholder, QuoteColumn and TimeValue methods match the query.QueryDialect
// interface through Go structural typing, so a Dialect can also serve as a QueryDialect.
type Dialect interface {
	// DriverName returns the database/sql driver name (e.g. "sqlite", "pgx").
	DriverName() string

	// DSN returns the data source name for opening a connection.
	// For SQLite this is the file path plus pragmas; for PostgreSQL the connection string.
	DSN(pathOrConnStr string) string

	// Placeholder returns the parameter placeholder for the given 1-based index.
	// SQLite: "?" (ignoring index), PostgreSQL: "$1", "$2", etc.
	Placeholder(index int) string

	// QuoteColumn returns the column name quoted appropriately for the dialect.
	QuoteColumn(name string) string

	// TimeValue returns the parameter value for a timestamp column.
	TimeValue(t time.Time) interface{}

	// SanitizeText prepares a string value for storage.
	SanitizeText(s string) string

	// CreateEventTableSQL returns DDL for the event table.
	CreateEventTableSQL() string

	// CreateCaptureTableSQL returns DDL for the capture-file table.
	CreateCaptureTableSQL() string

	// CreateCaptureWaveformTableSQL returns DDL for the waveform-name table.
	CreateCaptureWaveformTableSQL() string

	// CreateCaptureMetaTableSQL returns DDL for the capture-file metadata table.
	CreateCaptureMetaTableSQL() string

	// CreateLabelTableSQL returns DDL for the label table.
	CreateLabelTableSQL() string

	// CreateSeriesTableSQL returns DDL for the series table.
	CreateSeriesTableSQL() string

	// CreateIndexSQL returns DDL to create an index on a table column.
	CreateIndexSQL(indexName, tableName, column string) string
}

// DefaultIndexes are created with every new database, as {table, column}.
var DefaultIndexes = [][2]string{
	{"event", "event_time_utc"},
	{"event", "system_name"},
	{"event", "location"},
	{"capture", "event_id"},
	{"capture_wf", "capture_id"},
	{"capture_meta", "capture_id"},
	{"label", "event_id"},
}

// insertSQL builds a parameterized INSERT for d. A non-empty returning column
// is appended as a RETURNING clause, which both backends support.
func insertSQL(d Dialect, table string, columns []string, returning string) string {
	cols := make([]string, len(columns))
	phs := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = d.QuoteColumn(c)
		phs[i] = d.Placeholder(i + 1)
	}
	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(phs, ", "))
	if returning != "" {
		sql += " RETURNING " + returning
	}
	return sql
}

// inPlaceholders returns "p1, p2, ..." for n parameters starting at start.
func inPlaceholders(d Dialect, start, n int) string {
	phs := make([]string, n)
	for i := range phs {
		phs[i] = d.Placeholder(start + i)
	}
	return strings.Join(phs, ", ")
}
