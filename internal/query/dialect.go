package query

import (
	"fmt"
	"time"
)

// QueryDialect abstracts SQL syntax differences needed for query building.
// Each database backend provides an implementation. The default is SQLite.
type QueryDialect interface {
	// Placeholder returns the parameter placeholder for the given 1-based index.
	// SQLite returns "?" (ignoring the index), PostgreSQL returns "$1", "$2", etc.
	Placeholder(index int) string

	// QuoteColumn returns the column name quoted appropriately for the dialect.
	QuoteColumn(name string) string

	// TimeValue returns the parameter value for a timestamp. SQLite stores
	// TimeLayout text, PostgreSQL binds the time itself.
	TimeValue(t time.Time) interface{}
}

// sqliteQueryDialect is the default dialect, producing SQLite-compatible SQL.
type sqliteQueryDialect struct{}

func (d sqliteQueryDialect) Placeholder(index int) string   { return "?" }
func (d sqliteQueryDialect) QuoteColumn(name string) string { return name }

func (d sqliteQueryDialect) TimeValue(t time.Time) interface{} { return FormatTime(t) }

// numberedQueryDialect produces "$n" placeholders. Used by tests and by callers
// that build PostgreSQL statements without a database.Dialect at hand.
type numberedQueryDialect struct{}

func (d numberedQueryDialect) Placeholder(index int) string   { return fmt.Sprintf("$%d", index) }
func (d numberedQueryDialect) QuoteColumn(name string) string { return name }

func (d numberedQueryDialect) TimeValue(t time.Time) interface{} { return t.UTC() }

// DefaultDialect is the query dialect used when none is explicitly set.
// It produces SQLite-compatible SQL.
var DefaultDialect QueryDialect = sqliteQueryDialect{}

// NumberedDialect produces PostgreSQL-style numbered placeholders.
var NumberedDialect QueryDialect = numberedQueryDialect{}
