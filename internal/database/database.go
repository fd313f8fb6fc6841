package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// sqlStore implements Store on top of database/sql. The SQLite and PostgreSQL
// stores differ only in their Dialect and in how they are opened.
type sqlStore struct {
	conn    *sql.DB
	dialect Dialect
}

// SQLiteStore manages all SQLite operations for a waveform database.
// It implements the Store interface.
type SQLiteStore struct {
	sqlStore
	path string
}

// OpenSQLite opens an existing waveform SQLite database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	d := &SQLiteDialect{}

	conn, err := sql.Open(d.DriverName(), d.DSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Verify the connection works
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &SQLiteStore{sqlStore: sqlStore{conn: conn, dialect: d}, path: path}, nil
}

// CreateSQLite creates the waveform schema in the SQLite database at path,
// creating the file if needed. Existing tables are left untouched.
func CreateSQLite(path string) (*SQLiteStore, error) {
	d := &SQLiteDialect{}

	conn, err := sql.Open(d.DriverName(), d.DSN(path))
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	db := &SQLiteStore{sqlStore: sqlStore{conn: conn, dialect: d}, path: path}

	if err := db.createSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return db, nil
}

// Path returns the file path of the database.
func (db *SQLiteStore) Path() string {
	return db.path
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Conn returns the underlying *sql.DB connection for advanced query usage.
func (s *sqlStore) Conn() *sql.DB {
	return s.conn
}

// Dialect returns the SQL dialect of the store.
func (s *sqlStore) Dialect() Dialect {
	return s.dialect
}

// createSchema builds all tables and indexes for a new database.
func (s *sqlStore) createSchema() error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	tables := []struct {
		name string
		ddl  string
	}{
		{"event", s.dialect.CreateEventTableSQL()},
		{"capture", s.dialect.CreateCaptureTableSQL()},
		{"capture_wf", s.dialect.CreateCaptureWaveformTableSQL()},
		{"capture_meta", s.dialect.CreateCaptureMetaTableSQL()},
		{"label", s.dialect.CreateLabelTableSQL()},
		{"series", s.dialect.CreateSeriesTableSQL()},
	}
	for _, t := range tables {
		if _, err := tx.Exec(t.ddl); err != nil {
			return fmt.Errorf("creating %s table: %w", t.name, err)
		}
	}

	for _, idx := range DefaultIndexes {
		table, column := idx[0], idx[1]
		name := table + "_" + column + "_idx"
		if _, err := tx.Exec(s.dialect.CreateIndexSQL(name, table, column)); err != nil {
			return fmt.Errorf("creating index on %s.%s: %w", table, column, err)
		}
	}

	return tx.Commit()
}
