package database

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore manages all PostgreSQL operations for a waveform database.
// It implements the Store interface.
type PostgresStore struct {
	sqlStore
	connStr string
}

// OpenPostgres opens an existing waveform PostgreSQL database.
func OpenPostgres(connStr string) (*PostgresStore, error) {
	d := &PostgresDialect{}

	conn, err := sql.Open(d.DriverName(), d.DSN(connStr))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &PostgresStore{sqlStore: sqlStore{conn: conn, dialect: d}, connStr: connStr}, nil
}

// CreatePostgres creates the waveform schema on a PostgreSQL database.
// The database itself must already exist; this creates the tables and indexes.
func CreatePostgres(connStr string) (*PostgresStore, error) {
	d := &PostgresDialect{}

	conn, err := sql.Open(d.DriverName(), d.DSN(connStr))
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	db := &PostgresStore{sqlStore: sqlStore{conn: conn, dialect: d}, connStr: connStr}

	if err := db.createSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return db, nil
}

// Path returns the connection string used to connect to the database.
func (db *PostgresStore) Path() string {
	return db.connStr
}
