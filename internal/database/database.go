// Package database provides database connectivity for the webhook store.
// PostgreSQL is the production backend; SQLite backs local development and
// tests.
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Driver identifies a supported database backend.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// IsValid reports whether the driver is supported.
func (d Driver) IsValid() bool {
	return d == DriverPostgres || d == DriverSQLite
}

// Config holds database connection configuration.
type Config struct {
	Driver Driver

	// DSN is the full connection string. For sqlite this is the database
	// file path, or ":memory:".
	DSN string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver:          DriverPostgres,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// Connect opens a database handle and configures the connection pool.
func Connect(cfg Config) (*sql.DB, error) {
	if !cfg.Driver.IsValid() {
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(string(cfg.Driver), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite handles one writer; a larger pool just causes lock errors,
		// and each in-memory connection is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return db, nil
}

// Ping verifies the database connection is alive.
func Ping(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}
	return nil
}
