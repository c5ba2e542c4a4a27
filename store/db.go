// Package store is the relational adapter: it executes parameterized
// statements against the structured store through bun, maps rows to the model
// types, meters per-call latency, and owns the connection pool. The
// Coordinator in this package runs multi-statement composite operations in a
// single transaction.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/hospitalworks/go-clinic-core/fault"
)

// OpenPostgres opens a pooled connection to the production relational store.
// The pool is owned by the returned bun.DB; connections are checked out per
// statement and never held across unrelated calls.
func OpenPostgres(ctx context.Context, dsn string, maxOpen, maxIdle int, log zerolog.Logger) (*bun.DB, error) {
	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fault.New(fault.KindConnection, "open", "postgres", err)
	}
	sqldb.SetMaxOpenConns(maxOpen)
	sqldb.SetMaxIdleConns(maxIdle)
	sqldb.SetConnMaxIdleTime(5 * time.Minute)

	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fault.New(fault.KindConnection, "ping", "postgres", err)
	}

	log.Debug().Int("max_open", maxOpen).Int("max_idle", maxIdle).Msg("relational store connected")
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// OpenSQLite opens a SQLite-backed store. Used by tests and the demo; the
// adapter behaves identically against either dialect.
func OpenSQLite(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fault.New(fault.KindConnection, "open", "sqlite", err)
	}
	// SQLite serializes writers; a single connection avoids table-lock errors
	// from concurrent statements in tests.
	sqldb.SetMaxOpenConns(1)
	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}
