// Package postgres contains the PostgreSQL implementation of repository.Storage.
package postgres

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/and161185/memoriz/internal/errs"
)

// PgxPool is a minimal abstraction over a Postgres connection pool,
// used by repositories. It is implemented by *pgxpool.Pool and pgxmock.PgxPoolIface.
type PgxPool interface {
	// Exec executes a SQL command and returns the command tag.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	// Query executes a SELECT (or a statement with RETURNING) and returns a rows iterator.
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	// Ping acquires a connection and checks the server is alive.
	Ping(ctx context.Context) error
	// Close shuts down the pool and frees resources.
	Close()
}

// DB wraps pgxpool.Pool to satisfy repository constructors and allow testing.
type DB struct{ Pool PgxPool }

// Config holds connection settings for the relational store.
type Config struct {
	Database string
	Host     string
	Port     uint16
	User     string
	Password string
	// MaxConns bounds concurrent in-flight statements; 0 keeps the pgxpool default.
	MaxConns int32
	// Schema holding the entry and board tables; empty means DefaultSchema.
	Schema string
}

// DefaultSchema is where schema.sql creates the tables.
const DefaultSchema = "memoriz"

// New creates a new connection pool from cfg. Connections are not validated before
// reuse; a broken connection surfaces as an error on the statement that hits it.
func New(ctx context.Context, cfg Config) (*DB, error) {
	pc, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}
	return &DB{Pool: pool}, nil
}

// poolConfig translates cfg. Queries use unqualified table names, so every
// connection pins search_path to the configured schema.
func poolConfig(cfg Config) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig("")
	if err != nil {
		return nil, err
	}
	pc.ConnConfig.Database = cfg.Database
	pc.ConnConfig.Host = cfg.Host
	pc.ConnConfig.Port = cfg.Port
	pc.ConnConfig.User = cfg.User
	pc.ConnConfig.Password = cfg.Password
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}

	schema := cfg.Schema
	if schema == "" {
		schema = DefaultSchema
	}
	if pc.ConnConfig.RuntimeParams == nil {
		pc.ConnConfig.RuntimeParams = map[string]string{}
	}
	pc.ConnConfig.RuntimeParams["search_path"] = pgx.Identifier{schema}.Sanitize()
	return pc, nil
}

// Close closes the underlying pool.
func (db *DB) Close() { db.Pool.Close() }

// pgCode returns the SQLSTATE of a server error, or "".
func pgCode(err error) string {
	var pg *pgconn.PgError
	if errors.As(err, &pg) {
		return pg.Code
	}
	return ""
}

// isConstraintViolation reports whether the error belongs to SQLSTATE class 23
// (integrity constraint violation).
func isConstraintViolation(err error) bool {
	code := pgCode(err)
	return len(code) == 5 && code[:2] == "23"
}

// classify maps a driver error onto the storage failure taxonomy. fallback is used
// for errors that are neither server-side nor connection-level.
func classify(op string, err error, fallback error) error {
	if err == nil {
		return nil
	}
	var (
		connErr *pgconn.ConnectError
		netErr  net.Error
		scanErr pgx.ScanArgError
	)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errs.Wrap(op, errs.ErrNotFound, err)
	case isConstraintViolation(err):
		return errs.Wrap(op, errs.ErrCreationImpossible, err)
	case pgCode(err) != "":
		return errs.Wrap(op, errs.ErrBackend, err)
	case errors.As(err, &connErr), errors.As(err, &netErr),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errs.Wrap(op, errs.ErrIO, err)
	case errors.As(err, &scanErr):
		return errs.Wrap(op, errs.ErrSerialization, err)
	default:
		return errs.Wrap(op, fallback, err)
	}
}
