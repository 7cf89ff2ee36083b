// Package database wraps the database implementation used for Boardfolio.
//
// Postgres is reached through the pgx database/sql driver. A local sqlite3
// file can be used instead for development, and in-memory sqlite3 databases
// back the tests.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

// Config describes how to reach the database.
type Config struct {
	Driver   string
	Host     string
	Port     string
	Name     string
	Username string
	Password string
	// Path is the sqlite3 file, or ":memory:".
	Path string
}

// DSN returns the data source name for the configured driver.
func (cfg Config) DSN() string {
	if cfg.Driver == DriverSQLite {
		return cfg.Path + "?_foreign_keys=1&_busy_timeout=5000"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)
}

type Conn struct {
	db     *sql.DB
	driver string
}

type Row interface {
	Scan(dest ...any) error
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

var ErrNoRows = sql.ErrNoRows

// Connect opens and pings the configured database.
//
// sqlite3 databases get their schema created on connect, Postgres databases
// are set up with cmd/migrate.
func Connect(ctx context.Context, cfg Config) (*Conn, error) {
	if cfg.Driver != DriverPostgres && cfg.Driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver: %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN())

	if err != nil {
		return nil, err
	}

	if cfg.Driver == DriverSQLite {
		// One connection serialises writers and keeps :memory: databases alive.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()

		return nil, err
	}

	conn := &Conn{db: db, driver: cfg.Driver}

	if cfg.Driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
			db.Close()

			return nil, fmt.Errorf("create sqlite schema: %w", err)
		}
	}

	return conn, nil
}

// Close closes a database connection.
func (conn *Conn) Close() error {
	return conn.db.Close()
}

// Driver returns the name of the driver in use.
func (conn *Conn) Driver() string {
	return conn.driver
}

// Exec executes a database query, returning the number of rows affected.
func (conn *Conn) Exec(ctx context.Context, sql string, arguments ...any) (int64, error) {
	return execute(ctx, conn.db, sql, arguments...)
}

// Query executes a database query.
func (conn *Conn) Query(ctx context.Context, sql string, arguments ...any) (Rows, error) {
	return conn.db.QueryContext(ctx, sql, arguments...)
}

// QueryRow executes a database query returning Row data.
func (conn *Conn) QueryRow(ctx context.Context, sql string, arguments ...any) Row {
	return conn.db.QueryRowContext(ctx, sql, arguments...)
}

// WithTx runs fn inside a transaction, committing if fn returns nil.
func (conn *Conn) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := conn.db.BeginTx(ctx, nil)

	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer sqlTx.Rollback()

	if err := fn(&Tx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Tx is a database transaction with the same query methods as Conn.
type Tx struct {
	tx *sql.Tx
}

func (tx *Tx) Exec(ctx context.Context, sql string, arguments ...any) (int64, error) {
	return execute(ctx, tx.tx, sql, arguments...)
}

func (tx *Tx) Query(ctx context.Context, sql string, arguments ...any) (Rows, error) {
	return tx.tx.QueryContext(ctx, sql, arguments...)
}

func (tx *Tx) QueryRow(ctx context.Context, sql string, arguments ...any) Row {
	return tx.tx.QueryRowContext(ctx, sql, arguments...)
}

// Queryable defines an interface for a connection or a transaction.
type Queryable interface {
	Exec(ctx context.Context, sql string, arguments ...any) (int64, error)
	Query(ctx context.Context, sql string, arguments ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, arguments ...any) Row
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execute(ctx context.Context, db executor, sql string, arguments ...any) (int64, error) {
	result, err := db.ExecContext(ctx, sql, arguments...)

	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// IsUniqueViolation reports whether err came from a unique constraint.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var sqliteErr sqlite3.Error

	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	return false
}
