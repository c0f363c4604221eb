package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// DB bundles a connection pool with the statement builder for its dialect.
type DB struct {
	conn    *sql.DB
	driver  string
	builder sq.StatementBuilderType
}

// Open connects to driver/dsn and verifies the connection.
func Open(ctx context.Context, driver, dsn string, maxOpenConns int) (*DB, error) {
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// one writer at a time; also keeps :memory: databases on a single connection
		conn.SetMaxOpenConns(1)
	} else if maxOpenConns > 0 {
		conn.SetMaxOpenConns(maxOpenConns)
	}

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return New(conn, driver)
}

// New wraps an existing pool.
func New(conn *sql.DB, driver string) (*DB, error) {
	var format sq.PlaceholderFormat
	switch driver {
	case DriverPostgres:
		format = sq.Dollar
	case DriverSQLite:
		format = sq.Question
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	return &DB{
		conn:    conn,
		driver:  driver,
		builder: sq.StatementBuilder.PlaceholderFormat(format),
	}, nil
}

// Migrate applies the embedded schema; every statement is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	raw, err := schemaFS.ReadFile("schema/" + db.driver + ".sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	if _, err := db.conn.ExecContext(ctx, string(raw)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the pool for health checks.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func rollback(tx *sql.Tx) {
	_ = tx.Rollback()
}
