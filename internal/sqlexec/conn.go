// Package sqlexec provides the statement-execution layer: exactly one
// database connection, pinned for the life of the handle, with the three
// primitives the rest of the module is built on (execute for effect,
// query all rows, query one row).
package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Conn is a single pinned SQLite connection. Callers are responsible for
// serializing access to it; see the txn package.
type Conn struct {
	db   *sql.DB
	conn *sql.Conn
}

// Open opens the database file and pins one connection. busyTimeout is
// applied at the connection level so contended statements wait instead of
// failing immediately.
func Open(ctx context.Context, path string, busyTimeout time.Duration) (*Conn, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=1", path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Conn{db: db, conn: conn}, nil
}

// Exec executes a statement for effect.
func (c *Conn) Exec(ctx context.Context, query string, args ...any) error {
	if _, err := c.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to execute %q: %w", query, err)
	}
	return nil
}

// Query executes a statement and returns all result rows.
func (c *Conn) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.conn.QueryContext(ctx, query, args...)
}

// QueryRow executes a statement expected to return at most one row.
func (c *Conn) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.conn.QueryRowContext(ctx, query, args...)
}

// Close releases the pinned connection and closes the database.
func (c *Conn) Close() error {
	connErr := c.conn.Close()
	if err := c.db.Close(); err != nil {
		return err
	}
	return connErr
}
