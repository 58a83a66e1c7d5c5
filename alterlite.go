// Package alterlite evolves the shape of a SQLite table (its columns,
// foreign keys, unique constraints and indexes) beyond what the engine's
// ALTER TABLE statement supports directly.
//
// SQLite can add a column, rename a column and rename a table in place.
// Everything else (dropping or retyping a column, adding or removing a
// foreign key, changing which columns are unique) requires rebuilding the
// table from scratch. This package performs that reconstruction atomically
// while preserving every row and every constraint the batch did not
// explicitly change.
//
// # Quick start
//
//	db, err := alterlite.Open(ctx, "app.db", nil)
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	a := db.AlterTable("users")
//	a.AddColumn(alterlite.Column{Name: "age", Type: "INTEGER"})
//	a.DropColumn("legacy_flags")
//	a.AddForeignKey(alterlite.ForeignKey{
//		Column: "team_id", RefTable: "teams", RefColumn: "id",
//		OnDelete: alterlite.Cascade,
//	})
//	err = a.Execute(ctx)
//
// Operations accumulate on the Alterer and are consumed as one batch by
// Execute. Changes the engine supports natively run as standalone
// statements; everything else goes through the reconstruction path inside
// a single transaction scope.
//
// # Concurrency
//
// All callers share exactly one connection. Transaction bodies queue in
// first-arrived order and never interleave; transient busy/locked failures
// are retried with linear backoff. See DB.Transaction.
package alterlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tordrt/alterlite/internal/catalog"
	"github.com/tordrt/alterlite/internal/schema"
	"github.com/tordrt/alterlite/internal/sqlexec"
	"github.com/tordrt/alterlite/internal/txn"
)

// Options configures a database handle.
//
// All fields are optional; zero values select the defaults.
type Options struct {
	// Tries bounds how often a transaction body that failed with a
	// busy/locked error is re-run. Defaults to 5.
	Tries int

	// Backoff is the base retry delay; attempt n waits n times this.
	// Defaults to 20ms.
	Backoff time.Duration

	// BusyTimeout is the engine's connection-level wait before a
	// contended statement fails with a busy error. Defaults to 5s.
	BusyTimeout time.Duration
}

// DB is a handle over one SQLite database. It owns a single pinned
// connection; every mutating call is serialized through one FIFO queue.
type DB struct {
	conn  *sqlexec.Conn
	coord *txn.Coordinator
}

// Open opens the database file at path and pins its connection. opts may
// be nil for defaults.
func Open(ctx context.Context, path string, opts *Options) (*DB, error) {
	if opts == nil {
		opts = &Options{}
	}
	busyTimeout := opts.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = 5 * time.Second
	}

	conn, err := sqlexec.Open(ctx, path, busyTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &DB{
		conn:  conn,
		coord: txn.NewCoordinator(conn, opts.Tries, opts.Backoff),
	}, nil
}

// Close releases the connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// AlterTable starts a new operation batch against the named table.
func (db *DB) AlterTable(name string) *Alterer {
	return &Alterer{db: db, table: name}
}

// Transaction queues body behind every earlier top-level call and runs it
// inside a savepoint scope on the shared connection. No other body starts
// until this one has fully finished. On success the savepoint is
// released; on failure it is rolled back and the body's error returned.
// Bodies failing with a transient busy/locked error are re-run up to the
// configured attempt count with linear backoff.
func (db *DB) Transaction(ctx context.Context, body func(*Tx) error) error {
	return db.coord.Run(ctx, func(s *txn.Scope) error {
		return body(&Tx{db: db, scope: s})
	})
}

// Inspect returns the current description of a table: columns with
// reconciled uniqueness, foreign keys, and indexes. Returns an error
// wrapping ErrNoSuchTable if the table does not exist.
func (db *DB) Inspect(ctx context.Context, table string) (*Table, error) {
	var out *Table
	err := db.coord.Exclusive(ctx, func(s *txn.Scope) error {
		var err error
		out, err = catalog.NewIntrospector(s).Table(ctx, table)
		return err
	})
	return out, err
}

// Tables lists the user tables in the database.
func (db *DB) Tables(ctx context.Context) ([]string, error) {
	var out []string
	err := db.coord.Exclusive(ctx, func(s *txn.Scope) error {
		var err error
		out, err = catalog.NewIntrospector(s).TableNames(ctx)
		return err
	})
	return out, err
}

// Exec runs a single statement for effect, serialized behind any running
// transaction body.
func (db *DB) Exec(ctx context.Context, query string, args ...any) error {
	return db.coord.Exclusive(ctx, func(s *txn.Scope) error {
		return s.Exec(ctx, query, args...)
	})
}

// Query runs a statement and returns its rows. The statement is issued
// serialized behind any running transaction body; iterating the returned
// rows is not.
func (db *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	var rows *sql.Rows
	err := db.coord.Exclusive(ctx, func(s *txn.Scope) error {
		var err error
		rows, err = s.Query(ctx, query, args...)
		return err
	})
	return rows, err
}

// QueryRow runs a statement expected to return at most one row, serialized
// behind any running transaction body. Errors, including a cancelled
// context while queueing, are deferred to the row's Scan.
func (db *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	var row *sql.Row
	err := db.coord.Exclusive(ctx, func(s *txn.Scope) error {
		row = s.QueryRow(ctx, query, args...)
		return nil
	})
	if err != nil {
		// The turn was never acquired; ctx is done and Scan will report it.
		return db.conn.QueryRow(ctx, query, args...)
	}
	return row
}

// Tx is the view of the database inside a running transaction body. All
// statements issued through it are covered by the body's savepoint.
type Tx struct {
	db    *DB
	scope *txn.Scope
}

// Exec executes a statement for effect.
func (tx *Tx) Exec(ctx context.Context, query string, args ...any) error {
	return tx.scope.Exec(ctx, query, args...)
}

// Query executes a statement and returns all result rows. The rows must
// be closed before the body returns.
func (tx *Tx) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return tx.scope.Query(ctx, query, args...)
}

// QueryRow executes a statement expected to return at most one row.
func (tx *Tx) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return tx.scope.QueryRow(ctx, query, args...)
}

// Transaction runs body in a nested savepoint scope, inline on the turn
// this transaction already holds. A failed nested body rolls back alone;
// a successful one commits together with its parent.
func (tx *Tx) Transaction(ctx context.Context, body func(*Tx) error) error {
	return tx.scope.Run(ctx, func(s *txn.Scope) error {
		return body(&Tx{db: tx.db, scope: s})
	})
}

// AlterTable starts an operation batch that executes inside this
// transaction's scope. Note that the engine ignores the foreign_keys
// pragma while a transaction is open, so a reconstruction started here
// runs with enforcement still on; batches whose intermediate states
// violate a foreign key should run at the top level via DB.AlterTable.
func (tx *Tx) AlterTable(name string) *Alterer {
	return &Alterer{db: tx.db, scope: tx.scope, table: name}
}

// Inspect reads a table description inside this transaction.
func (tx *Tx) Inspect(ctx context.Context, table string) (*Table, error) {
	return catalog.NewIntrospector(tx.scope).Table(ctx, table)
}

// Descriptor types, re-exported so callers can build operation batches.
type (
	// Column describes one table column.
	Column = schema.Column
	// ForeignKey describes a single-column foreign key constraint.
	ForeignKey = schema.ForeignKey
	// Index describes a table index.
	Index = schema.Index
	// Table describes a table's columns, foreign keys and indexes.
	Table = schema.Table
	// DefaultValue is a typed column default.
	DefaultValue = schema.DefaultValue
	// DefaultKind discriminates a typed column default.
	DefaultKind = schema.DefaultKind
	// Action is a referential action on a foreign key.
	Action = schema.Action
)

// Default value kinds.
const (
	DefaultNone   = schema.DefaultNone
	DefaultNull   = schema.DefaultNull
	DefaultBool   = schema.DefaultBool
	DefaultNumber = schema.DefaultNumber
	DefaultText   = schema.DefaultText
	DefaultExpr   = schema.DefaultExpr
)

// Referential actions.
const (
	NoAction = schema.NoAction
	Restrict = schema.Restrict
	SetNull  = schema.SetNull
	Cascade  = schema.Cascade
)

// Null returns an explicit DEFAULT NULL.
func Null() DefaultValue { return schema.Null() }

// BoolDefault returns a boolean column default.
func BoolDefault(v bool) DefaultValue { return schema.BoolDefault(v) }

// NumberDefault returns a numeric column default.
func NumberDefault(v float64) DefaultValue { return schema.NumberDefault(v) }

// TextDefault returns a string column default.
func TextDefault(v string) DefaultValue { return schema.TextDefault(v) }
