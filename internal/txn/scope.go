package txn

import (
	"context"
	"database/sql"
)

// Scope is the view of the connection handed to a running body. Every
// scope shares the one connection; a scope created inside a transaction
// carries the nested marker and defers commit and release to its parent.
type Scope struct {
	coord  *Coordinator
	inTxn  bool
	nested bool
}

// Nested reports whether this scope runs inside an enclosing transaction.
func (s *Scope) Nested() bool {
	return s.nested
}

// Exec executes a statement for effect on the shared connection.
func (s *Scope) Exec(ctx context.Context, query string, args ...any) error {
	return s.coord.conn.Exec(ctx, query, args...)
}

// Query executes a statement returning all rows.
func (s *Scope) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.coord.conn.Query(ctx, query, args...)
}

// QueryRow executes a statement returning at most one row.
func (s *Scope) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.coord.conn.QueryRow(ctx, query, args...)
}

// Run starts a savepoint scope inline on the caller's turn. Bodies begun
// from inside a transaction become nested scopes; bodies begun from an
// Exclusive scope own their savepoint and commit it themselves. The queue
// is not consulted again: the caller already holds the turn.
func (s *Scope) Run(ctx context.Context, body func(*Scope) error) error {
	return s.coord.runHeld(ctx, s.inTxn, body)
}
