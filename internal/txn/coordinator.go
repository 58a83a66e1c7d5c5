// Package txn serializes every mutating call on the single shared
// connection through one FIFO turn queue, wraps bodies in savepoints, and
// retries transiently-contended work with linear backoff.
package txn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/tordrt/alterlite/internal/sqlexec"
)

// ErrRetriesExhausted is returned when every attempt was spent without a
// more specific failure to report.
var ErrRetriesExhausted = errors.New("transaction retries exhausted")

const (
	// DefaultTries bounds how often a busy body is re-run.
	DefaultTries = 5
	// DefaultBackoff is the base delay; attempt n waits n times this.
	DefaultBackoff = 20 * time.Millisecond
)

// Coordinator owns the connection's turn queue. Exactly one body runs at a
// time, in arrival order; nested bodies run inline on the holder's turn.
type Coordinator struct {
	conn    *sqlexec.Conn
	turn    chan struct{}
	tries   int
	backoff time.Duration
	seq     atomic.Uint64
}

// NewCoordinator creates a coordinator for one connection. Non-positive
// tries or backoff fall back to the defaults.
func NewCoordinator(conn *sqlexec.Conn, tries int, backoff time.Duration) *Coordinator {
	if tries <= 0 {
		tries = DefaultTries
	}
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Coordinator{
		conn:    conn,
		turn:    make(chan struct{}, 1),
		tries:   tries,
		backoff: backoff,
	}
}

// Run executes body inside its own savepoint scope: queue for the turn,
// start a savepoint, run, then release on success or roll back to the
// savepoint on failure. Busy or locked failures are retried with a fresh
// savepoint up to the configured attempt count.
func (c *Coordinator) Run(ctx context.Context, body func(*Scope) error) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()
	return c.runHeld(ctx, false, body)
}

// Exclusive runs body while holding the turn, without a savepoint. Used
// for standalone statements and for work that must bracket a transaction
// with connection-level state changes.
func (c *Coordinator) Exclusive(ctx context.Context, body func(*Scope) error) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()
	return body(&Scope{coord: c})
}

func (c *Coordinator) acquire(ctx context.Context) error {
	select {
	case c.turn <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) release() {
	<-c.turn
}

// runHeld is the retry loop around attempt. The caller already holds the
// turn. nested marks bodies started from inside another running body.
func (c *Coordinator) runHeld(ctx context.Context, nested bool, body func(*Scope) error) error {
	var lastErr error
	for attempt := 1; attempt <= c.tries; attempt++ {
		err := c.attempt(ctx, nested, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsBusy(err) {
			return err
		}
		if attempt < c.tries {
			select {
			case <-time.After(time.Duration(attempt) * c.backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if lastErr != nil {
		return lastErr
	}
	return ErrRetriesExhausted
}

// attempt runs body once under a freshly named savepoint. A nested scope
// leaves its savepoint open on success; the parent's release subsumes it.
// Cleanup failures after a body error are discarded so the body's error is
// what the caller sees.
func (c *Coordinator) attempt(ctx context.Context, nested bool, body func(*Scope) error) error {
	name := fmt.Sprintf("alterlite_sp_%d", c.seq.Add(1))
	quoted := `"` + name + `"`

	if err := c.conn.Exec(ctx, "SAVEPOINT "+quoted); err != nil {
		return err
	}

	scope := &Scope{coord: c, inTxn: true, nested: nested}
	if err := body(scope); err != nil {
		_ = c.conn.Exec(ctx, "ROLLBACK TO SAVEPOINT "+quoted)
		_ = c.conn.Exec(ctx, "RELEASE SAVEPOINT "+quoted)
		return err
	}

	if nested {
		return nil
	}
	if err := c.conn.Exec(ctx, "RELEASE SAVEPOINT "+quoted); err != nil {
		_ = c.conn.Exec(ctx, "ROLLBACK TO SAVEPOINT "+quoted)
		_ = c.conn.Exec(ctx, "RELEASE SAVEPOINT "+quoted)
		return err
	}
	return nil
}

// IsBusy classifies transient contention failures. The driver's structured
// result codes are checked first; the substring match is a fallback for
// errors that arrive already flattened to text.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "resource busy")
}

// IsConstraint reports whether err is a constraint violation. These are
// surfaced verbatim and never retried.
func IsConstraint(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}
