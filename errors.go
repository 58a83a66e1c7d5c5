package alterlite

import (
	"github.com/tordrt/alterlite/internal/catalog"
	"github.com/tordrt/alterlite/internal/txn"
)

// Sentinel errors. Engine constraint violations (unique, foreign key,
// not-null, check) are never intercepted or translated; they surface
// verbatim from the driver and can be classified with IsConstraint.
var (
	// ErrNoSuchTable reports a schema mismatch: a named table, or a
	// table referenced by a requested foreign key, does not exist. The
	// whole batch is aborted.
	ErrNoSuchTable = catalog.ErrNoSuchTable

	// ErrRetriesExhausted is returned by a transaction whose attempts
	// were spent without a more specific failure to report.
	ErrRetriesExhausted = txn.ErrRetriesExhausted
)

// IsBusy reports whether err is a transient busy/locked contention error,
// the class the transaction coordinator retries.
func IsBusy(err error) bool { return txn.IsBusy(err) }

// IsConstraint reports whether err is an engine constraint violation.
func IsConstraint(err error) bool { return txn.IsConstraint(err) }

// IsNoSuchTable reports whether err indicates a missing table.
func IsNoSuchTable(err error) bool { return catalog.IsNoSuchTable(err) }
