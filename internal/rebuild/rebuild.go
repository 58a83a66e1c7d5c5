// Package rebuild replaces a table with a newly created one carrying the
// same rows under a different physical definition. This is how every
// change the engine's ALTER TABLE cannot express directly is realized:
// dropping or retyping columns, and adding or removing foreign keys.
package rebuild

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/tordrt/alterlite/internal/catalog"
	"github.com/tordrt/alterlite/internal/plan"
	"github.com/tordrt/alterlite/internal/schema"
	"github.com/tordrt/alterlite/internal/txn"
)

const tempInfix = "__alterlite_tmp_"

var tempSeq atomic.Uint64

func tempName(table string) string {
	return fmt.Sprintf("%s%s%d", table, tempInfix, tempSeq.Add(1))
}

// realTableName strips a transient shadow-table suffix from a table
// reference so it points at the real table again. Self-referencing foreign
// keys recorded while the table was renamed carry such suffixes.
func realTableName(ref string) string {
	if at := strings.Index(ref, tempInfix); at >= 0 {
		return ref[:at]
	}
	return ref
}

// rewriteTempRefs replaces stale shadow-table names for table embedded in
// a stored statement with the real table name.
func rewriteTempRefs(stmt, table string) string {
	for {
		at := strings.Index(stmt, table+tempInfix)
		if at < 0 {
			return stmt
		}
		end := at + len(table) + len(tempInfix)
		for end < len(stmt) && stmt[end] >= '0' && stmt[end] <= '9' {
			end++
		}
		stmt = stmt[:at+len(table)] + stmt[end:]
	}
}

// retainedColumn maps a surviving column back to its pre-rebuild name so
// the row copy can select it from the shadow table.
type retainedColumn struct {
	src string
	col schema.Column
}

// Run reconstructs table according to the accumulated batch: snapshot the
// current shape, compute the target shape, then rename / create / copy /
// drop so that the table comes back under its own name with the requested
// changes applied and every previously-held constraint preserved unless
// the batch explicitly changed it.
//
// scope must hold the connection's turn. If it is not already inside a
// transaction, one is begun for the duration; on any failure the owning
// scope rolls back, referential-integrity enforcement is restored, and the
// original error is returned.
func Run(ctx context.Context, scope *txn.Scope, table string, ops []plan.Op) error {
	in := catalog.NewIntrospector(scope)

	// Snapshot first. Column uniqueness arrives already reconciled.
	cur, err := in.Table(ctx, table)
	if err != nil {
		return err
	}

	dropped := make(map[string]bool)
	transforms := make(map[string]func(schema.Column) schema.Column)
	removedFKs := make(map[string]bool)
	var added []schema.Column
	var addedFKs []schema.ForeignKey

	for _, op := range ops {
		switch v := op.(type) {
		case plan.DropColumn:
			dropped[v.Name] = true
		case plan.AlterColumn:
			transforms[v.Name] = v.Transform
		case plan.AddColumn:
			added = append(added, v.Column)
		case plan.AddForeignKey:
			addedFKs = append(addedFKs, v.FK)
		case plan.DropForeignKey:
			removedFKs[v.Column] = true
		default:
			return fmt.Errorf("operation %T cannot be applied by reconstruction", op)
		}
	}

	// Target columns: drops first, then per-column transforms, then
	// appended additions.
	var retained []retainedColumn
	var target []schema.Column
	for _, col := range cur.Columns {
		if dropped[col.Name] {
			continue
		}
		out := col
		if tr := transforms[col.Name]; tr != nil {
			out = tr(col)
		}
		retained = append(retained, retainedColumn{src: col.Name, col: out})
		target = append(target, out)
	}
	target = append(target, added...)

	// Target foreign keys.
	var fks []schema.ForeignKey
	for _, fk := range cur.ForeignKeys {
		if dropped[fk.Column] || removedFKs[fk.Column] {
			continue
		}
		fk.RefTable = realTableName(fk.RefTable)
		fks = append(fks, fk)
	}
	for _, fk := range addedFKs {
		fk.RefTable = realTableName(fk.RefTable)
		fks = append(fks, fk)
	}

	// A foreign key added on a column the batch never declared implies
	// the column: append it with integer affinity so the constraint has
	// something to bind to.
	for _, fk := range addedFKs {
		exists := false
		for _, col := range target {
			if col.Name == fk.Column {
				exists = true
				break
			}
		}
		if !exists {
			target = append(target, schema.Column{Name: fk.Column, Type: "INTEGER"})
		}
	}

	for _, fk := range fks {
		if fk.RefTable == table {
			continue
		}
		ok, err := in.Exists(ctx, fk.RefTable)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("foreign key on %q references table %q: %w",
				fk.Column, fk.RefTable, catalog.ErrNoSuchTable)
		}
	}

	next := &schema.Table{Name: table, Columns: target, ForeignKeys: fks}
	if err := next.Validate(); err != nil {
		return err
	}

	indexStmts := preservedIndexStatements(cur, table, dropped)

	// Enforcement off for the whole reconstruction. The statement only
	// takes effect outside a transaction, which is why it brackets the
	// scope instead of living inside it.
	if err := scope.Exec(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return err
	}

	// Legacy rename semantics for the shadow hops. The modern rename
	// rewrites foreign key references held by other tables to the shadow
	// name, which would outlive the shadow; legacy mode leaves every
	// outside reference alone, and the table comes back under its own
	// name before anyone looks.
	if err := scope.Exec(ctx, "PRAGMA legacy_alter_table = ON"); err != nil {
		_ = scope.Exec(ctx, "PRAGMA foreign_keys = ON")
		return err
	}

	// The scope owns commit and rollback. A scope that is already inside
	// a caller's transaction nests and leaves the final commit to that
	// caller.
	runErr := scope.Run(ctx, func(tx *txn.Scope) error {
		return rebuildSteps(ctx, tx, table, next, retained, indexStmts)
	})

	// Always restore connection state, but never let a restore error mask
	// the reconstruction's own failure.
	if err := scope.Exec(ctx, "PRAGMA legacy_alter_table = OFF"); err != nil && runErr == nil {
		runErr = err
	}
	if err := scope.Exec(ctx, "PRAGMA foreign_keys = ON"); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func rebuildSteps(ctx context.Context, tx *txn.Scope, table string, next *schema.Table, retained []retainedColumn, indexStmts []string) error {
	// Move the live table out of the way.
	shadowA := tempName(table)
	if err := tx.Exec(ctx, renameSQL(table, shadowA)); err != nil {
		return err
	}

	// Recreate under the original name with columns only. Foreign keys
	// come later so self-references cannot point at a half-built table.
	bare := &schema.Table{Name: table, Columns: next.Columns}
	if err := tx.Exec(ctx, bare.CreateSQL()); err != nil {
		return err
	}

	// Copy retained rows; added columns fall back to their declared
	// default or null.
	if err := copyRows(ctx, tx, shadowA, table, retained); err != nil {
		return err
	}

	// Dropping the shadow also drops the indexes still bound to it.
	if err := tx.Exec(ctx, "DROP TABLE "+schema.QuoteIdent(shadowA)); err != nil {
		return err
	}

	if len(next.ForeignKeys) == 0 {
		// Without foreign keys the order of index recreation and data
		// copy does not matter.
		for _, stmt := range indexStmts {
			if err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}

	// Second hop to attach the foreign keys. Indexes must exist before
	// the copy so self-referencing keys validate as rows insert.
	shadowB := tempName(table)
	if err := tx.Exec(ctx, renameSQL(table, shadowB)); err != nil {
		return err
	}
	if err := tx.Exec(ctx, next.CreateSQL()); err != nil {
		return err
	}
	for _, stmt := range indexStmts {
		if err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	identity := make([]retainedColumn, len(next.Columns))
	for i, col := range next.Columns {
		identity[i] = retainedColumn{src: col.Name, col: col}
	}
	if err := copyRows(ctx, tx, shadowB, table, identity); err != nil {
		return err
	}
	return tx.Exec(ctx, "DROP TABLE "+schema.QuoteIdent(shadowB))
}

// preservedIndexStatements collects the CREATE INDEX statements to replay
// against the rebuilt table. Indexes touching a dropped column vanish with
// it. Stored statement text is replayed with stale shadow-table references
// rewritten; composite unique auto-indexes have no stored text and are
// re-emitted as named unique indexes. Single-column unique auto-indexes
// need nothing here: the resolver already folded them into the column
// definition.
func preservedIndexStatements(cur *schema.Table, table string, dropped map[string]bool) []string {
	var stmts []string
	for _, ix := range cur.Indexes {
		touches := false
		for _, col := range ix.Columns {
			if dropped[col] {
				touches = true
				break
			}
		}
		if touches {
			continue
		}
		switch {
		case ix.SQL != "":
			stmts = append(stmts, rewriteTempRefs(ix.SQL, table))
		case ix.Unique && len(ix.Columns) > 1:
			named := schema.Index{
				Name:    plan.UniqueIndexName(table, ix.Columns),
				Columns: ix.Columns,
				Unique:  true,
			}
			stmts = append(stmts, named.CreateSQL(table))
		}
	}
	return stmts
}

func renameSQL(from, to string) string {
	return "ALTER TABLE " + schema.QuoteIdent(from) + " RENAME TO " + schema.QuoteIdent(to)
}

func copyRows(ctx context.Context, tx *txn.Scope, from, to string, cols []retainedColumn) error {
	if len(cols) == 0 {
		return nil
	}
	src := make([]string, len(cols))
	dst := make([]string, len(cols))
	for i, rc := range cols {
		src[i] = schema.QuoteIdent(rc.src)
		dst[i] = schema.QuoteIdent(rc.col.Name)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
		schema.QuoteIdent(to), strings.Join(dst, ", "),
		strings.Join(src, ", "), schema.QuoteIdent(from))
	return tx.Exec(ctx, stmt)
}
