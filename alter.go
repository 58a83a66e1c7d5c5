package alterlite

import (
	"context"
	"fmt"

	"github.com/tordrt/alterlite/internal/catalog"
	"github.com/tordrt/alterlite/internal/plan"
	"github.com/tordrt/alterlite/internal/rebuild"
	"github.com/tordrt/alterlite/internal/schema"
	"github.com/tordrt/alterlite/internal/txn"
)

// Alterer accumulates schema operations against one table. Methods only
// record the request; nothing touches the database until Execute consumes
// the whole batch atomically.
type Alterer struct {
	db    *DB
	scope *txn.Scope // non-nil when the batch runs inside a caller's transaction
	table string
	ops   []plan.Op
}

// AddColumn appends a new column. Applied as a direct statement.
func (a *Alterer) AddColumn(col Column) *Alterer {
	a.ops = append(a.ops, plan.AddColumn{Column: col})
	return a
}

// DropColumn removes a column. Forces a reconstruction; indexes and
// foreign keys referencing the column vanish with it.
func (a *Alterer) DropColumn(name string) *Alterer {
	a.ops = append(a.ops, plan.DropColumn{Name: name})
	return a
}

// RenameColumn renames a column in place. Applied as a direct statement.
func (a *Alterer) RenameColumn(from, to string) *Alterer {
	a.ops = append(a.ops, plan.RenameColumn{From: from, To: to})
	return a
}

// AlterColumn rewrites a column through transform, which receives the
// current descriptor and returns the replacement. Used for retyping,
// changing nullability or changing the default. Forces a reconstruction.
func (a *Alterer) AlterColumn(name string, transform func(Column) Column) *Alterer {
	a.ops = append(a.ops, plan.AlterColumn{Name: name, Transform: transform})
	return a
}

// AddForeignKey attaches a foreign key constraint. Forces a
// reconstruction.
func (a *Alterer) AddForeignKey(fk ForeignKey) *Alterer {
	a.ops = append(a.ops, plan.AddForeignKey{FK: fk})
	return a
}

// DropForeignKey removes the foreign key declared on the given source
// column. Forces a reconstruction.
func (a *Alterer) DropForeignKey(column string) *Alterer {
	a.ops = append(a.ops, plan.DropForeignKey{Column: column})
	return a
}

// AddIndex creates an index. Applied as a direct statement. An empty name
// is filled in from the table and column names.
func (a *Alterer) AddIndex(ix Index) *Alterer {
	a.ops = append(a.ops, plan.AddIndex{Index: ix})
	return a
}

// DropIndex drops an index by name. Applied as a direct statement.
func (a *Alterer) DropIndex(name string) *Alterer {
	a.ops = append(a.ops, plan.DropIndex{Name: name})
	return a
}

// MakeColumnsUnique declares (unique = true) or removes (unique = false)
// a uniqueness requirement over a column combination. Within one
// unexecuted batch, only the last call for a given combination takes
// effect; indexes persisted by previously executed batches are dropped by
// a unique = false call but are never retroactively affected by a
// unique = true call.
func (a *Alterer) MakeColumnsUnique(columns []string, unique bool) *Alterer {
	a.ops = append(a.ops, plan.SetUnique{Columns: columns, Unique: unique})
	return a
}

// Execute consumes the accumulated batch. Batches containing only direct
// operations run them immediately, in order, as standalone statements.
// A batch containing any reconstruction-required operation first rebuilds
// the table inside one transaction scope and then applies the direct
// operations against the updated schema. Either way the Alterer is empty
// afterwards and can be reused.
func (a *Alterer) Execute(ctx context.Context) error {
	p := plan.Build(a.table, a.ops)
	a.ops = nil

	if p.Empty() {
		return nil
	}

	apply := func(s *txn.Scope) error {
		if p.NeedsRebuild() {
			if err := rebuild.Run(ctx, s, a.table, p.Rebuild); err != nil {
				return err
			}
		}
		return applyDirect(ctx, s, a.table, p.Direct)
	}

	if a.scope != nil {
		return apply(a.scope)
	}
	return a.db.coord.Exclusive(ctx, apply)
}

// applyDirect issues the direct operations in the order they were
// requested.
func applyDirect(ctx context.Context, s *txn.Scope, table string, ops []plan.Op) error {
	for _, op := range ops {
		var err error
		switch v := op.(type) {
		case plan.AddColumn:
			err = s.Exec(ctx, "ALTER TABLE "+schema.QuoteIdent(table)+" ADD COLUMN "+v.Column.Definition())
		case plan.RenameColumn:
			err = s.Exec(ctx, "ALTER TABLE "+schema.QuoteIdent(table)+
				" RENAME COLUMN "+schema.QuoteIdent(v.From)+" TO "+schema.QuoteIdent(v.To))
		case plan.AddIndex:
			ix := v.Index
			if ix.Name == "" {
				ix.Name = indexName(table, ix)
			}
			err = s.Exec(ctx, ix.CreateSQL(table))
		case plan.DropIndex:
			err = s.Exec(ctx, "DROP INDEX "+schema.QuoteIdent(v.Name))
		case plan.DropUniqueIndexOn:
			err = dropMatchingUnique(ctx, s, table, v.Columns)
		default:
			err = fmt.Errorf("operation %T is not a direct operation", op)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// dropMatchingUnique drops every persisted unique index whose column set
// matches the given columns order-independently. Constraint-generated
// auto-indexes have no name that can be dropped and are skipped.
func dropMatchingUnique(ctx context.Context, s *txn.Scope, table string, columns []string) error {
	cur, err := catalog.NewIntrospector(s).Table(ctx, table)
	if err != nil {
		return err
	}
	for _, ix := range cur.Indexes {
		if !ix.Unique || ix.SQL == "" || !plan.SameColumnSet(ix.Columns, columns) {
			continue
		}
		if err := s.Exec(ctx, "DROP INDEX "+schema.QuoteIdent(ix.Name)); err != nil {
			return err
		}
	}
	return nil
}

func indexName(table string, ix Index) string {
	if ix.Unique {
		return plan.UniqueIndexName(table, ix.Columns)
	}
	name := "ix_" + table
	for _, col := range ix.Columns {
		name += "_" + col
	}
	return name
}
