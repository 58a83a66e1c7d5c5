// Package plan classifies a batch of schema operations into statements the
// engine can apply directly and changes that force a table reconstruction.
package plan

import (
	"strings"

	"github.com/tordrt/alterlite/internal/schema"
)

// Op is one requested schema operation. The set of implementations is
// closed; the planner matches exhaustively.
type Op interface {
	isOp()
}

// AddColumn appends a new column.
type AddColumn struct {
	Column schema.Column
}

// DropColumn removes a column and everything referencing it.
type DropColumn struct {
	Name string
}

// RenameColumn renames a column in place.
type RenameColumn struct {
	From, To string
}

// AlterColumn rewrites a column descriptor. The transform receives the
// current descriptor and returns the replacement; it is used for retyping,
// changing nullability or changing the default.
type AlterColumn struct {
	Name      string
	Transform func(schema.Column) schema.Column
}

// AddForeignKey attaches a new foreign key constraint.
type AddForeignKey struct {
	FK schema.ForeignKey
}

// DropForeignKey removes the foreign key declared on a source column.
type DropForeignKey struct {
	Column string
}

// AddIndex creates an index.
type AddIndex struct {
	Index schema.Index
}

// DropIndex drops an index by name.
type DropIndex struct {
	Name string
}

// DropUniqueIndexOn drops every persisted unique index whose column set
// matches the given columns order-independently. Compiled from
// SetUnique(columns, false); never requested by callers directly.
type DropUniqueIndexOn struct {
	Columns []string
}

// SetUnique declares or removes a uniqueness requirement over a column
// combination. Compiled away by the planner into index directives.
type SetUnique struct {
	Columns []string
	Unique  bool
}

func (AddColumn) isOp()         {}
func (DropColumn) isOp()        {}
func (RenameColumn) isOp()      {}
func (AlterColumn) isOp()       {}
func (AddForeignKey) isOp()     {}
func (DropForeignKey) isOp()    {}
func (AddIndex) isOp()          {}
func (DropIndex) isOp()         {}
func (DropUniqueIndexOn) isOp() {}
func (SetUnique) isOp()         {}

// UniqueIndexName generates the deterministic name used for indexes
// created through SetUnique.
func UniqueIndexName(table string, columns []string) string {
	return "ux_" + table + "_" + strings.Join(columns, "_")
}

// SameColumnSet reports whether two column lists cover the same columns,
// ignoring order.
func SameColumnSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, col := range a {
		set[col]++
	}
	for _, col := range b {
		set[col]--
		if set[col] < 0 {
			return false
		}
	}
	return true
}
