package plan

import "github.com/tordrt/alterlite/internal/schema"

// Plan is the executable form of one accumulated batch for a table.
// Rebuild holds the operations that can only be realized by reconstructing
// the table; Direct holds standalone statements, preserved in the order
// they were requested. When both are present, Direct runs after the
// reconstruction has committed, against the updated schema.
type Plan struct {
	Table   string
	Direct  []Op
	Rebuild []Op
}

// NeedsRebuild reports whether the batch must go through the
// reconstruction executor.
func (p *Plan) NeedsRebuild() bool {
	return len(p.Rebuild) > 0
}

// Empty reports whether the batch contains no work at all.
func (p *Plan) Empty() bool {
	return len(p.Direct) == 0 && len(p.Rebuild) == 0
}

// Build compiles a batch into a plan. SetUnique operations are resolved to
// index directives here: a later SetUnique over the same column set
// supersedes any not-yet-applied unique-index directive queued earlier in
// the same batch. Already-persisted indexes are untouched at plan time;
// removal of those is deferred to a DropUniqueIndexOn directive executed
// against the live catalog.
func Build(table string, ops []Op) *Plan {
	p := &Plan{Table: table}

	for _, op := range compileSetUnique(table, ops) {
		switch op.(type) {
		case DropColumn, AlterColumn, AddForeignKey, DropForeignKey:
			p.Rebuild = append(p.Rebuild, op)
		default:
			p.Direct = append(p.Direct, op)
		}
	}

	// Column additions are a direct statement on their own, but once the
	// batch reconstructs anyway they fold into the new table definition:
	// the copy step supplies their default, and a foreign key added in
	// the same batch may target them.
	if len(p.Rebuild) > 0 {
		direct := p.Direct[:0]
		for _, op := range p.Direct {
			if add, ok := op.(AddColumn); ok {
				p.Rebuild = append(p.Rebuild, add)
				continue
			}
			direct = append(direct, op)
		}
		p.Direct = direct
	}
	return p
}

// compileSetUnique rewrites SetUnique operations into index directives,
// cancelling superseded directives from earlier in the same batch.
func compileSetUnique(table string, ops []Op) []Op {
	out := make([]Op, 0, len(ops))
	for _, op := range ops {
		su, ok := op.(SetUnique)
		if !ok {
			out = append(out, op)
			continue
		}

		out = dropQueuedUniqueDirectives(out, su.Columns)
		if su.Unique {
			out = append(out, AddIndex{Index: uniqueIndex(table, su.Columns)})
		} else {
			out = append(out, DropUniqueIndexOn{Columns: su.Columns})
		}
	}
	return out
}

func uniqueIndex(table string, columns []string) schema.Index {
	return schema.Index{
		Name:    UniqueIndexName(table, columns),
		Columns: columns,
		Unique:  true,
	}
}

// dropQueuedUniqueDirectives removes unique-index directives over the same
// column combination that were queued earlier in this batch and have not
// been applied yet.
func dropQueuedUniqueDirectives(ops []Op, columns []string) []Op {
	kept := ops[:0]
	for _, op := range ops {
		switch v := op.(type) {
		case AddIndex:
			if v.Index.Unique && SameColumnSet(v.Index.Columns, columns) {
				continue
			}
		case DropUniqueIndexOn:
			if SameColumnSet(v.Columns, columns) {
				continue
			}
		}
		kept = append(kept, op)
	}
	return kept
}
