package plan

import (
	"testing"

	"github.com/tordrt/alterlite/internal/schema"
)

func TestBuildClassification(t *testing.T) {
	tests := []struct {
		name        string
		ops         []Op
		wantDirect  int
		wantRebuild int
	}{
		{
			name: "direct only",
			ops: []Op{
				AddColumn{Column: schema.Column{Name: "age", Type: "INTEGER"}},
				RenameColumn{From: "a", To: "b"},
				AddIndex{Index: schema.Index{Name: "ix", Columns: []string{"b"}}},
				DropIndex{Name: "old_ix"},
			},
			wantDirect:  4,
			wantRebuild: 0,
		},
		{
			name: "rebuild only",
			ops: []Op{
				DropColumn{Name: "a"},
				AlterColumn{Name: "b", Transform: func(c schema.Column) schema.Column { return c }},
				AddForeignKey{FK: schema.ForeignKey{Column: "c", RefTable: "o", RefColumn: "id"}},
				DropForeignKey{Column: "d"},
			},
			wantDirect:  0,
			wantRebuild: 4,
		},
		{
			name: "mixed batch keeps renames and index ops direct",
			ops: []Op{
				RenameColumn{From: "a", To: "b"},
				AddIndex{Index: schema.Index{Name: "ix", Columns: []string{"b"}}},
				DropColumn{Name: "email"},
			},
			wantDirect:  2,
			wantRebuild: 1,
		},
		{
			name: "column additions fold into a rebuilding batch",
			ops: []Op{
				AddColumn{Column: schema.Column{Name: "age", Type: "INTEGER"}},
				DropColumn{Name: "email"},
			},
			wantDirect:  0,
			wantRebuild: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Build("t", tt.ops)
			if len(p.Direct) != tt.wantDirect {
				t.Errorf("len(Direct) = %d, want %d", len(p.Direct), tt.wantDirect)
			}
			if len(p.Rebuild) != tt.wantRebuild {
				t.Errorf("len(Rebuild) = %d, want %d", len(p.Rebuild), tt.wantRebuild)
			}
			if p.NeedsRebuild() != (tt.wantRebuild > 0) {
				t.Errorf("NeedsRebuild() = %v", p.NeedsRebuild())
			}
		})
	}
}

func TestSetUniqueCompilesToIndexDirectives(t *testing.T) {
	p := Build("t", []Op{SetUnique{Columns: []string{"a", "b"}, Unique: true}})
	if p.NeedsRebuild() {
		t.Error("SetUnique must never force a rebuild")
	}
	if len(p.Direct) != 1 {
		t.Fatalf("expected 1 direct op, got %d", len(p.Direct))
	}
	add, ok := p.Direct[0].(AddIndex)
	if !ok {
		t.Fatalf("expected AddIndex, got %T", p.Direct[0])
	}
	if !add.Index.Unique || add.Index.Name != "ux_t_a_b" {
		t.Errorf("unexpected index directive: %+v", add.Index)
	}
}

func TestSetUniqueLastCallWins(t *testing.T) {
	p := Build("t", []Op{
		SetUnique{Columns: []string{"a", "b"}, Unique: true},
		SetUnique{Columns: []string{"b", "a"}, Unique: true},
	})
	if len(p.Direct) != 1 {
		t.Fatalf("expected a single surviving directive, got %d", len(p.Direct))
	}
}

func TestSetUniqueThenRemoveCancelsWithinBatch(t *testing.T) {
	p := Build("t", []Op{
		SetUnique{Columns: []string{"a", "b"}, Unique: true},
		SetUnique{Columns: []string{"a", "b"}, Unique: false},
	})
	// The queued add is cancelled; only the drop-persisted directive remains.
	if len(p.Direct) != 1 {
		t.Fatalf("expected 1 direct op, got %d", len(p.Direct))
	}
	if _, ok := p.Direct[0].(DropUniqueIndexOn); !ok {
		t.Fatalf("expected DropUniqueIndexOn, got %T", p.Direct[0])
	}
}

func TestSetUniqueLeavesUnrelatedDirectives(t *testing.T) {
	p := Build("t", []Op{
		AddIndex{Index: schema.Index{Name: "ix_other", Columns: []string{"c"}}},
		SetUnique{Columns: []string{"a", "b"}, Unique: true},
		SetUnique{Columns: []string{"a"}, Unique: true},
	})
	if len(p.Direct) != 3 {
		t.Fatalf("expected 3 direct ops, got %d", len(p.Direct))
	}
}

func TestSameColumnSet(t *testing.T) {
	tests := []struct {
		a, b []string
		want bool
	}{
		{[]string{"a", "b"}, []string{"b", "a"}, true},
		{[]string{"a"}, []string{"a"}, true},
		{[]string{"a", "b"}, []string{"a"}, false},
		{[]string{"a", "a"}, []string{"a", "b"}, false},
		{nil, nil, true},
	}
	for _, tt := range tests {
		if got := SameColumnSet(tt.a, tt.b); got != tt.want {
			t.Errorf("SameColumnSet(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
