package catalog

import (
	"reflect"
	"sort"
	"testing"

	"github.com/tordrt/alterlite/internal/schema"
)

func TestUniqueColumns(t *testing.T) {
	tests := []struct {
		name     string
		tableSQL string
		indexes  []schema.Index
		want     []string
	}{
		{
			name:     "column clause ending in UNIQUE",
			tableSQL: `CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT UNIQUE)`,
			want:     []string{"email"},
		},
		{
			name:     "modifiers before UNIQUE in any order",
			tableSQL: `CREATE TABLE t (a TEXT NOT NULL UNIQUE, b TEXT PRIMARY KEY NOT NULL UNIQUE, c TEXT)`,
			want:     []string{"a", "b"},
		},
		{
			name:     "quoted column names",
			tableSQL: "CREATE TABLE t (\"user name\" TEXT UNIQUE, `other` TEXT UNIQUE, [third] TEXT UNIQUE)",
			want:     []string{"other", "third", "user name"},
		},
		{
			name:     "UNIQUE not in final position is ignored",
			tableSQL: `CREATE TABLE t (a TEXT UNIQUE NOT NULL, b TEXT)`,
			want:     nil,
		},
		{
			name:     "table-level UNIQUE constraint is not per-column",
			tableSQL: `CREATE TABLE t (a TEXT, b TEXT, UNIQUE (a, b))`,
			want:     nil,
		},
		{
			name:     "single-column unique index",
			tableSQL: `CREATE TABLE t (a TEXT, b TEXT)`,
			indexes: []schema.Index{
				{Name: "ux_t_a", Columns: []string{"a"}, Unique: true},
			},
			want: []string{"a"},
		},
		{
			name:     "composite unique index never folds per-column",
			tableSQL: `CREATE TABLE t (a TEXT, b TEXT)`,
			indexes: []schema.Index{
				{Name: "ux_t_a_b", Columns: []string{"a", "b"}, Unique: true},
			},
			want: nil,
		},
		{
			name:     "non-unique index contributes nothing",
			tableSQL: `CREATE TABLE t (a TEXT)`,
			indexes: []schema.Index{
				{Name: "ix_t_a", Columns: []string{"a"}, Unique: false},
			},
			want: nil,
		},
		{
			name:     "both sources union",
			tableSQL: `CREATE TABLE t (a TEXT UNIQUE, b TEXT, c TEXT)`,
			indexes: []schema.Index{
				{Name: "ux_t_b", Columns: []string{"b"}, Unique: true},
				{Name: "ux_t_a", Columns: []string{"a"}, Unique: true},
			},
			want: []string{"a", "b"},
		},
		{
			name: "commas inside defaults and checks do not split clauses",
			tableSQL: `CREATE TABLE t (a TEXT DEFAULT 'x,y' UNIQUE, ` +
				`b INTEGER CHECK (b IN (1, 2, 3)), c TEXT UNIQUE)`,
			want: []string{"a", "c"},
		},
		{
			name:     "multiline definition",
			tableSQL: "CREATE TABLE t (\n\tid INTEGER PRIMARY KEY,\n\temail TEXT NOT NULL UNIQUE\n)",
			want:     []string{"email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SortedNames(UniqueColumns(tt.tableSQL, tt.indexes))
			var want []string
			if tt.want != nil {
				want = append(want, tt.want...)
				sort.Strings(want)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("UniqueColumns() = %v, want %v", got, want)
			}
		})
	}
}

func TestCompositeUniqueIndexes(t *testing.T) {
	indexes := []schema.Index{
		{Name: "ux_single", Columns: []string{"a"}, Unique: true},
		{Name: "ux_pair", Columns: []string{"a", "b"}, Unique: true},
		{Name: "ix_pair", Columns: []string{"c", "d"}, Unique: false},
	}

	got := CompositeUniqueIndexes(indexes)
	if len(got) != 1 || got[0].Name != "ux_pair" {
		t.Errorf("CompositeUniqueIndexes() = %v, want only ux_pair", got)
	}
}

func TestBodyClauses(t *testing.T) {
	sql := `CREATE TABLE t (a TEXT DEFAULT 'x,''y', b INTEGER, FOREIGN KEY (b) REFERENCES o (id))`
	got := BodyClauses(sql)
	want := []string{
		`a TEXT DEFAULT 'x,''y'`,
		`b INTEGER`,
		`FOREIGN KEY (b) REFERENCES o (id)`,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BodyClauses() = %#v, want %#v", got, want)
	}
}
