package rebuild

import (
	"reflect"
	"testing"

	"github.com/tordrt/alterlite/internal/schema"
)

func TestRealTableName(t *testing.T) {
	if got := realTableName("notes__alterlite_tmp_17"); got != "notes" {
		t.Errorf("realTableName() = %q, want %q", got, "notes")
	}
	if got := realTableName("notes"); got != "notes" {
		t.Errorf("realTableName() = %q, want %q", got, "notes")
	}
}

func TestRewriteTempRefs(t *testing.T) {
	stmt := `CREATE INDEX "ix_notes_a" ON "notes__alterlite_tmp_3" ("a")`
	want := `CREATE INDEX "ix_notes_a" ON "notes" ("a")`
	if got := rewriteTempRefs(stmt, "notes"); got != want {
		t.Errorf("rewriteTempRefs() = %q, want %q", got, want)
	}

	// Statements without stale references pass through untouched.
	clean := `CREATE INDEX "ix" ON "notes" ("a")`
	if got := rewriteTempRefs(clean, "notes"); got != clean {
		t.Errorf("rewriteTempRefs() = %q, want %q", got, clean)
	}
}

func TestPreservedIndexStatements(t *testing.T) {
	cur := &schema.Table{
		Name: "t",
		Indexes: []schema.Index{
			{Name: "ix_keep", Columns: []string{"a"}, SQL: `CREATE INDEX "ix_keep" ON "t" ("a")`},
			{Name: "ix_gone", Columns: []string{"b"}, SQL: `CREATE INDEX "ix_gone" ON "t" ("b")`},
			// Constraint-generated composite unique index: no stored text.
			{Name: "sqlite_autoindex_t_1", Columns: []string{"a", "c"}, Unique: true},
			// Constraint-generated single-column unique index: folded into
			// the column definition, nothing to replay.
			{Name: "sqlite_autoindex_t_2", Columns: []string{"c"}, Unique: true},
		},
	}

	got := preservedIndexStatements(cur, "t", map[string]bool{"b": true})
	want := []string{
		`CREATE INDEX "ix_keep" ON "t" ("a")`,
		`CREATE UNIQUE INDEX "ux_t_a_c" ON "t" ("a", "c")`,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("preservedIndexStatements() = %#v, want %#v", got, want)
	}
}

func TestTempNamesAreUnique(t *testing.T) {
	a, b := tempName("t"), tempName("t")
	if a == b {
		t.Errorf("consecutive temp names collide: %q", a)
	}
}
