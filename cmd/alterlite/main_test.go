package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "migration.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write migration file: %v", err)
	}
	return path
}

func TestLoadMigration(t *testing.T) {
	path := writeDoc(t, `
table: users
operations:
  - add_column: {name: age, type: INTEGER, not_null: true}
  - drop_column: legacy_flags
  - rename_column: {from: mail, to: email}
  - add_foreign_key: {column: team_id, ref_table: teams, ref_column: id, on_delete: CASCADE}
  - add_index: {name: ix_users_email, columns: [email], unique: true}
  - make_unique: {columns: [a, b], unique: false}
`)

	doc, err := loadMigration(path)
	if err != nil {
		t.Fatalf("loadMigration failed: %v", err)
	}
	if doc.Table != "users" {
		t.Errorf("table = %q, want users", doc.Table)
	}
	if len(doc.Operations) != 6 {
		t.Fatalf("expected 6 operations, got %d", len(doc.Operations))
	}
	if doc.Operations[0].AddColumn == nil || doc.Operations[0].AddColumn.Name != "age" {
		t.Errorf("operation 1 = %+v", doc.Operations[0])
	}
	if doc.Operations[1].DropColumn != "legacy_flags" {
		t.Errorf("operation 2 = %+v", doc.Operations[1])
	}
	if fk := doc.Operations[3].AddForeignKey; fk == nil || fk.OnDelete != "CASCADE" {
		t.Errorf("operation 4 = %+v", doc.Operations[3])
	}
	if mu := doc.Operations[5].MakeUnique; mu == nil || mu.Unique {
		t.Errorf("operation 6 = %+v", doc.Operations[5])
	}
}

func TestLoadMigrationRejectsEmptyDocuments(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing table", "operations:\n  - drop_column: x\n"},
		{"no operations", "table: users\n"},
		{"invalid yaml", "table: [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadMigration(writeDoc(t, tt.content)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
