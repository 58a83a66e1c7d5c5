//go:build integration
// +build integration

package integration

import (
	"context"
	"testing"

	"github.com/tordrt/alterlite"
)

// openTestDB opens a fresh database in a per-test temp directory.
func openTestDB(t *testing.T, ctx context.Context) *alterlite.DB {
	t.Helper()

	db, err := alterlite.Open(ctx, t.TempDir()+"/test.db", nil)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db
}

func mustExec(t *testing.T, ctx context.Context, db *alterlite.DB, query string, args ...any) {
	t.Helper()

	if err := db.Exec(ctx, query, args...); err != nil {
		t.Fatalf("Failed to execute %q: %v", query, err)
	}
}

// verifyColumns checks that expected columns exist in a table
func verifyColumns(t *testing.T, table *alterlite.Table, expectedColumns []string) {
	t.Helper()

	columnMap := make(map[string]bool)
	for _, col := range table.Columns {
		columnMap[col.Name] = true
	}

	for _, colName := range expectedColumns {
		if !columnMap[colName] {
			t.Errorf("Expected column %s not found in %s table", colName, table.Name)
		}
	}
}

// verifyNoColumn checks that a column is absent from a table
func verifyNoColumn(t *testing.T, table *alterlite.Table, columnName string) {
	t.Helper()

	for _, col := range table.Columns {
		if col.Name == columnName {
			t.Errorf("Column %s should not exist in %s table", columnName, table.Name)
		}
	}
}

// verifyUniqueConstraint checks that a column has a unique constraint
func verifyUniqueConstraint(t *testing.T, table *alterlite.Table, columnName string) {
	t.Helper()

	for _, col := range table.Columns {
		if col.Name == columnName {
			if !col.Unique {
				t.Errorf("Expected %s column to have unique constraint", columnName)
			}
			return
		}
	}

	t.Errorf("Column %s not found in table %s", columnName, table.Name)
}

// verifyForeignKey checks that a foreign key relationship exists
func verifyForeignKey(t *testing.T, table *alterlite.Table, sourceColumn, targetTable string) {
	t.Helper()

	for _, fk := range table.ForeignKeys {
		if fk.RefTable == targetTable && fk.Column == sourceColumn {
			return
		}
	}

	t.Errorf("Expected foreign key relationship from %s.%s to %s not found", table.Name, sourceColumn, targetTable)
}

// verifyIndex checks that an index exists with the expected columns
func verifyIndex(t *testing.T, table *alterlite.Table, indexName string, expectedColumns []string) {
	t.Helper()

	for _, idx := range table.Indexes {
		if idx.Name == indexName {
			if len(idx.Columns) != len(expectedColumns) {
				t.Errorf("Expected index %s on %v, got %v", indexName, expectedColumns, idx.Columns)
				return
			}
			for i, col := range expectedColumns {
				if idx.Columns[i] != col {
					t.Errorf("Expected index %s on %v, got %v", indexName, expectedColumns, idx.Columns)
					return
				}
			}
			return
		}
	}

	t.Errorf("Expected index %s on %s table not found", indexName, table.Name)
}

// countRows counts the rows of a table
func countRows(t *testing.T, ctx context.Context, db *alterlite.DB, table string) int {
	t.Helper()

	var n int
	err := db.Transaction(ctx, func(tx *alterlite.Tx) error {
		return tx.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	})
	if err != nil {
		t.Fatalf("Failed to count rows in %s: %v", table, err)
	}
	return n
}
