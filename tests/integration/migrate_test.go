//go:build integration
// +build integration

package integration

import (
	"context"
	"testing"

	"github.com/tordrt/alterlite"
)

// seedShop creates a small shop schema and a few rows of data.
func seedShop(t *testing.T, ctx context.Context, db *alterlite.DB) {
	t.Helper()

	mustExec(t, ctx, db, `CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		legacy_flags INTEGER DEFAULT 0,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP
	)`)
	mustExec(t, ctx, db, `CREATE TABLE products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		category TEXT,
		price REAL NOT NULL
	)`)
	mustExec(t, ctx, db, `CREATE INDEX idx_category ON products (category)`)
	mustExec(t, ctx, db, `CREATE TABLE orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		total REAL NOT NULL DEFAULT 0
	)`)

	mustExec(t, ctx, db, `INSERT INTO users (username, email) VALUES ('alice', 'alice@example.com'), ('bob', 'bob@example.com')`)
	mustExec(t, ctx, db, `INSERT INTO products (name, category, price) VALUES ('widget', 'tools', 9.99), ('gadget', 'toys', 19.99)`)
	mustExec(t, ctx, db, `INSERT INTO orders (user_id, total) VALUES (1, 9.99), (1, 19.99), (2, 9.99)`)
}

func TestFullMigrationLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, ctx)
	seedShop(t, ctx, db)

	// Attach orders to users, make email unique, drop the legacy column.
	a := db.AlterTable("orders")
	a.AddForeignKey(alterlite.ForeignKey{
		Column: "user_id", RefTable: "users", RefColumn: "id",
		OnDelete: alterlite.Cascade,
	})
	if err := a.Execute(ctx); err != nil {
		t.Fatalf("Failed to add foreign key: %v", err)
	}

	a = db.AlterTable("users")
	a.MakeColumnsUnique([]string{"email"}, true)
	a.DropColumn("legacy_flags")
	a.AddColumn(alterlite.Column{Name: "status", Type: "TEXT", Default: alterlite.TextDefault("active")})
	if err := a.Execute(ctx); err != nil {
		t.Fatalf("Failed to migrate users: %v", err)
	}

	users, err := db.Inspect(ctx, "users")
	if err != nil {
		t.Fatalf("Failed to inspect users: %v", err)
	}
	verifyColumns(t, users, []string{"id", "username", "email", "status", "created_at"})
	verifyNoColumn(t, users, "legacy_flags")
	verifyUniqueConstraint(t, users, "username")
	verifyUniqueConstraint(t, users, "email")

	orders, err := db.Inspect(ctx, "orders")
	if err != nil {
		t.Fatalf("Failed to inspect orders: %v", err)
	}
	verifyForeignKey(t, orders, "user_id", "users")

	products, err := db.Inspect(ctx, "products")
	if err != nil {
		t.Fatalf("Failed to inspect products: %v", err)
	}
	verifyIndex(t, products, "idx_category", []string{"category"})

	if got := countRows(t, ctx, db, "users"); got != 2 {
		t.Errorf("Expected 2 users after migration, got %d", got)
	}
	if got := countRows(t, ctx, db, "orders"); got != 3 {
		t.Errorf("Expected 3 orders after migration, got %d", got)
	}

	// The new foreign key must actually enforce.
	err = db.Exec(ctx, `INSERT INTO orders (user_id, total) VALUES (999, 1.0)`)
	if !alterlite.IsConstraint(err) {
		t.Errorf("Expected a constraint violation for a dangling order, got %v", err)
	}
	mustExec(t, ctx, db, `DELETE FROM users WHERE username = 'alice'`)
	if got := countRows(t, ctx, db, "orders"); got != 1 {
		t.Errorf("Expected cascade to remove alice's orders, got %d remaining", got)
	}
}

func TestMigrationInsideTransaction(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, ctx)
	seedShop(t, ctx, db)

	// A failing body must undo the schema change along with the data change.
	err := db.Transaction(ctx, func(tx *alterlite.Tx) error {
		a := tx.AlterTable("products")
		a.AddColumn(alterlite.Column{Name: "sku", Type: "TEXT"})
		if err := a.Execute(ctx); err != nil {
			return err
		}
		if err := tx.Exec(ctx, `UPDATE products SET sku = 'X-' || id`); err != nil {
			return err
		}
		return context.Canceled
	})
	if err == nil {
		t.Fatal("Expected the transaction body's error to propagate")
	}

	products, err := db.Inspect(ctx, "products")
	if err != nil {
		t.Fatalf("Failed to inspect products: %v", err)
	}
	verifyNoColumn(t, products, "sku")

	// The same change in a successful body sticks.
	err = db.Transaction(ctx, func(tx *alterlite.Tx) error {
		a := tx.AlterTable("products")
		a.AddColumn(alterlite.Column{Name: "sku", Type: "TEXT"})
		if err := a.Execute(ctx); err != nil {
			return err
		}
		return tx.Exec(ctx, `UPDATE products SET sku = 'X-' || id`)
	})
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}

	products, err = db.Inspect(ctx, "products")
	if err != nil {
		t.Fatalf("Failed to inspect products: %v", err)
	}
	verifyColumns(t, products, []string{"id", "name", "category", "price", "sku"})
}

func TestRetypeColumnKeepsData(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t, ctx)
	seedShop(t, ctx, db)

	a := db.AlterTable("products")
	a.AlterColumn("price", func(col alterlite.Column) alterlite.Column {
		col.Type = "NUMERIC"
		col.Check = "price >= 0"
		return col
	})
	if err := a.Execute(ctx); err != nil {
		t.Fatalf("Failed to retype price: %v", err)
	}

	products, err := db.Inspect(ctx, "products")
	if err != nil {
		t.Fatalf("Failed to inspect products: %v", err)
	}
	for _, col := range products.Columns {
		if col.Name == "price" && col.Type != "NUMERIC" {
			t.Errorf("Expected price to be NUMERIC, got %s", col.Type)
		}
	}
	if got := countRows(t, ctx, db, "products"); got != 2 {
		t.Errorf("Expected 2 products after rebuild, got %d", got)
	}

	err = db.Exec(ctx, `INSERT INTO products (name, price) VALUES ('freebie', -1)`)
	if !alterlite.IsConstraint(err) {
		t.Errorf("Expected the check constraint to reject a negative price, got %v", err)
	}
}
