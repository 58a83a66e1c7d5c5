// Package catalog reads table metadata from the engine catalog and derives
// the constraint set that a reconstruction must preserve.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tordrt/alterlite/internal/schema"
)

// ErrNoSuchTable is returned when a named table is absent from the catalog.
var ErrNoSuchTable = errors.New("no such table")

// IsNoSuchTable reports whether err indicates a missing table.
func IsNoSuchTable(err error) bool {
	return errors.Is(err, ErrNoSuchTable)
}

// Querier is the read-only slice of the statement-execution layer the
// introspector needs.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *sql.Row
}

// Introspector reads typed table descriptions from the catalog. Pure read,
// no side effects.
type Introspector struct {
	q Querier
}

// NewIntrospector creates an introspector over the given querier.
func NewIntrospector(q Querier) *Introspector {
	return &Introspector{q: q}
}

// TableNames lists the user tables in the database.
func (in *Introspector) TableNames(ctx context.Context) ([]string, error) {
	rows, err := in.q.Query(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Exists reports whether a table is present in the catalog.
func (in *Introspector) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	err := in.q.QueryRow(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TableSQL returns the stored CREATE TABLE text for a table.
func (in *Introspector) TableSQL(ctx context.Context, name string) (string, error) {
	var text sql.NullString
	err := in.q.QueryRow(ctx,
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("table %q: %w", name, ErrNoSuchTable)
	}
	if err != nil {
		return "", err
	}
	return text.String, nil
}

// Table reads the full description of a table: columns (with uniqueness
// already reconciled across column clauses and single-column unique
// indexes), foreign keys, and indexes including their stored definition
// text. Returns ErrNoSuchTable if the table does not exist.
func (in *Introspector) Table(ctx context.Context, name string) (*schema.Table, error) {
	tableSQL, err := in.TableSQL(ctx, name)
	if err != nil {
		return nil, err
	}

	table := &schema.Table{Name: name}

	if table.Columns, err = in.columns(ctx, name, tableSQL); err != nil {
		return nil, fmt.Errorf("failed to read columns of %q: %w", name, err)
	}
	if table.ForeignKeys, err = in.foreignKeys(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to read foreign keys of %q: %w", name, err)
	}
	if table.Indexes, err = in.indexes(ctx, name); err != nil {
		return nil, fmt.Errorf("failed to read indexes of %q: %w", name, err)
	}

	unique := UniqueColumns(tableSQL, table.Indexes)
	for i := range table.Columns {
		table.Columns[i].Unique = unique[table.Columns[i].Name]
	}

	return table, nil
}

// columns reads PRAGMA table_info and supplements it with details only
// present in the stored definition text (AUTOINCREMENT, CHECK).
func (in *Introspector) columns(ctx context.Context, name, tableSQL string) ([]schema.Column, error) {
	rows, err := in.q.Query(ctx, fmt.Sprintf("PRAGMA table_info(%s)", schema.QuoteIdent(name)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clauses := make(map[string]string)
	for _, clause := range BodyClauses(tableSQL) {
		if !isTableConstraint(clause) {
			clauses[clauseColumn(clause)] = clause
		}
	}

	var columns []schema.Column
	for rows.Next() {
		var cid, notNull, pk int
		var colName, colType string
		var dflt sql.NullString

		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}

		col := schema.Column{
			Name:          colName,
			Type:          colType,
			NotNull:       notNull != 0,
			PrimaryKey:    pk > 0,
			PrimaryKeySeq: pk,
		}
		if dflt.Valid {
			col.Default = schema.ParseDefault(dflt.String)
		}
		if clause, ok := clauses[colName]; ok {
			upper := strings.ToUpper(clause)
			col.AutoIncrement = strings.Contains(upper, "AUTOINCREMENT")
			col.Check = clauseCheck(clause)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (in *Introspector) foreignKeys(ctx context.Context, name string) ([]schema.ForeignKey, error) {
	rows, err := in.q.Query(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", schema.QuoteIdent(name)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []schema.ForeignKey
	for rows.Next() {
		var id, seq int
		var refTable, from, onUpdate, onDelete, match string
		var to sql.NullString

		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}

		fks = append(fks, schema.ForeignKey{
			Column:    from,
			RefTable:  refTable,
			RefColumn: to.String,
			OnDelete:  schema.ParseAction(onDelete),
			OnUpdate:  schema.ParseAction(onUpdate),
		})
	}
	return fks, rows.Err()
}

// indexes reads PRAGMA index_list plus each index's column list and stored
// definition text. Constraint-generated unique auto-indexes are included
// with an empty SQL field; the reconstruction path relies on them to
// preserve uniqueness that has no recreatable statement. Primary key
// auto-indexes are excluded: the key is fully carried by the column
// descriptors.
func (in *Introspector) indexes(ctx context.Context, name string) ([]schema.Index, error) {
	rows, err := in.q.Query(ctx, fmt.Sprintf("PRAGMA index_list(%s)", schema.QuoteIdent(name)))
	if err != nil {
		return nil, err
	}

	type indexEntry struct {
		name   string
		unique bool
	}
	var entries []indexEntry
	for rows.Next() {
		var seq, unique, partial int
		var ixName, origin string

		if err := rows.Scan(&seq, &ixName, &unique, &origin, &partial); err != nil {
			rows.Close()
			return nil, err
		}
		if origin == "pk" {
			continue
		}
		entries = append(entries, indexEntry{name: ixName, unique: unique == 1})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	var indexes []schema.Index
	for _, entry := range entries {
		ix := schema.Index{Name: entry.name, Unique: entry.unique}

		if ix.Columns, err = in.indexColumns(ctx, entry.name); err != nil {
			return nil, err
		}

		var text sql.NullString
		err := in.q.QueryRow(ctx,
			`SELECT sql FROM sqlite_master WHERE type = 'index' AND name = ?`, entry.name).Scan(&text)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		ix.SQL = text.String
		ix.Where = indexPredicate(ix.SQL)

		indexes = append(indexes, ix)
	}
	return indexes, nil
}

func (in *Introspector) indexColumns(ctx context.Context, ixName string) ([]string, error) {
	rows, err := in.q.Query(ctx, fmt.Sprintf("PRAGMA index_info(%s)", schema.QuoteIdent(ixName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString

		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, err
		}
		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}
	return columns, rows.Err()
}

// clauseCheck extracts the CHECK expression embedded in a column clause.
func clauseCheck(clause string) string {
	upper := strings.ToUpper(clause)
	at := strings.Index(upper, "CHECK")
	if at < 0 {
		return ""
	}
	rest := clause[at+len("CHECK"):]
	open := strings.Index(rest, "(")
	if open < 0 {
		return ""
	}
	depth := 0
	for i := open; i < len(rest); i++ {
		switch rest[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return strings.TrimSpace(rest[open+1 : i])
			}
		}
	}
	return ""
}

// indexPredicate pulls the partial-index predicate out of a stored
// CREATE INDEX statement.
func indexPredicate(indexSQL string) string {
	upper := strings.ToUpper(indexSQL)
	at := strings.LastIndex(upper, " WHERE ")
	if at < 0 {
		return ""
	}
	return strings.TrimSpace(indexSQL[at+len(" WHERE "):])
}
