package schema

import (
	"sort"
	"strconv"
	"strings"
)

// QuoteIdent quotes an identifier for use in a statement.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral quotes a string literal.
func QuoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// SQL renders the default value as it appears in a column definition,
// without the DEFAULT keyword. Returns "" when no default is declared.
func (d DefaultValue) SQL() string {
	switch d.Kind {
	case DefaultNull:
		return "NULL"
	case DefaultBool:
		if d.Bool {
			return "1"
		}
		return "0"
	case DefaultNumber:
		return strconv.FormatFloat(d.Number, 'g', -1, 64)
	case DefaultText:
		return QuoteLiteral(d.Text)
	case DefaultExpr:
		return d.Text
	default:
		return ""
	}
}

// Definition renders the column clause used inside CREATE TABLE and
// ALTER TABLE ADD COLUMN.
func (c Column) Definition() string {
	var b strings.Builder
	b.WriteString(QuoteIdent(c.Name))
	if c.Type != "" {
		b.WriteString(" ")
		b.WriteString(c.Type)
	}
	if c.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
		if c.AutoIncrement {
			b.WriteString(" AUTOINCREMENT")
		}
	}
	if c.NotNull {
		b.WriteString(" NOT NULL")
	}
	if c.Unique && !c.PrimaryKey {
		b.WriteString(" UNIQUE")
	}
	if def := c.Default.SQL(); def != "" {
		b.WriteString(" DEFAULT ")
		b.WriteString(def)
	}
	if c.Check != "" {
		b.WriteString(" CHECK (")
		b.WriteString(c.Check)
		b.WriteString(")")
	}
	return b.String()
}

// Clause renders the table-level foreign key constraint clause.
func (fk ForeignKey) Clause() string {
	var b strings.Builder
	b.WriteString("FOREIGN KEY (")
	b.WriteString(QuoteIdent(fk.Column))
	b.WriteString(") REFERENCES ")
	b.WriteString(QuoteIdent(fk.RefTable))
	b.WriteString(" (")
	b.WriteString(QuoteIdent(fk.RefColumn))
	b.WriteString(")")
	if fk.OnDelete != "" && fk.OnDelete != NoAction {
		b.WriteString(" ON DELETE ")
		b.WriteString(string(fk.OnDelete))
	}
	if fk.OnUpdate != "" && fk.OnUpdate != NoAction {
		b.WriteString(" ON UPDATE ")
		b.WriteString(string(fk.OnUpdate))
	}
	return b.String()
}

// CreateSQL renders the full CREATE TABLE statement for the descriptor.
// A primary key spanning more than one column becomes a single table-level
// PRIMARY KEY clause; the engine rejects repeated column-level ones.
func (t *Table) CreateSQL() string {
	var pk []Column
	for _, col := range t.Columns {
		if col.PrimaryKey {
			pk = append(pk, col)
		}
	}
	composite := len(pk) > 1

	clauses := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+1)
	for _, col := range t.Columns {
		if composite && col.PrimaryKey {
			col.PrimaryKey = false
			col.AutoIncrement = false
		}
		clauses = append(clauses, col.Definition())
	}
	if composite {
		sort.SliceStable(pk, func(i, j int) bool { return pk[i].PrimaryKeySeq < pk[j].PrimaryKeySeq })
		names := make([]string, len(pk))
		for i, col := range pk {
			names[i] = QuoteIdent(col.Name)
		}
		clauses = append(clauses, "PRIMARY KEY ("+strings.Join(names, ", ")+")")
	}
	for _, fk := range t.ForeignKeys {
		clauses = append(clauses, fk.Clause())
	}
	return "CREATE TABLE " + QuoteIdent(t.Name) + " (" + strings.Join(clauses, ", ") + ")"
}

// CreateSQL renders the CREATE INDEX statement for the index against the
// given table. The stored catalog text, when present, is preferred over
// this rendering because it preserves expressions verbatim.
func (ix Index) CreateSQL(table string) string {
	var b strings.Builder
	b.WriteString("CREATE ")
	if ix.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	b.WriteString(QuoteIdent(ix.Name))
	b.WriteString(" ON ")
	b.WriteString(QuoteIdent(table))
	b.WriteString(" (")
	for i, col := range ix.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(QuoteIdent(col))
	}
	b.WriteString(")")
	if ix.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(ix.Where)
	}
	return b.String()
}
