package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Action is a referential action attached to a foreign key.
type Action string

const (
	NoAction Action = "NO ACTION"
	Restrict Action = "RESTRICT"
	SetNull  Action = "SET NULL"
	Cascade  Action = "CASCADE"
)

// ParseAction normalizes the action text reported by the catalog.
// Unknown or empty text maps to NO ACTION, which is the engine default.
func ParseAction(s string) Action {
	switch Action(s) {
	case Restrict, SetNull, Cascade:
		return Action(s)
	default:
		return NoAction
	}
}

// DefaultKind discriminates the typed default value of a column.
type DefaultKind int

const (
	// DefaultNone means the column declares no default.
	DefaultNone DefaultKind = iota
	// DefaultNull is an explicit DEFAULT NULL.
	DefaultNull
	DefaultBool
	DefaultNumber
	DefaultText
	// DefaultExpr preserves a default the catalog reports as a raw SQL
	// expression, such as CURRENT_TIMESTAMP.
	DefaultExpr
)

// DefaultValue is a tagged default for a column. The zero value means
// "no default declared".
type DefaultValue struct {
	Kind   DefaultKind
	Bool   bool
	Number float64
	Text   string // literal text for DefaultText, raw SQL for DefaultExpr
}

// Null returns an explicit DEFAULT NULL.
func Null() DefaultValue { return DefaultValue{Kind: DefaultNull} }

// BoolDefault returns a boolean default.
func BoolDefault(v bool) DefaultValue { return DefaultValue{Kind: DefaultBool, Bool: v} }

// NumberDefault returns a numeric default.
func NumberDefault(v float64) DefaultValue { return DefaultValue{Kind: DefaultNumber, Number: v} }

// TextDefault returns a string default.
func TextDefault(v string) DefaultValue { return DefaultValue{Kind: DefaultText, Text: v} }

// ParseDefault interprets the default value text reported by the catalog.
// Literal NULL, numeric and quoted-string defaults become their typed
// forms; anything else is preserved as a raw expression.
func ParseDefault(s string) DefaultValue {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultValue{}
	}
	if strings.EqualFold(s, "NULL") {
		return Null()
	}
	if strings.EqualFold(s, "TRUE") {
		return BoolDefault(true)
	}
	if strings.EqualFold(s, "FALSE") {
		return BoolDefault(false)
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return NumberDefault(n)
	}
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return TextDefault(strings.ReplaceAll(s[1:len(s)-1], "''", "'"))
	}
	return DefaultValue{Kind: DefaultExpr, Text: s}
}

// Column describes one table column. Unique is derived evidence: it is
// only authoritative after the catalog has reconciled column-clause and
// index-level uniqueness for the whole table.
type Column struct {
	Name          string
	Type          string
	NotNull       bool
	PrimaryKey    bool
	// PrimaryKeySeq is the 1-based position of the column within a
	// composite primary key. Zero when the column is not a key member or
	// the key has a single column.
	PrimaryKeySeq int
	AutoIncrement bool
	Unique        bool
	Default       DefaultValue
	Check         string
}

// ForeignKey describes a single-column foreign key constraint.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
	OnDelete  Action
	OnUpdate  Action
}

// Index describes a table index. SQL holds the defining statement text as
// stored in the catalog; it is empty for constraint-generated auto-indexes.
type Index struct {
	Name    string
	Columns []string
	Unique  bool
	Where   string
	SQL     string
}

// Table describes a table: ordered columns, foreign keys and indexes.
type Table struct {
	Name        string
	Columns     []Column
	ForeignKeys []ForeignKey
	Indexes     []Index
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Validate enforces the structural invariants of a table descriptor:
// column names are unique, and every foreign key's source column exists.
func (t *Table) Validate() error {
	seen := make(map[string]bool, len(t.Columns))
	for _, col := range t.Columns {
		if seen[col.Name] {
			return fmt.Errorf("table %q declares column %q more than once", t.Name, col.Name)
		}
		seen[col.Name] = true
	}
	for _, fk := range t.ForeignKeys {
		if !seen[fk.Column] {
			return fmt.Errorf("table %q has a foreign key on unknown column %q", t.Name, fk.Column)
		}
	}
	return nil
}
