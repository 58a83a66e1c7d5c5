package catalog

import (
	"sort"
	"strings"

	"github.com/tordrt/alterlite/internal/schema"
)

// UniqueColumns derives the set of individually-unique column names from a
// table's stored CREATE TABLE text and its index list. Two sources of
// evidence are merged: column clauses whose final modifier is UNIQUE, and
// unique indexes covering exactly one column. Composite unique indexes are
// deliberately excluded; they stay visible only as index objects.
//
// The function is pure: it must return the same answer no matter how the
// constraint was originally entered.
func UniqueColumns(tableSQL string, indexes []schema.Index) map[string]bool {
	unique := make(map[string]bool)

	for _, clause := range BodyClauses(tableSQL) {
		if isTableConstraint(clause) {
			continue
		}
		tokens := strings.Fields(clause)
		if len(tokens) < 2 {
			continue
		}
		if strings.EqualFold(tokens[len(tokens)-1], "UNIQUE") {
			if name := clauseColumn(clause); name != "" {
				unique[name] = true
			}
		}
	}

	for _, ix := range indexes {
		if ix.Unique && len(ix.Columns) == 1 {
			unique[ix.Columns[0]] = true
		}
	}

	return unique
}

// CompositeUniqueIndexes returns the unique indexes spanning more than one
// column. Their member columns never report per-column uniqueness.
func CompositeUniqueIndexes(indexes []schema.Index) []schema.Index {
	var out []schema.Index
	for _, ix := range indexes {
		if ix.Unique && len(ix.Columns) > 1 {
			out = append(out, ix)
		}
	}
	return out
}

// SortedNames returns the keys of a column set in stable order, which keeps
// generated DDL deterministic.
func SortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BodyClauses splits the parenthesized body of a CREATE TABLE statement
// into its top-level comma-separated clauses. Commas inside nested
// parentheses, string literals and quoted identifiers do not split.
func BodyClauses(tableSQL string) []string {
	open := strings.Index(tableSQL, "(")
	close := strings.LastIndex(tableSQL, ")")
	if open < 0 || close <= open {
		return nil
	}
	body := tableSQL[open+1 : close]

	var clauses []string
	var cur strings.Builder
	depth := 0
	var quote byte

	for i := 0; i < len(body); i++ {
		ch := body[i]
		if quote != 0 {
			cur.WriteByte(ch)
			if ch == quote {
				// A doubled quote is an escape, not a terminator.
				if i+1 < len(body) && body[i+1] == quote {
					cur.WriteByte(body[i+1])
					i++
				} else {
					quote = 0
				}
			}
			continue
		}
		switch ch {
		case '\'', '"', '`':
			quote = ch
			cur.WriteByte(ch)
		case '[':
			quote = ']'
			cur.WriteByte(ch)
		case '(':
			depth++
			cur.WriteByte(ch)
		case ')':
			depth--
			cur.WriteByte(ch)
		case ',':
			if depth == 0 {
				clauses = append(clauses, strings.TrimSpace(cur.String()))
				cur.Reset()
			} else {
				cur.WriteByte(ch)
			}
		default:
			cur.WriteByte(ch)
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		clauses = append(clauses, s)
	}
	return clauses
}

// isTableConstraint reports whether a body clause declares a table-level
// constraint rather than a column.
func isTableConstraint(clause string) bool {
	first := strings.ToUpper(firstToken(clause))
	switch first {
	case "UNIQUE", "PRIMARY", "FOREIGN", "CHECK", "CONSTRAINT":
		return true
	}
	return false
}

// clauseColumn extracts the (possibly quoted) column name leading a clause.
func clauseColumn(clause string) string {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return ""
	}
	switch clause[0] {
	case '"', '`', '\'':
		q := clause[0]
		var b strings.Builder
		for i := 1; i < len(clause); i++ {
			if clause[i] == q {
				if i+1 < len(clause) && clause[i+1] == q {
					b.WriteByte(q)
					i++
					continue
				}
				return b.String()
			}
			b.WriteByte(clause[i])
		}
		return b.String()
	case '[':
		if end := strings.IndexByte(clause, ']'); end > 0 {
			return clause[1:end]
		}
		return ""
	default:
		return firstToken(clause)
	}
}

func firstToken(clause string) string {
	fields := strings.FieldsFunc(clause, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '('
	})
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
