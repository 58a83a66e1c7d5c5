package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tordrt/alterlite"
)

// migrationDoc is the YAML document consumed by `alterlite apply`. Each
// entry under operations carries exactly one operation key.
//
//	table: users
//	operations:
//	  - add_column: {name: age, type: INTEGER}
//	  - drop_column: legacy_flags
//	  - rename_column: {from: mail, to: email}
//	  - add_foreign_key: {column: team_id, ref_table: teams, ref_column: id, on_delete: CASCADE}
//	  - drop_foreign_key: team_id
//	  - add_index: {name: ix_users_email, columns: [email]}
//	  - drop_index: ix_users_email
//	  - make_unique: {columns: [a, b], unique: true}
type migrationDoc struct {
	Table      string         `yaml:"table"`
	Operations []operationDoc `yaml:"operations"`
}

type operationDoc struct {
	AddColumn      *columnDoc     `yaml:"add_column"`
	DropColumn     string         `yaml:"drop_column"`
	RenameColumn   *renameDoc     `yaml:"rename_column"`
	AddForeignKey  *foreignKeyDoc `yaml:"add_foreign_key"`
	DropForeignKey string         `yaml:"drop_foreign_key"`
	AddIndex       *indexDoc      `yaml:"add_index"`
	DropIndex      string         `yaml:"drop_index"`
	MakeUnique     *makeUniqueDoc `yaml:"make_unique"`
}

type columnDoc struct {
	Name    string  `yaml:"name"`
	Type    string  `yaml:"type"`
	NotNull bool    `yaml:"not_null"`
	Unique  bool    `yaml:"unique"`
	Default *string `yaml:"default"`
	Check   string  `yaml:"check"`
}

type renameDoc struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type foreignKeyDoc struct {
	Column    string `yaml:"column"`
	RefTable  string `yaml:"ref_table"`
	RefColumn string `yaml:"ref_column"`
	OnDelete  string `yaml:"on_delete"`
	OnUpdate  string `yaml:"on_update"`
}

type indexDoc struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique"`
	Where   string   `yaml:"where"`
}

type makeUniqueDoc struct {
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique"`
}

func loadMigration(path string) (*migrationDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration file: %w", err)
	}
	var doc migrationDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse migration file: %w", err)
	}
	if doc.Table == "" {
		return nil, fmt.Errorf("migration file is missing the table name")
	}
	if len(doc.Operations) == 0 {
		return nil, fmt.Errorf("migration file has no operations")
	}
	return &doc, nil
}

// accumulate records the document's operations on an Alterer.
func (doc *migrationDoc) accumulate(a *alterlite.Alterer) error {
	for i, op := range doc.Operations {
		switch {
		case op.AddColumn != nil:
			a.AddColumn(op.AddColumn.column())
		case op.DropColumn != "":
			a.DropColumn(op.DropColumn)
		case op.RenameColumn != nil:
			a.RenameColumn(op.RenameColumn.From, op.RenameColumn.To)
		case op.AddForeignKey != nil:
			fk := op.AddForeignKey
			a.AddForeignKey(alterlite.ForeignKey{
				Column:    fk.Column,
				RefTable:  fk.RefTable,
				RefColumn: fk.RefColumn,
				OnDelete:  alterlite.Action(fk.OnDelete),
				OnUpdate:  alterlite.Action(fk.OnUpdate),
			})
		case op.DropForeignKey != "":
			a.DropForeignKey(op.DropForeignKey)
		case op.AddIndex != nil:
			ix := op.AddIndex
			a.AddIndex(alterlite.Index{
				Name:    ix.Name,
				Columns: ix.Columns,
				Unique:  ix.Unique,
				Where:   ix.Where,
			})
		case op.DropIndex != "":
			a.DropIndex(op.DropIndex)
		case op.MakeUnique != nil:
			a.MakeColumnsUnique(op.MakeUnique.Columns, op.MakeUnique.Unique)
		default:
			return fmt.Errorf("operation %d specifies no known operation key", i+1)
		}
	}
	return nil
}

func (c *columnDoc) column() alterlite.Column {
	col := alterlite.Column{
		Name:    c.Name,
		Type:    c.Type,
		NotNull: c.NotNull,
		Unique:  c.Unique,
		Check:   c.Check,
	}
	if c.Default != nil {
		col.Default = alterlite.TextDefault(*c.Default)
	}
	return col
}
