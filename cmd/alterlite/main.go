package main

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/tordrt/alterlite"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "alterlite",
	Short: "Evolve SQLite table schemas safely",
	Long: `alterlite applies schema changes that SQLite's ALTER TABLE cannot express
directly - dropping or retyping columns, adding or removing foreign keys,
changing unique constraints - by rebuilding the table atomically while
preserving every row and constraint.`,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [table...]",
	Short: "Show columns, foreign keys and indexes of tables",
	RunE:  runInspect,
}

var applyCmd = &cobra.Command{
	Use:   "apply <migration.yaml>",
	Short: "Apply a migration document to the database",
	Args:  cobra.ExactArgs(1),
	RunE:  runApply,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database file path (required)")
	_ = rootCmd.MarkPersistentFlagRequired("db")
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(applyCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	db, err := alterlite.Open(ctx, dbPath, nil)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", dbPath, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close database: %v\n", err)
		}
	}()

	tables := args
	if len(tables) == 0 {
		if tables, err = db.Tables(ctx); err != nil {
			return fmt.Errorf("failed to list tables: %w", err)
		}
	}

	for _, name := range tables {
		table, err := db.Inspect(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to inspect %s: %w", name, err)
		}
		printTable(table)
	}
	return nil
}

func printTable(t *alterlite.Table) {
	fmt.Printf("== %s\n", t.Name)

	w := tablewriter.NewWriter(os.Stdout)
	w.SetHeader([]string{"Column", "Type", "Null", "PK", "Unique", "Default"})
	w.SetBorder(false)
	w.SetColumnSeparator(" ")
	for _, col := range t.Columns {
		w.Append([]string{
			col.Name,
			col.Type,
			yesNo(!col.NotNull),
			yesNo(col.PrimaryKey),
			yesNo(col.Unique),
			col.Default.SQL(),
		})
	}
	w.Render()

	if len(t.ForeignKeys) > 0 {
		fmt.Println()
		w := tablewriter.NewWriter(os.Stdout)
		w.SetHeader([]string{"Column", "References", "On Delete", "On Update"})
		w.SetBorder(false)
		w.SetColumnSeparator(" ")
		for _, fk := range t.ForeignKeys {
			w.Append([]string{
				fk.Column,
				fk.RefTable + "." + fk.RefColumn,
				string(fk.OnDelete),
				string(fk.OnUpdate),
			})
		}
		w.Render()
	}

	if len(t.Indexes) > 0 {
		fmt.Println()
		w := tablewriter.NewWriter(os.Stdout)
		w.SetHeader([]string{"Index", "Columns", "Unique"})
		w.SetBorder(false)
		w.SetColumnSeparator(" ")
		for _, ix := range t.Indexes {
			cols := ""
			for i, c := range ix.Columns {
				if i > 0 {
					cols += ", "
				}
				cols += c
			}
			w.Append([]string{ix.Name, cols, yesNo(ix.Unique)})
		}
		w.Render()
	}
	fmt.Println()
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	doc, err := loadMigration(args[0])
	if err != nil {
		return err
	}

	db, err := alterlite.Open(ctx, dbPath, nil)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", dbPath, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to close database: %v\n", err)
		}
	}()

	a := db.AlterTable(doc.Table)
	if err := doc.accumulate(a); err != nil {
		return err
	}
	if err := a.Execute(ctx); err != nil {
		return fmt.Errorf("failed to apply migration to %s: %w", doc.Table, err)
	}

	fmt.Printf("applied %d operations to %s\n", len(doc.Operations), doc.Table)
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
