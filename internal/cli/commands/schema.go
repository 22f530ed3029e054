package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/askdb-io/askdb/internal/database"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [table]",
		Short: "Show the database schema",
		Long:  "Show the schema of the configured database, or the columns of a single table.",
		Example: `  askdb schema
  askdb schema Invoice`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, cleanup, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if len(args) == 1 {
				return printTableSchema(cmd.Context(), cmd.OutOrStdout(), db, args[0])
			}

			text, err := db.SchemaText(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables in the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, cleanup, err := openDatabase(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			names, err := db.Tables(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

// printTableSchema renders one table's columns as a table.
func printTableSchema(ctx context.Context, w io.Writer, db *database.DB, name string) error {
	cols, err := db.Columns(ctx, name)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Type", "Not Null", "Primary Key"})
	for _, c := range cols {
		t.AppendRow(table.Row{c.Name, c.Type, yesNo(c.NotNull), yesNo(c.PrimaryKey)})
	}
	t.Render()
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
