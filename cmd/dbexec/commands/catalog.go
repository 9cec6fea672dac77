package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/dbexec/internal/adapters/database"
	"github.com/satishbabariya/dbexec/internal/debug"
	"github.com/satishbabariya/dbexec/internal/ui"
)

func newColumnsCommand(a *app) *cobra.Command {
	var (
		schema   string
		markdown bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "columns <table> [column...]",
		Short: "Describe the columns of a table",
		Long: `Describe the columns of a table from the backend catalog. Naming columns
restricts the output to them. The schema defaults to public on
PostgreSQL, the current database on MySQL and main on SQLite.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, names := args[0], args[1:]

			done := debug.Op("introspectColumns", a.backendName())
			cols, err := a.engine.IntrospectColumns(cmd.Context(), schema, table, names, a.calls()...)
			done(err)
			if err != nil {
				return err
			}

			switch {
			case asJSON:
				return a.printer.JSON(cols)
			case markdown:
				return a.printer.Markdown(ui.ColumnsMarkdown(table, cols))
			}
			return a.printer.Columns(cols)
		},
	}

	cmd.Flags().StringVarP(&schema, "schema", "s", "", "schema or database name")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "render the description as markdown")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the column records as JSON")
	return cmd
}

func newQuoteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <text>",
		Short: "Escape text as a string literal for the backend's dialect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quoted, err := a.engine.Quote(args[0], a.calls()...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), quoted)
			return nil
		},
	}
}

func newBackendsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the configured backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([]database.Row, 0, len(a.registry.Names()))
			for _, name := range a.registry.Names() {
				b, err := a.registry.Backend(name)
				if err != nil {
					return err
				}
				def := ""
				if name == a.registry.Default() {
					def = "*"
				}
				rows = append(rows, database.Row{
					"default":  def,
					"name":     b.Name,
					"dialect":  string(b.Dialect),
					"host":     b.Host,
					"database": b.Database,
				})
			}
			return a.printer.Rows(rows, []string{"default", "name", "dialect", "host", "database"})
		},
	}
}
