package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/dbexec/internal/debug"
	"github.com/satishbabariya/dbexec/pkg/dbexec"
)

func newCursorCommand(a *app) *cobra.Command {
	var (
		name      string
		batchSize int
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "cursor <select>",
		Short: "Stream a SELECT through a server-side cursor",
		Long: `Stream the rows of a SELECT in fixed-size batches. Only one batch is held
in memory at a time; each batch is printed as it arrives.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var batches, rows int
			done := debug.Op("streamCursor", a.backendName())
			err := a.engine.ForEachBatch(cmd.Context(), args[0], name, batchSize, func(batch []dbexec.Row) error {
				batches++
				rows += len(batch)
				debug.Debug("cursor batch", "cursor", name, "batch", batches, "rows", len(batch))
				if asJSON {
					return a.printer.JSON(batch)
				}
				a.printer.Title(fmt.Sprintf("batch %d", batches))
				return a.printer.Rows(batch, nil)
			}, a.calls()...)
			done(err)
			if err != nil {
				return err
			}
			if !asJSON {
				a.printer.Info("%d rows in %d batches", rows, batches)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "dbexec_cursor", "cursor name")
	cmd.Flags().IntVar(&batchSize, "batch-size", 100, "rows per fetch")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print each batch as a JSON array")
	return cmd
}
