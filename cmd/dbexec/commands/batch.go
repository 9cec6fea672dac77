package commands

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/dbexec/internal/config"
	"github.com/satishbabariya/dbexec/internal/core/statement"
	"github.com/satishbabariya/dbexec/internal/debug"
	"github.com/satishbabariya/dbexec/internal/report"
	"github.com/satishbabariya/dbexec/internal/watch"
	"github.com/satishbabariya/dbexec/pkg/dberr"
	"github.com/satishbabariya/dbexec/pkg/dbexec"
)

func newBatchCommand(a *app) *cobra.Command {
	var (
		asJSON  bool
		watchIt bool
	)

	cmd := &cobra.Command{
		Use:   "batch <ops.json>",
		Short: "Run a list of operations in one transaction",
		Long: `Run an ordered list of operations atomically. Each operation is either
{"text": "<sql>"} or a template executed once per value index:

  {"template": "INSERT INTO t (a, b) VALUES (:a, :b)",
   "paramTypes": ["str", "int"], "a": ["x", "y"], "b": [1, 2]}

Any failure rolls back the whole batch. With --watch the batch is run
again every time the file changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			run := func(ctx context.Context) error {
				return a.runBatch(ctx, path, asJSON)
			}
			if !watchIt {
				return run(cmd.Context())
			}

			w, err := watch.New(path, watch.DefaultDebounce, run)
			if err != nil {
				return err
			}
			reporter := report.New(debug.Logger())
			w.OnError = func(err error) {
				a.printer.Error(err)
				reporter.Report(err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			a.printer.Info("watching %s, press Ctrl+C to stop", path)
			return w.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result envelope as JSON")
	cmd.Flags().BoolVarP(&watchIt, "watch", "w", false, "rerun the batch when the file changes")
	return cmd
}

func (a *app) runBatch(ctx context.Context, path string, asJSON bool) error {
	ops, err := readOperations(path)
	if err != nil {
		return err
	}

	done := debug.Op("executeBatch", a.backendName())
	res, err := a.engine.ExecuteBatch(ctx, ops, a.calls()...)
	done(err)
	if err != nil {
		return err
	}
	return a.printBatch(res, asJSON)
}

func readOperations(path string) ([]statement.Operation, error) {
	data, err := afero.ReadFile(config.AppFs, path)
	if err != nil {
		return nil, dberr.Wrap(dberr.KindValidation, "batch", err)
	}
	var ops []statement.Operation
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, dberr.Wrap(dberr.KindValidation, "batch", err).WithPayload(string(data))
	}
	return ops, nil
}

func (a *app) printBatch(res *dbexec.Result, asJSON bool) error {
	if asJSON {
		return a.printer.JSON(res)
	}
	a.printer.Status(res.Success, "batch committed, %d rows affected", res.AffectedRowCount)
	if len(res.InsertedIDs) > 0 {
		a.printer.Info("inserted ids: %v", res.InsertedIDs)
	}
	if len(res.Rows) > 0 {
		return a.printer.Rows(res.Rows, nil)
	}
	return nil
}
