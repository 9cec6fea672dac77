package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/dbexec/internal/config"
	"github.com/satishbabariya/dbexec/internal/core/statement"
	"github.com/satishbabariya/dbexec/internal/debug"
	"github.com/satishbabariya/dbexec/internal/ui"
	"github.com/satishbabariya/dbexec/pkg/dberr"
)

func newExecCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <sql>",
		Short: "Execute literal SQL and print the affected row count",
		Long: `Execute literal SQL without parameter binding. Any statement the backend
accepts is allowed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			done := debug.Op("execRaw", a.backendName())
			n, err := a.engine.ExecRaw(cmd.Context(), args[0], a.calls()...)
			done(err)
			if err != nil {
				return err
			}
			a.printer.Success("%d rows affected", n)
			return nil
		},
	}
}

type queryFlags struct {
	fetch  string
	params []string
	types  []string
	scalar bool
	json   bool
}

func newQueryCommand(a *app) *cobra.Command {
	var f queryFlags

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Validate and run one statement with named parameters",
		Long: `Validate and run one statement. Parameters are written as :name in the
SQL and bound with --param name=value; --type gives one type per
parameter in order of first appearance (str, int, bool, null, lob).`,
		Example: `  dbexec query "SELECT * FROM users WHERE id = :id" --param id=7 --type int
  dbexec query "SELECT email FROM users" --scalar`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.scalar {
				done := debug.Op("fetchAllScalar", a.backendName())
				values, err := a.engine.FetchAllScalar(cmd.Context(), args[0], a.calls()...)
				done(err)
				if err != nil {
					return err
				}
				if f.json {
					return a.printer.JSON(values)
				}
				for _, v := range values {
					fmt.Fprintln(cmd.OutOrStdout(), ui.Cell(v))
				}
				return nil
			}

			st, err := f.statement(args[0])
			if err != nil {
				return err
			}
			return a.execute(cmd, st, f.json)
		},
	}

	cmd.Flags().StringVar(&f.fetch, "fetch", "assoc", "row shape: assoc, num or both")
	cmd.Flags().StringArrayVarP(&f.params, "param", "p", nil, "parameter value as name=value (repeatable)")
	cmd.Flags().StringSliceVarP(&f.types, "type", "t", nil, "parameter types in order")
	cmd.Flags().BoolVar(&f.scalar, "scalar", false, "print only the first column of each row")
	cmd.Flags().BoolVar(&f.json, "json", false, "print the result as JSON")
	return cmd
}

func (f queryFlags) statement(sql string) (statement.Statement, error) {
	shape, err := statement.ParseFetchShape(f.fetch)
	if err != nil {
		return statement.Statement{}, dberr.Validation("flags.fetch", "%v", err)
	}
	values, err := parseParams(f.params)
	if err != nil {
		return statement.Statement{}, err
	}
	types := make([]statement.ParamType, 0, len(f.types))
	for _, tag := range f.types {
		t, err := statement.ParseParamType(tag)
		if err != nil {
			return statement.Statement{}, dberr.Validation("flags.type", "%v", err)
		}
		types = append(types, t)
	}
	return statement.Statement{SQL: sql, Fetch: shape, Types: types, Values: values}, nil
}

// parseParams splits name=value pairs. The value may itself contain '='.
func parseParams(pairs []string) (map[string]any, error) {
	values := make(map[string]any, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		name = strings.TrimPrefix(strings.TrimSpace(name), ":")
		if !ok || name == "" {
			return nil, dberr.Validation("flags.param", "parameter %q is not name=value", p)
		}
		values[name] = value
	}
	return values, nil
}

func newRunCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run <statement.json>",
		Short: "Run a statement descriptor read from a JSON file",
		Long: `Run one statement descriptor of the form
{"text": "...", "paramNames": [...], "paramTypes": [...], "<name>": value}.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := afero.ReadFile(config.AppFs, args[0])
			if err != nil {
				return dberr.Wrap(dberr.KindValidation, "run", err)
			}
			var st statement.Statement
			if err := json.Unmarshal(data, &st); err != nil {
				return dberr.Wrap(dberr.KindValidation, "run", err).WithPayload(string(data))
			}
			return a.execute(cmd, st, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func (a *app) execute(cmd *cobra.Command, st statement.Statement, asJSON bool) error {
	done := debug.Op("execute", a.backendName())
	out, err := a.engine.Execute(cmd.Context(), st, a.calls()...)
	done(err)
	if err != nil {
		return err
	}

	if asJSON {
		return a.printer.JSON(out)
	}
	if len(out.Columns) == 0 {
		a.printer.Success("%d rows affected", out.Affected)
		return nil
	}
	return a.printer.Rows(out.Rows, displayColumns(st.Fetch, out.Columns))
}

// displayColumns keeps the result's column order when rows are keyed by
// name. Ordinal keys are ordered by the table renderer.
func displayColumns(shape statement.FetchShape, columns []string) []string {
	if shape != statement.FetchAssoc {
		return nil
	}
	return columns
}
