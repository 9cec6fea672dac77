package commands

import (
	"github.com/spf13/cobra"

	"github.com/satishbabariya/dbexec/internal/adapters/database"
	"github.com/satishbabariya/dbexec/internal/debug"
	"github.com/satishbabariya/dbexec/pkg/dberr"
)

func newPingCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the backend is reachable and recent enough",
		Long: `Open and close a connection to the backend, then check its server version
against the minimum supported for its dialect (PostgreSQL 9.6, MySQL 5.7,
SQLite 3.8.3).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, err := a.registry.Backend(a.backend)
			if err != nil {
				return err
			}

			done := debug.Op("testConnection", b.Name)
			ok, err := a.engine.TestConnection(ctx, a.calls()...)
			done(err)
			if err != nil {
				return err
			}
			if !ok {
				a.printer.Status(false, "%s is unreachable", b.Name)
				return dberr.Newf(dberr.KindConnection, "ping", "backend %q is unreachable", b.Name).
					WithContext(a.tag)
			}

			raw, err := a.engine.ServerVersion(ctx, a.calls()...)
			if err != nil {
				return err
			}
			v, err := database.CheckServerVersion(b.Dialect, raw)
			if err != nil {
				a.printer.Status(false, "%s runs %s %s", b.Name, b.Dialect, raw)
				return err
			}
			a.printer.Status(true, "%s runs %s %s", b.Name, b.Dialect, v)
			return nil
		},
	}
}
