package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/dbexec/internal/version"
)

func newVersionCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if asJSON {
				return a.printer.JSON(info)
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.FullString())
			if !info.Valid() {
				a.printer.Warning("%q is not a semantic version; this is a development build", info.Version)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print version information as JSON")
	return cmd
}
