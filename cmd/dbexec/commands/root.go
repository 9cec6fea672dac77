// Package commands implements the dbexec CLI commands.
package commands

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/dbexec/internal/config"
	"github.com/satishbabariya/dbexec/internal/debug"
	"github.com/satishbabariya/dbexec/internal/report"
	"github.com/satishbabariya/dbexec/internal/ui"
	"github.com/satishbabariya/dbexec/internal/version"
	"github.com/satishbabariya/dbexec/pkg/dberr"
	"github.com/satishbabariya/dbexec/pkg/dbexec"
)

// skipConfig marks commands that run without loading backends.
const skipConfig = "skip-config"

// app carries the global flags and the state built from them.
type app struct {
	configFile string
	backend    string
	context    string
	debug      bool
	prompt     bool

	registry *config.Registry
	engine   *dbexec.Engine
	printer  *ui.Printer
	tag      dberr.Context
}

// NewRootCommand creates the dbexec command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "dbexec",
		Short: "Run validated SQL against configured database backends",
		Long: `dbexec validates and executes SQL statements, transactional batches
and cursor streams against PostgreSQL, MySQL and SQLite backends
configured in .dbexec.yaml.`,
		Version:           version.Get().String(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: .dbexec.yaml in ., $HOME or $HOME/.config/dbexec)")
	flags.StringVarP(&a.backend, "backend", "b", "", "backend name (default: the configured default)")
	flags.StringVar(&a.context, "context", string(dberr.ContextCLI), "exception context tag attached to errors")
	flags.BoolVar(&a.debug, "debug", false, "enable debug logging")
	flags.BoolVar(&a.prompt, "ask-password", false, "prompt for the backend password")

	root.AddCommand(
		newPingCommand(a),
		newExecCommand(a),
		newQueryCommand(a),
		newRunCommand(a),
		newBatchCommand(a),
		newCursorCommand(a),
		newColumnsCommand(a),
		newQuoteCommand(a),
		newBackendsCommand(a),
		newVersionCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	debug.InitWriter(cmd.ErrOrStderr(), a.debug)
	a.printer = ui.New(cmd.OutOrStdout(), cmd.ErrOrStderr())

	tag, err := dberr.ParseContext(a.context)
	if err != nil {
		return dberr.Wrap(dberr.KindConfiguration, "flags.context", err)
	}
	a.tag = tag

	if cmd.Annotations[skipConfig] != "" {
		return nil
	}

	reg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	a.registry = reg
	debug.Debug("config loaded", "backends", reg.Names(), "default", reg.Default())

	var (
		source    config.Source    = reg
		decrypter config.Decrypter = config.EnvDecrypter{}
	)
	if a.prompt {
		source = newPromptSource(reg, askPassword)
		decrypter = config.Plaintext
	}
	a.engine = dbexec.New(source, dbexec.WithDecrypter(decrypter))
	return nil
}

// calls returns the per-call options selected by the global flags.
func (a *app) calls() []dbexec.CallOption {
	return []dbexec.CallOption{dbexec.Backend(a.backend), dbexec.Tag(a.tag)}
}

// backendName is the backend the flags select, for log records.
func (a *app) backendName() string {
	if a.backend != "" {
		return a.backend
	}
	if a.registry != nil {
		return a.registry.Default()
	}
	return ""
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	root := NewRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		ui.New(os.Stdout, os.Stderr).Error(err)
		report.New(debug.Logger()).Report(err)
		return report.ExitCode(err)
	}
	return report.ExitOK
}
