// Package report is the logging collaborator for typed execution errors.
// It turns a dberr.Error into one structured log record and picks the
// process exit code for the CLI.
package report

import (
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/satishbabariya/dbexec/pkg/dberr"
)

// Exit codes by error kind.
const (
	ExitOK = iota
	ExitUnknown
	ExitConfiguration
	ExitConnection
	ExitValidation
	ExitExecution
	ExitTransaction
)

var exitCodes = map[dberr.Kind]int{
	dberr.KindConfiguration: ExitConfiguration,
	dberr.KindConnection:    ExitConnection,
	dberr.KindValidation:    ExitValidation,
	dberr.KindExecution:     ExitExecution,
	dberr.KindTransaction:   ExitTransaction,
}

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if code, ok := exitCodes[dberr.KindOf(err)]; ok {
		return code
	}
	return ExitUnknown
}

// Reporter logs errors through a slog.Logger.
type Reporter struct {
	logger *slog.Logger
}

// New creates a Reporter writing to logger.
func New(logger *slog.Logger) *Reporter {
	return &Reporter{logger: logger}
}

// Report logs err. Typed errors are logged with their kind, path, context,
// diagnostics and payload; anything else is logged with its message only.
func (r *Reporter) Report(err error) {
	if err == nil {
		return
	}
	e, ok := dberr.As(err)
	if !ok {
		r.logger.Error(err.Error())
		return
	}
	r.logger.Error(e.Message, Attrs(e)...)
}

// Attrs returns the log attributes of e.
func Attrs(e *dberr.Error) []any {
	attrs := []any{slog.String("kind", e.Kind.String())}
	if e.Path != "" {
		attrs = append(attrs, slog.String("path", e.Path))
	}
	if e.Context != "" {
		attrs = append(attrs, slog.String("context", string(e.Context)))
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		details := make([]any, 0, len(keys))
		for _, k := range keys {
			details = append(details, slog.Any(k, e.Details[k]))
		}
		attrs = append(attrs, slog.Group("details", details...))
	}
	if e.Payload != nil {
		attrs = append(attrs, slog.String("payload", payload(e.Payload)))
	}
	return attrs
}

func payload(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err.Error()
	}
	return string(data)
}
