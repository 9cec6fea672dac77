// Package database defines the backend driver contract and the connection
// handle shared by every dialect.
package database

import (
	"context"

	"github.com/satishbabariya/dbexec/internal/config"
	"github.com/satishbabariya/dbexec/internal/core/statement"
)

// Driver is the capability set implemented per dialect. A Driver owns one
// connection handle; it is not safe for concurrent use.
type Driver interface {
	// Dialect returns the dialect the driver speaks.
	Dialect() config.Dialect

	// Connect opens the connection handle. With testOnly a failure is
	// reported as false instead of a ConnectionError, and the handle is
	// closed again after a successful test.
	Connect(ctx context.Context, testOnly bool) (bool, error)

	// Execute runs literal SQL without binding.
	Execute(ctx context.Context, sql string) (*Outcome, error)

	// ExecutePrepared binds p's values and runs it once.
	ExecutePrepared(ctx context.Context, p *statement.Prepared) (*Outcome, error)

	// Begin opens the handle's single transaction.
	Begin(ctx context.Context) (*Tx, error)

	// DeclareCursor opens a forward-only cursor named name over sql inside tx.
	DeclareCursor(ctx context.Context, tx *Tx, name, sql string) (Cursor, error)

	// IntrospectColumns describes the columns of schema.table, optionally
	// restricted to the named columns.
	IntrospectColumns(ctx context.Context, schema, table string, columns ...string) ([]Column, error)

	// Quote escapes text as a string literal.
	Quote(text string) string

	// ServerVersion returns the backend's version string.
	ServerVersion(ctx context.Context) (string, error)

	// Diagnose extracts native diagnostic fields from a driver error.
	Diagnose(err error) map[string]any

	// SetFetchShape sets the row shape for Execute and transaction queries.
	SetFetchShape(shape statement.FetchShape)

	// Close rolls back any open transaction and closes the handle.
	Close() error
}

// Cursor pulls rows from an open server-side cursor or result stream.
type Cursor interface {
	// Fetch returns at most n rows. An empty batch means the cursor is
	// exhausted.
	Fetch(ctx context.Context, n int) ([]Row, error)

	// Close releases the cursor. It is safe to call more than once.
	Close(ctx context.Context) error
}

// Row is one result row keyed according to the fetch shape.
type Row map[string]any

// Outcome is the result of one statement: rows for statements that return
// them, otherwise the affected-row count.
type Outcome struct {
	Columns  []string `json:"columns,omitempty"`
	Rows     []Row    `json:"rows,omitempty"`
	Affected int64    `json:"affected"`
}

// Column is the uniform column metadata record.
type Column struct {
	Name            string  `json:"name"`
	Ordinal         int     `json:"ordinal"`
	Type            string  `json:"type"`
	TypeModifier    int64   `json:"typeModifier"`
	NotNull         bool    `json:"notNull"`
	HasDefault      bool    `json:"hasDefault"`
	DefaultExpr     *string `json:"defaultExpr"`
	IsAutoIncrement bool    `json:"isAutoIncrement"`
	Comment         string  `json:"comment"`
}

// FilterColumns keeps the columns named in names, preserving ordinal order.
// An empty filter keeps everything.
func FilterColumns(cols []Column, names ...string) []Column {
	if len(names) == 0 {
		return cols
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := make([]Column, 0, len(names))
	for _, c := range cols {
		if want[c.Name] {
			out = append(out, c)
		}
	}
	return out
}
