// Package dbexec is the public entry point of the execution layer. An
// Engine resolves a named backend, opens a dedicated connection for the
// call, runs the operation and closes the connection again.
package dbexec

import (
	"context"
	"sync"

	"github.com/satishbabariya/dbexec/internal/adapters/database"
	"github.com/satishbabariya/dbexec/internal/adapters/database/mysql"
	"github.com/satishbabariya/dbexec/internal/adapters/database/postgres"
	"github.com/satishbabariya/dbexec/internal/adapters/database/sqlite"
	"github.com/satishbabariya/dbexec/internal/config"
	"github.com/satishbabariya/dbexec/internal/core/cursor"
	"github.com/satishbabariya/dbexec/internal/core/statement"
	"github.com/satishbabariya/dbexec/internal/core/txn"
	"github.com/satishbabariya/dbexec/pkg/dberr"
)

// Row is one fetched row.
type Row = database.Row

// Column is one column metadata record.
type Column = database.Column

// Result is the envelope returned by ExecuteBatch.
type Result = txn.Result

// Engine executes operations against configured backends. It holds no
// connections between calls and is safe for concurrent use.
type Engine struct {
	source    config.Source
	decrypter config.Decrypter
	factories map[config.Dialect]DriverFactory

	mu    sync.RWMutex
	fetch statement.FetchShape
}

// New creates an engine over source.
func New(source Source, opts ...Option) *Engine {
	e := &Engine{
		source: source,
		factories: map[config.Dialect]DriverFactory{
			config.PostgreSQL: func(b config.Backend) database.Driver { return postgres.New(b) },
			config.MySQL:      func(b config.Backend) database.Driver { return mysql.New(b) },
			config.SQLite:     func(b config.Backend) database.Driver { return sqlite.New(b) },
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetFetchShape sets the row shape used by subsequent calls.
func (e *Engine) SetFetchShape(shape FetchShape) error {
	if !shape.Valid() {
		return dberr.Validation("dbexec.setFetchShape", "unknown fetch shape %s", shape)
	}
	e.mu.Lock()
	e.fetch = shape
	e.mu.Unlock()
	return nil
}

// FetchShape returns the current row shape.
func (e *Engine) FetchShape() FetchShape {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fetch
}

// TestConnection reports whether the backend can be reached. A backend
// that cannot be reached is not an error.
func (e *Engine) TestConnection(ctx context.Context, opts ...CallOption) (bool, error) {
	var ok bool
	err := e.do(ctx, "testConnection", opts, func(drv database.Driver) error {
		var err error
		ok, err = drv.Connect(ctx, true)
		return err
	})
	return ok, err
}

// ExecRaw runs literal SQL and returns the affected-row count.
func (e *Engine) ExecRaw(ctx context.Context, sql string, opts ...CallOption) (int64, error) {
	var n int64
	err := e.do(ctx, "execRaw", opts, func(drv database.Driver) error {
		out, err := drv.Execute(ctx, sql)
		if err != nil {
			return err
		}
		n = out.Affected
		return nil
	})
	return n, err
}

// QueryRaw runs literal SQL and returns its rows.
func (e *Engine) QueryRaw(ctx context.Context, sql string, opts ...CallOption) ([]Row, error) {
	var rows []Row
	err := e.do(ctx, "queryRaw", opts, func(drv database.Driver) error {
		out, err := drv.Execute(ctx, sql)
		if err != nil {
			return err
		}
		rows = out.Rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

// Execute validates s, then binds and runs it once. Rows are shaped by the
// statement's own fetch shape.
func (e *Engine) Execute(ctx context.Context, s Statement, opts ...CallOption) (*Outcome, error) {
	p, err := statement.Validate(s)
	if err != nil {
		return nil, annotate(err, "execute", applyCall(opts))
	}

	var out *database.Outcome
	err = e.do(ctx, "execute", opts, func(drv database.Driver) error {
		var err error
		out, err = drv.ExecutePrepared(ctx, p)
		return err
	})
	return out, err
}

// ExecuteBatch runs ops atomically and aggregates their results. The batch
// is validated in full before a connection is opened.
func (e *Engine) ExecuteBatch(ctx context.Context, ops []Operation, opts ...CallOption) (*Result, error) {
	steps, err := txn.Plan(ops)
	if err != nil {
		return nil, annotate(err, "executeBatch", applyCall(opts))
	}

	var res *Result
	err = e.do(ctx, "executeBatch", opts, func(drv database.Driver) error {
		var err error
		res, err = txn.Execute(ctx, drv, steps, ops)
		return err
	})
	return res, err
}

// StreamCursor reads query through a cursor in batches of batchSize and
// returns every row.
func (e *Engine) StreamCursor(ctx context.Context, query, name string, batchSize int, opts ...CallOption) ([]Row, error) {
	rows := []Row{}
	err := e.ForEachBatch(ctx, query, name, batchSize, func(batch []Row) error {
		rows = append(rows, batch...)
		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ForEachBatch reads query through a cursor and hands each non-empty batch
// to fn. Returning an error from fn stops the cursor and rolls back.
func (e *Engine) ForEachBatch(ctx context.Context, query, name string, batchSize int, fn func(batch []Row) error, opts ...CallOption) error {
	if err := cursor.Validate(name, query, batchSize); err != nil {
		return annotate(err, "streamCursor", applyCall(opts))
	}
	return e.do(ctx, "streamCursor", opts, func(drv database.Driver) error {
		return cursor.Stream(ctx, drv, name, query, batchSize, fn)
	})
}

// FetchAllAssoc runs query and returns rows keyed by column name,
// regardless of the engine's fetch shape.
func (e *Engine) FetchAllAssoc(ctx context.Context, query string, opts ...CallOption) ([]Row, error) {
	var rows []Row
	err := e.do(ctx, "fetchAllAssoc", opts, func(drv database.Driver) error {
		drv.SetFetchShape(statement.FetchAssoc)
		out, err := drv.Execute(ctx, query)
		if err != nil {
			return err
		}
		rows = out.Rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

// FetchAllScalar runs query and returns the first column of each row.
func (e *Engine) FetchAllScalar(ctx context.Context, query string, opts ...CallOption) ([]any, error) {
	var values []any
	err := e.do(ctx, "fetchAllScalar", opts, func(drv database.Driver) error {
		out, err := drv.Execute(ctx, query)
		if err != nil {
			return err
		}
		values = database.FirstColumn(out.Rows, out.Columns)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

// IntrospectColumns describes the columns of schema.table, restricted to
// columns when any are named.
func (e *Engine) IntrospectColumns(ctx context.Context, schema, table string, columns []string, opts ...CallOption) ([]Column, error) {
	if table == "" {
		return nil, annotate(dberr.Validation("columns", "table name is required"), "introspectColumns", applyCall(opts))
	}

	var cols []Column
	err := e.do(ctx, "introspectColumns", opts, func(drv database.Driver) error {
		var err error
		cols, err = drv.IntrospectColumns(ctx, schema, table, columns...)
		return err
	})
	return cols, err
}

// Quote escapes text as a string literal for the backend's dialect. No
// connection is opened.
func (e *Engine) Quote(text string, opts ...CallOption) (string, error) {
	var quoted string
	err := e.do(context.Background(), "quote", opts, func(drv database.Driver) error {
		quoted = drv.Quote(text)
		return nil
	})
	return quoted, err
}

// ServerVersion returns the backend's version string.
func (e *Engine) ServerVersion(ctx context.Context, opts ...CallOption) (string, error) {
	var v string
	err := e.do(ctx, "serverVersion", opts, func(drv database.Driver) error {
		var err error
		v, err = drv.ServerVersion(ctx)
		return err
	})
	return v, err
}

// Driver resolves a backend and returns a fresh driver for it. The caller
// owns the driver and must close it.
func (e *Engine) Driver(ctx context.Context, opts ...CallOption) (Driver, error) {
	c := applyCall(opts)
	drv, err := e.open(ctx, c)
	if err != nil {
		return nil, annotate(err, "driver", c)
	}
	return drv, nil
}

func (e *Engine) open(ctx context.Context, c call) (database.Driver, error) {
	b, err := e.source.Backend(c.backend)
	if err != nil {
		return nil, err
	}

	factory, ok := e.factories[b.Dialect]
	if !ok || factory == nil {
		return nil, dberr.Newf(dberr.KindConfiguration, "backend."+b.Name,
			"unsupported dialect %q", string(b.Dialect))
	}

	resolved, err := config.Resolve(ctx, b, e.decrypter)
	if err != nil {
		return nil, dberr.Wrap(dberr.KindConfiguration, "backend."+b.Name, err)
	}

	drv := factory(resolved)
	drv.SetFetchShape(e.FetchShape())
	return drv, nil
}

// do runs fn against a fresh driver and closes it on every exit path. A
// close failure is reported only when fn itself succeeded.
func (e *Engine) do(ctx context.Context, op string, opts []CallOption, fn func(drv database.Driver) error) (err error) {
	c := applyCall(opts)

	drv, err := e.open(ctx, c)
	if err != nil {
		return annotate(err, op, c)
	}
	defer func() {
		if cerr := drv.Close(); cerr != nil && err == nil {
			err = annotate(dberr.Wrap(dberr.KindConnection, "close", cerr), op, c)
		}
	}()

	if err := fn(drv); err != nil {
		return annotate(err, op, c)
	}
	return nil
}

// annotate prefixes the error path with the facade operation and applies
// the call's context tag.
func annotate(err error, op string, c call) error {
	e, ok := dberr.As(err)
	if !ok {
		e = dberr.Wrap(dberr.KindExecution, "", err)
	}
	e.Prefix("dbexec", op)
	if e.Context == "" {
		e.WithContext(c.tag)
	}
	return e
}
