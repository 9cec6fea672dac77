package database

import (
	"context"
	"database/sql"

	"github.com/satishbabariya/dbexec/internal/core/statement"
)

// Tx is the single open transaction of a connection handle. Its methods
// return native driver errors; callers type them with Driver.Diagnose.
type Tx struct {
	base *Base
	tx   *sql.Tx
	done bool
}

// Native returns the underlying transaction.
func (t *Tx) Native() *sql.Tx {
	return t.tx
}

// FetchShape returns the row shape of the owning handle.
func (t *Tx) FetchShape() statement.FetchShape {
	return t.base.fetch
}

// Query runs literal SQL and returns its rows.
func (t *Tx) Query(ctx context.Context, text string) ([]Row, error) {
	rows, err := t.tx.QueryContext(ctx, text)
	if err != nil {
		return nil, err
	}
	data, _, err := ScanRows(rows, t.base.fetch)
	return data, err
}

// Exec runs literal SQL and returns the affected-row count. Statements that
// produce a result set are drained and count their rows.
func (t *Tx) Exec(ctx context.Context, text string) (int64, error) {
	out, err := run(ctx, t.tx, text, nil, t.base.fetch)
	if err != nil {
		return 0, err
	}
	return out.Affected, nil
}

// Insert runs a literal INSERT and returns the affected-row count and the
// generated identifier.
func (t *Tx) Insert(ctx context.Context, text string) (int64, any, error) {
	return t.insert(ctx, statement.HasReturning(text),
		func() (*sql.Rows, error) { return t.tx.QueryContext(ctx, text) },
		func() (sql.Result, error) { return t.tx.ExecContext(ctx, text) },
	)
}

// Prepare prepares a statement written with :name placeholders.
func (t *Tx) Prepare(ctx context.Context, text string) (*Stmt, error) {
	native, order := statement.Rebind(text, t.base.opts.Placeholder)
	stmt, err := t.tx.PrepareContext(ctx, native)
	if err != nil {
		return nil, err
	}
	return &Stmt{
		tx:        t,
		stmt:      stmt,
		text:      native,
		order:     order,
		returning: statement.HasReturning(text),
		rows:      ReturnsRows(text),
	}, nil
}

// Commit commits the transaction and frees the handle for the next one.
func (t *Tx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.finish()
	return t.tx.Commit()
}

// Rollback aborts the transaction. Rolling back a finished transaction is a
// no-op.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.finish()
	return t.tx.Rollback()
}

func (t *Tx) finish() {
	t.done = true
	if t.base.tx == t {
		t.base.tx = nil
	}
}

func (t *Tx) insert(ctx context.Context, returning bool, query func() (*sql.Rows, error), exec func() (sql.Result, error)) (int64, any, error) {
	if returning {
		rows, err := query()
		if err != nil {
			return 0, nil, err
		}
		data, _, err := ScanRows(rows, statement.FetchNum)
		if err != nil {
			return 0, nil, err
		}
		var id any
		if len(data) > 0 {
			id = data[0]["0"]
		}
		return int64(len(data)), id, nil
	}

	res, err := exec()
	if err != nil {
		return 0, nil, err
	}
	n := rowsAffected(res)
	if t.base.opts.LastInsertID == nil {
		return n, nil, nil
	}
	id, err := t.base.opts.LastInsertID(ctx, t.tx, res)
	if err != nil {
		return 0, nil, err
	}
	return n, id, nil
}

// Stmt is a prepared statement inside a Tx, executed once per set of named
// values.
type Stmt struct {
	tx        *Tx
	stmt      *sql.Stmt
	text      string
	order     []string
	returning bool
	rows      bool
}

// Text returns the statement in the native placeholder style.
func (s *Stmt) Text() string {
	return s.text
}

func (s *Stmt) args(values map[string]any) []any {
	args := make([]any, len(s.order))
	for i, name := range s.order {
		args[i] = values[name]
	}
	return args
}

// Query executes the statement and returns its rows.
func (s *Stmt) Query(ctx context.Context, values map[string]any) ([]Row, error) {
	rows, err := s.stmt.QueryContext(ctx, s.args(values)...)
	if err != nil {
		return nil, err
	}
	data, _, err := ScanRows(rows, s.tx.base.fetch)
	return data, err
}

// Exec executes the statement and returns the affected-row count.
func (s *Stmt) Exec(ctx context.Context, values map[string]any) (int64, error) {
	if s.rows {
		data, err := s.Query(ctx, values)
		return int64(len(data)), err
	}
	res, err := s.stmt.ExecContext(ctx, s.args(values)...)
	if err != nil {
		return 0, err
	}
	return rowsAffected(res), nil
}

// Insert executes the statement and returns the affected-row count and the
// generated identifier.
func (s *Stmt) Insert(ctx context.Context, values map[string]any) (int64, any, error) {
	args := s.args(values)
	return s.tx.insert(ctx, s.returning,
		func() (*sql.Rows, error) { return s.stmt.QueryContext(ctx, args...) },
		func() (sql.Result, error) { return s.stmt.ExecContext(ctx, args...) },
	)
}

// Close releases the prepared statement.
func (s *Stmt) Close() error {
	return s.stmt.Close()
}
