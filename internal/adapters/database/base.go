package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/satishbabariya/dbexec/internal/core/statement"
	"github.com/satishbabariya/dbexec/pkg/dberr"
)

// Opener opens a *sql.DB. It defaults to sql.Open; tests substitute one
// that hands out sqlmock databases.
type Opener func(driverName, dsn string) (*sql.DB, error)

// Options describe the dialect-specific parts of a Base.
type Options struct {
	// DriverName is the database/sql driver name.
	DriverName string
	DSN        string

	// Placeholder is the bind-variable style :name placeholders become.
	Placeholder statement.PlaceholderStyle

	// VersionQuery returns the server version as a single string.
	VersionQuery string

	// Diagnose extracts native diagnostic fields from a driver error.
	Diagnose func(error) map[string]any

	// LastInsertID resolves the identifier generated by an INSERT without a
	// RETURNING clause. A nil id is allowed.
	LastInsertID func(ctx context.Context, tx *sql.Tx, res sql.Result) (any, error)
}

// Base is the connection handle shared by the dialect drivers. It owns a
// *sql.DB capped at a single connection and holds that connection for its
// whole lifetime, so nothing is pooled or shared. The handle opens lazily.
type Base struct {
	opts  Options
	open  Opener
	fetch statement.FetchShape

	db   *sql.DB
	conn *sql.Conn
	tx   *Tx
}

// NewBase creates an unopened handle.
func NewBase(opts Options) *Base {
	return &Base{opts: opts, open: sql.Open}
}

// SetOpener replaces the function used to open the database.
func (b *Base) SetOpener(open Opener) {
	b.open = open
}

// SetFetchShape implements Driver.
func (b *Base) SetFetchShape(shape statement.FetchShape) {
	b.fetch = shape
}

// FetchShape returns the current row shape.
func (b *Base) FetchShape() statement.FetchShape {
	return b.fetch
}

// Diagnose implements Driver.
func (b *Base) Diagnose(err error) map[string]any {
	if err == nil || b.opts.Diagnose == nil {
		return nil
	}
	return b.opts.Diagnose(err)
}

// Fail wraps a native error as a typed error carrying its diagnostics.
// Errors that are already typed pass through unchanged.
func (b *Base) Fail(kind dberr.Kind, path string, err error) *dberr.Error {
	if e, ok := dberr.As(err); ok {
		return e
	}
	return dberr.Wrap(kind, path, err).WithDetails(b.Diagnose(err))
}

// Connect implements Driver.
func (b *Base) Connect(ctx context.Context, testOnly bool) (bool, error) {
	if !testOnly {
		if _, err := b.Conn(ctx); err != nil {
			return false, err
		}
		return true, nil
	}

	if b.conn != nil {
		return b.conn.PingContext(ctx) == nil, nil
	}
	if err := b.connect(ctx); err != nil {
		return false, nil
	}
	return true, b.Close()
}

// Conn returns the dedicated connection, opening it on first use.
func (b *Base) Conn(ctx context.Context) (*sql.Conn, error) {
	if b.conn != nil {
		return b.conn, nil
	}
	if err := b.connect(ctx); err != nil {
		return nil, b.Fail(dberr.KindConnection, "connect", err)
	}
	return b.conn, nil
}

func (b *Base) connect(ctx context.Context) error {
	db, err := b.open(b.opts.DriverName, b.opts.DSN)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return err
	}

	b.db, b.conn = db, conn
	return nil
}

// Execute implements Driver.
func (b *Base) Execute(ctx context.Context, text string) (*Outcome, error) {
	conn, err := b.Conn(ctx)
	if err != nil {
		return nil, err
	}
	out, err := run(ctx, conn, text, nil, b.fetch)
	if err != nil {
		return nil, b.Fail(dberr.KindExecution, "execute", err).WithPayload(text)
	}
	return out, nil
}

// ExecutePrepared implements Driver. The statement's own fetch shape
// applies.
func (b *Base) ExecutePrepared(ctx context.Context, p *statement.Prepared) (*Outcome, error) {
	conn, err := b.Conn(ctx)
	if err != nil {
		return nil, err
	}
	text, order := statement.Rebind(p.SQL, b.opts.Placeholder)
	out, err := run(ctx, conn, text, p.Args(order), p.Fetch)
	if err != nil {
		return nil, b.Fail(dberr.KindExecution, "execute", err).WithPayload(p)
	}
	return out, nil
}

// Query runs a row-returning statement written in the native placeholder
// style. Drivers use it for catalog queries.
func (b *Base) Query(ctx context.Context, text string, args ...any) (*sql.Rows, error) {
	conn, err := b.Conn(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx, text, args...)
	if err != nil {
		return nil, b.Fail(dberr.KindExecution, "query", err)
	}
	return rows, nil
}

// ServerVersion implements Driver.
func (b *Base) ServerVersion(ctx context.Context) (string, error) {
	conn, err := b.Conn(ctx)
	if err != nil {
		return "", err
	}
	var v string
	if err := conn.QueryRowContext(ctx, b.opts.VersionQuery).Scan(&v); err != nil {
		return "", b.Fail(dberr.KindExecution, "version", err)
	}
	return v, nil
}

// Begin implements Driver.
func (b *Base) Begin(ctx context.Context) (*Tx, error) {
	if b.tx != nil {
		return nil, dberr.New(dberr.KindTransaction, "begin", "a transaction is already open on this connection")
	}
	conn, err := b.Conn(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, b.Fail(dberr.KindTransaction, "begin", err)
	}
	b.tx = &Tx{base: b, tx: tx}
	return b.tx, nil
}

// Close implements Driver.
func (b *Base) Close() error {
	var errs []error
	if b.tx != nil {
		if err := b.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			errs = append(errs, err)
		}
	}
	if b.conn != nil {
		errs = append(errs, b.conn.Close())
		b.conn = nil
	}
	if b.db != nil {
		errs = append(errs, b.db.Close())
		b.db = nil
	}
	return errors.Join(errs...)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func run(ctx context.Context, q querier, text string, args []any, shape statement.FetchShape) (*Outcome, error) {
	if ReturnsRows(text) {
		rows, err := q.QueryContext(ctx, text, args...)
		if err != nil {
			return nil, err
		}
		data, cols, err := ScanRows(rows, shape)
		if err != nil {
			return nil, err
		}
		return &Outcome{Columns: cols, Rows: data, Affected: int64(len(data))}, nil
	}

	res, err := q.ExecContext(ctx, text, args...)
	if err != nil {
		return nil, err
	}
	return &Outcome{Affected: rowsAffected(res)}, nil
}

// rowsAffected treats drivers that cannot report a count as zero.
func rowsAffected(res sql.Result) int64 {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return n
}

// ReturnsRows reports whether text produces a result set.
func ReturnsRows(text string) bool {
	if statement.DetectVerb(text) == statement.VerbSelect || statement.HasReturning(text) {
		return true
	}
	switch statement.LeadingKeyword(text) {
	case "SHOW", "EXPLAIN", "DESCRIBE", "DESC", "PRAGMA", "VALUES", "TABLE":
		return true
	}
	return false
}

// ResultInsertID reads the identifier from sql.Result.LastInsertId. MySQL
// and SQLite report it with every INSERT.
func ResultInsertID(_ context.Context, _ *sql.Tx, res sql.Result) (any, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return id, nil
}
