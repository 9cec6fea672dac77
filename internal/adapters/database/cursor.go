package database

import (
	"context"
	"database/sql"

	"github.com/satishbabariya/dbexec/internal/core/statement"
)

// streamCursor reads a forward-only result set in batches. Dialects whose
// wire protocol streams unbuffered results use it in place of DECLARE
// CURSOR.
type streamCursor struct {
	rows    *sql.Rows
	columns []string
	shape   statement.FetchShape
	closed  bool
}

// OpenStream starts text inside tx and returns a cursor over its rows.
func OpenStream(ctx context.Context, tx *Tx, text string) (Cursor, error) {
	rows, err := tx.tx.QueryContext(ctx, text)
	if err != nil {
		return nil, err
	}
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	return &streamCursor{rows: rows, columns: columns, shape: tx.base.fetch}, nil
}

func (c *streamCursor) Fetch(_ context.Context, n int) ([]Row, error) {
	if c.closed {
		return []Row{}, nil
	}
	return scanNext(c.rows, c.columns, c.shape, n)
}

func (c *streamCursor) Close(context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rows.Close()
}
