package txn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/satishbabariya/dbexec/internal/adapters/database"
	"github.com/satishbabariya/dbexec/internal/core/statement"
	"github.com/satishbabariya/dbexec/pkg/dberr"
)

// Result is the aggregated outcome of a batch.
type Result struct {
	Success          bool           `json:"success"`
	Rows             []database.Row `json:"rows"`
	AffectedRowCount int64          `json:"affectedRowCount"`
	InsertedIDs      []any          `json:"insertedIds"`
}

// Do runs fn inside drv's transaction. The transaction is rolled back when
// fn fails, panics or ctx is cancelled, and committed otherwise. Native
// failures are returned as a TransactionError under path; typed errors
// returned by fn pass through.
func Do(ctx context.Context, drv database.Driver, path string, fn func(tx *database.Tx) error) error {
	tx, err := drv.Begin(ctx)
	if err != nil {
		return transactionError(drv, path, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		e := transactionError(drv, path, err)
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			e.WithDetails(map[string]any{"rollback": rbErr.Error()})
		}
		return e
	}

	if err := ctx.Err(); err != nil {
		_ = tx.Rollback()
		return transactionError(drv, path, err)
	}
	if err := tx.Commit(); err != nil {
		return transactionError(drv, path, err)
	}
	return nil
}

func transactionError(drv database.Driver, path string, err error) *dberr.Error {
	if e, ok := dberr.As(err); ok {
		return e
	}
	return dberr.Wrap(dberr.KindTransaction, path, err).WithDetails(drv.Diagnose(err))
}

// Run validates ops, then executes them in order inside one transaction.
// SELECT rows are collected, INSERT adds its affected count and one
// identifier per execution, UPDATE and DELETE add their affected counts,
// and any other verb executes without contributing. Any failure rolls the
// whole batch back and returns a TransactionError carrying ops.
func Run(ctx context.Context, drv database.Driver, ops []statement.Operation) (*Result, error) {
	steps, err := Plan(ops)
	if err != nil {
		return nil, err
	}
	return Execute(ctx, drv, steps, ops)
}

// Execute runs steps produced by Plan. payload is attached to any error for
// diagnostic logging.
func Execute(ctx context.Context, drv database.Driver, steps []Step, payload any) (*Result, error) {
	res := &Result{Rows: []database.Row{}, InsertedIDs: []any{}}
	err := Do(ctx, drv, "batch", func(tx *database.Tx) error {
		for _, s := range steps {
			if err := runStep(ctx, tx, s, res); err != nil {
				return transactionError(drv, fmt.Sprintf("batch.%d", s.Index), err)
			}
		}
		return nil
	})
	if err != nil {
		if e, ok := dberr.As(err); ok {
			e.WithPayload(payload)
		}
		return nil, err
	}

	res.Success = true
	return res, nil
}

// executable is satisfied by *database.Stmt and by literal.
type executable interface {
	Query(ctx context.Context, values map[string]any) ([]database.Row, error)
	Exec(ctx context.Context, values map[string]any) (int64, error)
	Insert(ctx context.Context, values map[string]any) (int64, any, error)
}

type literal struct {
	tx  *database.Tx
	sql string
}

func (l literal) Query(ctx context.Context, _ map[string]any) ([]database.Row, error) {
	return l.tx.Query(ctx, l.sql)
}

func (l literal) Exec(ctx context.Context, _ map[string]any) (int64, error) {
	return l.tx.Exec(ctx, l.sql)
}

func (l literal) Insert(ctx context.Context, _ map[string]any) (int64, any, error) {
	return l.tx.Insert(ctx, l.sql)
}

func runStep(ctx context.Context, tx *database.Tx, s Step, res *Result) error {
	var ex executable = literal{tx: tx, sql: s.SQL}
	if s.Kind == StepTemplate {
		stmt, err := tx.Prepare(ctx, s.SQL)
		if err != nil {
			return err
		}
		defer stmt.Close()
		ex = stmt
	}

	for _, values := range s.Values {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := aggregate(ctx, ex, s.Verb, values, res); err != nil {
			return err
		}
	}
	return nil
}

func aggregate(ctx context.Context, ex executable, verb statement.Verb, values map[string]any, res *Result) error {
	switch verb {
	case statement.VerbSelect:
		rows, err := ex.Query(ctx, values)
		if err != nil {
			return err
		}
		res.Rows = append(res.Rows, rows...)

	case statement.VerbInsert:
		n, id, err := ex.Insert(ctx, values)
		if err != nil {
			return err
		}
		res.AffectedRowCount += n
		res.InsertedIDs = append(res.InsertedIDs, id)

	case statement.VerbUpdate, statement.VerbDelete:
		n, err := ex.Exec(ctx, values)
		if err != nil {
			return err
		}
		res.AffectedRowCount += n

	default:
		if _, err := ex.Exec(ctx, values); err != nil {
			return err
		}
	}
	return nil
}
