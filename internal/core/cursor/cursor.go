// Package cursor streams large result sets in fixed-size batches through a
// cursor bound to one transaction.
package cursor

import (
	"context"

	"github.com/satishbabariya/dbexec/internal/adapters/database"
	"github.com/satishbabariya/dbexec/internal/core/statement"
	"github.com/satishbabariya/dbexec/internal/core/txn"
	"github.com/satishbabariya/dbexec/pkg/dberr"
)

// State is the lifecycle position of a Session.
type State uint8

const (
	Idle State = iota
	Declared
	Fetching
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Declared:
		return "declared"
	case Fetching:
		return "fetching"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Session is one cursor over one query. It runs at most once and never
// outlives its transaction.
type Session struct {
	drv       database.Driver
	name      string
	query     string
	batchSize int

	state   State
	batches int
}

// Validate checks the cursor parameters without touching a connection.
func Validate(name, query string, batchSize int) error {
	switch {
	case !statement.IsIdentifier(name):
		return dberr.Validation("cursor", "invalid cursor name %q", name)
	case batchSize <= 0:
		return dberr.Validation("cursor", "batch size must be positive, got %d", batchSize)
	case statement.DetectVerb(query) != statement.VerbSelect:
		return dberr.Validation("cursor", "cursor query must be a SELECT").WithPayload(query)
	}
	return nil
}

// New creates an idle session after validating its parameters.
func New(drv database.Driver, name, query string, batchSize int) (*Session, error) {
	if err := Validate(name, query, batchSize); err != nil {
		return nil, err
	}
	return &Session{drv: drv, name: name, query: query, batchSize: batchSize}, nil
}

// State returns the session's current state.
func (s *Session) State() State {
	return s.state
}

// Batches returns the number of non-empty batches delivered.
func (s *Session) Batches() int {
	return s.batches
}

// Run begins a transaction, declares the cursor and hands each non-empty
// batch to fn until the cursor is exhausted, then closes the cursor and
// commits. Any failure, including one returned by fn, rolls back.
func (s *Session) Run(ctx context.Context, fn func(batch []database.Row) error) error {
	if s.state != Idle {
		return dberr.Newf(dberr.KindTransaction, s.path(), "cursor session is %s", s.state)
	}
	defer func() { s.state = Closed }()

	return txn.Do(ctx, s.drv, s.path(), func(tx *database.Tx) error {
		cur, err := s.drv.DeclareCursor(ctx, tx, s.name, s.query)
		if err != nil {
			return err
		}
		s.state = Declared

		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			batch, err := cur.Fetch(ctx, s.batchSize)
			if err != nil {
				return err
			}
			s.state = Fetching
			if len(batch) == 0 {
				break
			}
			s.batches++
			if err := fn(batch); err != nil {
				return err
			}
		}

		return cur.Close(ctx)
	})
}

func (s *Session) path() string {
	return "cursor." + s.name
}

// Stream runs a session over query and hands each batch to fn.
func Stream(ctx context.Context, drv database.Driver, name, query string, batchSize int, fn func(batch []database.Row) error) error {
	s, err := New(drv, name, query, batchSize)
	if err != nil {
		return err
	}
	return s.Run(ctx, fn)
}

// Collect runs a session over query and returns every row.
func Collect(ctx context.Context, drv database.Driver, name, query string, batchSize int) ([]database.Row, error) {
	rows := []database.Row{}
	err := Stream(ctx, drv, name, query, batchSize, func(batch []database.Row) error {
		rows = append(rows, batch...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
