package cursor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/dbexec/internal/adapters/database"
	"github.com/satishbabariya/dbexec/internal/adapters/database/sqlite"
	"github.com/satishbabariya/dbexec/internal/config"
	"github.com/satishbabariya/dbexec/pkg/dberr"
)

func newEvents(t *testing.T, n int) *sqlite.Driver {
	t.Helper()
	ctx := context.Background()
	d := sqlite.New(config.Backend{
		Dialect:  config.SQLite,
		Database: filepath.Join(t.TempDir(), "cursor.db"),
	})
	t.Cleanup(func() { d.Close() })

	_, err := d.Execute(ctx, "CREATE TABLE events (id INTEGER PRIMARY KEY, kind TEXT)")
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_, err := d.Execute(ctx, "INSERT INTO events (kind) VALUES ('tick')")
		require.NoError(t, err)
	}
	return d
}

func TestSessionBatchBoundaries(t *testing.T) {
	d := newEvents(t, 5)

	s, err := New(d, "events_cur", "SELECT id FROM events ORDER BY id", 2)
	require.NoError(t, err)
	assert.Equal(t, Idle, s.State())

	var sizes []int
	var ids []any
	err = s.Run(context.Background(), func(batch []database.Row) error {
		sizes = append(sizes, len(batch))
		for _, r := range batch {
			ids = append(ids, r["id"])
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4), int64(5)}, ids)
	assert.Equal(t, 3, s.Batches())
	assert.Equal(t, Closed, s.State())

	err = s.Run(context.Background(), func([]database.Row) error { return nil })
	assert.ErrorIs(t, err, dberr.ErrTransaction, "a session runs once")
}

func TestCollect(t *testing.T) {
	d := newEvents(t, 5)

	rows, err := Collect(context.Background(), d, "c", "SELECT id, kind FROM events", 2)
	require.NoError(t, err)
	assert.Len(t, rows, 5)

	rows, err = Collect(context.Background(), newEvents(t, 0), "c", "SELECT id FROM events", 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)
}

func TestCallbackFailureRollsBack(t *testing.T) {
	d := newEvents(t, 5)
	stop := errors.New("consumer gave up")

	err := Stream(context.Background(), d, "c", "SELECT id FROM events", 2, func([]database.Row) error {
		return stop
	})
	assert.ErrorIs(t, err, dberr.ErrTransaction)
	assert.ErrorIs(t, err, stop)

	e, _ := dberr.As(err)
	assert.Equal(t, "cursor.c", e.Path)

	_, err = d.Begin(context.Background())
	assert.NoError(t, err, "the handle has no transaction left open")
}

func TestQueryFailure(t *testing.T) {
	d := newEvents(t, 1)

	_, err := Collect(context.Background(), d, "c", "SELECT nope FROM events", 2)
	assert.ErrorIs(t, err, dberr.ErrTransaction)
	e, _ := dberr.As(err)
	assert.NotEmpty(t, e.Details)
}

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name      string
		cursor    string
		query     string
		batchSize int
	}{
		{"bad name", "drop table;", "SELECT 1", 10},
		{"empty name", "", "SELECT 1", 10},
		{"quoted name", `"c"`, "SELECT 1", 10},
		{"leading digit", "1c", "SELECT 1", 10},
		{"comment smuggled", "c/**/", "SELECT 1", 10},
		{"zero batch", "c", "SELECT 1", 0},
		{"negative batch", "c", "SELECT 1", -3},
		{"not a select", "c", "DELETE FROM events", 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil, tt.cursor, tt.query, tt.batchSize)
			assert.ErrorIs(t, err, dberr.ErrValidation)
		})
	}

	_, err := New(nil, "recent", "WITH r AS (SELECT 1 AS id) SELECT id FROM r", 1)
	assert.NoError(t, err)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "declared", Declared.String())
	assert.Equal(t, "fetching", Fetching.String())
	assert.Equal(t, "closed", Closed.String())
}
