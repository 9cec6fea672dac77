package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/dbexec/internal/adapters/database"
	"github.com/satishbabariya/dbexec/internal/config"
	"github.com/satishbabariya/dbexec/internal/core/statement"
	"github.com/satishbabariya/dbexec/pkg/dberr"
)

func newDriver(t *testing.T) *Driver {
	t.Helper()
	d := New(config.Backend{
		Name:     "local",
		Dialect:  config.SQLite,
		Database: filepath.Join(t.TempDir(), "test.db"),
	})
	t.Cleanup(func() { d.Close() })

	_, err := d.Execute(context.Background(), `CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		email VARCHAR(120) NOT NULL UNIQUE,
		status TEXT DEFAULT 'active',
		bio TEXT
	)`)
	require.NoError(t, err)
	return d
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file:/tmp/app.db?_busy_timeout=5000&_foreign_keys=on",
		DSN(config.Backend{Database: "/tmp/app.db", Options: map[string]string{"_busy_timeout": "5000"}}))
	assert.Equal(t, "file::memory:?_foreign_keys=on", DSN(config.Backend{}))
}

func TestQuote(t *testing.T) {
	d := New(config.Backend{})
	assert.Equal(t, `'it''s'`, d.Quote("it's"))
	assert.Equal(t, config.SQLite, d.Dialect())
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)

	out, err := d.Execute(ctx, "INSERT INTO users (email) VALUES ('a@x'), ('b@x')")
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Affected)

	p, err := statement.Validate(statement.Statement{
		SQL:    "SELECT id, email FROM users WHERE email = :email OR email = :email ORDER BY id",
		Fetch:  statement.FetchNum,
		Values: map[string]any{"email": "b@x"},
	})
	require.NoError(t, err)

	out, err = d.ExecutePrepared(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, []database.Row{{"0": int64(2), "1": "b@x"}}, out.Rows)
}

func TestConstraintDiagnostics(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)

	_, err := d.Execute(ctx, "INSERT INTO users (email) VALUES ('dup')")
	require.NoError(t, err)
	_, err = d.Execute(ctx, "INSERT INTO users (email) VALUES ('dup')")
	require.Error(t, err)

	e, ok := dberr.As(err)
	require.True(t, ok)
	assert.Equal(t, dberr.KindExecution, e.Kind)
	assert.Equal(t, 19, e.Details["code"])
	assert.Equal(t, 2067, e.Details["extendedCode"])
}

func TestTransactionInsertID(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)

	tx, err := d.Begin(ctx)
	require.NoError(t, err)

	stmt, err := tx.Prepare(ctx, "INSERT INTO users (email) VALUES (:email)")
	require.NoError(t, err)
	var ids []any
	for _, email := range []string{"a", "b", "c"} {
		n, id, err := stmt.Insert(ctx, map[string]any{"email": email})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		ids = append(ids, id)
	}
	require.NoError(t, stmt.Close())
	require.NoError(t, tx.Rollback())

	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, ids)

	out, err := d.Execute(ctx, "SELECT count(*) AS n FROM users")
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.Rows[0]["n"])
}

func TestIntrospectColumns(t *testing.T) {
	d := newDriver(t)

	cols, err := d.IntrospectColumns(context.Background(), "", "users")
	require.NoError(t, err)
	require.Len(t, cols, 4)

	assert.Equal(t, database.Column{
		Name: "id", Ordinal: 1, Type: "INTEGER", TypeModifier: -1, NotNull: true, IsAutoIncrement: true,
	}, cols[0])

	assert.Equal(t, "VARCHAR", cols[1].Type)
	assert.Equal(t, int64(120), cols[1].TypeModifier)
	assert.True(t, cols[1].NotNull)

	assert.True(t, cols[2].HasDefault)
	require.NotNil(t, cols[2].DefaultExpr)
	assert.Equal(t, "'active'", *cols[2].DefaultExpr)

	filtered, err := d.IntrospectColumns(context.Background(), "main", "users", "bio")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, 4, filtered[0].Ordinal)
}

func TestIntrospectNullablePrimaryKeys(t *testing.T) {
	d := newDriver(t)
	ctx := context.Background()
	_, err := d.Execute(ctx, "CREATE TABLE tags (code TEXT PRIMARY KEY, label TEXT)")
	require.NoError(t, err)
	_, err = d.Execute(ctx, "CREATE TABLE pairs (a INTEGER, b INTEGER NOT NULL, PRIMARY KEY (a, b))")
	require.NoError(t, err)

	cols, err := d.IntrospectColumns(ctx, "", "tags", "code")
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.False(t, cols[0].NotNull)
	assert.False(t, cols[0].IsAutoIncrement)

	_, err = d.Execute(ctx, "INSERT INTO tags (code, label) VALUES (NULL, 'untagged')")
	require.NoError(t, err)

	cols, err = d.IntrospectColumns(ctx, "", "pairs")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.False(t, cols[0].NotNull)
	assert.False(t, cols[0].IsAutoIncrement)
	assert.True(t, cols[1].NotNull)
}

func TestServerVersion(t *testing.T) {
	d := newDriver(t)
	raw, err := d.ServerVersion(context.Background())
	require.NoError(t, err)

	_, err = database.CheckServerVersion(config.SQLite, raw)
	assert.NoError(t, err)
}

func TestStreamingCursor(t *testing.T) {
	ctx := context.Background()
	d := newDriver(t)
	_, err := d.Execute(ctx, "INSERT INTO users (email) VALUES ('1'), ('2'), ('3'), ('4'), ('5')")
	require.NoError(t, err)

	tx, err := d.Begin(ctx)
	require.NoError(t, err)
	cur, err := d.DeclareCursor(ctx, tx, "c", "SELECT id FROM users ORDER BY id")
	require.NoError(t, err)

	var sizes []int
	for {
		batch, err := cur.Fetch(ctx, 2)
		require.NoError(t, err)
		sizes = append(sizes, len(batch))
		if len(batch) == 0 {
			break
		}
	}
	assert.Equal(t, []int{2, 2, 1, 0}, sizes)
	require.NoError(t, cur.Close(ctx))
	require.NoError(t, tx.Commit())
}
