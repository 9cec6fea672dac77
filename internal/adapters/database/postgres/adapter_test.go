package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/dbexec/internal/adapters/database"
	"github.com/satishbabariya/dbexec/internal/config"
)

func newMockDriver(t *testing.T) (*Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	d := New(config.Backend{Name: "main", Dialect: config.PostgreSQL})
	d.SetOpener(func(driverName, _ string) (*sql.DB, error) {
		assert.Equal(t, "postgres", driverName)
		return db, nil
	})
	return d, mock
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.Backend{
		Host:     "localhost",
		Port:     5432,
		Database: "app",
		User:     "app",
		Password: `it's secret`,
		Encoding: "UTF8",
		Options:  map[string]string{"sslmode": "disable"},
	})
	assert.Equal(t, `client_encoding=UTF8 dbname=app host=localhost password='it\'s secret' port=5432 sslmode=disable user=app`, dsn)
}

func TestQuote(t *testing.T) {
	d := New(config.Backend{})
	assert.Equal(t, `'it''s'`, d.Quote("it's"))
	assert.Equal(t, config.PostgreSQL, d.Dialect())
}

func TestDiagnose(t *testing.T) {
	err := &pq.Error{
		Severity:   "ERROR",
		Code:       "23505",
		Message:    "duplicate key value violates unique constraint",
		Constraint: "users_email_key",
		Table:      "users",
	}
	details := Diagnose(err)
	assert.Equal(t, "23505", details["code"])
	assert.Equal(t, "unique_violation", details["condition"])
	assert.Equal(t, "users_email_key", details["constraint"])
	assert.Equal(t, "users", details["table"])
	assert.NotContains(t, details, "hint")

	assert.Nil(t, Diagnose(errors.New("plain")))
}

func TestInsertUsesLastval(t *testing.T) {
	ctx := context.Background()
	d, mock := newMockDriver(t)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO users (name) VALUES ($1)").
		ExpectExec().WithArgs("ada").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SAVEPOINT dbexec_lastval").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT lastval()").WillReturnRows(sqlmock.NewRows([]string{"lastval"}).AddRow(int64(42)))
	mock.ExpectExec("RELEASE SAVEPOINT dbexec_lastval").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := d.Begin(ctx)
	require.NoError(t, err)
	stmt, err := tx.Prepare(ctx, "INSERT INTO users (name) VALUES (:name)")
	require.NoError(t, err)

	n, id, err := stmt.Insert(ctx, map[string]any{"name": "ada"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(42), id)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertWithoutSequence(t *testing.T) {
	ctx := context.Background()
	d, mock := newMockDriver(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO tags (name) VALUES ('x')").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SAVEPOINT dbexec_lastval").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT lastval()").WillReturnError(&pq.Error{Code: "55000"})
	mock.ExpectExec("ROLLBACK TO SAVEPOINT dbexec_lastval").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := d.Begin(ctx)
	require.NoError(t, err)

	n, id, err := tx.Insert(ctx, "INSERT INTO tags (name) VALUES ('x')")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Nil(t, id)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLastvalIsSessionWide(t *testing.T) {
	ctx := context.Background()
	d, mock := newMockDriver(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users (name) VALUES ('ada')").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SAVEPOINT dbexec_lastval").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT lastval()").WillReturnRows(sqlmock.NewRows([]string{"lastval"}).AddRow(int64(7)))
	mock.ExpectExec("RELEASE SAVEPOINT dbexec_lastval").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO tags (name) VALUES ('x')").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SAVEPOINT dbexec_lastval").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT lastval()").WillReturnRows(sqlmock.NewRows([]string{"lastval"}).AddRow(int64(7)))
	mock.ExpectExec("RELEASE SAVEPOINT dbexec_lastval").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := d.Begin(ctx)
	require.NoError(t, err)

	_, id, err := tx.Insert(ctx, "INSERT INTO users (name) VALUES ('ada')")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	// tags has no sequence: the users id is reported again.
	_, id, err = tx.Insert(ctx, "INSERT INTO tags (name) VALUES ('x')")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeclareCursor(t *testing.T) {
	ctx := context.Background()
	d, mock := newMockDriver(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DECLARE "big" NO SCROLL CURSOR FOR SELECT id FROM t`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`FETCH FORWARD 2 FROM "big"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))
	mock.ExpectQuery(`FETCH FORWARD 2 FROM "big"`).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`CLOSE "big"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx, err := d.Begin(ctx)
	require.NoError(t, err)
	cur, err := d.DeclareCursor(ctx, tx, "big", "SELECT id FROM t")
	require.NoError(t, err)

	batch, err := cur.Fetch(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []database.Row{{"id": int64(1)}, {"id": int64(2)}}, batch)

	batch, err = cur.Fetch(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, batch)

	require.NoError(t, cur.Close(ctx))
	require.NoError(t, cur.Close(ctx))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIntrospectColumns(t *testing.T) {
	d, mock := newMockDriver(t)

	cols := []string{"attname", "attnum", "typname", "typmod", "attnotnull", "atthasdef", "default", "serial", "comment"}
	mock.ExpectQuery(columnsQuery).WithArgs("public", "users").WillReturnRows(
		sqlmock.NewRows(cols).
			AddRow("id", int64(1), "int4", int64(-1), true, true, "nextval('users_id_seq'::regclass)", true, "").
			AddRow("email", int64(2), "varchar", int64(255), true, false, nil, false, "login").
			AddRow("bio", int64(3), "text", int64(-1), false, false, nil, false, ""))

	got, err := d.IntrospectColumns(context.Background(), "", "users", "id", "email")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "id", got[0].Name)
	assert.True(t, got[0].IsAutoIncrement)
	require.NotNil(t, got[0].DefaultExpr)
	assert.Equal(t, "nextval('users_id_seq'::regclass)", *got[0].DefaultExpr)

	assert.Equal(t, database.Column{
		Name: "email", Ordinal: 2, Type: "varchar", TypeModifier: 255, NotNull: true, Comment: "login",
	}, got[1])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestServerVersion(t *testing.T) {
	d, mock := newMockDriver(t)
	mock.ExpectQuery("SHOW server_version").
		WillReturnRows(sqlmock.NewRows([]string{"server_version"}).AddRow("16.2"))

	v, err := d.ServerVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "16.2", v)
}
