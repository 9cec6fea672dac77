package mysql

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/dbexec/internal/adapters/database"
	"github.com/satishbabariya/dbexec/internal/config"
	"github.com/satishbabariya/dbexec/pkg/dberr"
)

func newMockDriver(t *testing.T) (*Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	d := New(config.Backend{Name: "reports", Dialect: config.MySQL})
	d.SetOpener(func(string, string) (*sql.DB, error) { return db, nil })
	return d, mock
}

func TestDSN(t *testing.T) {
	dsn := DSN(config.Backend{
		Host:     "db.internal",
		Port:     3307,
		Database: "reports",
		User:     "ro",
		Password: "p@ss",
		Encoding: "utf8mb4",
		Options:  map[string]string{"parseTime": "true"},
	})

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "ro", cfg.User)
	assert.Equal(t, "p@ss", cfg.Passwd)
	assert.Equal(t, "tcp", cfg.Net)
	assert.Equal(t, "db.internal:3307", cfg.Addr)
	assert.Equal(t, "reports", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Contains(t, dsn, "charset=utf8mb4")

	cfg, err = mysql.ParseDSN(DSN(config.Backend{Database: "x"}))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:3306", cfg.Addr)
}

func TestQuote(t *testing.T) {
	d := New(config.Backend{})
	assert.Equal(t, `'it\'s a \\ \"test\"\n'`, d.Quote("it's a \\ \"test\"\n"))
}

func TestDiagnose(t *testing.T) {
	details := Diagnose(&mysql.MySQLError{
		Number:   1062,
		SQLState: [5]byte{'2', '3', '0', '0', '0'},
		Message:  "Duplicate entry 'a' for key 'email'",
	})
	assert.Equal(t, uint16(1062), details["number"])
	assert.Equal(t, "23000", details["sqlstate"])

	details = Diagnose(&mysql.MySQLError{Number: 1045})
	assert.NotContains(t, details, "sqlstate")
}

func TestExecuteErrorCarriesDiagnostics(t *testing.T) {
	d, mock := newMockDriver(t)
	mock.ExpectExec("INSERT INTO users (email) VALUES ('a')").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := d.Execute(context.Background(), "INSERT INTO users (email) VALUES ('a')")
	require.Error(t, err)
	e, ok := dberr.As(err)
	require.True(t, ok)
	assert.Equal(t, dberr.KindExecution, e.Kind)
	assert.Equal(t, uint16(1062), e.Details["number"])
}

func TestInsertID(t *testing.T) {
	ctx := context.Background()
	d, mock := newMockDriver(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users (email) VALUES ('a')").WillReturnResult(sqlmock.NewResult(17, 1))
	mock.ExpectCommit()

	tx, err := d.Begin(ctx)
	require.NoError(t, err)
	n, id, err := tx.Insert(ctx, "INSERT INTO users (email) VALUES ('a')")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(17), id)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeclareCursorStreams(t *testing.T) {
	ctx := context.Background()
	d, mock := newMockDriver(t)

	rows := sqlmock.NewRows([]string{"id"})
	for i := 1; i <= 5; i++ {
		rows.AddRow(int64(i))
	}
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM big").WillReturnRows(rows)
	mock.ExpectCommit()

	tx, err := d.Begin(ctx)
	require.NoError(t, err)
	cur, err := d.DeclareCursor(ctx, tx, "big", "SELECT id FROM big")
	require.NoError(t, err)

	var all []database.Row
	var sizes []int
	for {
		batch, err := cur.Fetch(ctx, 2)
		require.NoError(t, err)
		sizes = append(sizes, len(batch))
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
	}
	assert.Equal(t, []int{2, 2, 1, 0}, sizes)
	assert.Len(t, all, 5)

	require.NoError(t, cur.Close(ctx))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIntrospectColumns(t *testing.T) {
	d, mock := newMockDriver(t)

	cols := []string{"COLUMN_NAME", "ORDINAL_POSITION", "DATA_TYPE", "mod", "not_null", "has_default", "COLUMN_DEFAULT", "auto", "COLUMN_COMMENT"}
	mock.ExpectQuery(columnsQuery).WithArgs("", "users").WillReturnRows(
		sqlmock.NewRows(cols).
			AddRow("id", int64(1), "int", int64(10), int64(1), int64(0), nil, int64(1), "").
			AddRow("status", int64(2), "varchar", int64(16), int64(0), int64(1), "active", int64(0), "lifecycle"))

	got, err := d.IntrospectColumns(context.Background(), "", "users")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.True(t, got[0].IsAutoIncrement)
	assert.True(t, got[0].NotNull)
	assert.Nil(t, got[0].DefaultExpr)

	assert.Equal(t, int64(16), got[1].TypeModifier)
	assert.True(t, got[1].HasDefault)
	require.NotNil(t, got[1].DefaultExpr)
	assert.Equal(t, "active", *got[1].DefaultExpr)
	assert.Equal(t, "lifecycle", got[1].Comment)
	assert.NoError(t, mock.ExpectationsWereMet())
}
