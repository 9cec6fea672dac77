// Package mysql implements the MySQL driver.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/satishbabariya/dbexec/internal/adapters/database"
	"github.com/satishbabariya/dbexec/internal/config"
	"github.com/satishbabariya/dbexec/internal/core/statement"
	"github.com/satishbabariya/dbexec/pkg/dberr"
)

const defaultPort = 3306

// Driver implements database.Driver for MySQL and MariaDB.
type Driver struct {
	*database.Base
}

// New creates a driver for b. The connection opens on first use.
func New(b config.Backend) *Driver {
	return &Driver{Base: database.NewBase(database.Options{
		DriverName:   "mysql",
		DSN:          DSN(b),
		Placeholder:  statement.PlaceholderQuestion,
		VersionQuery: "SELECT VERSION()",
		Diagnose:     Diagnose,
		LastInsertID: database.ResultInsertID,
	})}
}

// Dialect implements database.Driver.
func (d *Driver) Dialect() config.Dialect {
	return config.MySQL
}

// DSN formats b through mysql.Config.
func DSN(b config.Backend) string {
	cfg := mysql.NewConfig()
	cfg.User = b.User
	cfg.Passwd = b.Password
	cfg.DBName = b.Database

	port := b.Port
	if port == 0 {
		port = defaultPort
	}
	host := b.Host
	if host == "" {
		host = "127.0.0.1"
	}
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))

	if len(b.Options) > 0 || b.Encoding != "" {
		cfg.Params = make(map[string]string, len(b.Options)+1)
		for k, v := range b.Options {
			cfg.Params[k] = v
		}
		if b.Encoding != "" {
			cfg.Params["charset"] = b.Encoding
		}
	}
	return cfg.FormatDSN()
}

var quoteReplacer = strings.NewReplacer(
	`\`, `\\`,
	"'", `\'`,
	`"`, `\"`,
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	"\x1a", `\Z`,
)

// Quote implements database.Driver with backslash escaping.
func (d *Driver) Quote(text string) string {
	return "'" + quoteReplacer.Replace(text) + "'"
}

// Diagnose extracts the fields of a *mysql.MySQLError.
func Diagnose(err error) map[string]any {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return nil
	}
	details := map[string]any{"number": myErr.Number}
	if state := string(myErr.SQLState[:]); strings.Trim(state, "\x00") != "" {
		details["sqlstate"] = state
	}
	return details
}

// DeclareCursor implements database.Driver. The driver streams result sets
// unbuffered, so the open result set serves as the cursor and name is only
// validated by the caller.
func (d *Driver) DeclareCursor(ctx context.Context, tx *database.Tx, _ string, query string) (database.Cursor, error) {
	return database.OpenStream(ctx, tx, query)
}

const columnsQuery = `
	SELECT
		COLUMN_NAME,
		ORDINAL_POSITION,
		DATA_TYPE,
		COALESCE(CHARACTER_MAXIMUM_LENGTH, NUMERIC_PRECISION, -1),
		IS_NULLABLE = 'NO',
		COLUMN_DEFAULT IS NOT NULL,
		COLUMN_DEFAULT,
		EXTRA LIKE '%auto_increment%',
		COLUMN_COMMENT
	FROM information_schema.COLUMNS
	WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
		AND TABLE_NAME = ?
	ORDER BY ORDINAL_POSITION
`

// IntrospectColumns implements database.Driver. An empty schema means the
// connection's current database.
func (d *Driver) IntrospectColumns(ctx context.Context, schema, table string, columns ...string) ([]database.Column, error) {
	rows, err := d.Query(ctx, columnsQuery, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []database.Column
	for rows.Next() {
		var (
			c   database.Column
			def sql.NullString
		)
		if err := rows.Scan(&c.Name, &c.Ordinal, &c.Type, &c.TypeModifier, &c.NotNull,
			&c.HasDefault, &def, &c.IsAutoIncrement, &c.Comment); err != nil {
			return nil, d.Fail(dberr.KindExecution, "introspect", err)
		}
		if def.Valid {
			c.DefaultExpr = &def.String
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, d.Fail(dberr.KindExecution, "introspect", err)
	}
	return database.FilterColumns(cols, columns...), nil
}

var _ database.Driver = (*Driver)(nil)
