// Package postgres implements the PostgreSQL driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/satishbabariya/dbexec/internal/adapters/database"
	"github.com/satishbabariya/dbexec/internal/config"
	"github.com/satishbabariya/dbexec/internal/core/statement"
	"github.com/satishbabariya/dbexec/pkg/dberr"
)

// Driver implements database.Driver for PostgreSQL.
type Driver struct {
	*database.Base
}

// New creates a driver for b. The connection opens on first use.
func New(b config.Backend) *Driver {
	return &Driver{Base: database.NewBase(database.Options{
		DriverName:   "postgres",
		DSN:          DSN(b),
		Placeholder:  statement.PlaceholderDollar,
		VersionQuery: "SHOW server_version",
		Diagnose:     Diagnose,
		LastInsertID: lastval,
	})}
}

// Dialect implements database.Driver.
func (d *Driver) Dialect() config.Dialect {
	return config.PostgreSQL
}

// Quote implements database.Driver.
func (d *Driver) Quote(text string) string {
	return pq.QuoteLiteral(text)
}

// DSN builds a key/value connection string.
func DSN(b config.Backend) string {
	params := map[string]string{}
	for k, v := range b.Options {
		params[k] = v
	}
	set := func(k, v string) {
		if v != "" {
			params[k] = v
		}
	}
	set("host", b.Host)
	if b.Port > 0 {
		set("port", strconv.Itoa(b.Port))
	}
	set("dbname", b.Database)
	set("user", b.User)
	set("password", b.Password)
	set("client_encoding", b.Encoding)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+quoteValue(params[k]))
	}
	return strings.Join(parts, " ")
}

func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// Diagnose extracts the fields of a *pq.Error.
func Diagnose(err error) map[string]any {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}
	details := map[string]any{
		"code":      string(pqErr.Code),
		"condition": pqErr.Code.Name(),
		"severity":  pqErr.Severity,
	}
	for k, v := range map[string]string{
		"detail":     pqErr.Detail,
		"hint":       pqErr.Hint,
		"constraint": pqErr.Constraint,
		"schema":     pqErr.Schema,
		"table":      pqErr.Table,
		"column":     pqErr.Column,
		"where":      pqErr.Where,
	} {
		if v != "" {
			details[k] = v
		}
	}
	return details
}

// lastval reads the value most recently produced by any sequence in this
// session. It is nil only until the session first touches a sequence; after
// that an INSERT into a table without one repeats the earlier value. Use
// RETURNING for an exact id. While undefined, lastval aborts the
// transaction, so the lookup runs under a savepoint.
func lastval(ctx context.Context, tx *sql.Tx, _ sql.Result) (any, error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT dbexec_lastval"); err != nil {
		return nil, err
	}

	var id int64
	if err := tx.QueryRowContext(ctx, "SELECT lastval()").Scan(&id); err != nil {
		if _, rerr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT dbexec_lastval"); rerr != nil {
			return nil, rerr
		}
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT dbexec_lastval"); err != nil {
		return nil, err
	}
	return id, nil
}

// DeclareCursor implements database.Driver with a server-side cursor.
func (d *Driver) DeclareCursor(ctx context.Context, tx *database.Tx, name, query string) (database.Cursor, error) {
	ident := pq.QuoteIdentifier(name)
	if _, err := tx.Native().ExecContext(ctx, fmt.Sprintf("DECLARE %s NO SCROLL CURSOR FOR %s", ident, query)); err != nil {
		return nil, err
	}
	return &cursor{tx: tx, ident: ident}, nil
}

type cursor struct {
	tx     *database.Tx
	ident  string
	closed bool
}

func (c *cursor) Fetch(ctx context.Context, n int) ([]database.Row, error) {
	rows, err := c.tx.Native().QueryContext(ctx, fmt.Sprintf("FETCH FORWARD %d FROM %s", n, c.ident))
	if err != nil {
		return nil, err
	}
	data, _, err := database.ScanRows(rows, c.tx.FetchShape())
	return data, err
}

func (c *cursor) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	_, err := c.tx.Native().ExecContext(ctx, "CLOSE "+c.ident)
	return err
}

const columnsQuery = `
	SELECT
		a.attname,
		a.attnum,
		t.typname,
		CASE WHEN t.typname IN ('varchar', 'bpchar') AND a.atttypmod > 4
			THEN a.atttypmod - 4 ELSE a.atttypmod END,
		a.attnotnull,
		a.atthasdef,
		pg_get_expr(ad.adbin, ad.adrelid),
		COALESCE(pg_get_expr(ad.adbin, ad.adrelid), '') LIKE 'nextval(%',
		COALESCE(col_description(c.oid, a.attnum), '')
	FROM pg_catalog.pg_attribute a
	JOIN pg_catalog.pg_class c ON c.oid = a.attrelid
	JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
	JOIN pg_catalog.pg_type t ON t.oid = a.atttypid
	LEFT JOIN pg_catalog.pg_attrdef ad ON ad.adrelid = a.attrelid AND ad.adnum = a.attnum
	WHERE n.nspname = $1
		AND c.relname = $2
		AND a.attnum > 0
		AND NOT a.attisdropped
	ORDER BY a.attnum
`

// IntrospectColumns implements database.Driver. An empty schema means
// "public".
func (d *Driver) IntrospectColumns(ctx context.Context, schema, table string, columns ...string) ([]database.Column, error) {
	if schema == "" {
		schema = "public"
	}
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
