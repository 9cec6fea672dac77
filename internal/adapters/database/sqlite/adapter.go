// Package sqlite implements the SQLite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/satishbabariya/dbexec/internal/adapters/database"
	"github.com/satishbabariya/dbexec/internal/config"
	"github.com/satishbabariya/dbexec/internal/core/statement"
	"github.com/satishbabariya/dbexec/pkg/dberr"
)

// Driver implements database.Driver for SQLite. Backend.Database is the
// file path.
type Driver struct {
	*database.Base
}

// New creates a driver for b. The connection opens on first use.
func New(b config.Backend) *Driver {
	return &Driver{Base: database.NewBase(database.Options{
		DriverName:   "sqlite3",
		DSN:          DSN(b),
		Placeholder:  statement.PlaceholderQuestion,
		VersionQuery: "SELECT sqlite_version()",
		Diagnose:     Diagnose,
		LastInsertID: database.ResultInsertID,
	})}
}

// Dialect implements database.Driver.
func (d *Driver) Dialect() config.Dialect {
	return config.SQLite
}

// DSN builds a file: URI with foreign keys enforced.
func DSN(b config.Backend) string {
	params := map[string]string{"_foreign_keys": "on"}
	for k, v := range b.Options {
		params[k] = v
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	q := make([]string, 0, len(keys))
	for _, k := range keys {
		q = append(q, url.QueryEscape(k)+"="+url.QueryEscape(params[k]))
	}

	path := b.Database
	if path == "" {
		path = ":memory:"
	}
	return "file:" + path + "?" + strings.Join(q, "&")
}

// Quote implements database.Driver.
func (d *Driver) Quote(text string) string {
	return "'" + strings.ReplaceAll(text, "'", "''") + "'"
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Diagnose extracts the codes of a sqlite3.Error.
func Diagnose(err error) map[string]any {
	var liteErr sqlite3.Error
	if !errors.As(err, &liteErr) {
		return nil
	}
	return map[string]any{
		"code":         int(liteErr.Code),
		"extendedCode": int(liteErr.ExtendedCode),
		"condition":    liteErr.Code.Error(),
	}
}

// DeclareCursor implements database.Driver by stepping an open statement;
// SQLite has no named cursors.
func (d *Driver) DeclareCursor(ctx context.Context, tx *database.Tx, _ string, query string) (database.Cursor, error) {
	return database.OpenStream(ctx, tx, query)
}

var typeModifier = regexp.MustCompile(`^\s*([^(]*?)\s*\(\s*(\d+)`)

// IntrospectColumns implements database.Driver using table_info. An empty
// schema means "main". A single INTEGER primary key aliases the rowid and is
// reported as not null and auto-increment. Other primary keys accept NULL.
func (d *Driver) IntrospectColumns(ctx context.Context, schema, table string, columns ...string) ([]database.Column, error) {
	if schema == "" {
		schema = "main"
	}
	rows, err := d.Query(ctx, fmt.Sprintf("PRAGMA %s.table_info(%s)", quoteIdent(schema), quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		cols     []database.Column
		pkCount  int
		pkColumn = -1
	)
	for rows.Next() {
		var (
			cid      int
			name     string
			declared string
			notNull  bool
			def      sql.NullString
			pk       int
		)
		if err := rows.Scan(&cid, &name, &declared, &notNull, &def, &pk); err != nil {
			return nil, d.Fail(dberr.KindExecution, "introspect", err)
		}

		c := database.Column{
			Name:         name,
			Ordinal:      cid + 1,
			Type:         declared,
			TypeModifier: -1,
			NotNull:      notNull,
			HasDefault:   def.Valid,
		}
		if m := typeModifier.FindStringSubmatch(declared); m != nil {
			c.Type = m[1]
			c.TypeModifier, _ = strconv.ParseInt(m[2], 10, 64)
		}
		if def.Valid {
			c.DefaultExpr = &def.String
		}
		if pk > 0 {
			pkCount++
			pkColumn = len(cols)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, d.Fail(dberr.KindExecution, "introspect", err)
	}

	if pkCount == 1 && strings.EqualFold(cols[pkColumn].Type, "INTEGER") {
		cols[pkColumn].NotNull = true
		cols[pkColumn].IsAutoIncrement = true
	}
	return database.FilterColumns(cols, columns...), nil
}

var _ database.Driver = (*Driver)(nil)
