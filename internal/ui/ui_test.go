package ui

import (
	"bytes"
	"errors"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/dbexec/internal/adapters/database"
	"github.com/satishbabariya/dbexec/pkg/dberr"
)

func TestRowsTable(t *testing.T) {
	rows := []database.Row{
		{"name": "bolt", "qty": int64(4)},
		{"name": "nut", "qty": nil},
	}
	assert.Equal(t, pterm.TableData{
		{"name", "qty"},
		{"bolt", "4"},
		{"nut", "NULL"},
	}, RowsTable(rows, nil))

	assert.Equal(t, pterm.TableData{
		{"qty"},
		{"4"},
		{"NULL"},
	}, RowsTable(rows, []string{"qty"}))

	both := []database.Row{{"10": "k", "2": "j", "1": "i", "name": "x", "id": 1}}
	assert.Equal(t, []string{"1", "2", "10", "id", "name"}, RowsTable(both, nil)[0])
}

func TestColumnsMarkdown(t *testing.T) {
	def := "'draft'"
	md := ColumnsMarkdown("posts", []database.Column{
		{Name: "id", Ordinal: 1, Type: "integer", TypeModifier: -1, NotNull: true, IsAutoIncrement: true},
		{Name: "status", Ordinal: 2, Type: "varchar", TypeModifier: 20, HasDefault: true, DefaultExpr: &def, Comment: "a|b"},
	})
	assert.Contains(t, md, "# posts")
	assert.Contains(t, md, "| 1 | `id` | integer | yes |  | yes |  |")
	assert.Contains(t, md, "| 2 | `status` | varchar(20) | no | 'draft' | no | a\\|b |")
}

func TestPrinter(t *testing.T) {
	var out, errOut bytes.Buffer
	p := New(&out, &errOut)

	require.NoError(t, p.Rows([]database.Row{{"n": int64(1)}}, []string{"n"}))
	assert.Contains(t, out.String(), "(1 rows)")

	out.Reset()
	require.NoError(t, p.Rows(nil, nil))
	assert.Contains(t, out.String(), "(0 rows)")

	out.Reset()
	p.Status(true, "reached %s", "main")
	assert.Contains(t, out.String(), "OK")
	assert.Contains(t, out.String(), "reached main")

	out.Reset()
	require.NoError(t, p.JSON(map[string]any{"success": true}))
	assert.JSONEq(t, `{"success":true}`, out.String())

	p.Error(dberr.New(dberr.KindTransaction, "batch.1", "constraint failed").
		WithDetails(map[string]any{"code": 19}))
	assert.Contains(t, errOut.String(), "TransactionError at batch.1")
	assert.Contains(t, errOut.String(), "constraint failed")
	assert.Contains(t, errOut.String(), "19")

	errOut.Reset()
	p.Error(errors.New("plain"))
	assert.Contains(t, errOut.String(), "plain")
}
