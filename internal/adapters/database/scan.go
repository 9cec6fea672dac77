package database

import (
	"database/sql"
	"strconv"

	"github.com/satishbabariya/dbexec/internal/core/statement"
)

// ScanRows reads every remaining row of rows in the given shape and closes
// rows. Byte slices are returned as strings. The result is never nil.
func ScanRows(rows *sql.Rows, shape statement.FetchShape) ([]Row, []string, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	out := make([]Row, 0)
	for rows.Next() {
		row, err := scanRow(rows, columns, shape)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return out, columns, nil
}

// scanNext reads up to n rows without closing rows.
func scanNext(rows *sql.Rows, columns []string, shape statement.FetchShape, n int) ([]Row, error) {
	out := make([]Row, 0, n)
	for len(out) < n && rows.Next() {
		row, err := scanRow(rows, columns, shape)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanRow(rows *sql.Rows, columns []string, shape statement.FetchShape) (Row, error) {
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	size := len(columns)
	if shape == statement.FetchBoth {
		size *= 2
	}
	row := make(Row, size)
	for i, col := range columns {
		v := values[i]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		if shape != statement.FetchNum {
			row[col] = v
		}
		if shape != statement.FetchAssoc {
			row[strconv.Itoa(i)] = v
		}
	}
	return row, nil
}

// FirstColumn returns the value of the first column of each row.
func FirstColumn(rows []Row, columns []string) []any {
	out := make([]any, 0, len(rows))
	if len(columns) == 0 {
		return out
	}
	for _, r := range rows {
		if v, ok := r[columns[0]]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, r["0"])
	}
	return out
}
