package statement

import (
	"strconv"
	"strings"
)

// PlaceholderStyle is how a backend driver expects bind variables.
type PlaceholderStyle uint8

const (
	// PlaceholderQuestion is `?`, one argument per occurrence (MySQL, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar is `$n`, one argument per distinct name (PostgreSQL).
	PlaceholderDollar
)

// Placeholders returns the distinct :name placeholders of sql in first-seen
// order. Text inside string literals, quoted identifiers and comments is
// ignored, as are PostgreSQL `::type` casts.
func Placeholders(sql string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, t := range tokenize(sql) {
		if t.kind != tokParam {
			continue
		}
		name := t.text[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// Rebind rewrites :name placeholders into style and returns the rewritten
// text with the parameter name for each positional argument.
func Rebind(sql string, style PlaceholderStyle) (string, []string) {
	var b strings.Builder
	b.Grow(len(sql))

	var order []string
	index := make(map[string]int)

	for _, t := range tokenize(sql) {
		if t.kind != tokParam {
			b.WriteString(t.text)
			continue
		}
		name := t.text[1:]

		switch style {
		case PlaceholderDollar:
			n, ok := index[name]
			if !ok {
				order = append(order, name)
				n = len(order)
				index[name] = n
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			order = append(order, name)
			b.WriteByte('?')
		}
	}
	return b.String(), order
}

// Unbound returns the first placeholder of sql that params does not name.
func Unbound(sql string, params []string) (string, bool) {
	declared := make(map[string]bool, len(params))
	for _, p := range params {
		declared[p] = true
	}
	for _, name := range Placeholders(sql) {
		if !declared[name] {
			return name, true
		}
	}
	return "", false
}
