// Package ui renders command output for the terminal.
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"github.com/satishbabariya/dbexec/internal/adapters/database"
	"github.com/satishbabariya/dbexec/pkg/dberr"
)

var (
	// Colors
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	SecondaryColor = lipgloss.Color("#6C757D")

	// Styles
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)
)

// Printer writes styled output to one destination.
type Printer struct {
	out io.Writer
	err io.Writer
}

// New creates a printer. Errors go to errOut.
func New(out, errOut io.Writer) *Printer {
	return &Printer{out: out, err: errOut}
}

// Success prints a success message
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.out, SuccessStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func (p *Printer) Warning(format string, args ...any) {
	fmt.Fprintln(p.out, WarningStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// Info prints a dimmed informational line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintln(p.out, SecondaryStyle.Render(fmt.Sprintf(format, args...)))
}

// Title prints a bold heading.
func (p *Printer) Title(title string) {
	fmt.Fprintln(p.out, TitleStyle.Render(title))
}

// Error prints err to the error stream. Typed errors show their kind and
// path, followed by any backend diagnostics.
func (p *Printer) Error(err error) {
	e, ok := dberr.As(err)
	if !ok {
		fmt.Fprintln(p.err, ErrorStyle.Render("✗ "+err.Error()))
		return
	}

	head := "✗ " + e.Kind.String()
	if e.Path != "" {
		head += " at " + e.Path
	}
	fmt.Fprintln(p.err, ErrorStyle.Render(head))
	fmt.Fprintln(p.err, "  "+e.Message)

	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(p.err, "  %s %v\n", SecondaryStyle.Render(k+":"), e.Details[k])
	}
}

// Status prints a colored one-word status followed by a message.
func (p *Printer) Status(ok bool, format string, args ...any) {
	c := StatusColors["ok"]
	word := "OK"
	if !ok {
		c, word = StatusColors["fail"], "FAIL"
	}
	c.Fprintf(p.out, "%-4s ", word)
	fmt.Fprintln(p.out, fmt.Sprintf(format, args...))
}

// StatusColors are the fatih/color printers used for status words.
var StatusColors = map[string]*color.Color{
	"ok":   color.New(color.FgGreen, color.Bold),
	"fail": color.New(color.FgRed, color.Bold),
	"info": color.New(color.FgCyan),
}

// Rows prints rows as a table. Columns are taken from columns when given,
// otherwise from the sorted keys of the first row.
func (p *Printer) Rows(rows []database.Row, columns []string) error {
	if len(rows) == 0 {
		p.Info("(0 rows)")
		return nil
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(RowsTable(rows, columns)).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(p.out, out)
	p.Info("(%d rows)", len(rows))
	return nil
}

// RowsTable lays rows out as table data with a header line.
func RowsTable(rows []database.Row, columns []string) pterm.TableData {
	if len(columns) == 0 && len(rows) > 0 {
		columns = rowKeys(rows[0])
	}
	data := pterm.TableData{columns}
	for _, r := range rows {
		line := make([]string, len(columns))
		for i, c := range columns {
			line[i] = Cell(r[c])
		}
		data = append(data, line)
	}
	return data
}

// rowKeys orders ordinal keys numerically before name keys alphabetically.
func rowKeys(r database.Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aErr := strconv.Atoi(keys[i])
		b, bErr := strconv.Atoi(keys[j])
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Cell formats one value for display.
func Cell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}

// Columns prints column metadata as a table.
func (p *Printer) Columns(cols []database.Column) error {
	data := pterm.TableData{{"#", "name", "type", "modifier", "not null", "default", "auto", "comment"}}
	for _, c := range cols {
		data = append(data, []string{
			strconv.Itoa(c.Ordinal),
			c.Name,
			c.Type,
			modifier(c.TypeModifier),
			yesNo(c.NotNull),
			defaultExpr(c),
			yesNo(c.IsAutoIncrement),
			c.Comment,
		})
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(p.out, out)
	return nil
}

// ColumnsMarkdown renders column metadata as a markdown document.
func ColumnsMarkdown(table string, cols []database.Column) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", table)
	b.WriteString("| # | Column | Type | Not null | Default | Auto increment | Comment |\n")
	b.WriteString("|---|--------|------|----------|---------|----------------|---------|\n")
	for _, c := range cols {
		typ := c.Type
		if c.TypeModifier >= 0 {
			typ = fmt.Sprintf("%s(%d)", c.Type, c.TypeModifier)
		}
		fmt.Fprintf(&b, "| %d | `%s` | %s | %s | %s | %s | %s |\n",
			c.Ordinal, c.Name, typ, yesNo(c.NotNull), markdownCell(defaultExpr(c)),
			yesNo(c.IsAutoIncrement), markdownCell(c.Comment))
	}
	return b.String()
}

func markdownCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Markdown renders markdown content through glamour.
func (p *Printer) Markdown(content string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}

	out, err := r.Render(content)
	if err != nil {
		return err
	}
	fmt.Fprint(p.out, out)
	return nil
}

// JSON prints v as indented JSON.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func modifier(m int64) string {
	if m < 0 {
		return ""
	}
	return strconv.FormatInt(m, 10)
}

func defaultExpr(c database.Column) string {
	if c.DefaultExpr == nil {
		return ""
	}
	return *c.DefaultExpr
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
