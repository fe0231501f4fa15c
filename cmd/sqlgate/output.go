package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"sigs.k8s.io/yaml"

	"github.com/pthm/sqlgate"
)

// Output formats
const (
	formatText  = "text"
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// compiledOutput is the serialized form of a compiled query.
type compiledOutput struct {
	SQL      string          `json:"sql"`
	Params   []sqlgate.Value `json:"params"`
	Reversed bool            `json:"reversed,omitempty"`
}

func newCompiledOutput(q sqlgate.CompiledQuery) compiledOutput {
	params := q.Params
	if params == nil {
		params = []sqlgate.Value{}
	}
	return compiledOutput{SQL: q.SQL, Params: params, Reversed: q.Reversed}
}

func checkFormat(format string, allowed ...string) error {
	for _, f := range allowed {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q (want %s)", format, strings.Join(allowed, ", "))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// writeCompiled prints a compiled query. Text output lists the parameters
// under the statement, one per placeholder.
func writeCompiled(w io.Writer, format string, d sqlgate.Dialect, q sqlgate.CompiledQuery) error {
	switch format {
	case formatJSON:
		return writeJSON(w, newCompiledOutput(q))
	case formatYAML:
		return writeYAML(w, newCompiledOutput(q))
	}

	fmt.Fprintln(w, q.SQL)
	for i, p := range q.Params {
		fmt.Fprintf(w, "  %s = %s\n", d.Placeholder(i+1), p)
	}
	if q.Reversed {
		fmt.Fprintln(w, "  (rows come back in reverse order)")
	}
	return nil
}

// renderTable renders rows as a bordered table with one column per name.
func renderTable(cols []string, rows []map[string]any) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(cols...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, row := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = formatCell(row[c])
		}
		t.Row(cells...)
	}
	return t.String()
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}
