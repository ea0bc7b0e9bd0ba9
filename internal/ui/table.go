package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column.
type Column struct {
	Title string
	Width int
}

// Row is a slice of cell values.
type Row []string

// Table renders a lipgloss-styled table. Highlight marks one row, such as
// the default wallet or the active network; -1 marks none.
type Table struct {
	Columns   []Column
	Rows      []Row
	Highlight int
}

// NewTable creates an empty table.
func NewTable(cols []Column) *Table {
	return &Table{Columns: cols, Highlight: -1}
}

// AddRow appends a row.
func (t *Table) AddRow(r Row) {
	t.Rows = append(t.Rows, r)
}

// Render returns the table as a string. Cells are padded by hand so every
// column keeps its exact width.
func (t *Table) Render() string {
	var sb strings.Builder

	headerStyle := lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)
	cellStyle := lipgloss.NewStyle().Foreground(ColorValue)

	line := func(render func(i int, col Column) string) {
		parts := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			parts[i] = render(i, col)
		}
		sb.WriteString(strings.Join(parts, " "))
		sb.WriteString("\n")
	}

	line(func(_ int, col Column) string { return headerStyle.Render(fit(col.Title, col.Width)) })
	line(func(_ int, col Column) string { return StyleMeta.Render(strings.Repeat("-", col.Width)) })

	for r, row := range t.Rows {
		style := cellStyle
		if r == t.Highlight {
			style = StyleSelected
		}
		line(func(i int, col Column) string {
			val := ""
			if i < len(row) {
				val = row[i]
			}
			return style.Render(fit(val, col.Width))
		})
	}
	return sb.String()
}

// fit left-aligns s within exactly width cells, cutting it with an ellipsis
// when it is too long.
func fit(s string, width int) string {
	w := lipgloss.Width(s)
	if w <= width {
		return s + strings.Repeat(" ", width-w)
	}
	if width <= 1 {
		return string([]rune(s)[:width])
	}
	r := []rune(s)
	for len(r) > 0 && lipgloss.Width(string(r))+1 > width {
		r = r[:len(r)-1]
	}
	cut := string(r) + "…"
	return cut + strings.Repeat(" ", width-lipgloss.Width(cut))
}

// KeyValueBlock renders key-value pairs in a bordered box.
func KeyValueBlock(title string, pairs [][2]string) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title))
		sb.WriteString("\n")
	}
	for _, p := range pairs {
		key := StyleMeta.Render(fmt.Sprintf("%-16s", p[0]+":"))
		sb.WriteString("  " + key + " " + StyleValue.Render(p[1]) + "\n")
	}
	return StyleBorder.Render(strings.TrimSuffix(sb.String(), "\n"))
}
