package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/v2dash/internal/console"
)

// TableColumn defines a table column with name and width.
type TableColumn struct {
	Title string
	Width int
}

// NewTable creates a Bubbles table with the default styling.
func NewTable(columns []TableColumn, rows []table.Row) table.Model {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.Title, Width: c.Width}
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(false),
		table.WithHeight(len(rows)+1), // +1 for header
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorMuted).
		BorderBottom(true).
		Bold(true).
		Foreground(ColorPrimary)
	s.Cell = s.Cell.Foreground(ColorPrimary)
	s.Selected = s.Selected.Foreground(ColorPrimary).Bold(false)

	t.SetStyles(s)
	return t
}

// RenderSimpleTable renders a non-interactive table of plain cells.
func RenderSimpleTable(columns []TableColumn, rows [][]string) string {
	if len(rows) == 0 {
		return ""
	}
	tableRows := make([]table.Row, len(rows))
	for i, row := range rows {
		tableRows[i] = table.Row(row)
	}
	return NewTable(columns, tableRows).View()
}

// AccountColumns is the column layout of the account table.
var AccountColumns = []TableColumn{
	{Title: "NAME", Width: 16},
	{Title: "ID", Width: 38},
	{Title: "ALTER", Width: 6},
	{Title: "UPLINK", Width: 11},
	{Title: "DOWNLINK", Width: 11},
	{Title: "USED", Width: 13},
	{Title: "LIMIT", Width: 11},
}

// AccountCells returns the plain cell texts of a data row, in
// AccountColumns order.
func AccountCells(r console.Row) []string {
	used := r.Used
	if r.Highlight {
		used = SymbolWarning + " " + used
	}
	return []string{r.Name, r.ID, r.AlterID, r.Uplink, r.Downlink, used, r.Limit}
}

// RenderAccountTable renders the account table as styled text. selected is
// the index of the highlighted data row, or -1.
func RenderAccountTable(view console.TableView, selected int) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(ColorMuted)

	titles := make([]string, len(AccountColumns))
	for i, c := range AccountColumns {
		titles[i] = padRight(c.Title, c.Width)
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(strings.Join(titles, "")))
	b.WriteString("\n")

	if ph, ok := view.Placeholder(); ok {
		b.WriteString(renderPlaceholder(ph))
		b.WriteString("\n")
		return b.String()
	}

	warnStyle := lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	selectedStyle := lipgloss.NewStyle().Foreground(ColorNeonPink).Bold(true)

	for i, row := range view.Rows {
		cells := AccountCells(row)
		var line strings.Builder
		for j, c := range AccountColumns {
			cell := truncate(cells[j], c.Width-1)
			switch {
			case j == 5 && row.Highlight:
				cell = warnStyle.Render(cell)
			case i == selected:
				cell = selectedStyle.Render(cell)
			}
			line.WriteString(padRight(cell, c.Width))
		}
		b.WriteString(strings.TrimRight(line.String(), " "))
		b.WriteString("\n")
	}
	return b.String()
}

func renderPlaceholder(r console.Row) string {
	switch r.Kind {
	case console.RowError:
		out := ErrorStyle().Render(SymbolFail + " " + r.Message)
		if r.Detail != "" {
			out += "  " + MutedStyle().Render(r.Detail)
		}
		return out
	case console.RowLoading:
		return MutedStyle().Render(r.Message)
	default:
		return lipgloss.NewStyle().Foreground(ColorSecondary).Render(r.Message)
	}
}

// RenderGaugeLine renders the three gauges on one line, e.g.
// "CPU 12.3% ▰▰▱▱▱  Memory 45.0% ...".
func RenderGaugeLine(view console.GaugeView, barWidth int) string {
	labelStyle := lipgloss.NewStyle().Foreground(ColorSecondary)
	parts := make([]string, 0, 3)
	for _, g := range view.All() {
		text := MutedStyle().Render(g.Text)
		bar := ""
		if g.Known {
			text = lipgloss.NewStyle().Foreground(SeverityColor(g.Percent)).Bold(true).Render(g.Text)
			if barWidth > 0 {
				bar = " " + RenderBar(g.Percent, barWidth)
			}
		}
		parts = append(parts, labelStyle.Render(g.Label)+" "+text+bar)
	}
	return strings.Join(parts, "   ")
}

// padRight pads a string to the specified width.
func padRight(s string, width int) string {
	// Account for ANSI codes when calculating visible length
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

// truncate shortens plain text to width cells, marking the cut with "…".
func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width-1 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
