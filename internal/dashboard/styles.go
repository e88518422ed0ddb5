package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/v2dash/internal/ui"
)

// Dashboard color palette
const (
	ColorDarkBg        = ui.ColorDeepVoid
	ColorSurfaceBg     = ui.ColorDarkSurface
	ColorBorder        = ui.ColorGlassBorder
	ColorTextPrimary   = ui.ColorPrimary
	ColorTextSecondary = ui.ColorSecondary
	ColorTextMuted     = ui.ColorMuted
	ColorAccent        = ui.ColorNeonPink
	ColorValue         = ui.ColorNeonCyan
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	NoticeOKStyle = lipgloss.NewStyle().
			Foreground(ui.ColorSuccess)

	NoticeErrStyle = lipgloss.NewStyle().
			Foreground(ui.ColorError).
			Bold(true)

	OverlayStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Padding(1, 2)

	OverlayTitleStyle = lipgloss.NewStyle().
				Foreground(ColorAccent).
				Bold(true)
)

// MetricStyle colors a percentage by severity.
func MetricStyle(percent float64) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ui.SeverityColor(percent)).Bold(true)
}

// SectionHeader renders a section header with the title on the left and value on the right.
// Format: ╭─ Title ────────────────────────────────────── Value ╮
func SectionHeader(title, value string, width int) string {
	if width < 10 {
		width = 10
	}

	leftWidth := 3 + lipgloss.Width(title) + 1
	rightWidth := 1 + lipgloss.Width(value) + 2
	fill := width - leftWidth - rightWidth
	if fill < 1 {
		fill = 1
	}

	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)
	titleStyle := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(ColorValue).Bold(true)

	return borderStyle.Render("╭─ ") +
		titleStyle.Render(title) +
		borderStyle.Render(" "+strings.Repeat("─", fill)+" ") +
		valueStyle.Render(value) +
		borderStyle.Render(" ╮")
}

// SectionFooter renders the bottom border of a section.
func SectionFooter(width int) string {
	if width < 2 {
		width = 2
	}
	return lipgloss.NewStyle().Foreground(ColorBorder).Render("╰" + strings.Repeat("─", width-2) + "╯")
}

// SectionContentLine renders a content line with left and right borders, padded to width.
func SectionContentLine(content string, width int) string {
	if width < 4 {
		width = 4
	}
	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)

	padding := width - 4 - lipgloss.Width(content)
	if padding < 0 {
		padding = 0
	}
	return borderStyle.Render("│") + " " + content + strings.Repeat(" ", padding) + " " + borderStyle.Render("│")
}
