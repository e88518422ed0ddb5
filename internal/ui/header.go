package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// HeaderInfo contains information to display in the header.
type HeaderInfo struct {
	Version string
	Backend string // backend base URL
}

// HeaderWidth is the default width of the header divider
const HeaderWidth = 50

// RenderHeader renders the title line, the backend address and a divider.
func RenderHeader(info HeaderInfo) string {
	titleStyle := lipgloss.NewStyle().Foreground(ColorNeonPink).Bold(true)
	versionStyle := lipgloss.NewStyle().Foreground(ColorNeonCyan)
	dividerStyle := lipgloss.NewStyle().Foreground(ColorGlassBorder)

	var b strings.Builder
	b.WriteString(titleStyle.Render("v2dash"))
	if info.Version != "" {
		b.WriteString(" ")
		b.WriteString(versionStyle.Render(info.Version))
	}
	b.WriteString("\n")

	if info.Backend != "" {
		b.WriteString(MutedStyle().Render(info.Backend))
		b.WriteString("\n")
	}

	b.WriteString(dividerStyle.Render(strings.Repeat("━", HeaderWidth)))
	b.WriteString("\n")
	return b.String()
}
