package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Brand palette.
const (
	ColorNeonPink    lipgloss.Color = "#FF2E97"
	ColorNeonCyan    lipgloss.Color = "#00FFFF"
	ColorNeonPurple  lipgloss.Color = "#BF40FF"
	ColorNeonGreen   lipgloss.Color = "#39FF14"
	ColorNeonAmber   lipgloss.Color = "#FFAA00"
	ColorDeepVoid    lipgloss.Color = "#0A0A0F"
	ColorDarkSurface lipgloss.Color = "#12121A"
	ColorGlassBorder lipgloss.Color = "#2A2A4A"
)

// Semantic colors for status indication
const (
	ColorSuccess lipgloss.Color = "#39FF14"
	ColorError   lipgloss.Color = "#FF0055"
	ColorWarning lipgloss.Color = "#FFAA00"
	ColorInfo    lipgloss.Color = "#00FFFF"
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "#FFFFFF"
	ColorSecondary lipgloss.Color = "#B4B4D0"
	ColorMuted     lipgloss.Color = "#6B6B8D"
)

// GradientColors is cycled by the spinner.
var GradientColors = []lipgloss.Color{ColorNeonPink, ColorNeonPurple, ColorNeonCyan, ColorNeonGreen}

// Severity thresholds for percentage gauges.
const (
	WarningThreshold  = 70.0
	CriticalThreshold = 90.0
)

// SeverityColor colors a percentage: green below 70, amber below 90, red above.
func SeverityColor(percent float64) lipgloss.Color {
	switch {
	case percent >= CriticalThreshold:
		return ColorError
	case percent >= WarningThreshold:
		return ColorWarning
	default:
		return ColorSuccess
	}
}

func SuccessStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorSuccess) }
func ErrorStyle() lipgloss.Style   { return lipgloss.NewStyle().Foreground(ColorError) }
func WarningStyle() lipgloss.Style { return lipgloss.NewStyle().Foreground(ColorWarning) }
func InfoStyle() lipgloss.Style    { return lipgloss.NewStyle().Foreground(ColorInfo) }
func MutedStyle() lipgloss.Style   { return lipgloss.NewStyle().Foreground(ColorMuted) }

// Color modes accepted by ApplyColorMode, matching the output.color setting.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// ApplyColorMode sets the global lipgloss profile. "auto" keeps terminal
// detection, except that NO_COLOR or a non-terminal out disables color.
func ApplyColorMode(mode string, out *os.File) {
	switch mode {
	case ColorNever:
		DisableColors()
	case ColorAlways:
		lipgloss.SetColorProfile(termenv.TrueColor)
	default:
		if os.Getenv("NO_COLOR") != "" {
			DisableColors()
			return
		}
		if out != nil {
			lipgloss.SetColorProfile(termenv.NewOutput(out).EnvColorProfile())
		}
	}
}

// DisableColors switches to monochrome output.
func DisableColors() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// PrintSuccess writes a success line to w.
func PrintSuccess(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s %s\n", SuccessStyle().Render(SymbolComplete), msg)
}

// PrintWarning writes a warning line to stderr.
func PrintWarning(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", WarningStyle().Render(SymbolWarning), msg)
}

// PrintMuted writes secondary text to w.
func PrintMuted(w io.Writer, msg string) {
	fmt.Fprintln(w, MutedStyle().Render(msg))
}
