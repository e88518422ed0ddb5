package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Bar characters.
const (
	barFilled = "▰"
	barEmpty  = "▱"
)

// RenderBar draws a percentage bar of the given width colored by severity.
// The bar saturates outside 0..100; the caller prints the real value.
func RenderBar(percent float64, width int) string {
	if width < 1 {
		width = 1
	}
	clamped := percent
	if clamped < 0 {
		clamped = 0
	} else if clamped > 100 {
		clamped = 100
	}

	filled := int(clamped / 100 * float64(width))
	bar := strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, width-filled)
	return lipgloss.NewStyle().Foreground(SeverityColor(percent)).Render(bar)
}

// Sparkline block characters representing 8 vertical levels (lowest to highest).
var sparklineBlocks = []rune("▁▂▃▄▅▆▇█")

// RenderSparkline draws the last width samples, scaled to their own
// min..max range and colored by the newest sample.
func RenderSparkline(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	levels := len(sparklineBlocks)
	span := maxVal - minVal

	var sb strings.Builder
	for _, v := range data {
		level := levels / 2
		if span > 0 {
			level = int((v - minVal) / span * float64(levels-1))
		}
		sb.WriteRune(sparklineBlocks[level])
	}

	last := data[len(data)-1]
	return lipgloss.NewStyle().Foreground(SeverityColor(last)).Render(sb.String())
}
