// Package ui holds the terminal styling shared by the one-shot commands,
// the watch loop and the dashboard.
//
// # Color Scheme
//
// Colors are truecolor hex values that lipgloss degrades to whatever the
// terminal supports:
//
//	ColorSuccess (green) - healthy gauges, completed actions
//	ColorWarning (amber) - gauges at 70% and over, traffic near its limit
//	ColorError   (red)   - gauges at 90% and over, failures
//	ColorMuted   (gray)  - secondary text, timing info
//
// ApplyColorMode maps the output.color setting (auto, always, never) onto
// the lipgloss color profile; DisableColors forces monochrome output.
//
// # Tables
//
// RenderAccountTable draws a console.TableView with fixed-width columns.
// Highlighted traffic cells carry SymbolWarning so the emphasis survives
// monochrome output.
package ui
