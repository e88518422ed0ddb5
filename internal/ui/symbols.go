package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess   = "✓"
	SymbolFail      = "✗"
	SymbolPending   = "○"
	SymbolComplete  = "●"
	SymbolSkipped   = "⊘"
	SymbolWarning   = "⚠"
	SymbolArrowUp   = "↑"
	SymbolArrowDown = "↓"
)
