package dashboard

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rileyhilliard/v2dash/internal/console"
)

// Key bindings as constants for consistency.
const (
	KeyQuit        = "q"
	KeyQuitAlt     = "ctrl+c"
	KeyRefresh     = "r"
	KeyNew         = "n"
	KeyDelete      = "d"
	KeyReset       = "x"
	KeyShowQR      = "enter"
	KeyShowQRAlt   = "c"
	KeySelectPrev  = "up"
	KeySelectPrevK = "k"
	KeySelectNext  = "down"
	KeySelectNextJ = "j"
	KeySelectFirst = "home"
	KeySelectLast  = "end"
	KeyCollapse    = "esc"
	KeyToggleHelp  = "?"
)

// HandleKeyMsg processes keyboard input on the main screen.
// Returns true if the key was handled, false otherwise.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}

	if m.showHelp && key == KeyCollapse {
		m.showHelp = false
		return true, nil
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		return true, m.quit()

	case KeyRefresh:
		return true, m.pollAccounts(true)

	case KeyNew:
		if m.spinner.Running() {
			return true, nil
		}
		return true, m.openCreate()

	case KeyDelete:
		return true, m.openConfirm(console.ActionDelete)

	case KeyReset:
		return true, m.openConfirm(console.ActionResetStats)

	case KeyShowQR, KeyShowQRAlt:
		return true, m.fetchCredential()

	case KeySelectPrev, KeySelectPrevK:
		if m.selected > 0 {
			m.selected--
		}
		return true, nil

	case KeySelectNext, KeySelectNextJ:
		if m.selected < m.accountCount()-1 {
			m.selected++
		}
		return true, nil

	case KeySelectFirst:
		m.selected = 0
		return true, nil

	case KeySelectLast:
		if n := m.accountCount(); n > 0 {
			m.selected = n - 1
		}
		return true, nil
	}

	return false, nil
}
