package ui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/v2dash/internal/console"
)

// SpinnerFrames animates backend calls in both the dashboard and the CLI.
var SpinnerFrames = spinner.Spinner{
	Frames: []string{"◐", "◓", "◑", "◒"},
	FPS:    time.Second / 10,
}

// ActionSpinner shows the operator action the dashboard is waiting on.
// It runs from Start until Finish receives that action's outcome.
type ActionSpinner struct {
	spinner  spinner.Model
	action   console.Action
	started  time.Time
	finished time.Time
	running  bool
	ok       bool
}

// NewActionSpinner creates an idle spinner for action.
func NewActionSpinner(action console.Action) ActionSpinner {
	sp := spinner.New()
	sp.Spinner = SpinnerFrames
	sp.Style = lipgloss.NewStyle().Foreground(ColorSecondary)
	return ActionSpinner{spinner: sp, action: action}
}

// Start begins the animation and returns the first tick.
func (s *ActionSpinner) Start() tea.Cmd {
	s.running = true
	s.started = time.Now()
	s.finished = time.Time{}
	return s.spinner.Tick
}

// Finish stops the spinner when out belongs to its action and reports
// whether it did. Outcomes of other actions leave it running.
func (s *ActionSpinner) Finish(out console.Outcome) bool {
	if !s.running || out.Action != s.action {
		return false
	}
	s.running = false
	s.ok = out.OK
	s.finished = time.Now()
	return true
}

// Running reports whether the action is still in flight.
func (s ActionSpinner) Running() bool {
	return s.running
}

// Action returns the action the spinner tracks.
func (s ActionSpinner) Action() console.Action {
	return s.action
}

// Update advances the animation. Ticks arriving after Finish are dropped,
// which ends the tick chain.
func (s ActionSpinner) Update(msg tea.Msg) (ActionSpinner, tea.Cmd) {
	tick, ok := msg.(spinner.TickMsg)
	if !ok || !s.running {
		return s, nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(tick)
	return s, cmd
}

// View renders the frame and label while running and the result symbol
// with the elapsed time afterwards. A spinner never started renders "".
func (s ActionSpinner) View() string {
	timing := MutedStyle()
	switch {
	case s.started.IsZero():
		return ""
	case s.running:
		return s.spinner.View() + " " + s.action.Label() + "... " +
			timing.Render(formatDuration(time.Since(s.started)))
	}

	symbol, color := SymbolFail, ColorError
	if s.ok {
		symbol, color = SymbolComplete, ColorSuccess
	}
	return lipgloss.NewStyle().Foreground(color).Render(symbol) + " " +
		s.action.Label() + " " + timing.Render(formatDuration(s.finished.Sub(s.started)))
}
