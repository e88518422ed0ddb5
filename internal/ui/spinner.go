package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Spinner shows an animated label while a backend call is in flight.
// A disabled spinner prints only the final line, which keeps piped
// output free of carriage returns.
type Spinner struct {
	mu       sync.Mutex
	label    string
	out      io.Writer
	enabled  bool
	frame    int
	start    time.Time
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	lastLen  int
}

// NewSpinner creates a spinner writing to stderr.
func NewSpinner(label string) *Spinner {
	return &Spinner{label: label, out: os.Stderr, enabled: true}
}

// SetOutput redirects the spinner.
func (s *Spinner) SetOutput(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = w
}

// SetEnabled turns the animation on or off.
func (s *Spinner) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = time.Now()
	if s.running || !s.enabled {
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	go s.animate()
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopChan)
	s.mu.Unlock()

	<-s.doneChan

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
}

// Success stops the spinner and prints a success line.
func (s *Spinner) Success() {
	s.finish(SymbolComplete, ColorSuccess)
}

// Fail stops the spinner and prints a failure line.
func (s *Spinner) Fail() {
	s.finish(SymbolFail, ColorError)
}

func (s *Spinner) finish(symbol string, color lipgloss.Color) {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "%s %s %s\n",
		lipgloss.NewStyle().Foreground(color).Render(symbol),
		s.label,
		MutedStyle().Render(formatDuration(time.Since(s.start))))
}

func (s *Spinner) animate() {
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	defer close(s.doneChan)

	for {
		s.mu.Lock()
		s.render()
		s.mu.Unlock()

		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
		}
	}
}

// render must be called with mu held.
func (s *Spinner) render() {
	color := GradientColors[(s.frame/2)%len(GradientColors)]
	symbol := lipgloss.NewStyle().Foreground(color).Render(SpinnerFrames.Frames[s.frame%len(SpinnerFrames.Frames)])
	line := fmt.Sprintf("%s %s...", symbol, s.label)

	s.clear()
	fmt.Fprint(s.out, line)
	s.lastLen = lipgloss.Width(line)
	s.frame++
}

// clear must be called with mu held.
func (s *Spinner) clear() {
	if s.lastLen == 0 {
		return
	}
	fmt.Fprint(s.out, "\r"+strings.Repeat(" ", s.lastLen)+"\r")
	s.lastLen = 0
}

// formatDuration formats a duration for display (e.g., "0.3s", "1.2s").
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		return fmt.Sprintf("%.2fs", secs)
	}
	return fmt.Sprintf("%.1fs", secs)
}
