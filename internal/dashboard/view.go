package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/v2dash/internal/console"
	"github.com/rileyhilliard/v2dash/internal/ui"
)

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	switch {
	case m.showHelp:
		return m.renderHelpOverlay()
	case m.dialog != nil:
		return m.place(m.renderDialogBox())
	case m.modal.Visible():
		return m.place(m.renderModalBox())
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderGauges())
	b.WriteString("\n\n")
	b.WriteString(m.renderAccounts())
	b.WriteString("\n")
	if line := m.renderStatusLine(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(m.renderFooter())
	return b.String()
}

// place centers content on the screen.
func (m Model) place(content string) string {
	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		content,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(ColorDarkBg),
	)
}

func (m Model) renderHeader() string {
	left := HeaderStyle.Render("v2dash")
	if m.version != "" {
		left += " " + MutedStyle.Render(m.version)
	}
	if m.baseURL != "" {
		left += "  " + LabelStyle.Render(m.baseURL)
	}

	right := MutedStyle.Render("waiting for data")
	if at := m.engine.Metrics().UpdatedAt; !at.IsZero() {
		right = MutedStyle.Render("updated " + humanize.Time(at))
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		return left + "  " + right
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderGauges() string {
	view := m.engine.GaugeView()
	barWidth, sparkWidth := 10, 12
	if m.width < BreakpointStandard {
		barWidth, sparkWidth = 6, 0
	}
	if m.width < BreakpointCompact {
		barWidth = 0
	}

	parts := make([]string, 0, 3)
	details := make([]string, 0, 3)
	for _, g := range view.All() {
		part := LabelStyle.Render(g.Label) + " "
		if !g.Known {
			parts = append(parts, part+MutedStyle.Render(g.Text))
			continue
		}
		part += MetricStyle(g.Percent).Render(g.Text)
		if barWidth > 0 {
			part += " " + ui.RenderBar(g.Percent, barWidth)
		}
		if spark := ui.RenderSparkline(m.history.Series(g.Label, sparkWidth), sparkWidth); spark != "" {
			part += " " + spark
		}
		parts = append(parts, part)
		if g.Detail != "" {
			details = append(details, g.Label+" "+g.Detail)
		}
	}

	out := strings.Join(parts, "   ")
	if len(details) > 0 && m.width >= BreakpointCompact {
		out += "\n" + MutedStyle.Render(strings.Join(details, "  ·  "))
	}
	return out
}

func (m Model) renderAccounts() string {
	view := m.engine.TableView()
	width := m.width
	if width < 20 {
		width = 20
	}

	count := "-"
	if snap := m.engine.Accounts(); snap.Loaded && snap.Err == nil {
		count = fmt.Sprintf("%d", len(snap.Accounts))
	}

	var b strings.Builder
	b.WriteString(SectionHeader("Accounts", count, width))
	b.WriteString("\n")
	table := strings.TrimRight(ui.RenderAccountTable(view, m.selected), "\n")
	for _, line := range strings.Split(table, "\n") {
		b.WriteString(SectionContentLine(line, width))
		b.WriteString("\n")
	}
	b.WriteString(SectionFooter(width))
	return b.String()
}

// renderStatusLine shows the action in flight or the last outcome.
func (m Model) renderStatusLine() string {
	if m.spinner.Running() {
		return m.spinner.View()
	}
	return renderNotice(m.notice)
}

func renderNotice(out *console.Outcome) string {
	if out == nil {
		return ""
	}
	switch {
	case out.OK:
		return NoticeOKStyle.Render(ui.SymbolSuccess + " " + out.Message)
	case out.Canceled:
		return MutedStyle.Render(out.Message)
	default:
		return NoticeErrStyle.Render(ui.SymbolFail + " " + out.Message)
	}
}

func (m Model) renderFooter() string {
	keys := []string{"q quit", "r refresh", "n new", "d delete", "x reset", "enter qr", "? help"}
	return FooterStyle.Render(strings.Join(keys, "  "))
}

func (m Model) renderDialogBox() string {
	content := m.dialog.form.View()
	if notice := renderNotice(m.notice); notice != "" {
		content += "\n" + notice
	}
	content += "\n" + MutedStyle.Render("esc to cancel")
	return OverlayStyle.Render(content)
}

// renderModalBox draws the QR code overlay. Its size feeds the modal's
// click bounds, so it depends only on model state.
func (m Model) renderModalBox() string {
	cred := m.modal.Credential()
	if cred == nil {
		return ""
	}

	title := "QR code"
	if acct, ok := m.engine.Account(cred.AccountID); ok && acct.Name != "" {
		title += " · " + acct.Name
	}

	lines := []string{OverlayTitleStyle.Render(title), ""}
	if m.qrErr != nil {
		lines = append(lines, NoticeErrStyle.Render("Can't draw QR code: "+m.qrErr.Error()))
	} else {
		lines = append(lines, m.qrLines...)
	}
	lines = append(lines,
		"",
		MutedStyle.Render(fmt.Sprintf("image data URI, %s", humanize.Comma(int64(len(m.modal.Source())))+" chars")),
		MutedStyle.Render("esc to close · click outside to close"),
	)
	return OverlayStyle.Render(strings.Join(lines, "\n"))
}
