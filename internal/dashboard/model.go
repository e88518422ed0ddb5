package dashboard

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/rileyhilliard/v2dash/internal/api"
	"github.com/rileyhilliard/v2dash/internal/console"
	"github.com/rileyhilliard/v2dash/internal/logger"
	"github.com/rileyhilliard/v2dash/internal/ui"
)

// Default polling intervals.
const (
	DefaultMetricsInterval  = 5 * time.Second
	DefaultAccountsInterval = 5 * time.Second
)

// Width breakpoints for layout modes
const (
	BreakpointCompact  = 80
	BreakpointStandard = 120
)

// Options configures a dashboard Model.
type Options struct {
	Backend    console.Backend
	Engine     *console.Engine     // created when nil
	Dispatcher *console.Dispatcher // created from Backend when nil

	MetricsInterval  time.Duration
	AccountsInterval time.Duration

	Logger      logger.Logger
	BaseURL     string
	Version     string
	HistorySize int
}

// Model is the Bubble Tea model for the operations console.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	backend    console.Backend
	engine     *console.Engine
	dispatcher *console.Dispatcher
	log        logger.Logger

	metricsInterval  time.Duration
	accountsInterval time.Duration
	baseURL          string
	version          string

	history    *History
	modal      *console.Modal
	createForm *console.CreateForm
	dialog     *dialog
	qrLines    []string
	qrErr      error

	spinner ui.ActionSpinner
	notice  *console.Outcome

	selected int
	width    int
	height   int
	showHelp bool
	quitting bool
}

type metricsTickMsg time.Time

type accountsTickMsg time.Time

type metricsMsg struct {
	seq   uint64
	stats *api.SystemStats
	err   error
}

type accountsMsg struct {
	seq      uint64
	accounts []api.Account
	err      error
}

type outcomeMsg struct {
	outcome console.Outcome
}

// confirmMsg carries the operator's answer to a delete or reset prompt.
type confirmMsg struct {
	action    console.Action
	accountID string
	accepted  bool
}

// NewModel creates a dashboard model. Canceling ctx aborts in-flight
// requests; quitting cancels it too.
func NewModel(ctx context.Context, opts Options) Model {
	ctx, cancel := context.WithCancel(ctx)

	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}
	engine := opts.Engine
	if engine == nil {
		engine = console.NewEngine(console.WithEngineLogger(log))
	}
	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = console.NewDispatcher(opts.Backend, log)
	}
	metricsInterval := opts.MetricsInterval
	if metricsInterval <= 0 {
		metricsInterval = DefaultMetricsInterval
	}
	accountsInterval := opts.AccountsInterval
	if accountsInterval <= 0 {
		accountsInterval = DefaultAccountsInterval
	}

	form := dispatcher.DefaultForm()
	return Model{
		ctx:              ctx,
		cancel:           cancel,
		backend:          opts.Backend,
		engine:           engine,
		dispatcher:       dispatcher,
		log:              log,
		metricsInterval:  metricsInterval,
		accountsInterval: accountsInterval,
		baseURL:          opts.BaseURL,
		version:          opts.Version,
		history:          NewHistory(opts.HistorySize),
		modal:            &console.Modal{},
		createForm:       &form,
		width:            BreakpointStandard,
		height:           40,
	}
}

// Init starts both pollers and their timers.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.pollMetrics(),
		m.pollAccounts(false),
		m.metricsTickCmd(),
		m.accountsTickCmd(),
	)
}

func (m Model) metricsTickCmd() tea.Cmd {
	return tea.Tick(m.metricsInterval, func(t time.Time) tea.Msg {
		return metricsTickMsg(t)
	})
}

func (m Model) accountsTickCmd() tea.Cmd {
	return tea.Tick(m.accountsInterval, func(t time.Time) tea.Msg {
		return accountsTickMsg(t)
	})
}

// pollMetrics returns the fetch command, or nil when one is pending.
func (m Model) pollMetrics() tea.Cmd {
	seq, ok := m.engine.BeginMetrics()
	if !ok {
		return nil
	}
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		stats, err := backend.SystemStats(ctx)
		return metricsMsg{seq: seq, stats: stats, err: err}
	}
}

// pollAccounts returns the fetch command. Forced polls always issue.
func (m Model) pollAccounts(forced bool) tea.Cmd {
	seq, ok := m.engine.BeginAccounts(forced)
	if !ok {
		return nil
	}
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		accounts, err := backend.ListAccounts(ctx)
		return accountsMsg{seq: seq, accounts: accounts, err: err}
	}
}

// Update handles incoming messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.modal.Click(msg.X, msg.Y)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layoutModal()
		if m.dialog != nil {
			return m.updateDialog(msg)
		}
		return m, nil

	case metricsTickMsg:
		return m, tea.Batch(m.pollMetrics(), m.metricsTickCmd())

	case accountsTickMsg:
		return m, tea.Batch(m.pollAccounts(false), m.accountsTickCmd())

	case metricsMsg:
		if m.engine.ApplyMetrics(msg.seq, msg.stats, msg.err) && msg.err == nil {
			m.history.Push(msg.stats)
		}
		return m, nil

	case accountsMsg:
		if m.engine.ApplyAccounts(msg.seq, msg.accounts, msg.err) {
			m.clampSelection()
		}
		return m, nil

	case outcomeMsg:
		return m.applyOutcome(msg.outcome)

	case confirmMsg:
		return m.handleConfirm(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.dialog != nil {
		return m.updateDialog(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.dialog != nil {
		if msg.String() == KeyCollapse {
			return m.finishDialog(false)
		}
		return m.updateDialog(msg)
	}

	m.notice = nil

	if m.modal.Visible() {
		switch msg.String() {
		case KeyQuitAlt:
			return m, m.quit()
		case KeyCollapse, KeyShowQR, KeyQuit:
			m.modal.Close()
			m.qrLines, m.qrErr = nil, nil
		}
		return m, nil
	}

	_, cmd := m.HandleKeyMsg(msg)
	return m, cmd
}

func (m *Model) quit() tea.Cmd {
	m.quitting = true
	m.cancel()
	return tea.Quit
}

// updateDialog forwards msg to the embedded form and finishes the dialog
// once the form completes or aborts.
func (m Model) updateDialog(msg tea.Msg) (tea.Model, tea.Cmd) {
	model, cmd := m.dialog.form.Update(msg)
	if f, ok := model.(*huh.Form); ok {
		m.dialog.form = f
	}
	switch m.dialog.form.State {
	case huh.StateCompleted:
		return m.finishDialog(true)
	case huh.StateAborted:
		return m.finishDialog(false)
	}
	return m, cmd
}

func (m Model) finishDialog(completed bool) (tea.Model, tea.Cmd) {
	d := m.dialog
	m.dialog = nil

	switch d.kind {
	case dialogCreate:
		if !completed {
			return m, nil
		}
		return m, m.startAction(console.ActionCreate, func() console.Outcome {
			return m.dispatcher.Submit(m.ctx, m.createForm)
		})
	default:
		return m.handleConfirm(confirmMsg{
			action:    d.action,
			accountID: d.accountID,
			accepted:  completed && *d.answer,
		})
	}
}

// handleConfirm hands the recorded answer to the dispatcher, which still
// asks before touching the backend. A rejection never issues a request.
func (m Model) handleConfirm(msg confirmMsg) (tea.Model, tea.Cmd) {
	m.dialog = nil
	answer := func(string) bool { return msg.accepted }

	run := func() console.Outcome {
		if msg.action == console.ActionResetStats {
			return m.dispatcher.ResetStats(m.ctx, msg.accountID, answer)
		}
		return m.dispatcher.Delete(m.ctx, msg.accountID, answer)
	}

	if !msg.accepted {
		return m.applyOutcome(run())
	}
	return m, m.startAction(msg.action, run)
}

// startAction marks action in flight and runs fn off the update loop.
func (m *Model) startAction(action console.Action, fn func() console.Outcome) tea.Cmd {
	m.spinner = ui.NewActionSpinner(action)
	return tea.Batch(m.spinner.Start(), func() tea.Msg {
		return outcomeMsg{outcome: fn()}
	})
}

func (m Model) applyOutcome(out console.Outcome) (tea.Model, tea.Cmd) {
	m.spinner.Finish(out)
	m.notice = &out

	if out.Failed() {
		m.log.Warn("%s failed: %s", out.Action, out.Detail)
	} else if out.OK {
		m.log.Info("%s ok id=%s", out.Action, out.AccountID)
	}

	if out.OK && out.Credential != nil {
		m.modal.Open(*out.Credential)
		m.qrLines, m.qrErr = RenderQR(out.Credential.PNG)
		if m.qrErr != nil {
			m.log.Warn("render qr code: %v", m.qrErr)
		}
		m.layoutModal()
	}

	if out.Action == console.ActionCreate && out.Failed() {
		// The form keeps the operator's values for correction.
		cmd := m.openCreate()
		return m, cmd
	}

	if out.Refresh {
		return m, m.pollAccounts(true)
	}
	return m, nil
}

func (m *Model) openCreate() tea.Cmd {
	form := newCreateForm(m.createForm)
	m.dialog = &dialog{kind: dialogCreate, form: form}
	return form.Init()
}

func (m *Model) openConfirm(action console.Action) tea.Cmd {
	if m.spinner.Running() {
		return nil
	}
	acct, ok := m.selectedAccount()
	if !ok {
		return nil
	}
	subject := acct.Name
	if subject == "" {
		subject = acct.ID
	}
	answer := new(bool)
	form := newConfirmForm(console.ConfirmPrompt(action, subject), answer)
	m.dialog = &dialog{kind: dialogConfirm, form: form, action: action, accountID: acct.ID, answer: answer}
	return form.Init()
}

func (m *Model) fetchCredential() tea.Cmd {
	if m.spinner.Running() {
		return nil
	}
	acct, ok := m.selectedAccount()
	if !ok {
		return nil
	}
	ctx, dispatcher, id := m.ctx, m.dispatcher, acct.ID
	return m.startAction(console.ActionCredential, func() console.Outcome {
		return dispatcher.FetchCredential(ctx, id)
	})
}

func (m Model) accountCount() int {
	snap := m.engine.Accounts()
	if !snap.Loaded || snap.Err != nil {
		return 0
	}
	return len(snap.Accounts)
}

func (m Model) selectedAccount() (api.Account, bool) {
	snap := m.engine.Accounts()
	if !snap.Loaded || snap.Err != nil || m.selected < 0 || m.selected >= len(snap.Accounts) {
		return api.Account{}, false
	}
	return snap.Accounts[m.selected], true
}

func (m *Model) clampSelection() {
	n := m.accountCount()
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

// layoutModal records where the QR box lands on screen so clicks can be
// tested against it. It mirrors the centering done by place.
func (m *Model) layoutModal() {
	if !m.modal.Visible() {
		return
	}
	box := m.renderModalBox()
	w, h := lipgloss.Width(box), lipgloss.Height(box)
	m.modal.SetBounds(console.Rect{
		X:      centerOffset(m.width, w),
		Y:      centerOffset(m.height, h),
		Width:  w,
		Height: h,
	})
}

// centerOffset matches lipgloss.Place with lipgloss.Center.
func centerOffset(total, size int) int {
	gap := total - size
	if gap <= 0 {
		return 0
	}
	return gap - int(math.Round(float64(gap)*0.5))
}

// Selected returns the index of the selected account.
func (m Model) Selected() int {
	return m.selected
}

// Modal returns the QR code overlay state.
func (m Model) Modal() *console.Modal {
	return m.modal
}

// Notice returns the outcome currently shown to the operator, if any.
func (m Model) Notice() *console.Outcome {
	return m.notice
}

// Busy returns the action in flight, or "".
func (m Model) Busy() console.Action {
	if !m.spinner.Running() {
		return ""
	}
	return m.spinner.Action()
}

// Run starts the dashboard full screen and blocks until the operator quits.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(NewModel(ctx, opts), tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
