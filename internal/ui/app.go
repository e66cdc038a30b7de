package ui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/timebank/internal/config"
	"github.com/five82/timebank/internal/coordinator"
	"github.com/five82/timebank/internal/localstate"
	"github.com/five82/timebank/internal/views"
)

// View represents the current active view.
type View int

const (
	ViewDashboard View = iota
	ViewSessions
	ViewTransactions
	ViewProfile
	ViewVideo
	ViewLogs
)

var viewOrder = []View{ViewDashboard, ViewSessions, ViewTransactions, ViewProfile, ViewVideo, ViewLogs}

func (v View) String() string {
	switch v {
	case ViewSessions:
		return "Sessions"
	case ViewTransactions:
		return "Transactions"
	case ViewProfile:
		return "Profile"
	case ViewVideo:
		return "Video"
	case ViewLogs:
		return "Logs"
	default:
		return "Dashboard"
	}
}

const tickInterval = time.Second

// Options configures the UI.
type Options struct {
	Context   context.Context
	Coord     *coordinator.Coordinator
	State     *localstate.Store
	Config    config.Config
	Logger    *slog.Logger
	ThemeName string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx    context.Context
	coord  *coordinator.Coordinator
	state  *localstate.Store
	config config.Config
	logger *slog.Logger

	// Screen adapters; they notify on changes
	dashboard    *views.Dashboard
	sessions     *views.Sessions
	transactions *views.Transactions
	profile      *views.Profile
	video        *views.Video
	changes      chan struct{}

	// UI state
	theme       Theme
	keys        keyMap
	help        help.Model
	spinner     spinner.Model
	currentView View
	width       int
	height      int
	ready       bool
	now         time.Time
	flash       string // last operation failure not covered by a notice

	// Transactions table
	txTable table.Model

	// Log state
	logViewport viewport.Model
	logState    logState

	// Overlays
	showHelp bool
	modal    Modal
	login    *formModal
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	themeName := opts.ThemeName
	if themeName == "" {
		themeName = themeOrder[0]
	}

	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	m := Model{
		ctx:          ctx,
		coord:        opts.Coord,
		state:        opts.State,
		config:       opts.Config,
		logger:       logger,
		dashboard:    views.NewDashboard(opts.Coord, notify),
		sessions:     views.NewSessions(opts.Coord, notify),
		transactions: views.NewTransactions(opts.Coord, notify),
		profile:      views.NewProfile(opts.Coord, notify),
		video:        views.NewVideo(opts.Coord, notify),
		changes:      changes,
		theme:        GetTheme(themeName),
		keys:         DefaultKeyMap(),
		help:         help.New(),
		spinner:      sp,
		currentView:  ViewDashboard,
		now:          time.Now(),
		txTable:      newTransactionTable(),
		logState:     newLogState(),
	}
	m.login = m.newLoginForm()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(tickInterval),
		waitForChange(m.changes),
		m.spinner.Tick,
	}
	if n := m.coord.Notices(); n != nil {
		cmds = append(cmds, waitForNotice(n.Changed()))
	}
	if m.loggedIn() {
		cmds = append(cmds, m.refreshAll())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		cmds := []tea.Cmd{tickCmd(tickInterval)}
		if m.currentView == ViewLogs && m.logState.follow {
			cmds = append(cmds, m.readLogs())
		}
		return m, tea.Batch(cmds...)

	case changeMsg:
		m.syncTables()
		return m, waitForChange(m.changes)

	case noticeMsg:
		return m, waitForNotice(m.coord.Notices().Changed())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil

	case opResultMsg:
		return m.handleResult(msg)
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if !m.loggedIn() {
		return m.login.View(m.theme, m.width, m.height)
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderMain()
}

func (m Model) loggedIn() bool {
	return m.state != nil && m.state.Token() != ""
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if !m.loggedIn() {
		if key.Matches(msg, m.keys.SwitchForm) && !m.login.busy {
			if m.login.op == coordinator.OpRegister {
				m.login = m.newLoginForm()
			} else {
				m.login = m.newRegisterForm()
			}
			return m, nil
		}
		modal, cmd, _ := m.login.Update(msg, m.keys)
		m.login = modal.(*formModal)
		return m, cmd
	}

	if m.modal != nil {
		modal, cmd, closed := m.modal.Update(msg, m.keys)
		m.modal = modal
		if closed {
			m.modal = nil
		}
		return m, cmd
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.txTable.SetStyles(m.tableStyles())
		if m.state != nil {
			if err := m.state.SetTheme(m.theme.Name); err != nil {
				m.logger.Warn("save theme", "error", err)
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		return m.switchView(m.offsetView(1))

	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView(m.offsetView(-1))

	case key.Matches(msg, m.keys.Dismiss):
		if n := m.coord.Notices(); n != nil {
			if latest, ok := n.Latest(); ok {
				n.Dismiss(latest.ID)
			}
		}
		m.flash = ""
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshView()

	case key.Matches(msg, m.keys.ViewDashboard):
		return m.switchView(ViewDashboard)
	case key.Matches(msg, m.keys.ViewSessions):
		return m.switchView(ViewSessions)
	case key.Matches(msg, m.keys.ViewTransactions):
		return m.switchView(ViewTransactions)
	case key.Matches(msg, m.keys.ViewProfile):
		return m.switchView(ViewProfile)
	case key.Matches(msg, m.keys.ViewVideo):
		return m.switchView(ViewVideo)
	case key.Matches(msg, m.keys.ViewLogs):
		return m.switchView(ViewLogs)
	}

	switch m.currentView {
	case ViewSessions:
		return m.handleSessionsKey(msg)
	case ViewTransactions:
		return m.handleTransactionsKey(msg)
	case ViewProfile:
		return m.handleProfileKey(msg)
	case ViewVideo:
		return m.handleVideoKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}
	return m, nil
}

func (m Model) offsetView(delta int) View {
	idx := 0
	for i, v := range viewOrder {
		if v == m.currentView {
			idx = i
			break
		}
	}
	n := len(viewOrder)
	return viewOrder[((idx+delta)%n+n)%n]
}

// switchView activates v and fetches what it shows when nothing is loaded yet.
func (m Model) switchView(v View) (tea.Model, tea.Cmd) {
	m.currentView = v
	switch v {
	case ViewTransactions:
		if m.transactions.Total() == 0 && len(m.transactions.Rows()) == 0 {
			return m, m.loadTransactions(0)
		}
	case ViewProfile:
		if len(m.profile.Skills()) == 0 {
			return m, m.runOp(coordinator.OpRefreshSkills, m.coord.RefreshSkills)
		}
	case ViewVideo:
		return m, m.runOp(coordinator.OpRefreshVideo, m.coord.RefreshVideo)
	case ViewLogs:
		return m, m.readLogs()
	}
	return m, nil
}

// handleResult reacts to a finished coordinator operation.
func (m Model) handleResult(msg opResultMsg) (tea.Model, tea.Cmd) {
	if msg.op == coordinator.OpLogin || msg.op == coordinator.OpRegister {
		modal, _, _ := m.login.Update(msg, m.keys)
		m.login = modal.(*formModal)
		if msg.err == nil {
			m.login = m.newLoginForm()
			m.modal = nil
			m.flash = ""
			m.currentView = ViewDashboard
			return m, m.refreshAll()
		}
		return m, nil
	}

	if m.modal != nil {
		modal, cmd, closed := m.modal.Update(msg, m.keys)
		m.modal = modal
		if closed {
			m.modal = nil
		}
		if cmd != nil {
			return m, cmd
		}
	}

	switch {
	case msg.err == nil:
		if msg.op == coordinator.OpLogout {
			m.currentView = ViewDashboard
		}
	case errors.Is(msg.err, context.Canceled):
	case m.modal != nil:
		// the open form shows the error
	default:
		m.flash = string(msg.op) + ": " + msg.err.Error()
	}
	return m, nil
}

func (m *Model) resize() {
	m.help.Width = m.width
	m.txTable.SetWidth(m.width - 2)
	m.txTable.SetHeight(max(m.contentHeight()-4, 3))
	m.txTable.SetColumns(transactionColumns(m.width - 4))
	m.syncTables()
	m.resizeLogViewport()
}

// contentHeight is the height left below the header, tab bar and notice line
// and above the footer.
func (m Model) contentHeight() int {
	return max(m.height-4, 3)
}

// close detaches the screen adapters.
func (m Model) close() {
	m.dashboard.Close()
	m.sessions.Close()
	m.transactions.Close()
	m.profile.Close()
	m.video.Close()
}

// Messages

type tickMsg time.Time

type changeMsg struct{}

type noticeMsg struct{}

// opResultMsg reports a finished coordinator operation.
type opResultMsg struct {
	op  coordinator.Op
	err error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return changeMsg{}
	}
}

func waitForNotice(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return noticeMsg{}
	}
}

// runOp runs fn in a command and reports its outcome as an opResultMsg.
func (m Model) runOp(op coordinator.Op, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opResultMsg{op: op, err: fn(ctx)}
	}
}

// refreshAll loads everything the screens show.
func (m Model) refreshAll() tea.Cmd {
	coord := m.coord
	return tea.Batch(
		m.runOp(coordinator.OpRefreshUser, func(ctx context.Context) error {
			return coord.RefreshUserContext(ctx, coord.CurrentUserID())
		}),
		m.runOp(coordinator.OpRefreshSessions, coord.RefreshSessions),
		m.loadTransactions(0),
		m.runOp(coordinator.OpRefreshSkills, coord.RefreshSkills),
		m.runOp(coordinator.OpRefreshVideo, coord.RefreshVideo),
	)
}

// refreshView reloads the current view's data.
func (m Model) refreshView() tea.Cmd {
	coord := m.coord
	switch m.currentView {
	case ViewSessions:
		return m.runOp(coordinator.OpRefreshSessions, coord.RefreshSessions)
	case ViewTransactions:
		return m.loadTransactions(m.transactions.Offset())
	case ViewProfile:
		return tea.Batch(
			m.runOp(coordinator.OpRefreshUser, func(ctx context.Context) error {
				return coord.RefreshUserContext(ctx, coord.CurrentUserID())
			}),
			m.runOp(coordinator.OpRefreshSkills, coord.RefreshSkills),
		)
	case ViewVideo:
		return m.runOp(coordinator.OpRefreshVideo, coord.RefreshVideo)
	case ViewLogs:
		return m.readLogs()
	default:
		return m.refreshAll()
	}
}

func (m Model) loadTransactions(offset int) tea.Cmd {
	coord := m.coord
	return m.runOp(coordinator.OpLoadTransactions, func(ctx context.Context) error {
		return coord.LoadTransactions(ctx, coord.PageSize(), offset)
	})
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	defer m.close()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
