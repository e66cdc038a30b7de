package ui

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/timebank/internal/logtail"
)

const logBufferLimit = 2000

// levelFilters is the cycle of minimum levels; the first shows everything.
var levelFilters = []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}

// logState holds all log-related state.
type logState struct {
	entries  []logtail.Entry
	follow   bool
	levelIdx int
	err      error

	// Content caching - skip re-render when unchanged
	contentVersion uint64
	lastRendered   uint64
}

func newLogState() logState {
	return logState{follow: true}
}

type logLinesMsg struct {
	lines []string
	err   error
}

// readLogs tails the client's own log file.
func (m Model) readLogs() tea.Cmd {
	path := m.config.LogPath()
	return func() tea.Msg {
		lines, err := logtail.Read(path, logBufferLimit)
		return logLinesMsg{lines: lines, err: err}
	}
}

func (m *Model) handleLogLines(msg logLinesMsg) {
	m.logState.err = msg.err
	if msg.err != nil {
		return
	}
	m.logState.entries = logtail.ParseAll(msg.lines)
	m.logState.contentVersion++
	m.updateLogViewport()
}

func (m *Model) resizeLogViewport() {
	w, h := max(m.width-2, 1), max(m.contentHeight()-3, 1)
	if m.logViewport.Width == 0 {
		m.logViewport = viewport.New(w, h)
	}
	m.logViewport.Width = w
	m.logViewport.Height = h
	m.logState.lastRendered = 0
	m.updateLogViewport()
}

// updateLogViewport re-renders the visible entries when they changed.
func (m *Model) updateLogViewport() {
	if m.logViewport.Width == 0 {
		return
	}
	if m.logState.lastRendered == 0 || m.logState.contentVersion != m.logState.lastRendered {
		m.logViewport.SetContent(m.renderLogContent())
		m.logState.lastRendered = max(m.logState.contentVersion, 1)
	}
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

func (m *Model) visibleEntries() []logtail.Entry {
	return logtail.Filter(m.logState.entries, levelFilters[m.logState.levelIdx])
}

func (m *Model) renderLogContent() string {
	styles := m.theme.Styles()
	entries := m.visibleEntries()
	if len(entries) == 0 {
		return styles.MutedText.Render("No log entries.")
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, m.levelStyle(e.Level, styles).Render(truncate(logtail.Format(e), m.logViewport.Width)))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) levelStyle(level slog.Level, styles Styles) lipgloss.Style {
	switch {
	case level >= slog.LevelError:
		return styles.DangerText
	case level >= slog.LevelWarn:
		return styles.WarningText
	case level >= slog.LevelInfo:
		return styles.Text
	default:
		return styles.FaintText
	}
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.CycleLevel):
		m.logState.levelIdx = (m.logState.levelIdx + 1) % len(levelFilters)
		m.logState.contentVersion++
		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		m.logState.follow = false
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		m.logState.follow = true
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.logViewport.ScrollDown(1)
		m.logState.follow = false
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.logViewport.ScrollUp(1)
		m.logState.follow = false
		return m, nil

	case key.Matches(msg, m.keys.NextPage):
		m.logViewport.PageDown()
		m.logState.follow = false
		return m, nil

	case key.Matches(msg, m.keys.PrevPage):
		m.logViewport.PageUp()
		m.logState.follow = false
		return m, nil
	}
	return m, nil
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	title := "Client Log"
	if idx := m.logState.levelIdx; idx > 0 {
		title += " (" + strings.ToLower(levelFilters[idx].String()) + "+)"
	}
	box := m.renderBox(title, m.logViewport.View(), m.width, m.contentHeight()-1, true)
	return box + "\n" + m.renderLogStatus(styles)
}

// renderLogStatus renders the line under the log box.
func (m Model) renderLogStatus(styles Styles) string {
	if m.logState.err != nil {
		return styles.DangerText.Render(truncate(m.logState.err.Error(), m.width))
	}
	autoTail := "off"
	if m.logState.follow {
		autoTail = "on"
	}
	visible := len(logtail.Filter(m.logState.entries, levelFilters[m.logState.levelIdx]))
	status := fmt.Sprintf("%d/%d entries • auto-tail %s", visible, len(m.logState.entries), autoTail)
	return styles.FaintText.Render(status) + "  " + styles.MutedText.Render(truncate(m.config.LogPath(), 60))
}
