package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/timebank/internal/notify"
	"github.com/five82/timebank/internal/views"
)

// renderMain renders header, tab bar, notice line, content and footer.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	b.WriteString("\n")
	b.WriteString(m.renderNotice())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewSessions:
		return m.renderSessions()
	case ViewTransactions:
		return m.renderTransactions()
	case ViewProfile:
		return m.renderProfile()
	case ViewVideo:
		return m.renderVideo()
	case ViewLogs:
		return m.renderLogs()
	default:
		return m.renderDashboard()
	}
}

// renderHeader renders the status bar: user, balance, call timer and activity.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{bg.Render("timebank", styles.Logo)}

	if user, ok := m.dashboard.User(); ok {
		parts = append(parts, bg.Render(truncate(views.DisplayName(user), 24), styles.Text))

		bal := m.dashboard.Balance()
		balStyle := styles.SuccessText
		mark := "✓"
		if !bal.Confirmed {
			balStyle = styles.WarningText
			mark = "~"
		}
		parts = append(parts,
			bg.Render("Credits:", styles.MutedText)+bg.Space()+
				bg.Render(views.Credits(bal.Amount), balStyle)+bg.Space()+
				bg.Render(mark, styles.FaintText),
		)
	} else {
		parts = append(parts, bg.Render("Loading profile...", styles.WarningText))
	}

	if elapsed := m.video.Elapsed(); elapsed != "" {
		parts = append(parts,
			bg.Render("● CALL", styles.DangerText)+bg.Space()+bg.Render(elapsed, styles.Text))
	}

	if m.loading() {
		parts = append(parts, bg.Render(m.spinner.View(), styles.AccentText)+bg.Space()+bg.Render("syncing", styles.MutedText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// loading reports whether any screen has an operation in flight.
func (m Model) loading() bool {
	return m.dashboard.Loading() || m.sessions.Loading() || m.transactions.Loading() ||
		m.profile.Loading() || m.video.Loading()
}

// renderTabs renders the view switcher.
func (m Model) renderTabs() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Background)

	tabs := make([]string, 0, len(viewOrder))
	for i, v := range viewOrder {
		label := " " + string(rune('1'+i)) + " " + v.String() + " "
		if v == m.currentView {
			tabs = append(tabs, styles.Selected.Bold(true).Render(label))
			continue
		}
		tabs = append(tabs, bg.Render(label, styles.MutedText))
	}
	return bg.FillLine(strings.Join(tabs, bg.Space()), m.width)
}

// renderNotice renders the newest notice, or the last local failure.
func (m Model) renderNotice() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Background)

	var text string
	style := styles.MutedText
	count := 0
	if n := m.coord.Notices(); n != nil {
		active := n.Active()
		count = len(active)
		if count > 0 {
			latest := active[count-1]
			text = latest.Message
			style = noticeStyle(styles, latest.Level)
		}
	}
	if text == "" && m.flash != "" {
		text = m.flash
		style = styles.WarningText
	}
	if text == "" {
		return bg.FillLine("", m.width)
	}

	line := bg.Render("!", style.Bold(true)) + bg.Space() + bg.Render(truncate(text, m.width-24), style)
	if count > 1 {
		line += bg.Space() + bg.Render("(+"+strconv.Itoa(count-1)+")", styles.FaintText)
	}
	line += bg.Spaces(2) + bg.Render("D to dismiss", styles.FaintText)
	return bg.FillLine(line, m.width)
}

func noticeStyle(styles Styles, level notify.Level) lipgloss.Style {
	switch level {
	case notify.Error:
		return styles.DangerText
	case notify.Warn:
		return styles.WarningText
	default:
		return styles.InfoText
	}
}

// renderFooter renders the key hints for the current view.
func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	h := m.help
	h.Styles.ShortKey = styles.AccentText
	h.Styles.ShortDesc = styles.MutedText
	h.Styles.ShortSeparator = styles.FaintText
	return styles.Footer.Width(m.width).Render(h.ShortHelpView(m.keys.viewHelp(m.currentView)))
}
