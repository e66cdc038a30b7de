package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/timebank/internal/coordinator"
	"github.com/five82/timebank/internal/views"
)

// handleSessionsKey processes keyboard input for the sessions view.
func (m Model) handleSessionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.sessions.Rows()
	switch {
	case key.Matches(msg, m.keys.Down):
		m.sessions.Move(1)
	case key.Matches(msg, m.keys.Up):
		m.sessions.Move(-1)
	case key.Matches(msg, m.keys.Top):
		m.sessions.Move(-len(rows))
	case key.Matches(msg, m.keys.Bottom):
		m.sessions.Move(len(rows))

	case key.Matches(msg, m.keys.Complete):
		row, ok := m.sessions.Selected()
		if !ok {
			return m, nil
		}
		if !row.CanComplete() {
			m.flash = fmt.Sprintf("Session %q cannot be completed while %s", row.Session.Title, row.Label)
			return m, nil
		}
		id := row.Session.ID
		coord := m.coord
		m.modal = &confirmModal{
			prompt: fmt.Sprintf("Mark %q as completed and release %s credits?", truncate(row.Session.Title, 30), views.Credits(row.Session.CreditAmount)),
			run: m.runOp(coordinator.OpCompleteSession, func(ctx context.Context) error {
				return coord.CompleteSession(ctx, id)
			}),
		}

	case key.Matches(msg, m.keys.StartCall):
		row, ok := m.sessions.Selected()
		if !ok {
			return m, nil
		}
		if !row.CanCall() {
			m.flash = fmt.Sprintf("No video call for %q", row.Session.Title)
			return m, nil
		}
		m.currentView = ViewVideo
		return m, m.startCall(row.Session.ID)
	}
	return m, nil
}

func (m Model) startCall(sessionID int64) tea.Cmd {
	coord := m.coord
	return m.runOp(coordinator.OpStartVideo, func(ctx context.Context) error {
		_, err := coord.StartVideo(ctx, sessionID)
		return err
	})
}

// renderSessions renders the session list beside the selected session.
func (m Model) renderSessions() string {
	height := m.contentHeight()
	listW := m.width * 3 / 5
	detailW := m.width - listW

	title := "Sessions"
	if m.sessions.Loading() {
		title += " " + m.spinner.View()
	}
	list := m.renderBox(title, m.sessionList(listW-2, height-2), listW, height, true)
	detail := m.renderBox("Details", m.sessionDetail(), detailW, height, false)
	return lipgloss.JoinHorizontal(lipgloss.Top, list, detail)
}

func (m Model) sessionList(width, height int) string {
	styles := m.theme.Styles()
	rows := m.sessions.Rows()
	if len(rows) == 0 {
		return styles.MutedText.Render("No upcoming sessions or pending requests.")
	}
	selected, _ := m.sessions.Selected()
	userID := m.coord.CurrentUserID()

	// keep the selection visible
	start := 0
	for i, r := range rows {
		if r.Session.ID == selected.Session.ID && i >= height {
			start = i - height + 1
		}
	}

	lines := make([]string, 0, min(len(rows), height))
	for _, r := range rows[start:] {
		if len(lines) == height {
			break
		}
		role := "learn"
		if r.Teaching(userID) {
			role = "teach"
		}
		if r.Pending {
			role = "req"
		}
		when := padRight(formatWhen(r.Session.ParsedScheduledAt(), m.now), 11)
		label := padRight(r.Label, 8)
		text := fmt.Sprintf("%s %-5s %s ", when, role, label)
		title := truncate(r.Session.Title, max(width-lipgloss.Width(text)-1, 6))
		line := padRight(text+title, width)
		if r.Session.ID == selected.Session.ID {
			lines = append(lines, styles.Selected.Render(line))
			continue
		}
		lines = append(lines, styles.Text.Render(line))
	}
	return strings.Join(lines, "\n")
}

func (m Model) sessionDetail() string {
	styles := m.theme.Styles()
	row, ok := m.sessions.Selected()
	if !ok {
		return styles.MutedText.Render("Nothing selected.")
	}
	s := row.Session
	userID := m.coord.CurrentUserID()

	field := func(label, value string) string {
		return styles.MutedText.Render(padRight(label, 12)) + styles.Text.Render(value)
	}
	counterpart := "-"
	if other := counterpartName(row, userID); other != "" {
		counterpart = other
	}
	role := "Student"
	if row.Teaching(userID) {
		role = "Teacher"
	}

	lines := []string{
		styles.Text.Bold(true).Render(s.Title),
		styles.StatusStyle(string(s.Status)).Render(titleCase(string(s.Status))) + " " +
			styles.StatusStyle(row.Label).Render("credit "+row.Label),
		"",
		field("You are", role),
		field("With", counterpart),
		field("When", formatWhen(s.ParsedScheduledAt(), m.now)),
		field("Duration", hours(s.Duration)),
		field("Mode", titleCase(string(s.Mode))),
		field("Credits", views.Credits(s.CreditAmount)),
	}
	if s.Location != "" {
		lines = append(lines, field("Location", s.Location))
	}
	if s.Description != "" {
		lines = append(lines, "", styles.FaintText.Render(s.Description))
	}

	var actions []string
	if row.CanComplete() {
		actions = append(actions, "c complete")
	}
	if row.CanCall() {
		actions = append(actions, "enter call")
	}
	if len(actions) > 0 {
		lines = append(lines, "", styles.AccentText.Render(strings.Join(actions, " • ")))
	}
	return strings.Join(lines, "\n")
}

func counterpartName(row views.SessionRow, userID int64) string {
	other := row.Session.Teacher
	if row.Teaching(userID) {
		other = row.Session.Student
	}
	if other == nil {
		return ""
	}
	return views.DisplayName(*other)
}
