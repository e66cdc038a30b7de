package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/timebank/internal/coordinator"
	"github.com/five82/timebank/internal/video"
)

func (m Model) handleVideoKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.EndCall) {
		if _, ok := m.video.Active(); !ok {
			return m, nil
		}
		m.modal = &confirmModal{
			prompt: "End the current call?",
			run:    m.runOp(coordinator.OpEndVideo, m.coord.EndVideo),
		}
	}
	return m, nil
}

// renderVideo renders the active call above call stats and history.
func (m Model) renderVideo() string {
	height := m.contentHeight()
	callH := 7
	historyH := max(height-callH, 4)

	title := "Call"
	if m.video.Loading() {
		title += " " + m.spinner.View()
	}
	call := m.renderBox(title, m.videoCall(), m.width, callH, true)
	history := m.renderBox("History", m.videoHistory(historyH-2), m.width, historyH, false)
	return lipgloss.JoinVertical(lipgloss.Left, call, history)
}

func (m Model) videoCall() string {
	styles := m.theme.Styles()
	var lines []string

	if call, ok := m.video.Active(); ok {
		name := fmt.Sprintf("session #%d", call.SessionID)
		if s, ok := m.video.Session(); ok {
			name = s.Title
		}
		lines = append(lines,
			styles.DangerText.Render("● LIVE")+" "+styles.Text.Bold(true).Render(name),
			styles.MutedText.Render("Elapsed ")+styles.Text.Render(m.video.Elapsed())+
				styles.MutedText.Render("  Room ")+styles.FaintText.Render(call.RoomID),
			styles.AccentText.Render("x to end the call"),
		)
	} else {
		lines = append(lines, styles.MutedText.Render("No active call. Start one from the sessions view."))
	}

	if stats, ok := m.video.Stats(); ok {
		lines = append(lines, "", styles.MutedText.Render(fmt.Sprintf(
			"%d calls • %.0f minutes total • %.1f min average",
			stats.TotalCalls, stats.TotalMinutes, stats.AverageDuration,
		)))
	}
	if err := m.video.Err(); err != nil {
		lines = append(lines, styles.DangerText.Render(truncate(err.Error(), m.width-6)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) videoHistory(height int) string {
	styles := m.theme.Styles()
	history := m.video.History()
	if len(history) == 0 {
		return styles.MutedText.Render("No calls yet.")
	}
	lines := make([]string, 0, min(len(history), height))
	for _, h := range history {
		if len(lines) == height {
			break
		}
		when := padRight(formatWhen(h.ParsedStartedAt(), m.now), 12)
		length := video.FormatDuration(time.Duration(h.Duration) * time.Second)
		lines = append(lines,
			styles.MutedText.Render(when)+" "+
				styles.Text.Render(padRight(fmt.Sprintf("session #%d", h.SessionID), 16))+" "+
				styles.InfoText.Render(length)+" "+
				styles.StatusStyle(h.Status).Render(titleCase(h.Status)),
		)
	}
	return strings.Join(lines, "\n")
}
