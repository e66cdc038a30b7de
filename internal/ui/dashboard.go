package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/timebank/internal/ledger"
	"github.com/five82/timebank/internal/views"
)

const dashboardListLimit = 5

// renderDashboard renders balance, stats, upcoming sessions and recent activity.
func (m Model) renderDashboard() string {
	height := m.contentHeight()
	leftW := m.width / 2
	rightW := m.width - leftW

	summaryH := 8
	listH := max(height-summaryH, 4)

	summary := m.renderBox("Balance", m.dashboardSummary(), leftW, summaryH, false)
	stats := m.renderBox("Stats", m.dashboardStats(), rightW, summaryH, false)
	upcoming := m.renderBox("Upcoming Sessions", m.dashboardSessions(leftW-2), leftW, listH, false)
	recent := m.renderBox("Recent Activity", m.dashboardActivity(rightW-2), rightW, listH, false)

	top := lipgloss.JoinHorizontal(lipgloss.Top, summary, stats)
	bottom := lipgloss.JoinHorizontal(lipgloss.Top, upcoming, recent)
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
}

func (m Model) dashboardSummary() string {
	styles := m.theme.Styles()
	if _, ok := m.dashboard.User(); !ok {
		return styles.MutedText.Render("No profile loaded yet.")
	}
	bal := m.dashboard.Balance()

	var b strings.Builder
	b.WriteString(styles.SuccessText.Render(views.Credits(bal.Amount)))
	b.WriteString(styles.MutedText.Render(" credits"))
	b.WriteString("\n\n")
	if bal.Confirmed {
		b.WriteString(styles.FaintText.Render("Matches the latest ledger entry."))
	} else {
		b.WriteString(styles.WarningText.Render("Not yet confirmed against the ledger."))
	}
	if err := m.dashboard.Err(); err != nil {
		b.WriteString("\n")
		b.WriteString(styles.DangerText.Render(truncate("Last refresh failed: "+err.Error(), m.width/2-4)))
	}
	return b.String()
}

func (m Model) dashboardStats() string {
	styles := m.theme.Styles()
	stats, ok := m.dashboard.Stats()
	if !ok {
		return styles.MutedText.Render("Loading...")
	}
	row := func(label, value string) string {
		return styles.MutedText.Render(padRight(label, 18)) + styles.Text.Render(value)
	}
	lines := []string{
		row("Earned", views.Credits(stats.TotalCreditsEarned)),
		row("Spent", views.Credits(stats.TotalCreditsSpent)),
		row("Taught", fmt.Sprintf("%d sessions, %.1fh", stats.TotalSessionsAsTeacher, stats.TotalTeachingHours)),
		row("Learned", fmt.Sprintf("%d sessions, %.1fh", stats.TotalSessionsAsStudent, stats.TotalLearningHours)),
		row("Rating", fmt.Sprintf("%.1f teacher / %.1f student", stats.AverageRatingAsTeacher, stats.AverageRatingAsStudent)),
	}
	return strings.Join(lines, "\n")
}

func (m Model) dashboardSessions(width int) string {
	styles := m.theme.Styles()
	upcoming := m.dashboard.Upcoming()
	pending := m.dashboard.Pending()
	if len(upcoming) == 0 && len(pending) == 0 {
		return styles.MutedText.Render("No upcoming sessions.")
	}

	var lines []string
	for i, s := range upcoming {
		if i == dashboardListLimit {
			lines = append(lines, styles.FaintText.Render(fmt.Sprintf("+%d more", len(upcoming)-i)))
			break
		}
		lines = append(lines, m.sessionLine(s, width))
	}
	if len(pending) > 0 {
		lines = append(lines, "", styles.AccentText.Render(fmt.Sprintf("%d pending request(s)", len(pending))))
	}
	return strings.Join(lines, "\n")
}

func (m Model) sessionLine(s ledger.Session, width int) string {
	styles := m.theme.Styles()
	when := padRight(formatWhen(s.ParsedScheduledAt(), m.now), 12)
	badge := styles.StatusStyle(string(s.Status)).Render(titleCase(string(s.Status)))
	title := truncate(s.Title, max(width-lipgloss.Width(badge)-15, 8))
	return styles.MutedText.Render(when) + " " + styles.Text.Render(title) + " " + badge
}

func (m Model) dashboardActivity(width int) string {
	styles := m.theme.Styles()
	recent := m.dashboard.Recent()
	if len(recent) == 0 {
		return styles.MutedText.Render("No transactions yet.")
	}
	lines := make([]string, 0, len(recent))
	for _, tx := range recent {
		amountStyle := styles.DangerText
		if views.Inflow(tx.Type) {
			amountStyle = styles.SuccessText
		}
		when := padRight(formatWhen(tx.ParsedCreatedAt(), m.now), 12)
		amount := padRight(signedCredits(tx), 7)
		desc := truncate(firstNonEmpty(tx.Description, titleCase(string(tx.Type))), max(width-22, 8))
		lines = append(lines, styles.MutedText.Render(when)+" "+amountStyle.Render(amount)+" "+styles.Text.Render(desc))
	}
	return strings.Join(lines, "\n")
}
