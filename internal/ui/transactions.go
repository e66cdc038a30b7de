package ui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/timebank/internal/views"
)

func newTransactionTable() table.Model {
	return table.New(
		table.WithColumns(transactionColumns(80)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
}

// transactionColumns sizes the history columns to width; the description
// takes whatever is left.
func transactionColumns(width int) []table.Column {
	const (
		whenW    = 12
		typeW    = 8
		amountW  = 8
		balanceW = 9
	)
	descW := max(width-whenW-typeW-amountW-balanceW-10, 10)
	return []table.Column{
		{Title: "When", Width: whenW},
		{Title: "Type", Width: typeW},
		{Title: "Amount", Width: amountW},
		{Title: "Balance", Width: balanceW},
		{Title: "Description", Width: descW},
	}
}

func (m Model) tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(m.theme.Border)).
		BorderBottom(true).
		Foreground(lipgloss.Color(m.theme.Accent)).
		Bold(true)
	s.Cell = s.Cell.Foreground(lipgloss.Color(m.theme.Text))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color(m.theme.SelectionText)).
		Background(lipgloss.Color(m.theme.SelectionBg)).
		Bold(false)
	return s
}

// syncTables copies the loaded transaction window into the table.
func (m *Model) syncTables() {
	txs := m.transactions.Rows()
	rows := make([]table.Row, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, table.Row{
			formatWhen(tx.ParsedCreatedAt(), m.now),
			titleCase(string(tx.Type)),
			signedCredits(tx),
			views.Credits(tx.BalanceAfter),
			tx.Description,
		})
	}
	m.txTable.SetStyles(m.tableStyles())
	m.txTable.SetRows(rows)
	if cursor := m.txTable.Cursor(); cursor >= len(rows) {
		m.txTable.SetCursor(max(len(rows)-1, 0))
	}
}

// handleTransactionsKey pages through history and moves the table cursor.
func (m Model) handleTransactionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.NextPage):
		if m.transactions.HasNext() {
			return m, m.loadTransactions(m.transactions.NextOffset())
		}
		return m, nil
	case key.Matches(msg, m.keys.PrevPage):
		if m.transactions.HasPrev() {
			return m, m.loadTransactions(m.transactions.PrevOffset())
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.txTable, cmd = m.txTable.Update(msg)
	return m, cmd
}

// renderTransactions renders the paginated history.
func (m Model) renderTransactions() string {
	styles := m.theme.Styles()
	height := m.contentHeight()

	title := "Transactions"
	if m.transactions.Loading() {
		title += " " + m.spinner.View()
	}

	body := m.txTable.View()
	if len(m.transactions.Rows()) == 0 {
		body = styles.MutedText.Render("No transactions.")
	}

	status := styles.MutedText.Render(m.transactions.Summary()) + "  " +
		styles.FaintText.Render(pageLabel(m.transactions))
	if err := m.transactions.Err(); err != nil {
		status += "  " + styles.DangerText.Render(truncate(err.Error(), 40))
	}
	return m.renderBox(title, body+"\n"+status, m.width, height, true)
}

func pageLabel(t *views.Transactions) string {
	label := "page " + strconv.Itoa(t.Page()) + "/" + strconv.Itoa(t.TotalPages())
	if t.HasPrev() {
		label = "← " + label
	}
	if t.HasNext() {
		label += " →"
	}
	return label
}
