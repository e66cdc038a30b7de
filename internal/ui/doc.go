// Package ui provides the timebank terminal interface, built on Bubble Tea.
//
// # Views
//
// Six views are reachable with tab or their number keys:
//
//   - Dashboard: balance, stats, upcoming sessions and recent ledger activity
//   - Sessions: upcoming sessions and pending requests with per-session actions
//   - Transactions: paginated ledger history in a table
//   - Profile: account details, skills, and the account forms
//   - Video: the active call with its timer, call stats and history
//   - Logs: the client's own JSON log, tailed and filtered by level
//
// While no token is stored the login form replaces every view. An auth
// failure clears the token, so the form reappears without extra wiring.
//
// # Data Flow
//
// The model never fetches on render. Each view reads from a views adapter,
// and the adapters signal a buffered channel on every cache commit or
// operation status change. A command blocked on that channel turns the
// signal into a changeMsg, which re-renders and re-arms the wait. Notices
// follow the same pattern through notify.Center.Changed.
//
// User actions run coordinator operations inside tea.Cmds. Each finishes
// with an opResultMsg; forms consume their own result so validation errors
// stay inline, and other failures are already on the notice line.
//
// # Components
//
//   - app.go: Model, Update loop, messages and commands
//   - header.go: status bar, tab bar, notice line and footer
//   - modal.go: form and confirmation dialogs
//   - theme.go / style_helpers.go: Lipgloss themes and rendering helpers
//   - keys.go / help.go: key bindings and the help overlay
package ui
