package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Refresh    key.Binding
	Dismiss    key.Binding

	// View switching
	ViewDashboard    key.Binding
	ViewSessions     key.Binding
	ViewTransactions key.Binding
	ViewProfile      key.Binding
	ViewVideo        key.Binding
	ViewLogs         key.Binding

	// Navigation
	Up       key.Binding
	Down     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	NextPage key.Binding
	PrevPage key.Binding

	// Session actions
	Complete  key.Binding
	StartCall key.Binding
	EndCall   key.Binding

	// Profile actions
	EditProfile    key.Binding
	ChangePassword key.Binding
	EditAvatar     key.Binding
	Logout         key.Binding

	// Logs actions
	ToggleFollow key.Binding
	CycleLevel   key.Binding

	// Forms
	Confirm    key.Binding
	Cancel     key.Binding
	NextItem   key.Binding
	PrevItem   key.Binding
	SwitchForm key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next view"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous view"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "Dismiss notice"),
		),

		ViewDashboard: key.NewBinding(
			key.WithKeys("1", "d"),
			key.WithHelp("1/d", "Dashboard"),
		),
		ViewSessions: key.NewBinding(
			key.WithKeys("2", "s"),
			key.WithHelp("2/s", "Sessions"),
		),
		ViewTransactions: key.NewBinding(
			key.WithKeys("3", "t"),
			key.WithHelp("3/t", "Transactions"),
		),
		ViewProfile: key.NewBinding(
			key.WithKeys("4", "p"),
			key.WithHelp("4/p", "Profile"),
		),
		ViewVideo: key.NewBinding(
			key.WithKeys("5", "v"),
			key.WithHelp("5/v", "Video"),
		),
		ViewLogs: key.NewBinding(
			key.WithKeys("6", "l"),
			key.WithHelp("6/l", "Logs"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("n", "right", "pgdown"),
			key.WithHelp("n/→", "Next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("b", "left", "pgup"),
			key.WithHelp("b/←", "Previous page"),
		),

		Complete: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Complete session"),
		),
		StartCall: key.NewBinding(
			key.WithKeys("enter", "o"),
			key.WithHelp("enter", "Start video call"),
		),
		EndCall: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "End video call"),
		),

		EditProfile: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "Edit profile"),
		),
		ChangePassword: key.NewBinding(
			key.WithKeys("W"),
			key.WithHelp("W", "Change password"),
		),
		EditAvatar: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "Change avatar"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Log out"),
		),

		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle follow mode"),
		),
		CycleLevel: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "Cycle level filter"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Cancel"),
		),
		NextItem: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "Next field"),
		),
		PrevItem: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "Previous field"),
		),
		SwitchForm: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "Log in / create account"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewDashboard, k.ViewSessions, k.ViewTransactions, k.ViewProfile, k.ViewVideo, k.ViewLogs},
		{k.Up, k.Down, k.Top, k.Bottom, k.NextPage, k.PrevPage},
		{k.Complete, k.StartCall, k.EndCall},
		{k.EditProfile, k.ChangePassword, k.EditAvatar, k.Logout},
		{k.ToggleFollow, k.CycleLevel},
		{k.Refresh, k.Dismiss, k.CycleTheme, k.Help, k.Quit},
	}
}

// viewHelp returns the bindings shown in the footer for view.
func (k keyMap) viewHelp(v View) []key.Binding {
	switch v {
	case ViewSessions:
		return []key.Binding{k.Up, k.Down, k.Complete, k.StartCall, k.Refresh, k.Help}
	case ViewTransactions:
		return []key.Binding{k.Up, k.Down, k.NextPage, k.PrevPage, k.Refresh, k.Help}
	case ViewProfile:
		return []key.Binding{k.EditProfile, k.ChangePassword, k.EditAvatar, k.Logout, k.Help}
	case ViewVideo:
		return []key.Binding{k.EndCall, k.Refresh, k.Help}
	case ViewLogs:
		return []key.Binding{k.ToggleFollow, k.CycleLevel, k.Up, k.Down, k.Help}
	default:
		return []key.Binding{k.Tab, k.Refresh, k.Dismiss, k.Help, k.Quit}
	}
}
