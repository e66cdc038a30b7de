package ui

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/timebank/internal/cache"
	"github.com/five82/timebank/internal/config"
	"github.com/five82/timebank/internal/coordinator"
	"github.com/five82/timebank/internal/ledger"
	"github.com/five82/timebank/internal/localstate"
	"github.com/five82/timebank/internal/notify"
)

const testUser = `{"id":42,"email":"ada@example.com","full_name":"Ada Lovelace","credit_balance":"5.0"}`

// newTestModel returns a sized model. Commands are never executed, so the
// API client points nowhere.
func newTestModel(t *testing.T, loggedIn bool) (Model, *localstate.Store) {
	t.Helper()
	st, err := localstate.Open(filepath.Join(t.TempDir(), "state.toml"))
	if err != nil {
		t.Fatalf("open state: %v", err)
	}
	client, err := ledger.NewClient("http://127.0.0.1:1/api/v1", ledger.WithTokenSource(st))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	coord := coordinator.New(client, cache.New(),
		coordinator.WithNotices(notify.NewCenter(8)),
		coordinator.WithCredentials(st),
	)
	if loggedIn {
		if err := st.SaveAuth("tok", []byte(testUser)); err != nil {
			t.Fatalf("save auth: %v", err)
		}
		if err := coord.Bootstrap(st.User()); err != nil {
			t.Fatalf("bootstrap: %v", err)
		}
	}

	m := New(Options{Coord: coord, State: st, Config: config.Config{LogDir: t.TempDir()}})
	t.Cleanup(m.close)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), st
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "ctrl+n":
			msg = tea.KeyMsg{Type: tea.KeyCtrlN}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func TestView_LoggedOutShowsLoginForm(t *testing.T) {
	m, _ := newTestModel(t, false)
	if got := m.View(); !strings.Contains(got, "Log in to timebank") {
		t.Fatalf("View() does not show the login form:\n%s", got)
	}

	// view keys are typed into the form instead of switching views
	m, _ = press(t, m, "2")
	if m.currentView != ViewDashboard {
		t.Fatalf("currentView = %v, want Dashboard while logged out", m.currentView)
	}
	if got := m.login.fields[0].input.Value(); got != "2" {
		t.Fatalf("email field = %q, want %q", got, "2")
	}
}

func TestLoginForm_RequiresBothFields(t *testing.T) {
	m, _ := newTestModel(t, false)
	m, cmd := press(t, m, "a", "enter", "enter")
	if cmd != nil {
		t.Fatal("submitting without a password returned a command")
	}
	if m.login.err == "" || m.login.busy {
		t.Fatalf("login form err=%q busy=%v, want an error and not busy", m.login.err, m.login.busy)
	}
}

func TestLoginScreen_SwitchesToRegisterForm(t *testing.T) {
	m, _ := newTestModel(t, false)
	m, _ = press(t, m, "ctrl+n")
	if m.login.op != coordinator.OpRegister || !strings.Contains(m.View(), "Create a timebank account") {
		t.Fatalf("ctrl+n did not open the register form:\n%s", m.View())
	}

	keys := []string{"a"}
	for range len(m.login.fields) {
		keys = append(keys, "enter")
	}
	m, cmd := press(t, m, keys...)
	if cmd != nil || m.login.busy {
		t.Fatal("incomplete registration was submitted")
	}
	for _, field := range []string{"full_name", "username", "password"} {
		if m.login.fieldErrs[field] != "required" {
			t.Fatalf("%s error = %q, want required", field, m.login.fieldErrs[field])
		}
	}

	m, _ = press(t, m, "ctrl+n")
	if m.login.op != coordinator.OpLogin {
		t.Fatalf("ctrl+n did not return to the login form")
	}
}

func TestView_LoggedInShowsDashboard(t *testing.T) {
	m, _ := newTestModel(t, true)
	got := m.View()
	for _, want := range []string{"timebank", "Ada Lovelace", "5.0", "Dashboard"} {
		if !strings.Contains(got, want) {
			t.Fatalf("View() missing %q:\n%s", want, got)
		}
	}
}

func TestTabCyclesViews(t *testing.T) {
	m, _ := newTestModel(t, true)
	want := []View{ViewSessions, ViewTransactions, ViewProfile, ViewVideo, ViewLogs, ViewDashboard}
	for _, v := range want {
		m, _ = press(t, m, "tab")
		if m.currentView != v {
			t.Fatalf("after tab currentView = %v, want %v", m.currentView, v)
		}
	}
}

func TestNumberKeysSwitchViewAndLoad(t *testing.T) {
	m, _ := newTestModel(t, true)
	m, cmd := press(t, m, "3")
	if m.currentView != ViewTransactions {
		t.Fatalf("currentView = %v, want Transactions", m.currentView)
	}
	if cmd == nil {
		t.Fatal("switching to an empty transactions view did not load a page")
	}
}

func TestHelpOverlayClosesOnAnyKey(t *testing.T) {
	m, _ := newTestModel(t, true)
	m, _ = press(t, m, "?")
	if !m.showHelp || !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatal("help overlay not shown")
	}
	m, _ = press(t, m, "x")
	if m.showHelp {
		t.Fatal("help overlay still shown after a key press")
	}
}

func TestCycleThemePersists(t *testing.T) {
	m, st := newTestModel(t, true)
	m, _ = press(t, m, "T")
	if m.theme.Name != "Kanagawa" {
		t.Fatalf("theme = %q, want Kanagawa", m.theme.Name)
	}
	if st.Theme() != "Kanagawa" {
		t.Fatalf("stored theme = %q, want Kanagawa", st.Theme())
	}
}

func TestPasswordForm_MismatchStaysOpen(t *testing.T) {
	m, _ := newTestModel(t, true)
	m, _ = press(t, m, "p", "W")
	form, ok := m.modal.(*formModal)
	if !ok {
		t.Fatalf("modal = %T, want *formModal", m.modal)
	}

	m, _ = press(t, m, "o", "l", "d", "enter", "n", "e", "w", "enter", "x", "enter")
	form = m.modal.(*formModal)
	if form.busy {
		t.Fatal("mismatched passwords were submitted")
	}
	if got := form.fieldErrs["confirm_password"]; got != "passwords do not match" {
		t.Fatalf("confirm_password error = %q", got)
	}
}

func TestFormModal_ValidationResultStaysInline(t *testing.T) {
	m, _ := newTestModel(t, true)
	m, _ = press(t, m, "p", "E")
	if _, ok := m.modal.(*formModal); !ok {
		t.Fatalf("modal = %T, want *formModal", m.modal)
	}

	verr := &ledger.ValidationError{Status: 422, Fields: []ledger.FieldError{{Field: "username", Message: "already taken"}}}
	next, _ := m.Update(opResultMsg{op: coordinator.OpUpdateProfile, err: verr})
	m = next.(Model)
	form, ok := m.modal.(*formModal)
	if !ok {
		t.Fatal("form closed on a validation error")
	}
	if got := form.fieldErrs["username"]; got != "already taken" {
		t.Fatalf("username error = %q, want %q", got, "already taken")
	}
	if m.flash != "" {
		t.Fatalf("flash = %q, want the error kept in the form", m.flash)
	}

	next, _ = m.Update(opResultMsg{op: coordinator.OpUpdateProfile})
	m = next.(Model)
	if m.modal != nil {
		t.Fatal("form still open after a successful update")
	}
}

func TestConfirmModal(t *testing.T) {
	ran := false
	c := &confirmModal{prompt: "sure?", run: func() tea.Msg { ran = true; return nil }}
	keys := DefaultKeyMap()

	_, cmd, closed := c.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")}, keys)
	if !closed || cmd != nil {
		t.Fatalf("n: closed=%v cmd=%v, want closed without a command", closed, cmd != nil)
	}
	_, cmd, closed = c.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")}, keys)
	if !closed || cmd == nil {
		t.Fatalf("y: closed=%v cmd=%v, want closed with the command", closed, cmd != nil)
	}
	cmd()
	if !ran {
		t.Fatal("confirmed command did not run")
	}
}

func TestHandleResult_FlashesUnhandledFailure(t *testing.T) {
	m, _ := newTestModel(t, true)
	next, _ := m.Update(opResultMsg{op: coordinator.OpStartVideo, err: coordinator.ErrVideoDisabled})
	m = next.(Model)
	if !strings.Contains(m.flash, "video calls are not configured") {
		t.Fatalf("flash = %q", m.flash)
	}

	next, _ = m.Update(opResultMsg{op: coordinator.OpRefreshSessions, err: errors.New("ignored")})
	m = next.(Model)
	m, _ = press(t, m, "D")
	if m.flash != "" {
		t.Fatalf("flash = %q after dismiss, want empty", m.flash)
	}
}
