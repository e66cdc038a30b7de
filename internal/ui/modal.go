package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/timebank/internal/coordinator"
	"github.com/five82/timebank/internal/ledger"
)

// Modal is the interface for modal dialogs.
// Update returns the updated modal, a command, and whether the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// formField is one labelled text input.
type formField struct {
	name  string // server field name, used to place validation messages
	label string
	input textinput.Model
}

func newField(name, label, value string, secret bool) formField {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 256
	ti.Width = 40
	ti.SetValue(value)
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	return formField{name: name, label: label, input: ti}
}

// formModal collects input and submits it as one coordinator operation.
// Validation errors from the server are shown next to their fields and
// keep the form open.
type formModal struct {
	title    string
	op       coordinator.Op
	fields   []formField
	focus    int
	submit   func(values map[string]string) tea.Cmd
	check    func(values map[string]string) error
	required bool // the form cannot be cancelled
	hint     string

	busy      bool
	err       string
	fieldErrs map[string]string
}

func newFormModal(title string, op coordinator.Op, fields []formField, submit func(map[string]string) tea.Cmd) *formModal {
	f := &formModal{title: title, op: op, fields: fields, submit: submit}
	f.setFocus(0)
	return f
}

func (f *formModal) setFocus(i int) {
	if len(f.fields) == 0 {
		return
	}
	f.focus = (i + len(f.fields)) % len(f.fields)
	for idx := range f.fields {
		if idx == f.focus {
			f.fields[idx].input.Focus()
		} else {
			f.fields[idx].input.Blur()
		}
	}
}

// values returns the trimmed field values keyed by field name. Secret fields
// are returned as typed.
func (f *formModal) values() map[string]string {
	out := make(map[string]string, len(f.fields))
	for _, fld := range f.fields {
		v := fld.input.Value()
		if fld.input.EchoMode != textinput.EchoPassword {
			v = strings.TrimSpace(v)
		}
		out[fld.name] = v
	}
	return out
}

func (f *formModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case opResultMsg:
		if msg.op != f.op {
			return f, nil, false
		}
		f.busy = false
		if msg.err == nil {
			return f, nil, true
		}
		f.showError(msg.err)
		return f, nil, false

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Cancel):
			return f, nil, !f.required
		case key.Matches(msg, keys.NextItem):
			f.setFocus(f.focus + 1)
			return f, nil, false
		case key.Matches(msg, keys.PrevItem):
			f.setFocus(f.focus - 1)
			return f, nil, false
		case key.Matches(msg, keys.Confirm):
			if f.focus < len(f.fields)-1 {
				f.setFocus(f.focus + 1)
				return f, nil, false
			}
			if f.busy {
				return f, nil, false
			}
			values := f.values()
			f.err, f.fieldErrs = "", nil
			if f.check != nil {
				if err := f.check(values); err != nil {
					f.showError(err)
					return f, nil, false
				}
			}
			f.busy = true
			return f, f.submit(values), false
		}
		var cmd tea.Cmd
		f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
		return f, cmd, false
	}
	return f, nil, false
}

func (f *formModal) showError(err error) {
	f.err, f.fieldErrs = "", nil
	var verr *ledger.ValidationError
	if errors.As(err, &verr) {
		f.fieldErrs = make(map[string]string, len(verr.Fields))
		for _, fe := range verr.Fields {
			f.fieldErrs[fe.Field] = fe.Message
		}
		f.err = firstNonEmpty(verr.Message, verr.Detail)
		if f.err == "" && len(f.fieldErrs) == 0 {
			f.err = verr.Error()
		}
		return
	}
	f.err = err.Error()
}

func (f *formModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder

	b.WriteString(styles.Text.Bold(true).Render(f.title))
	b.WriteString("\n\n")
	for i, fld := range f.fields {
		label := styles.MutedText
		if i == f.focus {
			label = styles.AccentText
		}
		b.WriteString(label.Render(fld.label))
		b.WriteString("\n")
		b.WriteString(fld.input.View())
		b.WriteString("\n")
		if msg := f.fieldErrs[fld.name]; msg != "" {
			b.WriteString(styles.DangerText.Render(msg))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	switch {
	case f.busy:
		b.WriteString(styles.WarningText.Render("Saving..."))
	case f.err != "":
		b.WriteString(styles.DangerText.Render(f.err))
	default:
		hint := "enter to submit"
		if !f.required {
			hint += " • esc to cancel"
		}
		if f.hint != "" {
			hint += " • " + f.hint
		}
		b.WriteString(styles.FaintText.Render(hint))
	}

	return placeModal(theme, width, height, b.String())
}

// confirmModal asks a yes/no question before running an operation.
type confirmModal struct {
	prompt string
	run    tea.Cmd
}

func (c *confirmModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch km.String() {
	case "y", "Y", "enter":
		return c, c.run, true
	case "n", "N", "esc", "q":
		return c, nil, true
	}
	return c, nil, false
}

func (c *confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	content := styles.Text.Bold(true).Render(c.prompt) + "\n\n" +
		styles.FaintText.Render("y to confirm • n to cancel")
	return placeModal(theme, width, height, content)
}

func placeModal(theme Theme, width, height int, content string) string {
	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(min(56, max(width-4, 20)))

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(content),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
