package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/timebank/internal/coordinator"
	"github.com/five82/timebank/internal/ledger"
	"github.com/five82/timebank/internal/views"
)

func (m Model) newLoginForm() *formModal {
	coord := m.coord
	f := newFormModal("Log in to timebank", coordinator.OpLogin, []formField{
		newField("email", "Email", "", false),
		newField("password", "Password", "", true),
	}, func(v map[string]string) tea.Cmd {
		return m.runOp(coordinator.OpLogin, func(ctx context.Context) error {
			_, err := coord.Login(ctx, v["email"], v["password"])
			return err
		})
	})
	f.required = true
	f.hint = "ctrl+n to create an account"
	f.check = func(v map[string]string) error {
		if v["email"] == "" || v["password"] == "" {
			return errors.New("email and password are required")
		}
		return nil
	}
	return f
}

func (m Model) newRegisterForm() *formModal {
	coord := m.coord
	f := newFormModal("Create a timebank account", coordinator.OpRegister, []formField{
		newField("email", "Email", "", false),
		newField("full_name", "Full name", "", false),
		newField("username", "Username", "", false),
		newField("school", "School", "", false),
		newField("grade", "Grade", "", false),
		newField("major", "Major (optional)", "", false),
		newField("password", "Password", "", true),
		newField("confirm_password", "Confirm password", "", true),
	}, func(v map[string]string) tea.Cmd {
		req := ledger.RegisterRequest{
			Email:    v["email"],
			Password: v["password"],
			FullName: v["full_name"],
			Username: v["username"],
			School:   v["school"],
			Grade:    v["grade"],
			Major:    v["major"],
		}
		return m.runOp(coordinator.OpRegister, func(ctx context.Context) error {
			_, err := coord.Register(ctx, req)
			return err
		})
	})
	f.required = true
	f.hint = "ctrl+n to log in"
	f.check = func(v map[string]string) error {
		var missing []ledger.FieldError
		for _, name := range []string{"email", "full_name", "username", "password"} {
			if v[name] == "" {
				missing = append(missing, ledger.FieldError{Field: name, Message: "required"})
			}
		}
		if len(missing) > 0 {
			return &ledger.ValidationError{Fields: missing}
		}
		if v["password"] != v["confirm_password"] {
			return &ledger.ValidationError{Fields: []ledger.FieldError{{Field: "confirm_password", Message: "passwords do not match"}}}
		}
		return nil
	}
	return f
}

func (m Model) newProfileForm(u ledger.User) *formModal {
	coord := m.coord
	return newFormModal("Edit profile", coordinator.OpUpdateProfile, []formField{
		newField("full_name", "Full name", u.FullName, false),
		newField("username", "Username", u.Username, false),
		newField("school", "School", u.School, false),
		newField("grade", "Grade", u.Grade, false),
		newField("major", "Major", u.Major, false),
		newField("location", "Location", u.Location, false),
		newField("bio", "Bio", u.Bio, false),
	}, func(v map[string]string) tea.Cmd {
		update := ledger.ProfileUpdate{
			FullName: v["full_name"],
			Username: v["username"],
			School:   v["school"],
			Grade:    v["grade"],
			Major:    v["major"],
			Location: v["location"],
			Bio:      v["bio"],
		}
		return m.runOp(coordinator.OpUpdateProfile, func(ctx context.Context) error {
			return coord.UpdateProfile(ctx, update)
		})
	})
}

func (m Model) newPasswordForm() *formModal {
	coord := m.coord
	f := newFormModal("Change password", coordinator.OpChangePassword, []formField{
		newField("old_password", "Current password", "", true),
		newField("new_password", "New password", "", true),
		newField("confirm_password", "Repeat new password", "", true),
	}, func(v map[string]string) tea.Cmd {
		return m.runOp(coordinator.OpChangePassword, func(ctx context.Context) error {
			return coord.ChangePassword(ctx, v["old_password"], v["new_password"])
		})
	})
	f.check = func(v map[string]string) error {
		if v["new_password"] != v["confirm_password"] {
			return &ledger.ValidationError{Fields: []ledger.FieldError{
				{Field: "confirm_password", Message: "passwords do not match"},
			}}
		}
		return nil
	}
	return f
}

func (m Model) newAvatarForm(u ledger.User) *formModal {
	coord := m.coord
	return newFormModal("Change avatar", coordinator.OpUpdateAvatar, []formField{
		newField("avatar", "Image URL", u.Avatar, false),
	}, func(v map[string]string) tea.Cmd {
		return m.runOp(coordinator.OpUpdateAvatar, func(ctx context.Context) error {
			return coord.UpdateAvatar(ctx, v["avatar"])
		})
	})
}

// handleProfileKey opens the account forms.
func (m Model) handleProfileKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	user, ok := m.profile.User()
	switch {
	case key.Matches(msg, m.keys.EditProfile) && ok:
		m.modal = m.newProfileForm(user)
	case key.Matches(msg, m.keys.EditAvatar) && ok:
		m.modal = m.newAvatarForm(user)
	case key.Matches(msg, m.keys.ChangePassword):
		m.modal = m.newPasswordForm()
	case key.Matches(msg, m.keys.Logout):
		m.modal = &confirmModal{
			prompt: "Log out of timebank?",
			run:    m.runOp(coordinator.OpLogout, m.coord.Logout),
		}
	}
	return m, nil
}

// renderProfile renders account details beside the skills the user teaches.
func (m Model) renderProfile() string {
	height := m.contentHeight()
	leftW := m.width / 2
	rightW := m.width - leftW

	title := "Profile"
	if m.profile.Loading() {
		title += " " + m.spinner.View()
	}
	account := m.renderBox(title, m.profileDetails(), leftW, height, true)
	skills := m.renderBox("Skills", m.profileSkills(rightW-2), rightW, height, false)
	return lipgloss.JoinHorizontal(lipgloss.Top, account, skills)
}

func (m Model) profileDetails() string {
	styles := m.theme.Styles()
	u, ok := m.profile.User()
	if !ok {
		return styles.MutedText.Render("No profile loaded yet.")
	}
	field := func(label, value string) string {
		if value == "" {
			value = "-"
		}
		return styles.MutedText.Render(padRight(label, 12)) + styles.Text.Render(value)
	}

	verified := styles.WarningText.Render("unverified")
	if u.IsVerified {
		verified = styles.SuccessText.Render("verified")
	}
	lines := []string{
		styles.Text.Bold(true).Render(views.DisplayName(u)) + " " + verified,
		"",
		field("Email", u.Email),
		field("Username", u.Username),
		field("School", u.School),
		field("Grade", u.Grade),
		field("Major", u.Major),
		field("Location", u.Location),
		field("Avatar", truncate(u.Avatar, 40)),
		field("Balance", views.Credits(u.CreditBalance)),
	}
	if u.Bio != "" {
		lines = append(lines, "", styles.FaintText.Render(u.Bio))
	}
	if err := m.profile.Err(); err != nil {
		lines = append(lines, "", styles.DangerText.Render(truncate(err.Error(), 60)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) profileSkills(width int) string {
	styles := m.theme.Styles()
	skills := m.profile.Skills()
	if len(skills) == 0 {
		return styles.MutedText.Render("No skills listed.")
	}
	lines := make([]string, 0, len(skills)*2)
	for _, s := range skills {
		name := fmt.Sprintf("skill #%d", s.SkillID)
		if s.Skill != nil && s.Skill.Name != "" {
			name = s.Skill.Name
		}
		avail := styles.SuccessText.Render("available")
		if !s.IsAvailable {
			avail = styles.FaintText.Render("paused")
		}
		lines = append(lines,
			styles.Text.Render(truncate(name, width-24))+" "+styles.AccentText.Render(titleCase(string(s.Level)))+" "+avail,
			styles.MutedText.Render(fmt.Sprintf("  %s credits/h • %d sessions • %.1f★", views.Credits(s.HourlyRate), s.TotalSessions, s.AverageRating)),
		)
	}
	return strings.Join(lines, "\n")
}
