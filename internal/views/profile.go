package views

import (
	"github.com/five82/timebank/internal/cache"
	"github.com/five82/timebank/internal/coordinator"
	"github.com/five82/timebank/internal/ledger"
)

// Profile shows the user's account details and the skills they teach.
type Profile struct {
	*feed
}

// NewProfile subscribes a profile adapter. onChange may be nil.
func NewProfile(c *coordinator.Coordinator, onChange func()) *Profile {
	return &Profile{feed: newFeed(c,
		[]cache.Kind{cache.Users, cache.UserSkills},
		[]coordinator.Op{
			coordinator.OpRefreshUser,
			coordinator.OpRefreshSkills,
			coordinator.OpUpdateProfile,
			coordinator.OpUpdateAvatar,
			coordinator.OpChangePassword,
		},
		onChange,
	)}
}

// User returns the logged-in user.
func (p *Profile) User() (ledger.User, bool) { return p.currentUser() }

// Skills returns the user's skills in server order.
func (p *Profile) Skills() []ledger.UserSkill {
	return loadIDs[ledger.UserSkill](p.store(), cache.UserSkills, p.coord.SkillIDs())
}

// DisplayName prefers the full name, then the username, then the email.
func DisplayName(u ledger.User) string {
	switch {
	case u.FullName != "":
		return u.FullName
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}
