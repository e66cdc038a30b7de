package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/five82/timebank/internal/cache"
	"github.com/five82/timebank/internal/ledger"
)

// Login exchanges credentials for a token, persists it, and seeds the cache
// with the returned profile. Previously cached entities are dropped.
// Rejected credentials come back as *ledger.ValidationError and leave any
// stored token in place.
func (c *Coordinator) Login(ctx context.Context, email, password string) (ledger.User, error) {
	var user ledger.User
	err := c.run(OpLogin, func() error {
		resp, err := c.api.Login(ctx, ledger.LoginRequest{Email: strings.TrimSpace(email), Password: password})
		var authErr *ledger.AuthError
		if errors.As(err, &authErr) {
			msg := authErr.Message
			if msg == "" {
				msg = "invalid email or password"
			}
			return &ledger.ValidationError{Status: http.StatusUnauthorized, Message: msg, RequestID: authErr.RequestID}
		}
		if err != nil {
			return err
		}
		user, err = c.establish(resp)
		return err
	}, "email", strings.TrimSpace(email))
	return user, err
}

// Register creates an account and logs into it. Field problems come back as
// *ledger.ValidationError.
func (c *Coordinator) Register(ctx context.Context, req ledger.RegisterRequest) (ledger.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	var user ledger.User
	err := c.run(OpRegister, func() error {
		resp, err := c.api.Register(ctx, req)
		if err != nil {
			return err
		}
		user, err = c.establish(resp)
		return err
	}, "email", req.Email)
	return user, err
}

// establish stores a fresh token and its profile and starts a clean cache.
func (c *Coordinator) establish(resp ledger.AuthResponse) (ledger.User, error) {
	if resp.Token == "" {
		return ledger.User{}, &ledger.ServerError{Message: "auth response without token"}
	}
	if c.creds != nil {
		if err := c.creds.SaveAuth(resp.Token, resp.User.Raw); err != nil {
			return ledger.User{}, fmt.Errorf("save token: %w", err)
		}
	}
	c.resetState()
	if err := c.cache.Upsert(cache.Users, resp.User); err != nil {
		return ledger.User{}, fmt.Errorf("apply user: %w", err)
	}
	c.setUserID(resp.User.Value.ID)
	if c.notices != nil {
		c.notices.DismissKey(noticeAuth)
	}
	return resp.User.Value, nil
}

// VerifySession resolves the user behind the stored token. It is used when
// the token carries no readable user id. A rejected token is cleared.
func (c *Coordinator) VerifySession(ctx context.Context) (ledger.User, error) {
	return share(ctx, c, string(OpVerifySession), func(ctx context.Context) (ledger.User, error) {
		var user ledger.User
		err := c.run(OpVerifySession, func() error {
			doc, err := c.api.AuthProfile(ctx)
			if err != nil {
				return err
			}
			if doc.Value.ID == 0 {
				return &ledger.ServerError{Message: "auth profile without user id"}
			}
			if err := c.applyUser(doc); err != nil {
				return err
			}
			c.setUserID(doc.Value.ID)
			user = doc.Value
			return nil
		})
		return user, err
	})
}

// Logout invalidates the token server-side, forgets it locally, and clears
// the cache. The local state is cleared even when the server cannot be reached.
func (c *Coordinator) Logout(ctx context.Context) error {
	return c.run(OpLogout, func() error {
		serverErr := c.api.Logout(ctx)
		if serverErr != nil && !ledger.IsAuth(serverErr) {
			c.logger.Warn("server logout failed", "error", serverErr)
		}
		if c.creds != nil {
			if err := c.creds.ClearAuth(); err != nil {
				return fmt.Errorf("clear token: %w", err)
			}
		}
		c.resetState()
		return nil
	})
}

// UpdateProfile edits the current user's profile. Validation failures are
// returned to the caller as *ledger.ValidationError.
func (c *Coordinator) UpdateProfile(ctx context.Context, update ledger.ProfileUpdate) error {
	return c.run(OpUpdateProfile, func() error {
		doc, err := c.api.UpdateProfile(ctx, update)
		if err != nil {
			return err
		}
		return c.applyUser(doc)
	})
}

// UpdateAvatar sets the current user's avatar URL.
func (c *Coordinator) UpdateAvatar(ctx context.Context, avatarURL string) error {
	return c.run(OpUpdateAvatar, func() error {
		doc, err := c.api.UpdateAvatar(ctx, strings.TrimSpace(avatarURL))
		if err != nil {
			return err
		}
		return c.applyUser(doc)
	})
}

// ChangePassword replaces the account password.
func (c *Coordinator) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	return c.run(OpChangePassword, func() error {
		if newPassword == "" {
			return &ledger.ValidationError{
				Message: "new password required",
				Fields:  []ledger.FieldError{{Field: "new_password", Message: "required"}},
			}
		}
		return c.api.ChangePassword(ctx, ledger.PasswordChange{OldPassword: oldPassword, NewPassword: newPassword})
	})
}

// applyUser merges a profile returned by an edit.
func (c *Coordinator) applyUser(doc ledger.Doc[ledger.User]) error {
	if doc.Value.ID == 0 {
		// the response had no body; the next refresh picks the edit up
		return nil
	}
	if err := c.cache.Upsert(cache.Users, doc); err != nil {
		return fmt.Errorf("apply user: %w", err)
	}
	c.persistUser(doc)
	return nil
}

func (c *Coordinator) resetState() {
	c.cache.Reset()
	c.status.reset()
	c.mu.Lock()
	c.userID = 0
	c.stats = nil
	c.check = nil
	c.recent = nil
	c.window = Window{}
	c.upcoming = nil
	c.pending = nil
	c.skills = nil
	c.videoStats = nil
	c.videoHistory = ledger.VideoHistory{}
	c.mu.Unlock()
}
