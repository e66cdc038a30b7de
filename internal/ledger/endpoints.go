package ledger

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// API is the set of backend calls the rest of the client depends on.
// It is implemented by *Client and can be replaced in tests.
type API interface {
	Login(ctx context.Context, req LoginRequest) (AuthResponse, error)
	Register(ctx context.Context, req RegisterRequest) (AuthResponse, error)
	Logout(ctx context.Context) error
	AuthProfile(ctx context.Context) (Doc[User], error)

	FetchProfile(ctx context.Context) (Doc[User], error)
	UpdateProfile(ctx context.Context, update ProfileUpdate) (Doc[User], error)
	ChangePassword(ctx context.Context, change PasswordChange) error
	UpdateAvatar(ctx context.Context, avatarURL string) (Doc[User], error)
	FetchStats(ctx context.Context) (UserStats, error)
	FetchTransactions(ctx context.Context, limit, offset int) (TransactionPage, error)
	FetchUserSkills(ctx context.Context) ([]Doc[UserSkill], error)

	FetchUpcomingSessions(ctx context.Context, limit int) ([]Doc[Session], error)
	FetchPendingRequests(ctx context.Context) ([]Doc[Session], error)
	FetchSession(ctx context.Context, sessionID int64) (Doc[Session], error)
	CompleteSession(ctx context.Context, sessionID int64) (Doc[Session], error)

	StartVideo(ctx context.Context, sessionID int64) (VideoSession, error)
	EndVideo(ctx context.Context, sessionID int64, durationSeconds int) (VideoSession, error)
	VideoStatus(ctx context.Context, sessionID int64) (VideoSession, error)
	FetchVideoHistory(ctx context.Context, limit, offset int) (VideoHistory, error)
	FetchVideoStats(ctx context.Context) (VideoStats, error)

	ListUsers(ctx context.Context) ([]AdminUser, error)
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Login exchanges credentials for a token. It does not require a stored token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "/auth/login", body: req}, &out)
	return out, err
}

// Register creates an account and returns its first token.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, request{method: http.MethodPost, path: "/auth/register", body: req}, &out)
	return out, err
}

// Logout invalidates the current token server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/auth/logout", auth: true}, nil)
}

// AuthProfile returns the profile bound to the current token.
func (c *Client) AuthProfile(ctx context.Context) (Doc[User], error) {
	return Get[Doc[User]](ctx, c, "/auth/profile", nil)
}

// FetchProfile retrieves the current user's profile including credit_balance.
func (c *Client) FetchProfile(ctx context.Context) (Doc[User], error) {
	return Get[Doc[User]](ctx, c, "/user/profile", nil)
}

// UpdateProfile edits profile fields and returns the updated profile.
func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (Doc[User], error) {
	return Put[Doc[User]](ctx, c, "/user/profile", update)
}

// ChangePassword replaces the account password.
func (c *Client) ChangePassword(ctx context.Context, change PasswordChange) error {
	return c.do(ctx, request{method: http.MethodPut, path: "/user/password", body: change, auth: true}, nil)
}

// UpdateAvatar sets the avatar URL and returns the updated profile.
func (c *Client) UpdateAvatar(ctx context.Context, avatarURL string) (Doc[User], error) {
	return Put[Doc[User]](ctx, c, "/user/avatar", map[string]string{"avatar_url": avatarURL})
}

// FetchStats retrieves aggregate counters for the current user.
func (c *Client) FetchStats(ctx context.Context) (UserStats, error) {
	return Get[UserStats](ctx, c, "/user/stats", nil)
}

// FetchTransactions retrieves one page of the current user's ledger, newest first.
func (c *Client) FetchTransactions(ctx context.Context, limit, offset int) (TransactionPage, error) {
	page, err := Get[TransactionPage](ctx, c, "/user/transactions", pageParams(limit, offset))
	if err != nil {
		return TransactionPage{}, err
	}
	if page.Limit == 0 {
		page.Limit = limit
	}
	if page.Offset == 0 {
		page.Offset = offset
	}
	return page, nil
}

// FetchUserSkills retrieves the skills the current user teaches.
func (c *Client) FetchUserSkills(ctx context.Context) ([]Doc[UserSkill], error) {
	return Get[[]Doc[UserSkill]](ctx, c, "/user/skills", nil)
}

// FetchUpcomingSessions retrieves scheduled sessions for the current user.
func (c *Client) FetchUpcomingSessions(ctx context.Context, limit int) ([]Doc[Session], error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	return Get[[]Doc[Session]](ctx, c, "/sessions/upcoming", params)
}

// FetchPendingRequests retrieves booking requests awaiting the current user's approval.
func (c *Client) FetchPendingRequests(ctx context.Context) ([]Doc[Session], error) {
	return Get[[]Doc[Session]](ctx, c, "/sessions/pending", nil)
}

// FetchSession retrieves one session.
func (c *Client) FetchSession(ctx context.Context, sessionID int64) (Doc[Session], error) {
	if sessionID <= 0 {
		return Doc[Session]{}, fmt.Errorf("session id required")
	}
	return Get[Doc[Session]](ctx, c, sessionPath(sessionID, ""), nil)
}

// CompleteSession marks a session completed. The server releases the held credit.
func (c *Client) CompleteSession(ctx context.Context, sessionID int64) (Doc[Session], error) {
	if sessionID <= 0 {
		return Doc[Session]{}, fmt.Errorf("session id required")
	}
	return Post[Doc[Session]](ctx, c, sessionPath(sessionID, "/complete"), nil)
}

// StartVideo opens a video room for the session.
func (c *Client) StartVideo(ctx context.Context, sessionID int64) (VideoSession, error) {
	if sessionID <= 0 {
		return VideoSession{}, fmt.Errorf("session id required")
	}
	return Post[VideoSession](ctx, c, sessionPath(sessionID, "/video/start"), struct{}{})
}

// EndVideo closes the session's video room, reporting the call length.
func (c *Client) EndVideo(ctx context.Context, sessionID int64, durationSeconds int) (VideoSession, error) {
	if sessionID <= 0 {
		return VideoSession{}, fmt.Errorf("session id required")
	}
	body := map[string]int{"duration": durationSeconds}
	return Post[VideoSession](ctx, c, sessionPath(sessionID, "/video/end"), body)
}

// VideoStatus reports the state of the session's video room.
func (c *Client) VideoStatus(ctx context.Context, sessionID int64) (VideoSession, error) {
	if sessionID <= 0 {
		return VideoSession{}, fmt.Errorf("session id required")
	}
	return Get[VideoSession](ctx, c, sessionPath(sessionID, "/video/status"), nil)
}

// FetchVideoHistory retrieves past calls, newest first.
func (c *Client) FetchVideoHistory(ctx context.Context, limit, offset int) (VideoHistory, error) {
	return Get[VideoHistory](ctx, c, "/user/video-history", pageParams(limit, offset))
}

// FetchVideoStats retrieves aggregate call statistics.
func (c *Client) FetchVideoStats(ctx context.Context) (VideoStats, error) {
	return Get[VideoStats](ctx, c, "/user/video-stats", nil)
}

// ListUsers retrieves the admin user listing.
func (c *Client) ListUsers(ctx context.Context) ([]AdminUser, error) {
	return Get[[]AdminUser](ctx, c, "/admin/users", nil)
}

func sessionPath(sessionID int64, suffix string) string {
	return "/sessions/" + strconv.FormatInt(sessionID, 10) + suffix
}

func pageParams(limit, offset int) url.Values {
	values := url.Values{}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		values.Set("offset", strconv.Itoa(offset))
	}
	return values
}
