package coordinator

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/five82/timebank/internal/cache"
	"github.com/five82/timebank/internal/ledger"
)

// fakeAPI is an in-memory ledger.API. Responses are raw JSON so partial
// documents behave exactly as they do over the wire.
type fakeAPI struct {
	mu    sync.Mutex
	calls map[string]int

	profile  string
	stats    ledger.UserStats
	pages    []string // successive FetchTransactions responses; the last one repeats
	sessions map[int64]string
	upcoming []string
	pending  []string
	complete string
	skills   []string
	login    ledger.AuthResponse
	room     ledger.VideoSession
	ended    []int
	history  ledger.VideoHistory
	vstats   ledger.VideoStats

	errs map[string]error

	// gate, when set, blocks FetchProfile until closed; started receives once per call.
	gate    chan struct{}
	started chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		calls:    make(map[string]int),
		sessions: make(map[int64]string),
		errs:     make(map[string]error),
	}
}

func (f *fakeAPI) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.errs[name]
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) setErr(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[name] = err
}

func mustDoc[T any](raw string) ledger.Doc[T] {
	var d ledger.Doc[T]
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		panic(err)
	}
	return d
}

func mustDocs[T any](raws []string) []ledger.Doc[T] {
	out := make([]ledger.Doc[T], 0, len(raws))
	for _, r := range raws {
		out = append(out, mustDoc[T](r))
	}
	return out
}

func (f *fakeAPI) Login(ctx context.Context, req ledger.LoginRequest) (ledger.AuthResponse, error) {
	if err := f.hit("login"); err != nil {
		return ledger.AuthResponse{}, err
	}
	return f.login, nil
}

func (f *fakeAPI) Register(ctx context.Context, req ledger.RegisterRequest) (ledger.AuthResponse, error) {
	if err := f.hit("register"); err != nil {
		return ledger.AuthResponse{}, err
	}
	return f.login, nil
}

func (f *fakeAPI) Logout(ctx context.Context) error { return f.hit("logout") }

func (f *fakeAPI) AuthProfile(ctx context.Context) (ledger.Doc[ledger.User], error) {
	if err := f.hit("auth-profile"); err != nil {
		return ledger.Doc[ledger.User]{}, err
	}
	return mustDoc[ledger.User](f.profile), nil
}

func (f *fakeAPI) FetchProfile(ctx context.Context) (ledger.Doc[ledger.User], error) {
	err := f.hit("profile")
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ledger.Doc[ledger.User]{}, ctx.Err()
		}
	}
	if err != nil {
		return ledger.Doc[ledger.User]{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return mustDoc[ledger.User](f.profile), nil
}

func (f *fakeAPI) UpdateProfile(ctx context.Context, update ledger.ProfileUpdate) (ledger.Doc[ledger.User], error) {
	if err := f.hit("update-profile"); err != nil {
		return ledger.Doc[ledger.User]{}, err
	}
	return mustDoc[ledger.User](f.profile), nil
}

func (f *fakeAPI) ChangePassword(ctx context.Context, change ledger.PasswordChange) error {
	return f.hit("password")
}

func (f *fakeAPI) UpdateAvatar(ctx context.Context, avatarURL string) (ledger.Doc[ledger.User], error) {
	if err := f.hit("avatar"); err != nil {
		return ledger.Doc[ledger.User]{}, err
	}
	return mustDoc[ledger.User](f.profile), nil
}

func (f *fakeAPI) FetchStats(ctx context.Context) (ledger.UserStats, error) {
	if err := f.hit("stats"); err != nil {
		return ledger.UserStats{}, err
	}
	return f.stats, nil
}

func (f *fakeAPI) FetchTransactions(ctx context.Context, limit, offset int) (ledger.TransactionPage, error) {
	err := f.hit("transactions")
	if err != nil {
		return ledger.TransactionPage{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pages) == 0 {
		return ledger.TransactionPage{Limit: limit, Offset: offset}, nil
	}
	raw := f.pages[0]
	if len(f.pages) > 1 {
		f.pages = f.pages[1:]
	}
	var page ledger.TransactionPage
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		panic(err)
	}
	page.Limit, page.Offset = limit, offset
	return page, nil
}

func (f *fakeAPI) FetchUserSkills(ctx context.Context) ([]ledger.Doc[ledger.UserSkill], error) {
	if err := f.hit("skills"); err != nil {
		return nil, err
	}
	return mustDocs[ledger.UserSkill](f.skills), nil
}

func (f *fakeAPI) FetchUpcomingSessions(ctx context.Context, limit int) ([]ledger.Doc[ledger.Session], error) {
	if err := f.hit("upcoming"); err != nil {
		return nil, err
	}
	return mustDocs[ledger.Session](f.upcoming), nil
}

func (f *fakeAPI) FetchPendingRequests(ctx context.Context) ([]ledger.Doc[ledger.Session], error) {
	if err := f.hit("pending"); err != nil {
		return nil, err
	}
	return mustDocs[ledger.Session](f.pending), nil
}

func (f *fakeAPI) FetchSession(ctx context.Context, id int64) (ledger.Doc[ledger.Session], error) {
	if err := f.hit("session"); err != nil {
		return ledger.Doc[ledger.Session]{}, err
	}
	return mustDoc[ledger.Session](f.sessions[id]), nil
}

func (f *fakeAPI) CompleteSession(ctx context.Context, id int64) (ledger.Doc[ledger.Session], error) {
	if err := f.hit("complete"); err != nil {
		return ledger.Doc[ledger.Session]{}, err
	}
	return mustDoc[ledger.Session](f.complete), nil
}

func (f *fakeAPI) StartVideo(ctx context.Context, id int64) (ledger.VideoSession, error) {
	if err := f.hit("video-start"); err != nil {
		return ledger.VideoSession{}, err
	}
	return f.room, nil
}

func (f *fakeAPI) EndVideo(ctx context.Context, id int64, seconds int) (ledger.VideoSession, error) {
	if err := f.hit("video-end"); err != nil {
		return ledger.VideoSession{}, err
	}
	f.mu.Lock()
	f.ended = append(f.ended, seconds)
	f.mu.Unlock()
	return f.room, nil
}

func (f *fakeAPI) VideoStatus(ctx context.Context, id int64) (ledger.VideoSession, error) {
	if err := f.hit("video-status"); err != nil {
		return ledger.VideoSession{}, err
	}
	return f.room, nil
}

func (f *fakeAPI) FetchVideoHistory(ctx context.Context, limit, offset int) (ledger.VideoHistory, error) {
	if err := f.hit("video-history"); err != nil {
		return ledger.VideoHistory{}, err
	}
	return f.history, nil
}

func (f *fakeAPI) FetchVideoStats(ctx context.Context) (ledger.VideoStats, error) {
	if err := f.hit("video-stats"); err != nil {
		return ledger.VideoStats{}, err
	}
	return f.vstats, nil
}

func (f *fakeAPI) ListUsers(ctx context.Context) ([]ledger.AdminUser, error) {
	return nil, f.hit("admin-users")
}

var _ ledger.API = (*fakeAPI)(nil)

type fakeCreds struct {
	mu      sync.Mutex
	token   string
	user    json.RawMessage
	cleared int
}

func (c *fakeCreds) SaveAuth(token string, user json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token, c.user = token, user
	return nil
}

func (c *fakeCreds) SaveUser(user json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = user
	return nil
}

func (c *fakeCreds) ClearAuth() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token, c.user = "", nil
	c.cleared++
	return nil
}

func (c *fakeCreds) snapshot() (string, json.RawMessage, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.user, c.cleared
}

func mustUpsert(t *testing.T, c *Coordinator, kind cache.Kind, raw string) {
	t.Helper()
	if err := c.Cache().Upsert(kind, json.RawMessage(raw)); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
}
