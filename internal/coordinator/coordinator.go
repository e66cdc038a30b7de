package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/five82/timebank/internal/cache"
	"github.com/five82/timebank/internal/credit"
	"github.com/five82/timebank/internal/ledger"
	"github.com/five82/timebank/internal/notify"
	"github.com/five82/timebank/internal/video"
)

// RecentTransactions is the size of the ledger window fetched with the user context.
const RecentTransactions = 10

// DefaultPageSize is used for paginated listings when none is configured.
const DefaultPageSize = 10

// Credentials persists the login state between runs.
type Credentials interface {
	SaveAuth(token string, user json.RawMessage) error
	SaveUser(user json.RawMessage) error
	ClearAuth() error
}

// Window is one page of the transaction history.
type Window struct {
	IDs    []int64 // newest first, as returned by the server
	Total  int
	Limit  int
	Offset int
}

// Coordinator sequences every backend call that changes credit balances or
// session status and applies the results to the cache.
type Coordinator struct {
	api      ledger.API
	cache    *cache.Store
	notices  *notify.Center
	creds    Credentials
	logger   *slog.Logger
	calls    *video.Tracker
	pageSize int
	now      func() time.Time

	group  singleflight.Group
	status *statusBoard

	mu           sync.RWMutex
	userID       int64
	stats        *ledger.UserStats
	check        *credit.Check
	recent       []int64
	window       Window
	upcoming     []int64
	pending      []int64
	skills       []int64
	videoStats   *ledger.VideoStats
	videoHistory ledger.VideoHistory
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithNotices routes user-facing failures to center.
func WithNotices(center *notify.Center) Option {
	return func(c *Coordinator) { c.notices = center }
}

// WithCredentials persists tokens and the last-known profile.
func WithCredentials(creds Credentials) Option {
	return func(c *Coordinator) { c.creds = creds }
}

// WithConference enables video calls through conf.
func WithConference(conf video.Conference) Option {
	return func(c *Coordinator) {
		if conf != nil {
			c.calls = video.NewTracker(conf, func() time.Time { return c.now() })
		}
	}
}

// WithPageSize sets the page size used for listings.
func WithPageSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// New returns a Coordinator that reads from api and writes into store.
func New(api ledger.API, store *cache.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		api:      api,
		cache:    store,
		logger:   slog.New(slog.DiscardHandler),
		pageSize: DefaultPageSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.status = newStatusBoard(func() time.Time { return c.now() })
	return c
}

// Cache returns the store the coordinator writes to.
func (c *Coordinator) Cache() *cache.Store { return c.cache }

// Notices returns the notification center, which may be nil.
func (c *Coordinator) Notices() *notify.Center { return c.notices }

// PageSize returns the configured listing page size.
func (c *Coordinator) PageSize() int { return c.pageSize }

// Status returns the in-flight state of op.
func (c *Coordinator) Status(op Op) Status { return c.status.get(op) }

// OnStatus registers fn to run whenever an operation starts or settles.
// Coordinator state read inside fn reflects the settled operation.
func (c *Coordinator) OnStatus(fn func(Op)) (unsubscribe func()) {
	return c.status.listen(fn)
}

// Bootstrap seeds the cache with the last-known profile before the first
// network round trip.
func (c *Coordinator) Bootstrap(user json.RawMessage) error {
	if len(user) == 0 {
		return nil
	}
	var u ledger.User
	if err := json.Unmarshal(user, &u); err != nil {
		return fmt.Errorf("bootstrap user: %w", err)
	}
	if err := c.cache.Upsert(cache.Users, user); err != nil {
		return fmt.Errorf("bootstrap user: %w", err)
	}
	c.setUserID(u.ID)
	return nil
}

// CurrentUserID returns the logged-in user's id, or 0.
func (c *Coordinator) CurrentUserID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// SetCurrentUser records who is logged in, typically from token claims.
func (c *Coordinator) SetCurrentUser(userID int64) { c.setUserID(userID) }

func (c *Coordinator) setUserID(id int64) {
	if id <= 0 {
		return
	}
	c.mu.Lock()
	c.userID = id
	c.mu.Unlock()
}

// Stats returns the last fetched stats of the current user.
func (c *Coordinator) Stats() (ledger.UserStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.stats == nil {
		return ledger.UserStats{}, false
	}
	return *c.stats, true
}

// BalanceCheck returns the last reconciliation of the current user's balance.
func (c *Coordinator) BalanceCheck() (credit.Check, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.check == nil {
		return credit.Check{}, false
	}
	return *c.check, true
}

// RecentTransactionIDs returns the newest transaction ids, newest first.
func (c *Coordinator) RecentTransactionIDs() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.recent)
}

// TransactionWindow returns the last loaded history page.
func (c *Coordinator) TransactionWindow() Window {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w := c.window
	w.IDs = slices.Clone(w.IDs)
	return w
}

// UpcomingSessionIDs returns the ids of upcoming sessions in server order.
func (c *Coordinator) UpcomingSessionIDs() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.upcoming)
}

// PendingRequestIDs returns the ids of sessions awaiting approval.
func (c *Coordinator) PendingRequestIDs() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.pending)
}

// SkillIDs returns the ids of the current user's skills.
func (c *Coordinator) SkillIDs() []int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.skills)
}

// VideoStats returns the last fetched call statistics.
func (c *Coordinator) VideoStats() (ledger.VideoStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.videoStats == nil {
		return ledger.VideoStats{}, false
	}
	return *c.videoStats, true
}

// VideoHistory returns the last fetched call history.
func (c *Coordinator) VideoHistory() ledger.VideoHistory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h := c.videoHistory
	h.History = slices.Clone(h.History)
	return h
}

// ActiveCall returns the running video call.
func (c *Coordinator) ActiveCall() (video.Call, bool) {
	if c.calls == nil {
		return video.Call{}, false
	}
	return c.calls.Active()
}

// Now returns the coordinator's clock reading.
func (c *Coordinator) Now() time.Time { return c.now() }

// share runs fn once per key across concurrent callers. The shared work is
// detached from the caller's cancellation; a caller whose ctx ends stops
// waiting but does not abort the call for the others.
func share[T any](ctx context.Context, c *Coordinator, key string, fn func(context.Context) (T, error)) (T, error) {
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		v, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("%s: unexpected result %T", key, res.Val)
		}
		return v, nil
	}
}

// run brackets fn with status updates and routes its error.
func (c *Coordinator) run(op Op, fn func() error, attrs ...any) error {
	c.status.begin(op)
	err := fn()
	c.report(op, err, attrs...)
	c.status.settle(op, err)
	return err
}

// report logs err and posts a notice according to its class. Validation
// errors belong to the caller and are only logged.
func (c *Coordinator) report(op Op, err error, attrs ...any) {
	if err == nil {
		if c.notices != nil {
			c.notices.DismissKey(noticeNetwork)
		}
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	args := append([]any{"op", string(op), "error", err}, attrs...)
	if id := requestID(err); id != "" {
		args = append(args, "request_id", id)
	}

	var (
		authErr    *ledger.AuthError
		netErr     *ledger.NetworkError
		valErr     *ledger.ValidationError
		srvErr     *ledger.ServerError
		transErr   *credit.InvalidTransitionError
		consistErr *credit.ConsistencyError
	)
	switch {
	case errors.As(err, &authErr):
		c.logger.Warn("authentication required", args...)
		c.clearAuth()
		c.post(notify.Warn, noticeAuth, "Session expired, run `timebank login`")
	case errors.As(err, &netErr):
		c.logger.Warn("backend unreachable", args...)
		c.post(notify.Warn, noticeNetwork, "Cannot reach the time bank server")
	case errors.As(err, &valErr):
		c.logger.Info("request rejected", args...)
	case errors.As(err, &srvErr):
		c.logger.Error("server error", args...)
		c.post(notify.Error, noticeServer, "The server failed to handle the request")
	case errors.As(err, &transErr):
		args = append(args, "before", sessionValue(transErr.Before), "after", sessionValue(transErr.After))
		c.logger.Error("invalid credit transition", args...)
	case errors.Is(err, video.ErrNoCall), errors.Is(err, video.ErrCallActive):
		c.logger.Info("video call state", args...)
	case errors.As(err, &consistErr):
		args = append(args, "before", consistErr.Before, "after", consistErr.After)
		c.logger.Error("ledger inconsistent", args...)
		c.post(notify.Warn, noticeConsistency, "Balance could not be confirmed against the ledger")
	default:
		c.logger.Error("operation failed", args...)
	}
}

const (
	noticeAuth        = "auth"
	noticeNetwork     = "network"
	noticeServer      = "server"
	noticeConsistency = "consistency"
	noticeVideo       = "video"
)

func (c *Coordinator) post(level notify.Level, key, msg string) {
	if c.notices == nil {
		return
	}
	c.notices.Post(level, key, msg)
}

func (c *Coordinator) clearAuth() {
	if c.creds == nil {
		return
	}
	if err := c.creds.ClearAuth(); err != nil {
		c.logger.Error("clear stored token", "error", err)
	}
}

func requestID(err error) string {
	var (
		authErr *ledger.AuthError
		netErr  *ledger.NetworkError
		valErr  *ledger.ValidationError
		srvErr  *ledger.ServerError
	)
	switch {
	case errors.As(err, &authErr):
		return authErr.RequestID
	case errors.As(err, &netErr):
		return netErr.RequestID
	case errors.As(err, &valErr):
		return valErr.RequestID
	case errors.As(err, &srvErr):
		return srvErr.RequestID
	}
	return ""
}

// sessionWrites turns fetched sessions into cache writes, dropping and
// reporting any whose credit transition from the cached copy is invalid.
func (c *Coordinator) sessionWrites(op Op, docs []ledger.Doc[ledger.Session]) ([]cache.Write, []error) {
	writes := make([]cache.Write, 0, len(docs))
	var rejected []error
	for _, d := range docs {
		w, err := c.sessionWrite(op, d)
		if err != nil {
			c.report(op, err, "session_id", d.Value.ID)
			rejected = append(rejected, err)
			continue
		}
		writes = append(writes, w)
	}
	return writes, rejected
}

func (c *Coordinator) sessionWrite(op Op, d ledger.Doc[ledger.Session]) (cache.Write, error) {
	before, _ := cache.Load[ledger.Session](c.cache, cache.Sessions, d.Value.ID)
	after, err := cache.Preview[ledger.Session](c.cache, cache.Sessions, d)
	if err != nil {
		c.logger.Warn("skip undecodable session", "op", string(op), "session_id", d.Value.ID, "error", err)
		return cache.Write{}, err
	}
	if err := credit.CheckTransition(before, after); err != nil {
		return cache.Write{}, err
	}
	return cache.Write{Kind: cache.Sessions, Doc: d}, nil
}

func sessionValue(s ledger.Session) slog.Value {
	state, _ := credit.Classify(s)
	return slog.GroupValue(
		slog.Int64("id", s.ID),
		slog.String("status", string(s.Status)),
		slog.Bool("credit_held", s.CreditHeld),
		slog.Bool("credit_released", s.CreditReleased),
		slog.String("credit_amount", s.CreditAmount.String()),
		slog.String("state", state.String()),
	)
}

func ids[T any](docs []ledger.Doc[T], id func(T) int64) []int64 {
	out := make([]int64, 0, len(docs))
	for _, d := range docs {
		out = append(out, id(d.Value))
	}
	return out
}
