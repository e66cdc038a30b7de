package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"time"

	"github.com/five82/timebank/internal/cache"
	"github.com/five82/timebank/internal/config"
	"github.com/five82/timebank/internal/coordinator"
	"github.com/five82/timebank/internal/ledger"
	"github.com/five82/timebank/internal/localstate"
	"github.com/five82/timebank/internal/logging"
	"github.com/five82/timebank/internal/notify"
	"github.com/five82/timebank/internal/ui"
	"github.com/five82/timebank/internal/video"
)

// Options configure the timebank client.
type Options struct {
	ConfigPath string
	StatePath  string // empty uses the configured state path
	PollEvery  int    // seconds; zero uses the configured interval
	Version    string
	Debug      bool
}

// Env is the wired client: configuration, logger, persisted state, API
// client and coordinator. The TUI and the one-shot commands share it.
type Env struct {
	Config config.Config
	Logger *slog.Logger
	State  *localstate.Store
	Client *ledger.Client
	Coord  *coordinator.Coordinator

	closeLog func() error
}

// Open loads configuration and persisted state and wires the client stack.
// The cache is seeded with the last-known profile so screens render before
// the first round trip.
func Open(opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.StatePath != "" {
		cfg.StatePath = opts.StatePath
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	}

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	logger, closeLog, err := logging.New(logging.Options{
		Path:         cfg.LogPath(),
		Level:        level,
		RollbarToken: cfg.RollbarToken,
		Environment:  cfg.Environment,
		Version:      opts.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	st, err := localstate.Open(cfg.StatePath)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("open state: %w", err)
	}

	client, err := ledger.NewClient(cfg.APIURL,
		ledger.WithTokenSource(st),
		ledger.WithLogger(logger),
	)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("init api client: %w", err)
	}

	coord := coordinator.New(client, cache.New(),
		coordinator.WithLogger(logger),
		coordinator.WithNotices(notify.NewCenter(notify.DefaultCapacity)),
		coordinator.WithCredentials(st),
		coordinator.WithConference(video.NewJitsi(cfg.JitsiDomain, openBrowser)),
		coordinator.WithPageSize(cfg.PageSize),
	)

	env := &Env{
		Config:   cfg,
		Logger:   logger,
		State:    st,
		Client:   client,
		Coord:    coord,
		closeLog: closeLog,
	}
	env.restore()
	logger.Info("client started", "api", client.BaseURL(), "state", st.Path(), "logged_in", coord.CurrentUserID() > 0)
	return env, nil
}

// restore seeds the coordinator from the persisted profile and token claims.
func (e *Env) restore() {
	if err := e.Coord.Bootstrap(e.State.User()); err != nil {
		e.Logger.Warn("ignoring stored profile", "error", err)
	}
	token := e.State.Token()
	if token == "" {
		return
	}
	claims, err := ledger.ParseClaims(token)
	if err != nil {
		// resolved through the auth profile on the first refresh
		e.Logger.Debug("stored token is opaque", "error", err)
		return
	}
	if !claims.ExpiresAt.IsZero() && !time.Now().Before(claims.ExpiresAt) {
		e.Logger.Info("stored token expired", "expired_at", claims.ExpiresAt)
		if err := e.State.ClearAuth(); err != nil {
			e.Logger.Warn("clear expired token", "error", err)
		}
		return
	}
	e.Coord.SetCurrentUser(claims.UserID)
}

// EnsureUser returns the current user id, asking the backend for the
// profile behind the stored token when it carries no user id.
func (e *Env) EnsureUser(ctx context.Context) (int64, error) {
	if id := e.Coord.CurrentUserID(); id > 0 {
		return id, nil
	}
	user, err := e.Coord.VerifySession(ctx)
	if err != nil {
		return 0, fmt.Errorf("verify session: %w", err)
	}
	return user.ID, nil
}

// LoggedIn reports whether a token is stored.
func (e *Env) LoggedIn() bool { return e.State.Token() != "" }

// Close flushes and closes the log.
func (e *Env) Close() error {
	if e.closeLog == nil {
		return nil
	}
	return e.closeLog()
}

// Run boots the timebank TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) (err error) {
	env, err := Open(opts)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, env.Close()) }()

	StartPoller(ctx, env.Coord, env.State, env.Config.PollInterval, env.Logger)

	return ui.Run(ui.Options{
		Context:   ctx,
		Coord:     env.Coord,
		State:     env.State,
		Config:    env.Config,
		Logger:    env.Logger,
		ThemeName: env.State.Theme(),
	})
}

// openBrowser hands a meeting URL to the desktop's default handler.
func openBrowser(meetingURL string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", meetingURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", meetingURL)
	default:
		cmd = exec.Command("xdg-open", meetingURL)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", meetingURL, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
