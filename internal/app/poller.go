package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/five82/timebank/internal/ledger"
)

const (
	defaultPollInterval = 15 * time.Second
	maxBackoff          = 30 * time.Second
)

// Refresher is the part of the coordinator the poller drives.
type Refresher interface {
	CurrentUserID() int64
	VerifySession(ctx context.Context) (ledger.User, error)
	RefreshUserContext(ctx context.Context, userID int64) error
	RefreshSessions(ctx context.Context) error
	CheckVideo(ctx context.Context) error
}

// StartPoller launches a background goroutine that refreshes the user context
// and session lists at interval, backing off while refreshes fail. It also
// ends an active call whose room the backend has closed. Polling is skipped
// while tokens has no token. It returns immediately.
func StartPoller(ctx context.Context, r Refresher, tokens ledger.TokenSource, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	go func() {
		failures := 0
		for {
			err := refresh(ctx, r, tokens)
			switch {
			case err == nil:
				failures = 0
			case errors.Is(err, context.Canceled):
			default:
				failures++
				logger.Warn("poll failed", "error", err, "failures", failures)
			}

			timer := time.NewTimer(calculateBackoff(failures, interval))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

func refresh(ctx context.Context, r Refresher, tokens ledger.TokenSource) error {
	if tokens != nil && strings.TrimSpace(tokens.Token()) == "" {
		return nil
	}
	userID := r.CurrentUserID()
	if userID <= 0 {
		// opaque token and no stored profile
		user, err := r.VerifySession(ctx)
		if err != nil {
			return fmt.Errorf("verify session: %w", err)
		}
		if userID = user.ID; userID <= 0 {
			return nil
		}
	}
	if err := r.RefreshUserContext(ctx, userID); err != nil {
		return fmt.Errorf("refresh user context: %w", err)
	}
	if err := r.RefreshSessions(ctx); err != nil {
		return fmt.Errorf("refresh sessions: %w", err)
	}
	if err := r.CheckVideo(ctx); err != nil {
		return fmt.Errorf("check video: %w", err)
	}
	return nil
}

// calculateBackoff doubles base for each consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	wait := base
	for range failures {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}
