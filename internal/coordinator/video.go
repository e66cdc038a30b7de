package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/five82/timebank/internal/cache"
	"github.com/five82/timebank/internal/ledger"
	"github.com/five82/timebank/internal/notify"
	"github.com/five82/timebank/internal/video"
)

// ErrVideoDisabled is returned when no conference provider is configured.
var ErrVideoDisabled = errors.New("video calls are not configured")

// StartVideo opens the session's room on the backend and joins it.
func (c *Coordinator) StartVideo(ctx context.Context, sessionID int64) (video.Call, error) {
	if c.calls == nil {
		return video.Call{}, ErrVideoDisabled
	}
	var call video.Call
	err := c.run(OpStartVideo, func() error {
		if _, ok := c.calls.Active(); ok {
			return video.ErrCallActive
		}
		room, err := c.api.StartVideo(ctx, sessionID)
		if err != nil {
			return err
		}
		call, err = c.calls.Begin(sessionID, room.RoomID, c.displayName(), func(video.Call) {
			// the provider ended the call; report it without blocking its callback
			go func() {
				_ = c.finishVideo(context.Background(), true)
			}()
		})
		return err
	}, "session_id", sessionID)
	return call, err
}

// EndVideo finishes the active call and reports its duration to the backend.
func (c *Coordinator) EndVideo(ctx context.Context) error {
	if c.calls == nil {
		return ErrVideoDisabled
	}
	return c.finishVideo(ctx, false)
}

// finishVideo ends the active call. When the provider reported the end, a
// call already finished by the user is not an error.
func (c *Coordinator) finishVideo(ctx context.Context, providerEnded bool) error {
	call, finishErr := c.calls.Finish()
	if providerEnded && errors.Is(finishErr, video.ErrNoCall) {
		c.logger.Debug("call already ended")
		return nil
	}
	err := c.run(OpEndVideo, func() error {
		if errors.Is(finishErr, video.ErrNoCall) {
			return finishErr
		}
		if finishErr != nil {
			c.logger.Warn("dispose conference", "session_id", call.SessionID, "error", finishErr)
		}
		seconds := int(call.Elapsed(c.now()).Seconds())
		if _, err := c.api.EndVideo(ctx, call.SessionID, seconds); err != nil {
			return err
		}
		c.post(notify.Info, noticeVideo, fmt.Sprintf("Call ended after %s", video.FormatDuration(call.Elapsed(c.now()))))
		return nil
	})
	if err != nil {
		return err
	}
	_ = c.RefreshVideo(ctx)
	return nil
}

// CheckVideo asks the backend whether the active call's room is still open
// and ends the call locally when it is not. It does nothing without a call.
func (c *Coordinator) CheckVideo(ctx context.Context) error {
	if c.calls == nil {
		return nil
	}
	call, ok := c.calls.Active()
	if !ok {
		return nil
	}
	return c.run(OpCheckVideo, func() error {
		room, err := c.api.VideoStatus(ctx, call.SessionID)
		if err != nil {
			return err
		}
		if !roomEnded(room) {
			return nil
		}
		c.logger.Info("video room closed by the backend", "session_id", call.SessionID, "room_id", room.RoomID)
		if c.calls.EndedRemotely() {
			return nil
		}
		return c.finishVideo(ctx, true)
	}, "session_id", call.SessionID)
}

func roomEnded(room ledger.VideoSession) bool {
	return strings.EqualFold(room.Status, "ended") || room.EndedAt != ""
}

// RefreshVideo fetches call history and statistics.
func (c *Coordinator) RefreshVideo(ctx context.Context) error {
	_, err := share(ctx, c, string(OpRefreshVideo), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.run(OpRefreshVideo, func() error {
			var (
				history ledger.VideoHistory
				stats   ledger.VideoStats
			)
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				history, err = c.api.FetchVideoHistory(gctx, c.pageSize, 0)
				return err
			})
			g.Go(func() error {
				var err error
				stats, err = c.api.FetchVideoStats(gctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}
			c.mu.Lock()
			c.videoHistory = history
			c.videoStats = &stats
			c.mu.Unlock()
			return nil
		})
	})
	return err
}

func (c *Coordinator) displayName() string {
	u, ok := cache.Load[ledger.User](c.cache, cache.Users, c.CurrentUserID())
	if !ok {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
