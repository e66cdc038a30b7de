package views

import (
	"github.com/five82/timebank/internal/cache"
	"github.com/five82/timebank/internal/coordinator"
	"github.com/five82/timebank/internal/ledger"
	"github.com/five82/timebank/internal/video"
)

// Video shows the active call with its timer, plus call history and stats.
type Video struct {
	*feed
}

// NewVideo subscribes a video adapter. onChange may be nil.
func NewVideo(c *coordinator.Coordinator, onChange func()) *Video {
	return &Video{feed: newFeed(c,
		[]cache.Kind{cache.Sessions},
		[]coordinator.Op{coordinator.OpStartVideo, coordinator.OpEndVideo, coordinator.OpCheckVideo, coordinator.OpRefreshVideo},
		onChange,
	)}
}

// Active returns the running call.
func (v *Video) Active() (video.Call, bool) { return v.coord.ActiveCall() }

// Elapsed returns the running call's duration as HH:MM:SS, or "" without a call.
func (v *Video) Elapsed() string {
	call, ok := v.coord.ActiveCall()
	if !ok {
		return ""
	}
	return video.FormatDuration(call.Elapsed(v.coord.Now()))
}

// Session returns the session the running call belongs to.
func (v *Video) Session() (ledger.Session, bool) {
	call, ok := v.coord.ActiveCall()
	if !ok {
		return ledger.Session{}, false
	}
	return cache.Load[ledger.Session](v.store(), cache.Sessions, call.SessionID)
}

// Stats returns call statistics from the last refresh.
func (v *Video) Stats() (ledger.VideoStats, bool) { return v.coord.VideoStats() }

// History returns past calls, newest first.
func (v *Video) History() []ledger.VideoSession { return v.coord.VideoHistory().History }
