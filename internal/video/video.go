package video

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrCallActive is returned when a call is started while another is running.
	ErrCallActive = errors.New("a video call is already active")
	// ErrNoCall is returned when ending a call that is not running.
	ErrNoCall = errors.New("no active video call")
	// ErrUnknownHandle is returned for handles the conference does not know.
	ErrUnknownHandle = errors.New("unknown conference handle")
)

// Handle identifies a joined conference room.
type Handle string

// Conference is the capability the client needs from a video provider.
type Conference interface {
	// Start joins roomID under displayName.
	Start(roomID, displayName string) (Handle, error)
	// OnEnded registers fn to run once when the call behind h ends.
	OnEnded(h Handle, fn func())
	// Dispose releases h. Callbacks registered for it do not run afterwards.
	Dispose(h Handle) error
}

// Leaver is implemented by providers that can be told a call ended outside
// the client, for example when the backend closes the room.
type Leaver interface {
	Left(h Handle)
}

// Call is the ephemeral record of an active or just-finished call.
type Call struct {
	SessionID int64
	RoomID    string
	Handle    Handle
	StartedAt time.Time
	EndedAt   time.Time
}

// Elapsed returns the call length so far, or the final length once ended.
func (c Call) Elapsed(now time.Time) time.Duration {
	if c.StartedAt.IsZero() {
		return 0
	}
	end := now
	if !c.EndedAt.IsZero() {
		end = c.EndedAt
	}
	if end.Before(c.StartedAt) {
		return 0
	}
	return end.Sub(c.StartedAt)
}

// FormatDuration renders d as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// Tracker owns the single active call.
type Tracker struct {
	mu     sync.Mutex
	conf   Conference
	active *Call
	now    func() time.Time
}

// NewTracker returns a Tracker using conf. now defaults to time.Now.
func NewTracker(conf Conference, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{conf: conf, now: now}
}

// Begin joins the room for sessionID. onEnded runs when the provider reports
// the call ended on its side.
func (t *Tracker) Begin(sessionID int64, roomID, displayName string, onEnded func(Call)) (Call, error) {
	t.mu.Lock()
	if t.active != nil {
		t.mu.Unlock()
		return Call{}, ErrCallActive
	}
	if roomID == "" {
		t.mu.Unlock()
		return Call{}, fmt.Errorf("start call: room id required")
	}
	h, err := t.conf.Start(roomID, displayName)
	if err != nil {
		t.mu.Unlock()
		return Call{}, fmt.Errorf("start call: %w", err)
	}
	call := &Call{SessionID: sessionID, RoomID: roomID, Handle: h, StartedAt: t.now()}
	t.active = call
	snap := *call
	t.mu.Unlock()

	// registered unlocked: a provider may fire fn before OnEnded returns
	if onEnded != nil {
		t.conf.OnEnded(h, func() {
			t.mu.Lock()
			current := t.active == call
			ended := *call
			t.mu.Unlock()
			if current {
				onEnded(ended)
			}
		})
	}
	return snap, nil
}

// EndedRemotely tells the provider that the active call ended outside the
// client, which runs its on-ended callbacks. It reports false when the
// provider cannot be told and the caller must finish the call itself.
func (t *Tracker) EndedRemotely() bool {
	t.mu.Lock()
	call := t.active
	t.mu.Unlock()
	if call == nil {
		return true
	}
	l, ok := t.conf.(Leaver)
	if !ok {
		return false
	}
	l.Left(call.Handle)
	return true
}

// Finish ends the active call, disposes its handle, and returns the final record.
func (t *Tracker) Finish() (Call, error) {
	t.mu.Lock()
	call := t.active
	t.active = nil
	t.mu.Unlock()

	if call == nil {
		return Call{}, ErrNoCall
	}
	call.EndedAt = t.now()
	if err := t.conf.Dispose(call.Handle); err != nil && !errors.Is(err, ErrUnknownHandle) {
		return *call, fmt.Errorf("dispose call: %w", err)
	}
	return *call, nil
}

// Active returns the running call.
func (t *Tracker) Active() (Call, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active == nil {
		return Call{}, false
	}
	return *t.active, true
}

// Now returns the tracker's clock reading.
func (t *Tracker) Now() time.Time {
	return t.now()
}
