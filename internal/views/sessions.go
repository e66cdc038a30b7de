package views

import (
	"sync"

	"github.com/five82/timebank/internal/cache"
	"github.com/five82/timebank/internal/coordinator"
	"github.com/five82/timebank/internal/credit"
	"github.com/five82/timebank/internal/ledger"
)

// SessionRow is a session as listed in the sessions view.
type SessionRow struct {
	Session ledger.Session
	State   credit.State
	// Label is the credit state as shown to the user, "invalid" when the
	// session's flags contradict its status.
	Label   string
	Pending bool
}

// Teaching reports whether userID teaches the session.
func (r SessionRow) Teaching(userID int64) bool { return r.Session.TeacherID == userID }

// CanComplete reports whether the session may be marked completed.
func (r SessionRow) CanComplete() bool {
	if r.State != credit.Held {
		return false
	}
	switch r.Session.Status {
	case ledger.StatusApproved, ledger.StatusInProgress:
		return true
	default:
		return false
	}
}

// CanCall reports whether a video call can be started for the session.
func (r SessionRow) CanCall() bool {
	if r.Session.Mode == ledger.ModeOffline {
		return false
	}
	return r.Session.Status == ledger.StatusApproved || r.Session.Status == ledger.StatusInProgress
}

// Sessions lists upcoming sessions followed by pending requests and keeps
// a selection across refreshes.
type Sessions struct {
	*feed

	mu       sync.Mutex
	selected int64
}

// NewSessions subscribes a sessions adapter. onChange may be nil.
func NewSessions(c *coordinator.Coordinator, onChange func()) *Sessions {
	return &Sessions{feed: newFeed(c,
		[]cache.Kind{cache.Sessions},
		[]coordinator.Op{coordinator.OpRefreshSessions, coordinator.OpRefreshSession, coordinator.OpCompleteSession},
		onChange,
	)}
}

// Rows returns upcoming sessions, then pending requests not already listed.
func (s *Sessions) Rows() []SessionRow {
	upcoming := s.coord.UpcomingSessionIDs()
	seen := make(map[int64]bool, len(upcoming))
	rows := make([]SessionRow, 0, len(upcoming))
	for _, sess := range loadIDs[ledger.Session](s.store(), cache.Sessions, upcoming) {
		seen[sess.ID] = true
		rows = append(rows, newSessionRow(sess, false))
	}
	for _, sess := range loadIDs[ledger.Session](s.store(), cache.Sessions, s.coord.PendingRequestIDs()) {
		if seen[sess.ID] {
			continue
		}
		rows = append(rows, newSessionRow(sess, true))
	}
	return rows
}

func newSessionRow(sess ledger.Session, pending bool) SessionRow {
	row := SessionRow{Session: sess, Pending: pending}
	state, err := credit.Classify(sess)
	if err != nil {
		row.Label = "invalid"
		return row
	}
	row.State = state
	row.Label = state.String()
	return row
}

// Selected returns the selected row. The first row is selected when the
// previous selection is no longer listed.
func (s *Sessions) Selected() (SessionRow, bool) {
	rows := s.Rows()
	if len(rows) == 0 {
		return SessionRow{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if r.Session.ID == s.selected {
			return r, true
		}
	}
	s.selected = rows[0].Session.ID
	return rows[0], true
}

// Select selects the session with id. It reports false when id is not listed.
func (s *Sessions) Select(id int64) bool {
	for _, r := range s.Rows() {
		if r.Session.ID == id {
			s.mu.Lock()
			s.selected = id
			s.mu.Unlock()
			return true
		}
	}
	return false
}

// Move shifts the selection by delta rows, clamped to the list.
func (s *Sessions) Move(delta int) {
	rows := s.Rows()
	if len(rows) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := 0
	for i, r := range rows {
		if r.Session.ID == s.selected {
			idx = i
			break
		}
	}
	idx = min(max(idx+delta, 0), len(rows)-1)
	s.selected = rows[idx].Session.ID
}
