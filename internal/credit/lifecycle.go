package credit

import (
	"fmt"
	"slices"

	"github.com/five82/timebank/internal/ledger"
)

// State is the client-observed credit lifecycle state of a session.
type State int

const (
	Unknown State = iota
	// Booked: requested, no credit reserved yet.
	Booked
	// Held: credit reserved against the session.
	Held
	// Completed: held credit released to the teacher.
	Completed
	// Refunded: held credit released back to the student.
	Refunded
	// Void: rejected or cancelled before anything was held.
	Void
)

func (s State) String() string {
	switch s {
	case Booked:
		return "booked"
	case Held:
		return "held"
	case Completed:
		return "completed"
	case Refunded:
		return "refunded"
	case Void:
		return "void"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Completed || s == Refunded || s == Void
}

var transitions = map[State][]State{
	Booked:    {Booked, Held, Void},
	Held:      {Held, Completed, Refunded},
	Completed: {Completed},
	Refunded:  {Refunded},
	Void:      {Void},
}

// statusFlow lists the statuses a session may move to from each status.
// Staying put is always allowed.
var statusFlow = map[ledger.SessionStatus][]ledger.SessionStatus{
	ledger.StatusPending:    {ledger.StatusApproved, ledger.StatusRejected, ledger.StatusCancelled},
	ledger.StatusApproved:   {ledger.StatusInProgress, ledger.StatusCompleted, ledger.StatusCancelled, ledger.StatusDisputed},
	ledger.StatusInProgress: {ledger.StatusCompleted, ledger.StatusCancelled, ledger.StatusDisputed},
	ledger.StatusCompleted:  {ledger.StatusDisputed},
	ledger.StatusDisputed:   {ledger.StatusCompleted, ledger.StatusCancelled},
}

// ShapeError reports a session whose status and credit flags contradict each other.
type ShapeError struct {
	SessionID int64
	Status    ledger.SessionStatus
	Held      bool
	Released  bool
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("session %d: status %q with credit_held=%t credit_released=%t is not a valid credit state",
		e.SessionID, e.Status, e.Held, e.Released)
}

// InvalidTransitionError reports an update implying an out-of-order credit transition.
type InvalidTransitionError struct {
	SessionID  int64
	From, To   State
	FromStatus ledger.SessionStatus
	ToStatus   ledger.SessionStatus
	Before     ledger.Session
	After      ledger.Session
	Err        error
}

func (e *InvalidTransitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session %d: invalid credit transition: %v", e.SessionID, e.Err)
	}
	return fmt.Sprintf("session %d: invalid credit transition %s (%s) -> %s (%s)",
		e.SessionID, e.From, e.FromStatus, e.To, e.ToStatus)
}

func (e *InvalidTransitionError) Unwrap() error { return e.Err }

// Classify maps a session's status and credit flags to a lifecycle state.
// credit_released may only be set on a held session that is completed or cancelled.
func Classify(s ledger.Session) (State, error) {
	shape := &ShapeError{SessionID: s.ID, Status: s.Status, Held: s.CreditHeld, Released: s.CreditReleased}
	if s.CreditReleased && !s.CreditHeld {
		return Unknown, shape
	}

	switch s.Status {
	case ledger.StatusPending:
		if s.CreditReleased {
			return Unknown, shape
		}
		if s.CreditHeld {
			return Held, nil
		}
		return Booked, nil
	case ledger.StatusApproved, ledger.StatusInProgress, ledger.StatusDisputed:
		if s.CreditReleased {
			return Unknown, shape
		}
		if s.CreditHeld {
			return Held, nil
		}
		return Booked, nil
	case ledger.StatusCompleted:
		switch {
		case s.CreditReleased:
			return Completed, nil
		case s.CreditHeld:
			// release not yet reflected
			return Held, nil
		default:
			return Unknown, shape
		}
	case ledger.StatusCancelled:
		switch {
		case s.CreditReleased:
			return Refunded, nil
		case s.CreditHeld:
			return Held, nil
		default:
			return Void, nil
		}
	case ledger.StatusRejected:
		if s.CreditReleased {
			return Unknown, shape
		}
		if s.CreditHeld {
			return Held, nil
		}
		return Void, nil
	default:
		return Unknown, fmt.Errorf("session %d: unknown status %q", s.ID, s.Status)
	}
}

// Allowed reports whether a session may move from one state to another.
// Staying in the same state is always allowed.
func Allowed(from, to State) bool {
	return slices.Contains(transitions[from], to)
}

// StatusAllowed reports whether a session status may move from one value
// to another. A session can only be completed after it was approved.
func StatusAllowed(from, to ledger.SessionStatus) bool {
	return from == to || slices.Contains(statusFlow[from], to)
}

// CheckTransition validates replacing the cached session before with after.
// Both the credit state and the session status must move forward.
// A zero before (nothing cached) only validates the shape of after.
func CheckTransition(before, after ledger.Session) error {
	to, err := Classify(after)
	if err != nil {
		return &InvalidTransitionError{SessionID: after.ID, ToStatus: after.Status, Before: before, After: after, Err: err}
	}
	if before.ID == 0 || before.Status == "" {
		return nil
	}
	from, err := Classify(before)
	if err != nil {
		// the cached copy is already broken; accept the server's word
		return nil
	}
	if !Allowed(from, to) || !StatusAllowed(before.Status, after.Status) {
		return &InvalidTransitionError{
			SessionID:  after.ID,
			From:       from,
			To:         to,
			FromStatus: before.Status,
			ToStatus:   after.Status,
			Before:     before,
			After:      after,
		}
	}
	return nil
}
