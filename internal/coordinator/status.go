package coordinator

import (
	"slices"
	"sync"
	"time"
)

// Op names a coordinator operation for status reporting.
type Op string

const (
	OpRefreshUser      Op = "refresh-user"
	OpCompleteSession  Op = "complete-session"
	OpRefreshSessions  Op = "refresh-sessions"
	OpRefreshSession   Op = "refresh-session"
	OpLoadTransactions Op = "load-transactions"
	OpRefreshSkills    Op = "refresh-skills"
	OpUpdateProfile    Op = "update-profile"
	OpChangePassword   Op = "change-password"
	OpUpdateAvatar     Op = "update-avatar"
	OpLogin            Op = "login"
	OpRegister         Op = "register"
	OpVerifySession    Op = "verify-session"
	OpLogout           Op = "logout"
	OpStartVideo       Op = "start-video"
	OpEndVideo         Op = "end-video"
	OpCheckVideo       Op = "check-video"
	OpRefreshVideo     Op = "refresh-video"
)

// Status is the in-flight state of one operation.
type Status struct {
	Running   int
	LastErr   error
	UpdatedAt time.Time
}

// Loading reports whether at least one call of the operation is in flight.
func (s Status) Loading() bool { return s.Running > 0 }

type statusBoard struct {
	mu        sync.Mutex
	byOp      map[Op]Status
	listeners []*listener
	now       func() time.Time
}

type listener struct {
	fn func(Op)
}

func newStatusBoard(now func() time.Time) *statusBoard {
	return &statusBoard{byOp: make(map[Op]Status), now: now}
}

func (b *statusBoard) begin(op Op) {
	b.mu.Lock()
	st := b.byOp[op]
	st.Running++
	b.byOp[op] = st
	ls := slices.Clone(b.listeners)
	b.mu.Unlock()
	fire(ls, op)
}

func (b *statusBoard) settle(op Op, err error) {
	b.mu.Lock()
	st := b.byOp[op]
	if st.Running > 0 {
		st.Running--
	}
	st.LastErr = err
	st.UpdatedAt = b.now()
	b.byOp[op] = st
	ls := slices.Clone(b.listeners)
	b.mu.Unlock()
	fire(ls, op)
}

func (b *statusBoard) get(op Op) Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.byOp[op]
}

func (b *statusBoard) reset() {
	b.mu.Lock()
	for op, st := range b.byOp {
		b.byOp[op] = Status{Running: st.Running}
	}
	b.mu.Unlock()
}

func (b *statusBoard) listen(fn func(Op)) func() {
	l := &listener{fn: fn}
	b.mu.Lock()
	b.listeners = append(b.listeners, l)
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		b.listeners = slices.DeleteFunc(b.listeners, func(other *listener) bool { return other == l })
		b.mu.Unlock()
	}
}

func fire(ls []*listener, op Op) {
	for _, l := range ls {
		l.fn(op)
	}
}
