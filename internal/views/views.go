package views

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/five82/timebank/internal/cache"
	"github.com/five82/timebank/internal/coordinator"
	"github.com/five82/timebank/internal/ledger"
)

// feed ties an adapter to the cache kinds and coordinator operations it
// renders. onChange runs after any relevant cache commit or status change,
// never after Close.
type feed struct {
	coord *coordinator.Coordinator
	ops   []coordinator.Op

	closed    atomic.Bool
	closeOnce sync.Once
	stops     []func()
}

func newFeed(c *coordinator.Coordinator, kinds []cache.Kind, ops []coordinator.Op, onChange func()) *feed {
	f := &feed{coord: c, ops: ops}
	fire := func() {
		if onChange != nil && !f.closed.Load() {
			onChange()
		}
	}
	if len(kinds) > 0 {
		f.stops = append(f.stops, c.Cache().SubscribeKinds(kinds, func([]cache.Change) { fire() }))
	}
	f.stops = append(f.stops, c.OnStatus(func(op coordinator.Op) {
		if slices.Contains(f.ops, op) {
			fire()
		}
	}))
	return f
}

// Loading reports whether any operation feeding the adapter is in flight.
func (f *feed) Loading() bool {
	for _, op := range f.ops {
		if f.coord.Status(op).Loading() {
			return true
		}
	}
	return false
}

// Err returns the most recent failure among the adapter's operations, or
// nil when the latest attempt of each succeeded.
func (f *feed) Err() error {
	var (
		latest coordinator.Status
		found  bool
	)
	for _, op := range f.ops {
		st := f.coord.Status(op)
		if st.LastErr == nil || errors.Is(st.LastErr, context.Canceled) {
			continue
		}
		if !found || st.UpdatedAt.After(latest.UpdatedAt) {
			latest, found = st, true
		}
	}
	if !found {
		return nil
	}
	return latest.LastErr
}

// Close detaches the adapter. It is safe to call more than once.
func (f *feed) Close() {
	f.closeOnce.Do(func() {
		f.closed.Store(true)
		for _, stop := range f.stops {
			stop()
		}
	})
}

func (f *feed) store() *cache.Store { return f.coord.Cache() }

func (f *feed) currentUser() (ledger.User, bool) {
	id := f.coord.CurrentUserID()
	if id == 0 {
		return ledger.User{}, false
	}
	return cache.Load[ledger.User](f.store(), cache.Users, id)
}

// loadIDs returns the cached entities for ids in order, skipping ids that
// are no longer cached.
func loadIDs[T any](s *cache.Store, kind cache.Kind, ids []int64) []T {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if v, ok := cache.Load[T](s, kind, id); ok {
			out = append(out, v)
		}
	}
	return out
}

// Credits formats a credit amount with one decimal place.
func Credits(d decimal.Decimal) string {
	return d.StringFixed(1)
}

// Inflow reports whether a transaction type adds credits to the balance.
func Inflow(t ledger.TransactionType) bool {
	switch t {
	case ledger.TxEarned, ledger.TxInitial, ledger.TxBonus, ledger.TxRefund:
		return true
	default:
		return false
	}
}
