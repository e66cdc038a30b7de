package views

import (
	"github.com/shopspring/decimal"

	"github.com/five82/timebank/internal/cache"
	"github.com/five82/timebank/internal/coordinator"
	"github.com/five82/timebank/internal/ledger"
)

// Balance is the credit balance shown to the user.
type Balance struct {
	Amount decimal.Decimal
	// Confirmed is true when the balance matched the newest ledger entry at
	// the last refresh.
	Confirmed bool
}

// Dashboard is the landing view: balance, stats, sessions and recent activity.
type Dashboard struct {
	*feed
}

// NewDashboard subscribes a dashboard adapter. onChange may be nil.
func NewDashboard(c *coordinator.Coordinator, onChange func()) *Dashboard {
	return &Dashboard{feed: newFeed(c,
		[]cache.Kind{cache.Users, cache.Sessions, cache.Transactions},
		[]coordinator.Op{coordinator.OpVerifySession, coordinator.OpRefreshUser, coordinator.OpRefreshSessions, coordinator.OpCompleteSession},
		onChange,
	)}
}

// User returns the logged-in user.
func (d *Dashboard) User() (ledger.User, bool) { return d.currentUser() }

// Balance returns the balance to display. The newest transaction's
// balance_after is used while it agrees with the profile; otherwise the
// profile's credit_balance is shown unconfirmed.
func (d *Dashboard) Balance() Balance {
	user, ok := d.currentUser()
	if !ok {
		return Balance{}
	}
	check, ok := d.coord.BalanceCheck()
	if ok && check.UserID == user.ID && check.OK() && check.HasLedger && check.Balance.Equal(user.CreditBalance) {
		return Balance{Amount: check.LedgerBalance, Confirmed: true}
	}
	return Balance{Amount: user.CreditBalance}
}

// Stats returns the user's aggregate counters.
func (d *Dashboard) Stats() (ledger.UserStats, bool) { return d.coord.Stats() }

// Upcoming returns the upcoming sessions in server order.
func (d *Dashboard) Upcoming() []ledger.Session {
	return loadIDs[ledger.Session](d.store(), cache.Sessions, d.coord.UpcomingSessionIDs())
}

// Pending returns the session requests awaiting approval.
func (d *Dashboard) Pending() []ledger.Session {
	return loadIDs[ledger.Session](d.store(), cache.Sessions, d.coord.PendingRequestIDs())
}

// Recent returns the newest transactions, newest first.
func (d *Dashboard) Recent() []ledger.Transaction {
	return loadIDs[ledger.Transaction](d.store(), cache.Transactions, d.coord.RecentTransactionIDs())
}
