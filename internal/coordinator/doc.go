// Package coordinator sequences every backend call that moves credits or
// changes a session's status, and applies the results to the cache.
//
// # Overview
//
// Views never talk to the ledger API directly. They call a Coordinator
// operation, which fetches what it needs, validates it, and writes the
// result into the cache in one Apply. Subscribers of the cache therefore see
// an operation either fully applied or not at all.
//
// # Operations
//
//	RefreshUserContext  profile + stats + newest transactions, reconciled
//	CompleteSession     POST completion, then transactions + profile
//	RefreshSessions     upcoming sessions + pending requests
//	RefreshSession      one session
//	LoadTransactions    one page of history
//	RefreshSkills       the user's skills
//	UpdateProfile, UpdateAvatar, ChangePassword
//	Login, Logout
//	StartVideo, EndVideo, RefreshVideo
//
// Concurrent calls with the same key (operation plus its arguments) share one
// execution. The shared work is detached from the callers' contexts; a caller
// that cancels stops waiting without aborting the call for the others.
//
// # Credit Consistency
//
// Every fetched session is checked against its cached copy with
// credit.CheckTransition. A session whose credit state would move backwards
// is not written and the failure is returned as
// *credit.InvalidTransitionError.
//
// After a user refresh the profile's credit_balance is compared with the
// newest transaction's balance_after. On mismatch the transactions are
// fetched once more; a mismatch that survives is logged and posted as a
// notice, and views fall back to credit_balance.
//
// # Error Routing
//
// Errors are returned to the caller and also routed by class:
//
//	*ledger.AuthError           stored token cleared, "auth" notice
//	*ledger.NetworkError        "network" notice, dismissed by the next success
//	*ledger.ValidationError     logged only; the caller shows it inline
//	*ledger.ServerError         "server" notice
//	*credit.ConsistencyError    logged with before/after, "consistency" notice
//
// # Status
//
// Status reports whether an operation is in flight and its last error.
// OnStatus listeners run whenever an operation starts or settles, after the
// coordinator's own state has been updated.
package coordinator
