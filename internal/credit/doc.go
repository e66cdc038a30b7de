// Package credit models the credit side of a session's lifecycle and checks
// ledger consistency.
//
// A session moves through the states
//
//	booked -> held -> completed
//	              \-> refunded
//	booked -> void
//
// where held covers approved, in_progress and disputed sessions with
// credit_held set. Any other transition, such as a pending session observed
// as completed, is an *InvalidTransitionError.
//
// Reconcile compares a user's credit_balance with the balance_after of their
// most recent transaction and verifies that the transaction chain links up.
package credit
