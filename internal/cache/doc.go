// Package cache holds the normalized entity store every view reads from.
//
// Entities are stored as JSON objects keyed by (Kind, id). Writes merge field
// by field, so a partial response (for example a session embedded in a
// listing without its teacher) never erases fields learned earlier, and a null
// field never clears a cached value. Later writes win per field.
//
// Apply commits a batch of documents under one lock acquisition. Readers see
// either none or all of the batch, and each subscriber is called once per
// batch. Subscribers run outside the lock in subscription order, and
// notifications for different commits are delivered in commit order.
//
// Typed access goes through the generic Load and LoadAll helpers:
//
//	user, ok := cache.Load[ledger.User](store, cache.Users, 42)
//	sessions := cache.LoadAll[ledger.Session](store, cache.Sessions)
package cache
