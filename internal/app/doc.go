// Package app is the composition root of the timebank client.
//
// # Overview
//
// Open wires configuration, logging, persisted state, the API client and the
// coordinator. Run adds the background poller and starts the TUI; the
// one-shot commands in cmd/timebank use Open directly.
//
//	┌──────────────┐
//	│   Open()     │
//	└──────┬───────┘
//	       ├─────> config.Load()        TOML file, .env, TIMEBANK_* env
//	       ├─────> logging.New()        JSON log file, Rollbar when configured
//	       ├─────> localstate.Open()    token, last-known profile, theme
//	       ├─────> ledger.NewClient()   HTTP client reading the stored token
//	       ├─────> coordinator.New()    cache, notices, Jitsi conference
//	       └─────> restore()            seed cache and current user
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> StartPoller()        RefreshUserContext + RefreshSessions
//	       └─────> ui.Run()             Bubble Tea program (blocks)
//
// # Polling Behavior
//
// The poller refreshes the user context and the session lists immediately and
// then every PollInterval (default 15 seconds). Consecutive failures double
// the wait up to 30 seconds; one success resets it. Polling pauses while no
// token is stored, so a logged-out client makes no requests.
//
// # Error Handling
//
// Fatal errors are returned from Open: unreadable configuration, an unusable
// log or state path, and an invalid API URL. Everything after startup is
// recoverable; the coordinator routes failures to notices and the log.
//
// # Restore
//
// The stored profile seeds the cache so the dashboard renders immediately.
// The stored token's claims name the current user; an expired token is
// cleared at startup instead of being sent.
package app
