// Package ledger provides an HTTP client for the time bank REST API.
//
// # Overview
//
// The client wraps the backend's /api/v1 endpoints (auth, user, sessions,
// video, admin) with typed request and response structs. Every response
// arrives in the same envelope:
//
//	{"success": true, "message": "...", "data": {...}, "error": "..."}
//
// and the client unwraps data into the caller's type.
//
// # Architecture
//
//   - client.go: request plumbing, envelope decoding, retry, token checks
//   - endpoints.go: one method per backend endpoint, plus the API interface
//   - types.go: payload structs and the Doc wrapper
//   - errors.go: the error taxonomy
//   - token.go: unverified JWT claim extraction
//
// # Client Usage
//
//	client, err := ledger.NewClient(cfg.APIURL,
//		ledger.WithTokenSource(store),
//		ledger.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	profile, err := client.FetchProfile(ctx)
//
// The generic helpers Get, Post and Put are exported for endpoints without a
// dedicated method.
//
// # Error Handling
//
// Failures are classified into four types:
//
//   - *AuthError: HTTP 401, or a missing or expired token detected locally
//     before any request is sent
//   - *NetworkError: dial, timeout, reset or body read failures
//   - *ValidationError: other 4xx responses and envelopes with success=false;
//     field errors from the "errors" object are kept in Fields
//   - *ServerError: 5xx responses and payloads that do not decode
//
// Use errors.As or the IsAuth/IsNetwork/IsValidation/IsServer helpers.
//
// # Retries
//
// GET requests that fail with a NetworkError are retried after 100ms and
// again after 400ms. POST and PUT are never retried because the server may
// already have applied them. Context cancellation stops the retry loop.
//
// # Partial Documents
//
// Entity payloads are decoded into Doc[T], which keeps the raw JSON object
// next to the typed value. The cache uses the raw form to merge only the
// fields a response actually carried, so a partial payload never zeroes a
// cached field.
//
// # Request Tracing
//
// Each request carries a fresh X-Request-ID header. The id is copied into
// every error and debug log line for correlation with backend logs.
//
// # Thread Safety
//
// Client is safe for concurrent use. The TokenSource must be as well.
package ledger
