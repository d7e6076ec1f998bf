// Package flows contains one orchestrator per Engine operation.
//
// Each Run function (RunLogin, RunRefresh, RunRegister, etc.) takes the shared
// [Deps] built once by the root Engine. Root sentinels and metric IDs travel
// in Deps so this package never imports jobAuth.
//
// # Architecture boundaries
//
// Flows coordinate the account store, token manager, brute-force guard,
// cache-backed stores, mailer and identity verifier. They do NOT own any of
// these resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import jobAuth (to avoid import cycles).
//   - Log secrets: raw tokens, codes and passwords never reach the logger.
package flows
