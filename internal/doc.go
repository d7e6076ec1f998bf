// Package internal contains helpers private to jobAuth: secure random tokens,
// token hashing and email normalization.
//
// # Sub-packages
//
//   - audit: async dispatcher and JSON writer sink
//   - flows: one canonical state machine per Engine operation
//   - limiters: attempt windows and cooldowns
//   - rate: brute-force guard (fixed-window login counter)
//   - stores: revocation registry, ownership proofs, OTP challenges
//   - config, logger, observability, handler, app: the jobauthd service
package internal
