// Package stores provides cache-backed, short-lived record stores for the
// security-sensitive flows: the token revocation registry, email ownership
// proofs and OTP challenges.
//
// # Design
//
// Proof and OTP records are versioned, binary-encoded and stored with a TTL.
// Only secret hashes are persisted; comparisons are constant time. Records
// are single use: redemption goes through cache.Store.TakeAll, so two
// concurrent redemptions cannot both succeed.
//
// This package does not generate secrets, enforce rate limits or make
// authentication decisions; those belong to internal/flows.
package stores
