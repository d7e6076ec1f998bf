// Package limiters provides the cooldowns and attempt windows used by the
// activation and OTP flows.
//
// # Limiters
//
//   - [Cooldown]: one action per key per period (resend activation, OTP send).
//   - [Window]: fixed-window attempt budget (OTP verify).
//
// All limiters are nil-safe: calling any method on a nil receiver admits the action.
//
// Each limiter owns one cache key prefix. Flow functions decide what a
// rejection means for the caller.
package limiters
