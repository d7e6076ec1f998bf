// Package jobAuth is the authentication and session core of the applicant
// platform: registration with email activation, password login behind a
// brute-force guard, stateless JWT sessions with a revocation registry,
// password reset, Google SSO with account linking, OTP-guarded email changes
// and verification of access tokens on behalf of other backend services.
//
// Build an [Engine] with [New]:
//
//	engine, err := jobAuth.New().
//		WithConfig(cfg).
//		WithCache(cache.NewRedisStore(rdb)).
//		WithAccountStore(accounts).
//		WithMailer(mail).
//		WithIdentityVerifier(google).
//		Build()
//
// Engine methods are safe for concurrent use. All shared state lives in the
// [cache.Store] and the [AccountStore]; the engine keeps nothing per request.
//
// Every engine method delegates to one flow in internal/flows. Errors are the
// sentinels in errors.go, matched with errors.Is; rate limit errors also
// carry a retry hint via [RetryAfter].
package jobAuth
