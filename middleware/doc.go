// Package middleware exposes HTTP adapters that authenticate requests with a
// jobAuth.Engine and manage the session cookies.
//
// # Guards
//
//   - [Guard]: full verification (signature, expiry, revocation registry).
//     The access token is read from the Authorization header or the access
//     cookie.
//   - [RequireServiceToken]: signature and expiry only, for inter-service
//     calls that must not depend on the cache.
//   - [RequireRole]: rejects principals that carry none of the listed roles.
//     Mount it behind [Guard].
//
// # Cookies
//
// [SetSessionCookies] and [ClearSessionCookies] apply the cookie policy from
// jobAuth.SessionConfig. Both cookies are HttpOnly.
//
// This package translates HTTP semantics into Engine calls. It never parses
// tokens or touches the cache itself.
package middleware
