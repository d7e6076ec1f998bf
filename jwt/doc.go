// Package jwt issues and verifies jobAuth access and refresh tokens.
//
// Both token types are compact JWS with sub, jti, iat, exp, iss and aud claims.
// Access tokens additionally carry roles. The typ claim keeps a refresh token
// from being accepted where an access token is expected and vice versa.
//
// Revocation is not a property of the token: callers look up [Fingerprint] in
// an external registry.
package jwt
