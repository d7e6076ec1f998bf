// Package security summarizes the security posture of a built engine
// configuration. The report is logged by jobauthd at startup and served by
// the healthcheck command.
package security
