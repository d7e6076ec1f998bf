package middleware

import (
	"net/http"
	"time"

	jobAuth "github.com/MrEthical07/jobAuth"
)

// SetSessionCookies writes the access and refresh cookies for sess. An empty
// refresh token leaves the refresh cookie untouched.
func SetSessionCookies(w http.ResponseWriter, cfg jobAuth.SessionConfig, sess *jobAuth.Session) {
	if sess == nil {
		return
	}
	http.SetCookie(w, sessionCookie(cfg, cfg.AccessCookieName, sess.AccessToken, sess.AccessExpiresAt))
	if sess.RefreshToken != "" {
		http.SetCookie(w, sessionCookie(cfg, cfg.RefreshCookieName, sess.RefreshToken, sess.RefreshExpiresAt))
	}
}

// ClearSessionCookies expires both session cookies.
func ClearSessionCookies(w http.ResponseWriter, cfg jobAuth.SessionConfig) {
	for _, name := range []string{cfg.AccessCookieName, cfg.RefreshCookieName} {
		c := sessionCookie(cfg, name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

// RefreshToken reads the refresh cookie.
func RefreshToken(r *http.Request, cfg jobAuth.SessionConfig) (string, bool) {
	c, err := r.Cookie(cfg.RefreshCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// sessionCookie sets both Expires and Max-Age from expires. A zero expires
// yields a browser-session cookie.
func sessionCookie(cfg jobAuth.SessionConfig, name, value string, expires time.Time) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     cfg.CookiePath,
		Domain:   cfg.CookieDomain,
		Expires:  expires,
		Secure:   cfg.CookieSecure,
		HttpOnly: true,
		SameSite: cfg.CookieSameSite,
	}
	if !expires.IsZero() {
		c.MaxAge = maxAge(time.Until(expires))
	}
	return c
}

// maxAge converts a lifetime to whole seconds; a spent lifetime deletes the
// cookie.
func maxAge(d time.Duration) int {
	secs := int(d.Round(time.Second) / time.Second)
	if secs <= 0 {
		return -1
	}
	return secs
}
