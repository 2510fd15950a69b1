// Package tokens persists the browser's credentials as cookies. The access
// and refresh tokens are the only client state the gateway keeps; absence of
// the auth cookie means the request is unauthenticated.
package tokens

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	AuthCookie    = "auth-token"
	RefreshCookie = "refresh-token"
)

const (
	rememberTTL = 30 * 24 * time.Hour
	// Refresh tokens outlive the browser session even without remember-me.
	// Asymmetric with the access token's session-scoped default on purpose.
	refreshDefaultTTL = 7 * 24 * time.Hour
)

// Set persists the access token. With rememberMe the cookie lives 30 days,
// otherwise it is session-scoped (no max-age). Secure is only set when the
// request itself arrived over an encrypted transport.
func Set(w http.ResponseWriter, r *http.Request, token string, rememberMe bool) {
	maxAge := 0
	if rememberMe {
		maxAge = int(rememberTTL.Seconds())
	}
	http.SetCookie(w, credentialCookie(AuthCookie, token, maxAge, secureTransport(r)))
}

func SetRefresh(w http.ResponseWriter, r *http.Request, token string, rememberMe bool) {
	ttl := refreshDefaultTTL
	if rememberMe {
		ttl = rememberTTL
	}
	http.SetCookie(w, credentialCookie(RefreshCookie, token, int(ttl.Seconds()), secureTransport(r)))
}

// Get returns the stored access token, or "" when it is absent or carries an
// expired JWT exp claim. Opaque tokens are returned as-is; the upstream
// decides their validity.
func Get(r *http.Request) string {
	cookie, err := r.Cookie(AuthCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	if expired(cookie.Value) {
		return ""
	}
	return cookie.Value
}

func GetRefresh(r *http.Request) string {
	cookie, err := r.Cookie(RefreshCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Clear removes both credentials at the root path. Idempotent.
func Clear(w http.ResponseWriter, r *http.Request) {
	secure := secureTransport(r)
	for _, name := range []string{AuthCookie, RefreshCookie} {
		cookie := credentialCookie(name, "", -1, secure)
		cookie.Expires = time.Now().Add(-1 * time.Hour)
		http.SetCookie(w, cookie)
	}
}

func credentialCookie(name, value string, maxAge int, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

func secureTransport(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
