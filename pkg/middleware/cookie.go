package middleware

import (
	"net/http"
	"time"
)

// CookieName is the session cookie carrying the signed token.
const CookieName = "auth-token"

// CookiePolicy controls the security attributes of the session cookie.
// Production tightens Secure and SameSite; development keeps the cookie
// usable over plain HTTP on localhost.
type CookiePolicy struct {
	Secure   bool
	SameSite http.SameSite
}

// ProductionCookiePolicy is used when the server runs in production.
var ProductionCookiePolicy = CookiePolicy{
	Secure:   true,
	SameSite: http.SameSiteStrictMode,
}

// DevelopmentCookiePolicy is used everywhere else.
var DevelopmentCookiePolicy = CookiePolicy{
	Secure:   false,
	SameSite: http.SameSiteLaxMode,
}

// PolicyFor selects the cookie policy for the environment.
func PolicyFor(production bool) CookiePolicy {
	if production {
		return ProductionCookiePolicy
	}
	return DevelopmentCookiePolicy
}

// NewSessionCookie builds the session cookie for a freshly issued token.
// Max-Age tracks the token lifetime so cookie and token expire together.
func NewSessionCookie(token string, ttl time.Duration, policy CookiePolicy) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   policy.Secure,
		SameSite: policy.SameSite,
	}
}

// ClearSessionCookie returns a cookie that deletes the session cookie.
func ClearSessionCookie(policy CookiePolicy) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   policy.Secure,
		SameSite: policy.SameSite,
	}
}

// SessionToken extracts the session token from the request cookie. The
// second return reports presence.
func SessionToken(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
