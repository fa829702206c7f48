package middleware

import (
	"net/http"

	"github.com/MrEthical07/credauth"
)

// SetSessionCookie writes the session token. Persistent sessions get an
// expiry; others last until the browser closes.
func SetSessionCookie(w http.ResponseWriter, r *http.Request, cookieName string, issued credauth.IssuedSession) {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	c := &http.Cookie{
		Name:     cookieName,
		Value:    issued.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
	if issued.Session.Persistent {
		c.Expires = issued.Session.ExpiresAt
	}
	http.SetCookie(w, c)
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter, r *http.Request, cookieName string) {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
