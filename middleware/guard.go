package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/credauth"
)

// DefaultCookieName is the session cookie used when none is configured.
const DefaultCookieName = "credauth_session"

type sessionContextKey struct{}

// SessionFromContext returns the session stored by [RequireSession].
func SessionFromContext(ctx context.Context) (credauth.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(credauth.Session)
	return sess, ok
}

// ClientContext attaches the remote IP and User-Agent to the request
// context.
func ClientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithRequestContext(r)))
	})
}

// WithRequestContext returns r's context carrying the client IP and
// User-Agent.
func WithRequestContext(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ctx := credauth.WithClientIP(r.Context(), host)
	return credauth.WithUserAgent(ctx, r.UserAgent())
}

// RequireSession rejects requests without a live session. An empty
// cookieName means [DefaultCookieName].
func RequireSession(engine *credauth.Engine, cookieName string) func(http.Handler) http.Handler {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := TokenFromRequest(r, cookieName)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			sess, err := engine.ValidateSession(r.Context(), token)
			if err != nil {
				if StatusFor(err) == http.StatusServiceUnavailable {
					http.Error(w, "unavailable", http.StatusServiceUnavailable)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromRequest returns the session token from the named cookie, or
// failing that from an Authorization bearer header.
func TokenFromRequest(r *http.Request, cookieName string) (string, bool) {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	return bearerToken(r.Header.Get("Authorization"))
}

// StatusFor maps an engine error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, credauth.ErrInvalidInput),
		errors.Is(err, credauth.ErrInvalidUsername),
		errors.Is(err, credauth.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, credauth.ErrDuplicateUsername):
		return http.StatusConflict
	case errors.Is(err, credauth.ErrLoginRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, credauth.ErrStoreUnavailable),
		errors.Is(err, credauth.ErrEngineNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnauthorized
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
