package credauth

import (
	"context"
	"errors"
)

// ResolveLogoutContext asks the protocol layer what it recorded for
// logoutID. An empty or unknown id, or a context without a redirect URI,
// returns ErrNoRedirect. Resolver infrastructure failures are returned as is.
func (e *Engine) ResolveLogoutContext(ctx context.Context, logoutID string) (LogoutContext, error) {
	if !e.ready() {
		return LogoutContext{}, ErrEngineNotReady
	}
	lc, err := e.flowService.ResolveLogoutContext(ctx, logoutID)
	if err != nil {
		if !errors.Is(err, ErrNoRedirect) {
			e.logger.ErrorContext(ctx, "resolve logout context failed", "error", err)
		}
		return LogoutContext{}, err
	}
	return lc, nil
}

// Logout revokes the session behind token and then resolves where to send
// the user. The session is revoked before the redirect is looked up, so a
// resolver failure never leaves the user signed in. When there is no
// redirect the result points at [LogoutConfig.DefaultRedirect] with
// Fallback set.
func (e *Engine) Logout(ctx context.Context, token, logoutID string) (LogoutResult, error) {
	if !e.ready() {
		return LogoutResult{}, ErrEngineNotReady
	}
	res, err := e.flowService.Logout(ctx, token, logoutID)
	if err != nil {
		e.logger.ErrorContext(ctx, "logout failed", "session_id", res.SessionID, "error", err)
		return res, err
	}
	return res, nil
}

// SafeRedirect returns returnURL when it is a path on this host and the
// default redirect otherwise. Use it before redirecting to a caller-supplied
// return URL.
func (e *Engine) SafeRedirect(returnURL string) string {
	if isLocalPath(returnURL) {
		return returnURL
	}
	if e == nil {
		return "/"
	}
	return e.config.Logout.DefaultRedirect
}
