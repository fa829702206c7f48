package flows

import (
	"context"
	"errors"
)

// LogoutContext is what the protocol layer recorded for a pending logout.
type LogoutContext struct {
	LogoutID              string `json:"logout_id"`
	PostLogoutRedirectURI string `json:"post_logout_redirect_uri,omitempty"`
	ClientID              string `json:"client_id,omitempty"`
	Subject               string `json:"subject,omitempty"`
}

// LogoutResult tells the caller where to send the user after logout.
// Fallback is set when no usable redirect was found.
type LogoutResult struct {
	RedirectURI string
	ClientID    string
	SessionID   string
	Fallback    bool
}

type LogoutMetrics struct {
	LogoutRedirectFallback int
}

type LogoutEvents struct {
	LogoutRedirectFallback string
}

type LogoutErrors struct {
	EngineNotReady error
	NoRedirect     error
}

// LogoutDeps captures logout coordination dependencies.
type LogoutDeps struct {
	DefaultRedirect string

	SignOut func(context.Context, string) (string, error)
	Resolve func(context.Context, string) (LogoutContext, error)

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics LogoutMetrics
	Events  LogoutEvents
	Errors  LogoutErrors
}

// RunResolveLogoutContext resolves logoutID through the protocol layer.
// Unknown ids and contexts without a redirect URI yield NoRedirect.
func RunResolveLogoutContext(ctx context.Context, logoutID string, deps LogoutDeps) (LogoutContext, error) {
	if logoutID == "" || deps.Resolve == nil {
		return LogoutContext{}, deps.Errors.NoRedirect
	}

	lc, err := deps.Resolve(ctx, logoutID)
	if err != nil {
		if errors.Is(err, deps.Errors.NoRedirect) {
			return LogoutContext{}, deps.Errors.NoRedirect
		}
		return LogoutContext{}, err
	}
	if lc.PostLogoutRedirectURI == "" {
		return LogoutContext{}, deps.Errors.NoRedirect
	}
	if lc.LogoutID == "" {
		lc.LogoutID = logoutID
	}

	return lc, nil
}

// RunLogout revokes the caller's session and only then resolves where to
// redirect. A missing redirect falls back to DefaultRedirect.
func RunLogout(ctx context.Context, token, logoutID string, deps LogoutDeps) (LogoutResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.SignOut == nil {
		return LogoutResult{}, deps.Errors.EngineNotReady
	}

	sessionID, err := deps.SignOut(ctx, token)
	if err != nil {
		return LogoutResult{}, err
	}

	lc, err := RunResolveLogoutContext(ctx, logoutID, deps)
	if err != nil {
		if !errors.Is(err, deps.Errors.NoRedirect) {
			return LogoutResult{SessionID: sessionID}, err
		}
		deps.MetricInc(deps.Metrics.LogoutRedirectFallback)
		deps.EmitAudit(ctx, deps.Events.LogoutRedirectFallback, true, "", "", sessionID, nil, func() map[string]string {
			return map[string]string{"logout_id": logoutID}
		})
		return LogoutResult{
			RedirectURI: deps.DefaultRedirect,
			SessionID:   sessionID,
			Fallback:    true,
		}, nil
	}

	return LogoutResult{
		RedirectURI: lc.PostLogoutRedirectURI,
		ClientID:    lc.ClientID,
		SessionID:   sessionID,
	}, nil
}
