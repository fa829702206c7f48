package flows

import (
	"context"

	"github.com/MrEthical07/credauth/session"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Session.Store != nil && s.deps.Login.FindUser != nil
}

func (s Service) Register(ctx context.Context, req RegisterRequest) (RegisterRecord, error) {
	return RunRegister(ctx, req, s.deps.Register)
}

func (s Service) Login(ctx context.Context, username, password string, persistent bool) (IssuedSession, error) {
	return RunLogin(ctx, username, password, persistent, s.deps.Login)
}

func (s Service) IssueSession(ctx context.Context, subject string, persistent bool) (IssuedSession, error) {
	return RunIssueSession(ctx, subject, persistent, s.deps.Session)
}

func (s Service) ValidateSession(ctx context.Context, token string) (session.Session, error) {
	return RunValidateSession(ctx, token, s.deps.Session)
}

func (s Service) SignOut(ctx context.Context, token string) (string, error) {
	return RunSignOut(ctx, token, s.deps.Session)
}

func (s Service) SignOutAll(ctx context.Context, subject string) (int, error) {
	return RunSignOutAll(ctx, subject, s.deps.Session)
}

func (s Service) ListSessions(ctx context.Context, subject string) ([]session.Session, error) {
	return RunListSessions(ctx, subject, s.deps.Session)
}

func (s Service) ResolveLogoutContext(ctx context.Context, logoutID string) (LogoutContext, error) {
	return RunResolveLogoutContext(ctx, logoutID, s.deps.Logout)
}

func (s Service) Logout(ctx context.Context, token, logoutID string) (LogoutResult, error) {
	return RunLogout(ctx, token, logoutID, s.deps.Logout)
}
