package flows

import "context"

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Register RegisterDeps
	Login    LoginDeps
	Session  SessionDeps
	Logout   LogoutDeps
}

// AuditFunc emits one audit event. meta is evaluated only when auditing is on.
type AuditFunc func(ctx context.Context, event string, success bool, userID, username, sessionID string, err error, meta func() map[string]string)

func noopAudit(context.Context, string, bool, string, string, string, error, func() map[string]string) {
}

func noopMetric(int) {}
