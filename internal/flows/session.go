package flows

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MrEthical07/credauth/session"
)

// IssuedSession is a freshly created session together with the bearer token
// that identifies it. The token is returned once and never stored.
type IssuedSession struct {
	Token   string
	Session session.Session
}

// SessionStore is the session table the flows read and write.
type SessionStore interface {
	Save(ctx context.Context, sess *session.Session) error
	Get(ctx context.Context, sessionID string) (*session.Session, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteAllForSubject(ctx context.Context, subject string) (int, error)
	ActiveSessionIDs(ctx context.Context, subject string) ([]string, error)
}

type SessionMetrics struct {
	SessionCreated     int
	SessionInvalidated int
	Logout             int
	LogoutAll          int
}

type SessionEvents struct {
	SessionIssued string
	Logout        string
	LogoutAll     string
}

type SessionErrors struct {
	EngineNotReady        error
	SessionCreationFailed error
	SessionExpired        error
	StoreUnavailable      error
}

// SessionDeps captures session issuance, validation and revocation dependencies.
type SessionDeps struct {
	ShortLived time.Duration
	LongLived  time.Duration

	Now              func() time.Time
	NewToken         func() (string, error)
	FingerprintToken func(string) string
	ValidTokenShape  func(string) bool

	Store SessionStore

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics SessionMetrics
	Events  SessionEvents
	Errors  SessionErrors
}

func (d *SessionDeps) defaults() bool {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.MetricInc == nil {
		d.MetricInc = noopMetric
	}
	if d.EmitAudit == nil {
		d.EmitAudit = noopAudit
	}
	if d.Warn == nil {
		d.Warn = func(string, ...any) {}
	}
	return d.Store != nil && d.NewToken != nil && d.FingerprintToken != nil
}

// RunIssueSession creates a new session for subject. Every call yields a
// distinct session; existing sessions of subject are untouched.
func RunIssueSession(ctx context.Context, subject string, persistent bool, deps SessionDeps) (IssuedSession, error) {
	if !deps.defaults() {
		return IssuedSession{}, deps.Errors.EngineNotReady
	}
	if subject == "" {
		return IssuedSession{}, deps.Errors.SessionCreationFailed
	}

	token, err := deps.NewToken()
	if err != nil {
		return IssuedSession{}, fmt.Errorf("%w: %v", deps.Errors.SessionCreationFailed, err)
	}

	lifetime := deps.ShortLived
	if persistent {
		lifetime = deps.LongLived
	}

	now := deps.Now()
	sess := session.Session{
		ID:         deps.FingerprintToken(token),
		Subject:    subject,
		IssuedAt:   now,
		ExpiresAt:  now.Add(lifetime),
		Persistent: persistent,
	}

	if err := deps.Store.Save(ctx, &sess); err != nil {
		if errors.Is(err, session.ErrRedisUnavailable) {
			return IssuedSession{}, fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
		}
		return IssuedSession{}, fmt.Errorf("%w: %v", deps.Errors.SessionCreationFailed, err)
	}

	deps.MetricInc(deps.Metrics.SessionCreated)
	deps.EmitAudit(ctx, deps.Events.SessionIssued, true, subject, "", sess.ID, nil, func() map[string]string {
		if persistent {
			return map[string]string{"persistent": "true"}
		}
		return nil
	})

	return IssuedSession{Token: token, Session: sess}, nil
}

// RunValidateSession resolves token to its live session. Unknown, revoked and
// expired sessions are all reported as SessionExpired.
func RunValidateSession(ctx context.Context, token string, deps SessionDeps) (session.Session, error) {
	if !deps.defaults() {
		return session.Session{}, deps.Errors.EngineNotReady
	}
	if token == "" || (deps.ValidTokenShape != nil && !deps.ValidTokenShape(token)) {
		return session.Session{}, deps.Errors.SessionExpired
	}

	sess, err := deps.Store.Get(ctx, deps.FingerprintToken(token))
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired):
			return session.Session{}, deps.Errors.SessionExpired
		case errors.Is(err, session.ErrCorrupt):
			deps.Warn("discarding unreadable session", "error", err)
			return session.Session{}, deps.Errors.SessionExpired
		default:
			return session.Session{}, fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
		}
	}

	if sess.ExpiredAt(deps.Now()) {
		return session.Session{}, deps.Errors.SessionExpired
	}

	return *sess, nil
}

// RunSignOut revokes the session behind token. Revoking an unknown or already
// revoked session succeeds.
func RunSignOut(ctx context.Context, token string, deps SessionDeps) (string, error) {
	if !deps.defaults() {
		return "", deps.Errors.EngineNotReady
	}
	if token == "" {
		return "", nil
	}

	sessionID := deps.FingerprintToken(token)
	if err := deps.Store.Delete(ctx, sessionID); err != nil {
		return sessionID, fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, "", "", sessionID, nil, nil)
	return sessionID, nil
}

// RunSignOutAll revokes every session of subject and returns how many were live.
func RunSignOutAll(ctx context.Context, subject string, deps SessionDeps) (int, error) {
	if !deps.defaults() {
		return 0, deps.Errors.EngineNotReady
	}

	n, err := deps.Store.DeleteAllForSubject(ctx, subject)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
	}

	deps.MetricInc(deps.Metrics.LogoutAll)
	for i := 0; i < n; i++ {
		deps.MetricInc(deps.Metrics.SessionInvalidated)
	}
	deps.EmitAudit(ctx, deps.Events.LogoutAll, true, subject, "", "", nil, func() map[string]string {
		return map[string]string{"sessions": fmt.Sprint(n)}
	})
	return n, nil
}

// RunListSessions returns the live sessions of subject, oldest first.
// Indexed sessions that have expired or cannot be read are skipped.
func RunListSessions(ctx context.Context, subject string, deps SessionDeps) ([]session.Session, error) {
	if !deps.defaults() {
		return nil, deps.Errors.EngineNotReady
	}

	ids, err := deps.Store.ActiveSessionIDs(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
	}

	now := deps.Now()
	out := make([]session.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := deps.Store.Get(ctx, id)
		if err != nil {
			switch {
			case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired):
				continue
			case errors.Is(err, session.ErrCorrupt):
				deps.Warn("skipping unreadable session", "error", err)
				continue
			default:
				return nil, fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
			}
		}
		if sess.ExpiredAt(now) {
			continue
		}
		out = append(out, *sess)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].IssuedAt.Before(out[j].IssuedAt)
	})
	return out, nil
}
