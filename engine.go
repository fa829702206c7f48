package credauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/credauth/internal"
	internalaudit "github.com/MrEthical07/credauth/internal/audit"
	"github.com/MrEthical07/credauth/internal/flows"
	"github.com/MrEthical07/credauth/internal/hashpool"
	"github.com/MrEthical07/credauth/internal/rate"
	"github.com/MrEthical07/credauth/jwt"
	"github.com/MrEthical07/credauth/password"
	"github.com/MrEthical07/credauth/session"
)

// Engine is the credential authority: it registers users, verifies
// passwords, issues and revokes sessions and coordinates logout.
// All methods are safe for concurrent use.
type Engine struct {
	config       Config
	store        CredentialStore
	resolver     LogoutContextResolver
	sessionStore *session.Store
	rateLimiter  *rate.Limiter
	hasher       *password.Argon2
	policy       password.Policy
	pool         *hashpool.Pool
	dummyHash    []byte
	jwtManager   *jwt.Manager
	audit        *internalaudit.Dispatcher
	metrics      *Metrics
	logger       *slog.Logger
	clock        func() time.Time
	newUserID    func() string
	flowService  flows.Service
}

// Close flushes and stops the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the current metric values together with the audit
// delivery count and the number of callers queued for a hashing slot.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	snap := e.metrics.Snapshot()
	if e.audit != nil {
		snap.AuditDelivered = e.audit.Delivered()
	}
	if e.pool != nil {
		snap.HashWaiting = e.pool.Waiting()
	}
	return snap
}

// Ping checks that the session table is reachable.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.sessionStore == nil {
		return 0, ErrEngineNotReady
	}
	d, err := e.sessionStore.Ping(ctx)
	if err != nil {
		return d, wrapStoreErr(err)
	}
	return d, nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Authenticate verifies username and password and issues a session lasting
// [SessionConfig.LongLived] when persistent, else [SessionConfig.ShortLived].
// A wrong password and an unknown username both return ErrInvalidCredentials.
func (e *Engine) Authenticate(ctx context.Context, username, password string, persistent bool) (IssuedSession, error) {
	if !e.ready() {
		return IssuedSession{}, ErrEngineNotReady
	}
	issued, err := e.flowService.Login(ctx, username, password, persistent)
	if err != nil {
		e.logFailure(ctx, "authenticate", err)
		return IssuedSession{}, err
	}
	return issued, nil
}

// SignIn issues a session for an already-verified user. Each call creates a
// new session.
func (e *Engine) SignIn(ctx context.Context, user UserRecord, persistent bool) (IssuedSession, error) {
	if !e.ready() {
		return IssuedSession{}, ErrEngineNotReady
	}
	if user.ID == "" {
		return IssuedSession{}, ErrInvalidInput
	}
	issued, err := e.flowService.IssueSession(ctx, user.ID, persistent)
	if err != nil {
		e.logFailure(ctx, "sign in", err)
		return IssuedSession{}, err
	}
	return issued, nil
}

// ValidateSession returns the live session behind token. Unknown, revoked and
// expired sessions all return ErrSessionExpired; a session is expired from
// the instant of its ExpiresAt onward.
func (e *Engine) ValidateSession(ctx context.Context, token string) (Session, error) {
	if !e.ready() {
		return Session{}, ErrEngineNotReady
	}
	sess, err := e.flowService.ValidateSession(ctx, token)
	if err != nil {
		e.logFailure(ctx, "validate session", err)
		return Session{}, err
	}
	return sess, nil
}

// SignOut revokes the session behind token. It is idempotent.
func (e *Engine) SignOut(ctx context.Context, token string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if _, err := e.flowService.SignOut(ctx, token); err != nil {
		e.logFailure(ctx, "sign out", err)
		return err
	}
	return nil
}

// SignOutAll revokes every session of subject and returns how many were live.
func (e *Engine) SignOutAll(ctx context.Context, subject string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	if subject == "" {
		return 0, ErrInvalidInput
	}
	n, err := e.flowService.SignOutAll(ctx, subject)
	if err != nil {
		e.logFailure(ctx, "sign out all", err)
		return 0, err
	}
	return n, nil
}

// ListSessions returns the live sessions of subject, oldest first.
func (e *Engine) ListSessions(ctx context.Context, subject string) ([]Session, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if subject == "" {
		return nil, ErrInvalidInput
	}
	sessions, err := e.flowService.ListSessions(ctx, subject)
	if err != nil {
		e.logFailure(ctx, "list sessions", err)
		return nil, err
	}
	return sessions, nil
}

func (e *Engine) ready() bool {
	return e != nil && e.flowService.Initialized()
}

// logFailure records infrastructure failures at Error and everything else,
// which is an expected rejection, at Debug.
func (e *Engine) logFailure(ctx context.Context, op string, err error) {
	if e.logger == nil {
		return
	}
	if errors.Is(err, ErrStoreUnavailable) {
		e.logger.ErrorContext(ctx, op+" failed", "error", err)
		return
	}
	e.logger.DebugContext(ctx, op+" rejected", "error", err)
}

func (e *Engine) hashPassword(ctx context.Context, plaintext string) ([]byte, error) {
	var out []byte
	err := e.pool.Do(ctx, func() error {
		start := time.Now()
		h, err := e.hasher.Hash(plaintext)
		e.metrics.Observe(MetricHashLatency, time.Since(start))
		out = h
		return err
	})
	if errors.Is(err, password.ErrInvalidInput) {
		return nil, ErrInvalidInput
	}
	return out, err
}

func (e *Engine) verifyPassword(ctx context.Context, hash []byte, plaintext string) (bool, error) {
	var ok bool
	err := e.pool.Do(ctx, func() error {
		start := time.Now()
		v, err := e.hasher.Verify(hash, plaintext)
		e.metrics.Observe(MetricHashLatency, time.Since(start))
		ok = v
		return err
	})
	if errors.Is(err, password.ErrInvalidInput) {
		return false, ErrInvalidInput
	}
	return ok, err
}

const maxUsernameLength = 64

// NormalizeUsername trims and lower-cases raw and checks that it is 1..64
// characters of ASCII letters, digits and "-._@+".
func NormalizeUsername(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" || len(name) > maxUsernameLength {
		return "", ErrInvalidUsername
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '-', c == '.', c == '_', c == '@', c == '+':
		default:
			return "", ErrInvalidUsername
		}
	}
	return name, nil
}

func wrapStoreErr(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func (e *Engine) buildFlows() flows.Service {
	warn := func(msg string, args ...any) {
		e.logger.Warn(msg, args...)
	}
	audit := func(ctx context.Context, event string, success bool, userID, username, sessionID string, err error, meta func() map[string]string) {
		e.emitAudit(ctx, event, success, userID, username, sessionID, err, meta)
	}
	metricInc := func(id int) {
		e.metricInc(MetricID(id))
	}

	sessionDeps := flows.SessionDeps{
		ShortLived:       e.config.Session.ShortLived,
		LongLived:        e.config.Session.LongLived,
		Now:              e.clock,
		NewToken:         internal.NewSessionToken,
		FingerprintToken: internal.FingerprintToken,
		ValidTokenShape:  internal.ValidTokenShape,
		Store:            e.sessionStore,
		MetricInc:        metricInc,
		EmitAudit:        audit,
		Warn:             warn,
		Metrics: flows.SessionMetrics{
			SessionCreated:     int(MetricSessionCreated),
			SessionInvalidated: int(MetricSessionInvalidated),
			Logout:             int(MetricLogout),
			LogoutAll:          int(MetricLogoutAll),
		},
		Events: flows.SessionEvents{
			SessionIssued: auditEventSessionIssued,
			Logout:        auditEventLogout,
			LogoutAll:     auditEventLogoutAll,
		},
		Errors: flows.SessionErrors{
			EngineNotReady:        ErrEngineNotReady,
			SessionCreationFailed: ErrSessionCreationFailed,
			SessionExpired:        ErrSessionExpired,
			StoreUnavailable:      ErrStoreUnavailable,
		},
	}

	loginDeps := flows.LoginDeps{
		UpgradeOnLogin:      e.config.Password.UpgradeOnLogin,
		DummyHash:           e.dummyHash,
		ClientIPFromContext: ClientIPFromContext,
		NormalizeUsername: func(s string) string {
			return strings.ToLower(strings.TrimSpace(s))
		},
		FindUser: func(ctx context.Context, username string) (flows.LoginUser, error) {
			rec, err := e.store.FindByUsername(ctx, username)
			if err != nil {
				if errors.Is(err, ErrUserNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return flows.LoginUser{}, err
				}
				return flows.LoginUser{}, wrapStoreErr(err)
			}
			return flows.LoginUser{ID: rec.ID, Username: rec.Username, PasswordHash: rec.PasswordHash}, nil
		},
		VerifyPassword:       e.verifyPassword,
		PasswordNeedsUpgrade: e.hasher.NeedsUpgrade,
		HashPassword:         e.hashPassword,
		UpdatePasswordHash:   e.store.UpdatePasswordHash,
		IssueSession: func(ctx context.Context, subject string, persistent bool) (flows.IssuedSession, error) {
			return flows.RunIssueSession(ctx, subject, persistent, sessionDeps)
		},
		MetricInc: metricInc,
		EmitAudit: audit,
		Warn:      warn,
		Metrics: flows.LoginMetrics{
			LoginSuccess:     int(MetricLoginSuccess),
			LoginFailure:     int(MetricLoginFailure),
			LoginRateLimited: int(MetricLoginRateLimited),
			PasswordRehashed: int(MetricPasswordRehashed),
		},
		Events: flows.LoginEvents{
			LoginSuccess:     auditEventLoginSuccess,
			LoginFailure:     auditEventLoginFailure,
			LoginRateLimited: auditEventLoginRateLimited,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			LoginRateLimited:   ErrLoginRateLimited,
			UserNotFound:       ErrUserNotFound,
			StoreUnavailable:   ErrStoreUnavailable,
		},
	}
	if e.rateLimiter != nil {
		loginDeps.CheckLoginRate = e.rateLimiter.CheckLogin
		loginDeps.IncrementLoginRate = e.rateLimiter.IncrementLogin
		loginDeps.ResetLoginRate = e.rateLimiter.ResetLogin
	}

	registerDeps := flows.RegisterDeps{
		Now:               e.clock,
		NormalizeUsername: NormalizeUsername,
		CheckPassword: func(pw string) error {
			return e.policy.Check(pw)
		},
		HashPassword: e.hashPassword,
		NewUserID:    e.newUserID,
		Insert: func(ctx context.Context, rec flows.RegisterRecord) error {
			err := e.store.Insert(ctx, userRecordFromRegister(rec))
			if err == nil || errors.Is(err, ErrDuplicateUsername) {
				return err
			}
			return wrapStoreErr(err)
		},
		MetricInc: metricInc,
		EmitAudit: audit,
		Metrics: flows.RegisterMetrics{
			RegisterSuccess:   int(MetricRegisterSuccess),
			RegisterDuplicate: int(MetricRegisterDuplicate),
			RegisterFailure:   int(MetricRegisterFailure),
		},
		Events: flows.RegisterEvents{
			RegisterSuccess:   auditEventRegisterSuccess,
			RegisterDuplicate: auditEventRegisterDuplicate,
			RegisterFailure:   auditEventRegisterFailure,
		},
		Errors: flows.RegisterErrors{
			EngineNotReady:    ErrEngineNotReady,
			WeakPassword:      ErrWeakPassword,
			DuplicateUsername: ErrDuplicateUsername,
		},
	}

	logoutDeps := flows.LogoutDeps{
		DefaultRedirect: e.config.Logout.DefaultRedirect,
		SignOut: func(ctx context.Context, token string) (string, error) {
			return flows.RunSignOut(ctx, token, sessionDeps)
		},
		MetricInc: metricInc,
		EmitAudit: audit,
		Metrics: flows.LogoutMetrics{
			LogoutRedirectFallback: int(MetricLogoutRedirectFallback),
		},
		Events: flows.LogoutEvents{
			LogoutRedirectFallback: auditEventLogoutRedirectFallback,
		},
		Errors: flows.LogoutErrors{
			EngineNotReady: ErrEngineNotReady,
			NoRedirect:     ErrNoRedirect,
		},
	}
	if e.resolver != nil {
		logoutDeps.Resolve = e.resolver.GetLogoutContext
	}

	return flows.New(flows.Deps{
		Register: registerDeps,
		Login:    loginDeps,
		Session:  sessionDeps,
		Logout:   logoutDeps,
	})
}

func userRecordFromRegister(rec flows.RegisterRecord) UserRecord {
	u := UserRecord{
		ID:              rec.ID,
		Username:        rec.Username,
		DisplayUsername: rec.DisplayUsername,
		PasswordHash:    rec.PasswordHash,
		CreatedAt:       rec.CreatedAt,
	}
	if rec.FullName != "" {
		u.Claims = []Claim{{Type: ClaimName, Value: rec.FullName}}
	}
	return u
}
