package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/credauth/internal/rate"
)

// LoginUser is the flow-local view of a stored credential.
type LoginUser struct {
	ID           string
	Username     string
	PasswordHash []byte
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginRateLimited int
	PasswordRehashed int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	LoginRateLimited   error
	UserNotFound       error
	StoreUnavailable   error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	UpgradeOnLogin bool
	// DummyHash is verified when the username is unknown so that both
	// rejection paths cost one hash verification.
	DummyHash []byte

	ClientIPFromContext func(context.Context) string
	NormalizeUsername   func(string) string

	CheckLoginRate     func(context.Context, string, string) error
	IncrementLoginRate func(context.Context, string, string) error
	ResetLoginRate     func(context.Context, string) error

	FindUser             func(context.Context, string) (LoginUser, error)
	VerifyPassword       func(context.Context, []byte, string) (bool, error)
	PasswordNeedsUpgrade func([]byte) (bool, error)
	HashPassword         func(context.Context, string) ([]byte, error)
	UpdatePasswordHash   func(context.Context, string, []byte) error

	IssueSession func(context.Context, string, bool) (IssuedSession, error)

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin verifies username and password and, on success, issues a session.
// Unknown usernames and wrong passwords produce the same error.
func RunLogin(ctx context.Context, username, password string, persistent bool, deps LoginDeps) (IssuedSession, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.NormalizeUsername == nil {
		deps.NormalizeUsername = func(s string) string { return s }
	}
	if deps.FindUser == nil ||
		deps.VerifyPassword == nil ||
		deps.IssueSession == nil ||
		len(deps.DummyHash) == 0 {
		return IssuedSession{}, deps.Errors.EngineNotReady
	}

	ip := deps.ClientIPFromContext(ctx)
	username = deps.NormalizeUsername(username)

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, username, ip); err != nil {
			if !errors.Is(err, rate.ErrRateLimited) {
				return IssuedSession{}, fmt.Errorf("%w: %v", deps.Errors.StoreUnavailable, err)
			}
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, "", username, "", deps.Errors.LoginRateLimited, nil)
			return IssuedSession{}, deps.Errors.LoginRateLimited
		}
	}

	fail := func(userID, reason string) (IssuedSession, error) {
		if deps.IncrementLoginRate != nil {
			if err := deps.IncrementLoginRate(ctx, username, ip); err != nil && !errors.Is(err, rate.ErrRateLimited) {
				deps.Warn("login throttle update failed", "error", err)
			}
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, username, "", deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return IssuedSession{}, deps.Errors.InvalidCredentials
	}

	if username == "" || password == "" {
		return fail("", "empty_credentials")
	}

	user, err := deps.FindUser(ctx, username)
	if err != nil {
		if !errors.Is(err, deps.Errors.UserNotFound) {
			return IssuedSession{}, err
		}
		if _, verr := deps.VerifyPassword(ctx, deps.DummyHash, password); isContextErr(verr) {
			return IssuedSession{}, verr
		}
		return fail("", "user_not_found")
	}

	ok, err := deps.VerifyPassword(ctx, user.PasswordHash, password)
	if isContextErr(err) {
		return IssuedSession{}, err
	}
	if err != nil {
		deps.Warn("stored password hash unreadable", "user_id", user.ID, "error", err)
		return fail(user.ID, "hash_unreadable")
	}
	if !ok {
		return fail(user.ID, "password_mismatch")
	}

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, username); err != nil {
			deps.Warn("login throttle reset failed", "error", err)
		}
	}

	if deps.UpgradeOnLogin && deps.PasswordNeedsUpgrade != nil && deps.HashPassword != nil && deps.UpdatePasswordHash != nil {
		if needs, err := deps.PasswordNeedsUpgrade(user.PasswordHash); err == nil && needs {
			// Rehash is best-effort and never blocks a successful login.
			if upgraded, err := deps.HashPassword(ctx, password); err != nil {
				deps.Warn("password rehash failed", "user_id", user.ID, "error", err)
			} else if err := deps.UpdatePasswordHash(ctx, user.ID, upgraded); err != nil {
				deps.Warn("password rehash update failed", "user_id", user.ID, "error", err)
			} else {
				deps.MetricInc(deps.Metrics.PasswordRehashed)
			}
		}
	}

	issued, err := deps.IssueSession(ctx, user.ID, persistent)
	if err != nil {
		return IssuedSession{}, err
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.ID, username, issued.Session.ID, nil, nil)
	return issued, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
