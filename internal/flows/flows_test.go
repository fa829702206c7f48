package flows

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/credauth/internal/rate"
	"github.com/MrEthical07/credauth/session"
)

var (
	errNotReady      = errors.New("not ready")
	errInvalid       = errors.New("invalid credentials")
	errLimited       = errors.New("limited")
	errNotFound      = errors.New("not found")
	errUnavailable   = errors.New("unavailable")
	errNoRedirect    = errors.New("no redirect")
	errResolverInfra = errors.New("resolver down")
)

type loginRecorder struct {
	verified [][]byte
	failures int
	issued   int
}

func newLoginDeps(rec *loginRecorder) LoginDeps {
	return LoginDeps{
		DummyHash: []byte("dummy"),
		FindUser: func(_ context.Context, name string) (LoginUser, error) {
			if name != "alice" {
				return LoginUser{}, errNotFound
			}
			return LoginUser{ID: "u1", Username: "alice", PasswordHash: []byte("real")}, nil
		},
		VerifyPassword: func(_ context.Context, hash []byte, pw string) (bool, error) {
			rec.verified = append(rec.verified, hash)
			return string(hash) == "real" && pw == "Secret1", nil
		},
		IssueSession: func(_ context.Context, subject string, persistent bool) (IssuedSession, error) {
			rec.issued++
			return IssuedSession{Token: "tok", Session: session.Session{ID: "sid", Subject: subject, Persistent: persistent}}, nil
		},
		MetricInc: func(id int) {
			if id == 2 {
				rec.failures++
			}
		},
		Metrics: LoginMetrics{LoginSuccess: 1, LoginFailure: 2, LoginRateLimited: 3},
		Errors: LoginErrors{
			EngineNotReady:     errNotReady,
			InvalidCredentials: errInvalid,
			LoginRateLimited:   errLimited,
			UserNotFound:       errNotFound,
			StoreUnavailable:   errUnavailable,
		},
	}
}

func TestRunLoginSuccess(t *testing.T) {
	rec := &loginRecorder{}
	issued, err := RunLogin(context.Background(), "alice", "Secret1", true, newLoginDeps(rec))
	if err != nil {
		t.Fatalf("RunLogin: %v", err)
	}
	if issued.Session.Subject != "u1" || !issued.Session.Persistent || rec.issued != 1 {
		t.Fatalf("unexpected session %+v (issued %d)", issued, rec.issued)
	}
}

func TestRunLoginRejectionsLookAlike(t *testing.T) {
	rec := &loginRecorder{}
	deps := newLoginDeps(rec)

	_, errUnknown := RunLogin(context.Background(), "mallory", "Secret1", false, deps)
	_, errWrong := RunLogin(context.Background(), "alice", "wrong", false, deps)

	if errUnknown != errInvalid || errWrong != errInvalid {
		t.Fatalf("expected identical sentinel, got %v / %v", errUnknown, errWrong)
	}
	if len(rec.verified) != 2 || string(rec.verified[0]) != "dummy" {
		t.Fatalf("unknown user must verify against the dummy hash, got %q", rec.verified)
	}
	if rec.failures != 2 || rec.issued != 0 {
		t.Fatalf("failures=%d issued=%d", rec.failures, rec.issued)
	}
}

func TestRunLoginThrottle(t *testing.T) {
	rec := &loginRecorder{}
	deps := newLoginDeps(rec)
	deps.CheckLoginRate = func(context.Context, string, string) error { return rate.ErrRateLimited }

	if _, err := RunLogin(context.Background(), "alice", "Secret1", false, deps); err != errLimited {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if len(rec.verified) != 0 {
		t.Fatal("throttled login must not verify a hash")
	}

	deps.CheckLoginRate = func(context.Context, string, string) error { return errors.New("redis down") }
	if _, err := RunLogin(context.Background(), "alice", "Secret1", false, deps); !errors.Is(err, errUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
}

func TestRunLoginStoreFailurePropagates(t *testing.T) {
	rec := &loginRecorder{}
	deps := newLoginDeps(rec)
	deps.FindUser = func(context.Context, string) (LoginUser, error) { return LoginUser{}, errUnavailable }

	if _, err := RunLogin(context.Background(), "alice", "Secret1", false, deps); err != errUnavailable {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestRunLoginNotReady(t *testing.T) {
	deps := newLoginDeps(&loginRecorder{})
	deps.DummyHash = nil
	if _, err := RunLogin(context.Background(), "alice", "Secret1", false, deps); err != errNotReady {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func newLogoutDeps(order *[]string, resolve func(context.Context, string) (LogoutContext, error)) LogoutDeps {
	return LogoutDeps{
		DefaultRedirect: "/",
		SignOut: func(context.Context, string) (string, error) {
			*order = append(*order, "signout")
			return "sid", nil
		},
		Resolve: func(ctx context.Context, id string) (LogoutContext, error) {
			*order = append(*order, "resolve")
			return resolve(ctx, id)
		},
		Errors: LogoutErrors{EngineNotReady: errNotReady, NoRedirect: errNoRedirect},
	}
}

func TestRunLogout(t *testing.T) {
	tests := []struct {
		name     string
		logoutID string
		resolve  func(context.Context, string) (LogoutContext, error)
		want     LogoutResult
		wantErr  error
		calls    int
	}{
		{
			name:     "resolved redirect",
			logoutID: "L1",
			resolve: func(context.Context, string) (LogoutContext, error) {
				return LogoutContext{PostLogoutRedirectURI: "https://client/bye", ClientID: "c"}, nil
			},
			want:  LogoutResult{RedirectURI: "https://client/bye", ClientID: "c", SessionID: "sid"},
			calls: 2,
		},
		{
			name:     "unknown id falls back",
			logoutID: "L2",
			resolve: func(context.Context, string) (LogoutContext, error) {
				return LogoutContext{}, errNoRedirect
			},
			want:  LogoutResult{RedirectURI: "/", SessionID: "sid", Fallback: true},
			calls: 2,
		},
		{
			name:     "empty redirect falls back",
			logoutID: "L3",
			resolve: func(context.Context, string) (LogoutContext, error) {
				return LogoutContext{ClientID: "c"}, nil
			},
			want:  LogoutResult{RedirectURI: "/", SessionID: "sid", Fallback: true},
			calls: 2,
		},
		{
			name:    "no id skips resolver",
			resolve: nil,
			want:    LogoutResult{RedirectURI: "/", SessionID: "sid", Fallback: true},
			calls:   1,
		},
		{
			name:     "resolver failure after sign-out",
			logoutID: "L4",
			resolve: func(context.Context, string) (LogoutContext, error) {
				return LogoutContext{}, errResolverInfra
			},
			want:    LogoutResult{SessionID: "sid"},
			wantErr: errResolverInfra,
			calls:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var order []string
			got, err := RunLogout(context.Background(), "tok", tt.logoutID, newLogoutDeps(&order, tt.resolve))
			if !errors.Is(err, tt.wantErr) || (tt.wantErr == nil && err != nil) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("result = %+v, want %+v", got, tt.want)
			}
			if len(order) != tt.calls || order[0] != "signout" {
				t.Fatalf("call order %v", order)
			}
		})
	}
}
