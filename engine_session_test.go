package credauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func registerAlice(t *testing.T, te *testEngine) UserRecord {
	t.Helper()
	user, err := te.Register(context.Background(), RegisterRequest{Username: "alice", Password: "Secret1", FullName: "Alice A"})
	if err != nil {
		t.Fatalf("Register alice: %v", err)
	}
	return user
}

func TestAliceRegisterThenDuplicateLeavesStoreUnchanged(t *testing.T) {
	te := buildTestEngine(t, testConfig())
	ctx := context.Background()

	user := registerAlice(t, te)
	if name, _ := user.ClaimValue(ClaimName); name != "Alice A" {
		t.Fatalf("expected name claim Alice A, got %q", name)
	}

	_, err := te.Register(ctx, RegisterRequest{Username: "alice", Password: "Other2", FullName: "X"})
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	stored, err := te.store.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if stored.ID != user.ID || len(stored.Claims) != 1 || stored.Claims[0].Value != "Alice A" {
		t.Fatalf("store changed by duplicate registration: %+v", stored)
	}
	if _, err := te.Authenticate(ctx, "alice", "Other2", false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("duplicate password must not be usable, got %v", err)
	}
}

func TestAliceAuthenticate(t *testing.T) {
	te := buildTestEngine(t, testConfig())
	ctx := context.Background()
	user := registerAlice(t, te)

	issued, err := te.Authenticate(ctx, "alice", "Secret1", false)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if issued.Token == "" || issued.Session.Subject != user.ID {
		t.Fatalf("unexpected session %+v", issued.Session)
	}
	if issued.Session.ID == issued.Token {
		t.Fatal("session id must not be the bearer token")
	}

	if _, err := te.Authenticate(ctx, "alice", "wrong", false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateIsCaseInsensitiveOnUsername(t *testing.T) {
	te := buildTestEngine(t, testConfig())
	registerAlice(t, te)

	if _, err := te.Authenticate(context.Background(), " ALICE ", "Secret1", false); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
}

func TestAuthenticateUnknownUserMatchesWrongPassword(t *testing.T) {
	te := buildTestEngine(t, testConfig())
	ctx := context.Background()
	registerAlice(t, te)

	_, wrongPassword := te.Authenticate(ctx, "alice", "Wrong99", false)
	_, unknownUser := te.Authenticate(ctx, "mallory", "Wrong99", false)

	if wrongPassword == nil || unknownUser == nil {
		t.Fatal("expected both attempts to fail")
	}
	if wrongPassword != unknownUser {
		t.Fatalf("errors differ: %v vs %v", wrongPassword, unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Fatalf("messages differ: %q vs %q", wrongPassword.Error(), unknownUser.Error())
	}

	// Both paths run exactly one hash verification.
	snap := te.MetricsSnapshot()
	var observed uint64
	for _, n := range snap.Histograms[MetricHashLatency] {
		observed += n
	}
	if observed != 3 {
		t.Fatalf("expected 1 hash + 2 verifications, got %d observations", observed)
	}
}

func TestAuthenticateEmptyCredentials(t *testing.T) {
	te := buildTestEngine(t, testConfig())
	registerAlice(t, te)

	for _, tc := range [][2]string{{"", "Secret1"}, {"alice", ""}} {
		if _, err := te.Authenticate(context.Background(), tc[0], tc[1], false); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%q/%q: expected ErrInvalidCredentials, got %v", tc[0], tc[1], err)
		}
	}
}

func TestSessionLifetimeFollowsPersistentFlag(t *testing.T) {
	cfg := testConfig()
	te := buildTestEngine(t, cfg)
	registerAlice(t, te)

	short, err := te.Authenticate(context.Background(), "alice", "Secret1", false)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	long, err := te.Authenticate(context.Background(), "alice", "Secret1", true)
	if err != nil {
		t.Fatalf("Authenticate persistent: %v", err)
	}

	now := te.clock.Now()
	if !short.Session.ExpiresAt.Equal(now.Add(cfg.Session.ShortLived)) {
		t.Fatalf("short session expires %v", short.Session.ExpiresAt)
	}
	if !long.Session.ExpiresAt.Equal(now.Add(cfg.Session.LongLived)) || !long.Session.Persistent {
		t.Fatalf("persistent session %+v", long.Session)
	}
	if short.Session.ID == long.Session.ID {
		t.Fatal("each sign-in must create a distinct session")
	}
}

func TestSessionExpiryBoundary(t *testing.T) {
	cfg := testConfig()
	te := buildTestEngine(t, cfg)
	registerAlice(t, te)
	ctx := context.Background()

	issued, err := te.Authenticate(ctx, "alice", "Secret1", false)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	te.clock.Set(issued.Session.ExpiresAt.Add(-time.Nanosecond))
	if _, err := te.ValidateSession(ctx, issued.Token); err != nil {
		t.Fatalf("session must be live before its expiry: %v", err)
	}

	te.clock.Set(issued.Session.ExpiresAt)
	if _, err := te.ValidateSession(ctx, issued.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired at the boundary, got %v", err)
	}

	te.clock.Advance(time.Hour)
	if _, err := te.ValidateSession(ctx, issued.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired after the boundary, got %v", err)
	}
}

func TestSignOutThenValidateFails(t *testing.T) {
	te := buildTestEngine(t, testConfig())
	registerAlice(t, te)
	ctx := context.Background()

	issued, err := te.Authenticate(ctx, "alice", "Secret1", true)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := te.SignOut(ctx, issued.Token); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, err := te.ValidateSession(ctx, issued.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if err := te.SignOut(ctx, issued.Token); err != nil {
		t.Fatalf("second SignOut must succeed, got %v", err)
	}
}

func TestValidateSessionRejectsGarbage(t *testing.T) {
	te := buildTestEngine(t, testConfig())

	for _, tok := range []string{"", "nope", "aGVsbG8"} {
		if _, err := te.ValidateSession(context.Background(), tok); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("token %q: expected ErrSessionExpired, got %v", tok, err)
		}
	}
}

func TestSignInIssuesFreshSessionEachCall(t *testing.T) {
	te := buildTestEngine(t, testConfig())
	user := registerAlice(t, te)
	ctx := context.Background()

	a, err := te.SignIn(ctx, user, false)
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	b, err := te.SignIn(ctx, user, false)
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if a.Token == b.Token || a.Session.ID == b.Session.ID {
		t.Fatal("expected distinct sessions")
	}
	if _, err := te.SignIn(ctx, UserRecord{}, false); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSignOutAllRevokesEverySession(t *testing.T) {
	te := buildTestEngine(t, testConfig())
	user := registerAlice(t, te)
	ctx := context.Background()

	var tokens []string
	for i := 0; i < 3; i++ {
		issued, err := te.SignIn(ctx, user, i%2 == 0)
		if err != nil {
			t.Fatalf("SignIn: %v", err)
		}
		tokens = append(tokens, issued.Token)
	}

	n, err := te.SignOutAll(ctx, user.ID)
	if err != nil {
		t.Fatalf("SignOutAll: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 revoked sessions, got %d", n)
	}
	for _, tok := range tokens {
		if _, err := te.ValidateSession(ctx, tok); !errors.Is(err, ErrSessionExpired) {
			t.Fatalf("expected revoked session, got %v", err)
		}
	}
}

func TestListSessionsReturnsOnlyLiveSessions(t *testing.T) {
	cfg := testConfig()
	te := buildTestEngine(t, cfg)
	user := registerAlice(t, te)
	ctx := context.Background()

	short, err := te.SignIn(ctx, user, false)
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	te.clock.Advance(time.Second)
	long, err := te.SignIn(ctx, user, true)
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	te.clock.Advance(time.Second)
	revoked, err := te.SignIn(ctx, user, true)
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if err := te.SignOut(ctx, revoked.Token); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	sessions, err := te.ListSessions(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != short.Session.ID || sessions[1].ID != long.Session.ID {
		t.Fatalf("expected short then long session, got %+v", sessions)
	}

	te.clock.Set(short.Session.ExpiresAt)
	sessions, err = te.ListSessions(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != long.Session.ID || !sessions[0].Persistent {
		t.Fatalf("expected only the persistent session, got %+v", sessions)
	}

	if sessions, err := te.ListSessions(ctx, "nobody"); err != nil || len(sessions) != 0 {
		t.Fatalf("expected no sessions for unknown subject, got %v (%v)", sessions, err)
	}
	if _, err := te.ListSessions(ctx, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDefaultConfigDoesNotLockOutAfterForeignFailures(t *testing.T) {
	te := buildTestEngine(t, testConfig())
	registerAlice(t, te)
	ctx := context.Background()

	for i := 0; i < 2*DefaultConfig().Security.MaxLoginAttempts; i++ {
		if _, err := te.Authenticate(ctx, "alice", "guess", false); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	if _, err := te.Authenticate(ctx, "alice", "Secret1", false); err != nil {
		t.Fatalf("expected the owner to sign in after failures by others, got %v", err)
	}
}

func TestLoginThrottleBlocksAfterMaxAttempts(t *testing.T) {
	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = true
	cfg.Security.MaxLoginAttempts = 3
	te := buildTestEngine(t, cfg)
	registerAlice(t, te)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := te.Authenticate(ctx, "alice", "bad", false); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	if _, err := te.Authenticate(ctx, "alice", "Secret1", false); !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("expected ErrLoginRateLimited, got %v", err)
	}

	te.mr.FastForward(cfg.Security.LoginCooldownDuration + time.Second)
	if _, err := te.Authenticate(ctx, "alice", "Secret1", false); err != nil {
		t.Fatalf("expected login after cooldown, got %v", err)
	}
}

func TestLoginSuccessResetsThrottle(t *testing.T) {
	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = true
	cfg.Security.MaxLoginAttempts = 2
	te := buildTestEngine(t, cfg)
	registerAlice(t, te)
	ctx := context.Background()

	_, _ = te.Authenticate(ctx, "alice", "bad", false)
	if _, err := te.Authenticate(ctx, "alice", "Secret1", false); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	_, _ = te.Authenticate(ctx, "alice", "bad", false)
	if _, err := te.Authenticate(ctx, "alice", "Secret1", false); err != nil {
		t.Fatalf("expected throttle reset by success, got %v", err)
	}
}

func TestAuthenticateRehashesWeakerHash(t *testing.T) {
	cfg := testConfig()
	te := buildTestEngine(t, cfg)
	user := registerAlice(t, te)
	ctx := context.Background()

	stronger := cfg
	stronger.Password.Time = 2
	upgraded := buildTestEngine(t, stronger)
	if err := upgraded.store.Insert(ctx, user); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if _, err := upgraded.Authenticate(ctx, "alice", "Secret1", false); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	stored, err := upgraded.store.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if string(stored.PasswordHash) == string(user.PasswordHash) {
		t.Fatal("expected hash to be upgraded")
	}
	if got := upgraded.MetricsSnapshot().Counters[MetricPasswordRehashed]; got != 1 {
		t.Fatalf("expected rehash metric 1, got %d", got)
	}
	if _, err := upgraded.Authenticate(ctx, "alice", "Secret1", false); err != nil {
		t.Fatalf("Authenticate with upgraded hash: %v", err)
	}
}

func TestRedisOutageSurfacesStoreUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = false
	te := buildTestEngine(t, cfg)
	user := registerAlice(t, te)

	te.mr.Close()

	if _, err := te.SignIn(context.Background(), user, false); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestZeroEngineNotReady(t *testing.T) {
	var e Engine
	if _, err := e.Authenticate(context.Background(), "a", "b", false); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.Register(context.Background(), RegisterRequest{}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}
