package credauth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRegisterStoresNormalizedUserWithNameClaim(t *testing.T) {
	te := buildTestEngine(t, testConfig())
	ctx := context.Background()

	user, err := te.Register(ctx, RegisterRequest{Username: "  Alice ", Password: "Alice123", FullName: "Alice Smith"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected generated user id")
	}
	if user.Username != "alice" || user.DisplayUsername != "Alice" {
		t.Fatalf("unexpected usernames %q / %q", user.Username, user.DisplayUsername)
	}
	if name, ok := user.ClaimValue(ClaimName); !ok || name != "Alice Smith" {
		t.Fatalf("expected name claim, got %q %v", name, ok)
	}
	if string(user.PasswordHash) == "Alice123" || len(user.PasswordHash) == 0 {
		t.Fatal("expected a password hash, not the plaintext")
	}

	stored, err := te.store.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if stored.ID != user.ID || len(stored.Claims) != 1 {
		t.Fatalf("stored record mismatch: %+v", stored)
	}

	claims, err := te.Claims(ctx, user.ID)
	if err != nil {
		t.Fatalf("Claims: %v", err)
	}
	if len(claims) != 1 || claims[0].Type != ClaimName {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestRegisterWithoutFullNameHasNoClaims(t *testing.T) {
	te := buildTestEngine(t, testConfig())

	user, err := te.Register(context.Background(), RegisterRequest{Username: "bob", Password: "Bob123"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(user.Claims) != 0 {
		t.Fatalf("expected no claims, got %+v", user.Claims)
	}
}

func TestRegisterDuplicateIsCaseInsensitive(t *testing.T) {
	te := buildTestEngine(t, testConfig())
	ctx := context.Background()

	if _, err := te.Register(ctx, RegisterRequest{Username: "alice", Password: "Alice123"}); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	_, err := te.Register(ctx, RegisterRequest{Username: "ALICE", Password: "Other456"})
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Kind != DuplicateUsername {
		t.Fatalf("expected DuplicateUsername ValidationError, got %#v", err)
	}
	if te.store.Len() != 1 {
		t.Fatalf("expected one stored user, got %d", te.store.Len())
	}
	if got := te.MetricsSnapshot().Counters[MetricRegisterDuplicate]; got != 1 {
		t.Fatalf("expected duplicate metric 1, got %d", got)
	}
}

func TestRegisterConcurrentSameUsernameExactlyOneWins(t *testing.T) {
	te := buildTestEngine(t, testConfig())

	const attempts = 8
	var (
		wg         sync.WaitGroup
		successes  atomic.Int32
		duplicates atomic.Int32
		start      = make(chan struct{})
	)
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := te.Register(context.Background(), RegisterRequest{Username: "carol", Password: "Carol123"})
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrDuplicateUsername):
				duplicates.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if successes.Load() != 1 || duplicates.Load() != attempts-1 {
		t.Fatalf("expected 1 success and %d duplicates, got %d / %d", attempts-1, successes.Load(), duplicates.Load())
	}
	if te.store.Len() != 1 {
		t.Fatalf("expected one stored user, got %d", te.store.Len())
	}
}

func TestRegisterWeakPasswordListsViolations(t *testing.T) {
	te := buildTestEngine(t, testConfig())

	_, err := te.Register(context.Background(), RegisterRequest{Username: "dave", Password: "abc"})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Kind != WeakPassword || len(verr.Violations) == 0 {
		t.Fatalf("expected violations, got %+v", verr)
	}
	if te.store.Len() != 0 {
		t.Fatal("nothing may be persisted for a rejected registration")
	}
}

func TestRegisterInvalidUsername(t *testing.T) {
	te := buildTestEngine(t, testConfig())

	for _, name := range []string{"", "   ", "has space", "semi;colon", string(make([]byte, 65))} {
		_, err := te.Register(context.Background(), RegisterRequest{Username: name, Password: "Valid123"})
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Kind != InvalidUsername {
			t.Fatalf("username %q: expected InvalidUsername, got %v", name, err)
		}
	}
}

func TestRegisterAndSignInIssuesShortLivedSession(t *testing.T) {
	cfg := testConfig()
	te := buildTestEngine(t, cfg)
	ctx := context.Background()

	res, err := te.RegisterAndSignIn(ctx, RegisterRequest{Username: "erin", Password: "Erin1234", FullName: "Erin"})
	if err != nil {
		t.Fatalf("RegisterAndSignIn: %v", err)
	}
	if res.Session.Token == "" {
		t.Fatal("expected bearer token")
	}
	if res.Session.Session.Persistent {
		t.Fatal("expected non-persistent session")
	}
	if got := res.Session.Session.ExpiresAt.Sub(res.Session.Session.IssuedAt); got != cfg.Session.ShortLived {
		t.Fatalf("expected lifetime %v, got %v", cfg.Session.ShortLived, got)
	}

	sess, err := te.ValidateSession(ctx, res.Session.Token)
	if err != nil {
		t.Fatalf("ValidateSession: %v", err)
	}
	if sess.Subject != res.User.ID {
		t.Fatalf("session subject %q, want %q", sess.Subject, res.User.ID)
	}
}

func TestAddClaim(t *testing.T) {
	te := buildTestEngine(t, testConfig())
	ctx := context.Background()

	user, err := te.Register(ctx, RegisterRequest{Username: "frank", Password: "Frank123"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := te.AddClaim(ctx, user.ID, Claim{Type: "role", Value: "admin"}); err != nil {
		t.Fatalf("AddClaim: %v", err)
	}
	claims, err := te.Claims(ctx, user.ID)
	if err != nil {
		t.Fatalf("Claims: %v", err)
	}
	if len(claims) != 1 || claims[0].Value != "admin" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if err := te.AddClaim(ctx, "missing", Claim{Type: "role", Value: "x"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := te.AddClaim(ctx, user.ID, Claim{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Alice", "alice", true},
		{"  bob@example.com ", "bob@example.com", true},
		{"a.b_c-d+e", "a.b_c-d+e", true},
		{"", "", false},
		{"ünïcode", "", false},
		{"two words", "", false},
	}
	for _, tt := range tests {
		got, err := NormalizeUsername(tt.in)
		if tt.ok && (err != nil || got != tt.want) {
			t.Fatalf("NormalizeUsername(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidUsername) {
			t.Fatalf("NormalizeUsername(%q) expected ErrInvalidUsername, got %v", tt.in, err)
		}
	}
}
