package password

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func fastConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newFastHasher(t *testing.T) *Argon2 {
	t.Helper()

	hasher, err := NewArgon2(fastConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	return hasher
}

func TestHashAndVerify(t *testing.T) {
	hasher := newFastHasher(t)

	hash, err := hasher.Hash("Secret1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if !bytes.HasPrefix(hash, []byte("$argon2id$v=19$m=8192,t=1,p=1$")) {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := hasher.Verify(hash, "Secret1")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected password verification to succeed")
	}
}

func TestVerifyRoundTripManyPasswords(t *testing.T) {
	hasher := newFastHasher(t)

	passwords := []string{"a", "Bob123", "pässwörd", strings.Repeat("x", 200), " spaced out "}
	for _, pw := range passwords {
		hash, err := hasher.Hash(pw)
		if err != nil {
			t.Fatalf("Hash(%q) error: %v", pw, err)
		}
		ok, err := hasher.Verify(hash, pw)
		if err != nil || !ok {
			t.Fatalf("Verify(%q) = %v, %v; want true", pw, ok, err)
		}
		ok, err = hasher.Verify(hash, pw+"!")
		if err != nil || ok {
			t.Fatalf("Verify(%q+!) = %v, %v; want false", pw, ok, err)
		}
	}
}

func TestHashSaltsEachCall(t *testing.T) {
	hasher := newFastHasher(t)

	first, err := hasher.Hash("same-input")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	second, err := hasher.Hash("same-input")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if bytes.Equal(first, second) {
		t.Fatal("expected distinct salts to produce distinct hashes")
	}
}

func TestNeedsUpgrade(t *testing.T) {
	oldHasher := newFastHasher(t)

	hash, err := oldHasher.Hash("test-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	stronger := fastConfig()
	stronger.Time = 2
	newHasher, err := NewArgon2(stronger)
	if err != nil {
		t.Fatalf("NewArgon2(new) error: %v", err)
	}

	needsUpgrade, err := newHasher.NeedsUpgrade(hash)
	if err != nil {
		t.Fatalf("NeedsUpgrade error: %v", err)
	}
	if !needsUpgrade {
		t.Fatal("expected NeedsUpgrade to return true for weaker hash parameters")
	}

	same, err := oldHasher.NeedsUpgrade(hash)
	if err != nil {
		t.Fatalf("NeedsUpgrade error: %v", err)
	}
	if same {
		t.Fatal("expected NeedsUpgrade to return false for current parameters")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher := newFastHasher(t)

	cases := map[string][]byte{
		"not phc":       []byte("not-a-phc-hash"),
		"empty":         nil,
		"wrong algo":    []byte("$bcrypt$v=19$m=8192,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"),
		"short key":     []byte("$argon2id$v=19$m=8192,t=1,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAA"),
		"short salt":    []byte("$argon2id$v=19$m=8192,t=1,p=1$AAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"),
		"missing param": []byte("$argon2id$v=19$m=8192,t=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"),
	}

	for name, hash := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := hasher.Verify(hash, "password")
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestVerifyWrongVersion(t *testing.T) {
	hasher := newFastHasher(t)

	hash, err := hasher.Hash("version-test")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	wrongVersion := bytes.Replace(hash, []byte("$v=19$"), []byte("$v=18$"), 1)
	if _, err := hasher.Verify(wrongVersion, "version-test"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEmptyPasswordRejected(t *testing.T) {
	hasher := newFastHasher(t)

	if _, err := hasher.Hash(""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput from Hash, got %v", err)
	}

	hash, err := hasher.Hash("non-empty")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if _, err := hasher.Verify(hash, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput from Verify, got %v", err)
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	cfg := fastConfig()
	cfg.SaltLength = 8
	if _, err := NewArgon2(cfg); err == nil {
		t.Fatal("expected short salt config to be rejected")
	}

	cfg = fastConfig()
	cfg.Memory = 1024
	if _, err := NewArgon2(cfg); err == nil {
		t.Fatal("expected low memory config to be rejected")
	}
}
