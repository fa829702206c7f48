package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

const (
	sessionTokenSize = 32
	logoutIDSize     = 16
)

// NewSessionToken returns a fresh bearer token for a session. Only its
// fingerprint is ever stored.
func NewSessionToken() (string, error) {
	return randomString(sessionTokenSize)
}

// NewLogoutID returns an opaque identifier for a pending logout request.
func NewLogoutID() (string, error) {
	return randomString(logoutIDSize)
}

// FingerprintToken maps a bearer token to the session ID it is stored under.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidTokenShape reports whether token could have been produced by
// [NewSessionToken].
func ValidTokenShape(token string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	return err == nil && len(raw) == sessionTokenSize
}

func randomString(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := base64.RawURLEncoding.EncodeToString(buf)
	if out == "" {
		return "", errors.New("empty random string")
	}
	return out, nil
}
