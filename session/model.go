package session

import "time"

// Session is the server-side record of an authenticated principal. ID is the
// SHA-256 hex digest of the opaque token handed to the client; the token
// itself is never stored.
type Session struct {
	ID         string
	Subject    string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Persistent bool
}

// ExpiredAt reports whether the session is expired at t. A session is expired
// at its expiry instant and afterwards, never before.
func (s *Session) ExpiredAt(t time.Time) bool {
	return !t.Before(s.ExpiresAt)
}
