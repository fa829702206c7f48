// Package credauth is a credential authority: it registers users with
// salted argon2id password hashes, verifies credentials, issues and revokes
// Redis-backed sessions and coordinates logout with an external
// OAuth/OpenID Connect protocol layer.
//
// Engine methods are safe to call from multiple goroutines once
// [Builder.Build] has returned.
//
// # Architecture boundaries
//
// credauth is the public surface. It exposes [Engine], [Builder], [Config]
// and value types ([UserRecord], [Session], [LogoutResult]). Flow
// orchestration, throttling, the hashing pool and audit dispatch live under
// internal/ and are never exported. User records are reached through the
// [CredentialStore] interface; the protocol layer through
// [LogoutContextResolver].
//
// # Errors
//
// Failed logins always return [ErrInvalidCredentials], whether or not the
// username exists, and cost one password verification either way. Unknown,
// revoked and expired sessions all return [ErrSessionExpired]. Rejected
// registrations return a *[ValidationError].
//
// # What this package must NOT do
//
//   - Log or store plaintext passwords or bearer tokens.
//   - Expose Redis clients or session encoding in its public API.
//   - Import any sub-package that re-imports credauth.
package credauth
