package credauth

import (
	"errors"
	"strings"
)

var (
	// ErrDuplicateUsername is returned when the normalized username is already registered.
	ErrDuplicateUsername = errors.New("username already registered")
	// ErrWeakPassword is returned when a password fails the configured policy.
	ErrWeakPassword = errors.New("password does not meet policy")
	// ErrInvalidUsername is returned when a username is empty, too long, or has disallowed characters.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidCredentials is the single answer for every failed password login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionExpired is returned for unknown, revoked, and expired sessions alike.
	ErrSessionExpired = errors.New("session expired")
	// ErrNoRedirect signals that a logout has no usable post-logout redirect.
	ErrNoRedirect = errors.New("no post-logout redirect")
	// ErrStoreUnavailable wraps credential store and session table infrastructure failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidInput is returned for malformed arguments such as an empty password or corrupt hash.
	ErrInvalidInput = errors.New("invalid input")
	// ErrLoginRateLimited is returned while a username or client IP is throttled.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrUserNotFound is returned by a [CredentialStore] when no record matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrEngineNotReady is returned when an Engine was not produced by [Builder.Build].
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrSessionCreationFailed is returned when a session could not be minted or saved.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrIdentityTokenDisabled is returned by [Engine.IssueIdentityToken] when no signing key is configured.
	ErrIdentityTokenDisabled = errors.New("identity tokens disabled")
)

// ValidationKind classifies a user-correctable registration failure.
type ValidationKind uint8

const (
	// DuplicateUsername means the username is taken.
	DuplicateUsername ValidationKind = iota + 1
	// WeakPassword means the password failed the policy.
	WeakPassword
	// InvalidUsername means the username has an unacceptable shape.
	InvalidUsername
)

func (k ValidationKind) String() string {
	switch k {
	case DuplicateUsername:
		return "duplicate_username"
	case WeakPassword:
		return "weak_password"
	case InvalidUsername:
		return "invalid_username"
	default:
		return "unknown"
	}
}

// ValidationError is the structured result of a rejected registration. It is
// meant to be shown to the user next to the form field it concerns.
//
// errors.Is matches it against the sentinel of its kind:
//
//	var verr *credauth.ValidationError
//	if errors.As(err, &verr) && verr.Kind == credauth.WeakPassword { ... }
//	if errors.Is(err, credauth.ErrDuplicateUsername) { ... }
type ValidationError struct {
	Kind       ValidationKind
	Username   string
	Violations []string
}

func (e *ValidationError) Error() string {
	msg := e.Unwrap().Error()
	if len(e.Violations) > 0 {
		msg += ": " + strings.Join(e.Violations, "; ")
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	switch e.Kind {
	case DuplicateUsername:
		return ErrDuplicateUsername
	case WeakPassword:
		return ErrWeakPassword
	case InvalidUsername:
		return ErrInvalidUsername
	default:
		return ErrInvalidInput
	}
}
