package credauth

import (
	"context"
	"time"

	"github.com/MrEthical07/credauth/internal/flows"
	"github.com/MrEthical07/credauth/session"
)

// ClaimName is the claim type carrying a user's display name.
const ClaimName = "name"

// Claim is a typed attribute attached to a user identity and consumed by
// token issuance.
type Claim struct {
	Type  string
	Value string
}

// UserRecord is a registered identity. Username is the normalized
// (trimmed, lower-cased) form and is unique across the store.
// DisplayUsername keeps the spelling the user registered with.
type UserRecord struct {
	ID              string
	Username        string
	DisplayUsername string
	PasswordHash    []byte
	Claims          []Claim
	CreatedAt       time.Time
}

// ClaimValue returns the value of the first claim of type typ.
func (u UserRecord) ClaimValue(typ string) (string, bool) {
	for _, c := range u.Claims {
		if c.Type == typ {
			return c.Value, true
		}
	}
	return "", false
}

// RegisterRequest is the input for [Engine.Register]. FullName becomes the
// [ClaimName] claim and may be empty.
type RegisterRequest struct {
	Username string
	Password string
	FullName string
}

// RegisterResult is returned by [Engine.RegisterAndSignIn].
type RegisterResult struct {
	User    UserRecord
	Session IssuedSession
}

// Session is the server-side record of an authenticated principal. Its ID
// is the fingerprint of the bearer token, never the token itself.
type Session = session.Session

// IssuedSession pairs a new [Session] with the bearer token that identifies
// it. The token is only ever available here.
type IssuedSession = flows.IssuedSession

// LogoutContext is the protocol layer's record of a pending logout.
type LogoutContext = flows.LogoutContext

// LogoutResult is returned by [Engine.Logout]. Fallback is set when the
// redirect is [LogoutConfig.DefaultRedirect] because no context resolved.
type LogoutResult = flows.LogoutResult

// CredentialStore persists user records. Implementations must make Insert
// atomic: of two concurrent inserts with the same normalized username,
// exactly one succeeds and the other returns ErrDuplicateUsername.
// Infrastructure failures wrap ErrStoreUnavailable.
type CredentialStore interface {
	// FindByUsername looks up a normalized username, case-insensitively.
	FindByUsername(ctx context.Context, username string) (UserRecord, error)
	FindByID(ctx context.Context, id string) (UserRecord, error)
	// Insert writes rec and rec.Claims in one atomic step.
	Insert(ctx context.Context, rec UserRecord) error
	AddClaim(ctx context.Context, id string, claim Claim) error
	UpdatePasswordHash(ctx context.Context, id string, hash []byte) error
}

// LogoutContextResolver is the protocol layer's view of pending logouts.
// Unknown ids must yield ErrNoRedirect.
type LogoutContextResolver interface {
	GetLogoutContext(ctx context.Context, logoutID string) (LogoutContext, error)
}

// LogoutContextResolverFunc adapts a function to [LogoutContextResolver].
type LogoutContextResolverFunc func(ctx context.Context, logoutID string) (LogoutContext, error)

func (f LogoutContextResolverFunc) GetLogoutContext(ctx context.Context, logoutID string) (LogoutContext, error) {
	return f(ctx, logoutID)
}
