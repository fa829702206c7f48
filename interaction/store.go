package interaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/credauth"
	"github.com/MrEthical07/credauth/internal"
	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when Redis cannot be reached. It matches
// credauth.ErrStoreUnavailable.
var ErrUnavailable = fmt.Errorf("interaction %w", credauth.ErrStoreUnavailable)

// LogoutRequest is what the protocol layer knows when a client asks to end
// a session.
type LogoutRequest struct {
	PostLogoutRedirectURI string `json:"post_logout_redirect_uri"`
	ClientID              string `json:"client_id"`
	Subject               string `json:"subject"`
}

// Store keeps pending logout requests in Redis under
// <prefix>:logout:<id> for ttl. Each id resolves at most once.
type Store struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewStore returns a Store. An empty prefix defaults to "cs" and a
// non-positive ttl to ten minutes.
func NewStore(client redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "cs"
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{redis: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(logoutID string) string {
	return s.prefix + ":logout:" + logoutID
}

// Issue records req and returns the id the client is redirected with.
func (s *Store) Issue(ctx context.Context, req LogoutRequest) (string, error) {
	id, err := internal.NewLogoutID()
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(credauth.LogoutContext{
		LogoutID:              id,
		PostLogoutRedirectURI: req.PostLogoutRedirectURI,
		ClientID:              req.ClientID,
		Subject:               req.Subject,
	})
	if err != nil {
		return "", err
	}

	if err := s.redis.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return id, nil
}

// GetLogoutContext consumes the pending request for logoutID. Unknown,
// expired and already consumed ids return credauth.ErrNoRedirect.
func (s *Store) GetLogoutContext(ctx context.Context, logoutID string) (credauth.LogoutContext, error) {
	if logoutID == "" {
		return credauth.LogoutContext{}, credauth.ErrNoRedirect
	}

	data, err := s.redis.GetDel(ctx, s.key(logoutID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return credauth.LogoutContext{}, credauth.ErrNoRedirect
		}
		return credauth.LogoutContext{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var lc credauth.LogoutContext
	if err := json.Unmarshal(data, &lc); err != nil {
		return credauth.LogoutContext{}, fmt.Errorf("%w: corrupt logout context: %v", credauth.ErrNoRedirect, err)
	}
	lc.LogoutID = logoutID
	return lc, nil
}
