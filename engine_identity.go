package credauth

import "context"

// IssueIdentityToken validates the session behind token and signs an
// identity token for its subject. The token carries the session id and the
// user's display name and expires no later than the session.
func (e *Engine) IssueIdentityToken(ctx context.Context, token string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	if e.jwtManager == nil {
		return "", ErrIdentityTokenDisabled
	}

	sess, err := e.ValidateSession(ctx, token)
	if err != nil {
		return "", err
	}
	user, err := e.findByID(ctx, sess.Subject)
	if err != nil {
		return "", err
	}
	name, _ := user.ClaimValue(ClaimName)

	signed, err := e.jwtManager.CreateIdentity(sess.Subject, sess.ID, name, sess.ExpiresAt)
	if err != nil {
		e.logger.ErrorContext(ctx, "identity token signing failed", "session_id", sess.ID, "error", err)
		return "", err
	}
	return signed, nil
}
