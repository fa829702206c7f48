package credauth

import (
	"context"
	"errors"

	"github.com/MrEthical07/credauth/internal/flows"
	"github.com/MrEthical07/credauth/password"
)

// Register creates a user. Username is normalized before the uniqueness
// check; FullName, when set, is stored as the [ClaimName] claim in the same
// atomic insert. User-correctable rejections are returned as
// *[ValidationError]; nothing is persisted on any failure.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (UserRecord, error) {
	if !e.ready() {
		return UserRecord{}, ErrEngineNotReady
	}

	rec, err := e.flowService.Register(ctx, flows.RegisterRequest{
		Username: req.Username,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		err = registrationError(req.Username, err)
		e.logFailure(ctx, "register", err)
		return UserRecord{}, err
	}
	return userRecordFromRegister(rec), nil
}

// RegisterAndSignIn registers a user and signs them in with a non-persistent
// session. When registration succeeds but sign-in fails, the created user
// is returned along with the error.
func (e *Engine) RegisterAndSignIn(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	user, err := e.Register(ctx, req)
	if err != nil {
		return RegisterResult{}, err
	}
	issued, err := e.SignIn(ctx, user, false)
	if err != nil {
		return RegisterResult{User: user}, err
	}
	return RegisterResult{User: user, Session: issued}, nil
}

// Claims returns the claims of subject for token issuance.
func (e *Engine) Claims(ctx context.Context, subject string) ([]Claim, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	rec, err := e.findByID(ctx, subject)
	if err != nil {
		return nil, err
	}
	out := make([]Claim, len(rec.Claims))
	copy(out, rec.Claims)
	return out, nil
}

// AddClaim attaches claim to the user identified by subject.
func (e *Engine) AddClaim(ctx context.Context, subject string, claim Claim) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if subject == "" || claim.Type == "" {
		return ErrInvalidInput
	}
	if err := e.store.AddClaim(ctx, subject, claim); err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			err = wrapStoreErr(err)
		}
		e.logFailure(ctx, "add claim", err)
		return err
	}
	return nil
}

func (e *Engine) findByID(ctx context.Context, id string) (UserRecord, error) {
	if id == "" {
		return UserRecord{}, ErrUserNotFound
	}
	rec, err := e.store.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			err = wrapStoreErr(err)
		}
		e.logFailure(ctx, "find user", err)
		return UserRecord{}, err
	}
	return rec, nil
}

func registrationError(username string, err error) error {
	switch {
	case errors.Is(err, ErrInvalidUsername):
		return &ValidationError{Kind: InvalidUsername, Username: username}
	case errors.Is(err, ErrDuplicateUsername):
		return &ValidationError{Kind: DuplicateUsername, Username: username}
	case errors.Is(err, ErrWeakPassword):
		verr := &ValidationError{Kind: WeakPassword, Username: username}
		var perr *password.PolicyError
		if errors.As(err, &perr) {
			verr.Violations = append([]string(nil), perr.Violations...)
		}
		return verr
	default:
		return err
	}
}
