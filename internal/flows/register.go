package flows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RegisterRequest is the flow-local registration input.
type RegisterRequest struct {
	Username string
	Password string
	FullName string
}

// RegisterRecord is the record handed to the credential store for insertion.
type RegisterRecord struct {
	ID              string
	Username        string
	DisplayUsername string
	PasswordHash    []byte
	FullName        string
	CreatedAt       time.Time
}

type RegisterMetrics struct {
	RegisterSuccess   int
	RegisterDuplicate int
	RegisterFailure   int
}

type RegisterEvents struct {
	RegisterSuccess   string
	RegisterDuplicate string
	RegisterFailure   string
}

type RegisterErrors struct {
	EngineNotReady    error
	WeakPassword      error
	DuplicateUsername error
}

// RegisterDeps captures registration dependencies.
type RegisterDeps struct {
	Now               func() time.Time
	NormalizeUsername func(string) (string, error)
	CheckPassword     func(string) error
	HashPassword      func(context.Context, string) ([]byte, error)
	NewUserID         func() string
	Insert            func(context.Context, RegisterRecord) error

	MetricInc func(int)
	EmitAudit AuditFunc

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// RunRegister validates req, hashes the password and inserts the record with
// its display-name claim in one store call. Nothing is persisted on failure.
func RunRegister(ctx context.Context, req RegisterRequest, deps RegisterDeps) (RegisterRecord, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noopAudit
	}
	if deps.NormalizeUsername == nil ||
		deps.HashPassword == nil ||
		deps.NewUserID == nil ||
		deps.Insert == nil {
		return RegisterRecord{}, deps.Errors.EngineNotReady
	}

	failure := func(username, reason string, err error) (RegisterRecord, error) {
		deps.MetricInc(deps.Metrics.RegisterFailure)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", username, "", err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return RegisterRecord{}, err
	}

	username, err := deps.NormalizeUsername(req.Username)
	if err != nil {
		return failure("", "invalid_username", err)
	}

	if deps.CheckPassword != nil {
		if err := deps.CheckPassword(req.Password); err != nil {
			return failure(username, "weak_password", fmt.Errorf("%w: %w", deps.Errors.WeakPassword, err))
		}
	}

	hash, err := deps.HashPassword(ctx, req.Password)
	if err != nil {
		return failure(username, "hash_failed", err)
	}

	rec := RegisterRecord{
		ID:              deps.NewUserID(),
		Username:        username,
		DisplayUsername: strings.TrimSpace(req.Username),
		PasswordHash:    hash,
		FullName:        req.FullName,
		CreatedAt:       deps.Now().UTC(),
	}

	if err := deps.Insert(ctx, rec); err != nil {
		if errors.Is(err, deps.Errors.DuplicateUsername) {
			deps.MetricInc(deps.Metrics.RegisterDuplicate)
			deps.EmitAudit(ctx, deps.Events.RegisterDuplicate, false, "", username, "", err, nil)
			return RegisterRecord{}, err
		}
		return failure(username, "store", err)
	}

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.RegisterSuccess, true, rec.ID, username, "", nil, nil)
	return rec, nil
}
