package credauth

import (
	"context"
	"strings"
	"sync"
)

// MemoryCredentialStore is an in-process [CredentialStore]. Records are
// lost when the process exits.
type MemoryCredentialStore struct {
	mu     sync.RWMutex
	byID   map[string]*UserRecord
	byName map[string]string
}

// NewMemoryCredentialStore returns an empty store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		byID:   make(map[string]*UserRecord),
		byName: make(map[string]string),
	}
}

func (s *MemoryCredentialStore) FindByUsername(ctx context.Context, username string) (UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return UserRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[strings.ToLower(username)]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return copyRecord(s.byID[id]), nil
}

func (s *MemoryCredentialStore) FindByID(ctx context.Context, id string) (UserRecord, error) {
	if err := ctx.Err(); err != nil {
		return UserRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return UserRecord{}, ErrUserNotFound
	}
	return copyRecord(rec), nil
}

// Insert checks and writes under one write lock, so of two concurrent
// inserts for the same username exactly one succeeds.
func (s *MemoryCredentialStore) Insert(ctx context.Context, rec UserRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" || rec.Username == "" {
		return ErrInvalidInput
	}
	key := strings.ToLower(rec.Username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byName[key]; taken {
		return ErrDuplicateUsername
	}
	if _, taken := s.byID[rec.ID]; taken {
		return ErrDuplicateUsername
	}
	stored := copyRecord(&rec)
	s.byID[rec.ID] = &stored
	s.byName[key] = rec.ID
	return nil
}

func (s *MemoryCredentialStore) AddClaim(ctx context.Context, id string, claim Claim) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	rec.Claims = append(rec.Claims, claim)
	return nil
}

func (s *MemoryCredentialStore) UpdatePasswordHash(ctx context.Context, id string, hash []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	rec.PasswordHash = cloneBytes(hash)
	return nil
}

// Len returns the number of stored users.
func (s *MemoryCredentialStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func copyRecord(rec *UserRecord) UserRecord {
	out := *rec
	out.PasswordHash = cloneBytes(rec.PasswordHash)
	if rec.Claims != nil {
		out.Claims = append([]Claim(nil), rec.Claims...)
	}
	return out
}
