package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrEthical07/credauth"
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id               TEXT PRIMARY KEY,
	username         TEXT NOT NULL,
	display_username TEXT NOT NULL,
	password_hash    BYTEA NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_username_lower_idx ON users (lower(username));
CREATE TABLE IF NOT EXISTS user_claims (
	user_id     TEXT NOT NULL REFERENCES users (id),
	claim_type  TEXT NOT NULL,
	claim_value TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS user_claims_user_idx ON user_claims (user_id);
`

// Store is a credauth.CredentialStore backed by PostgreSQL.
type Store struct {
	db DB
}

// New returns a Store using db.
func New(db DB) *Store {
	return &Store{db: db}
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return unavailable("migrate", err)
	}
	return nil
}

func (s *Store) FindByUsername(ctx context.Context, username string) (credauth.UserRecord, error) {
	return s.findOne(ctx, `SELECT id, username, display_username, password_hash, created_at
		FROM users WHERE lower(username) = lower($1)`, username)
}

func (s *Store) FindByID(ctx context.Context, id string) (credauth.UserRecord, error) {
	return s.findOne(ctx, `SELECT id, username, display_username, password_hash, created_at
		FROM users WHERE id = $1`, id)
}

func (s *Store) findOne(ctx context.Context, query, arg string) (credauth.UserRecord, error) {
	var rec credauth.UserRecord
	err := s.db.QueryRow(ctx, query, arg).Scan(&rec.ID, &rec.Username, &rec.DisplayUsername, &rec.PasswordHash, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return credauth.UserRecord{}, credauth.ErrUserNotFound
		}
		return credauth.UserRecord{}, unavailable("find user", err)
	}

	claims, err := s.claims(ctx, rec.ID)
	if err != nil {
		return credauth.UserRecord{}, err
	}
	rec.Claims = claims
	return rec, nil
}

func (s *Store) claims(ctx context.Context, userID string) ([]credauth.Claim, error) {
	rows, err := s.db.Query(ctx, `SELECT claim_type, claim_value FROM user_claims WHERE user_id = $1`, userID)
	if err != nil {
		return nil, unavailable("load claims", err)
	}
	defer rows.Close()

	var out []credauth.Claim
	for rows.Next() {
		var c credauth.Claim
		if err := rows.Scan(&c.Type, &c.Value); err != nil {
			return nil, unavailable("scan claim", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate claims", err)
	}
	return out, nil
}

// Insert writes rec and its claims in one transaction. The unique index on
// lower(username) decides concurrent registrations.
func (s *Store) Insert(ctx context.Context, rec credauth.UserRecord) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO users (id, username, display_username, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, strings.ToLower(rec.Username), rec.DisplayUsername, rec.PasswordHash, rec.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return credauth.ErrDuplicateUsername
		}
		return unavailable("insert user", err)
	}

	for _, c := range rec.Claims {
		if _, err := tx.Exec(ctx, `INSERT INTO user_claims (user_id, claim_type, claim_value) VALUES ($1, $2, $3)`,
			rec.ID, c.Type, c.Value); err != nil {
			return unavailable("insert claim", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return unavailable("commit transaction", err)
	}
	return nil
}

func (s *Store) AddClaim(ctx context.Context, id string, claim credauth.Claim) error {
	tag, err := s.db.Exec(ctx, `INSERT INTO user_claims (user_id, claim_type, claim_value)
		SELECT id, $2, $3 FROM users WHERE id = $1`, id, claim.Type, claim.Value)
	if err != nil {
		return unavailable("add claim", err)
	}
	if tag.RowsAffected() == 0 {
		return credauth.ErrUserNotFound
	}
	return nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id string, hash []byte) error {
	tag, err := s.db.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return unavailable("update password hash", err)
	}
	if tag.RowsAffected() == 0 {
		return credauth.ErrUserNotFound
	}
	return nil
}

func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", credauth.ErrStoreUnavailable, op, err)
}
