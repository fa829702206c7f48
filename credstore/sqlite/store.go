package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/MrEthical07/credauth"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id               TEXT PRIMARY KEY,
		username         TEXT NOT NULL UNIQUE COLLATE NOCASE,
		display_username TEXT NOT NULL,
		password_hash    BLOB NOT NULL,
		created_at       DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_claims (
		user_id     TEXT NOT NULL REFERENCES users (id),
		claim_type  TEXT NOT NULL,
		claim_value TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS user_claims_user_idx ON user_claims (user_id)`,
}

// Store is a credauth.CredentialStore backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and runs migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database. Call Migrate before use.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return unavailable("migrate", err)
		}
	}
	return nil
}

func (s *Store) FindByUsername(ctx context.Context, username string) (credauth.UserRecord, error) {
	return s.findOne(ctx, `SELECT id, username, display_username, password_hash, created_at
		FROM users WHERE username = ?`, username)
}

func (s *Store) FindByID(ctx context.Context, id string) (credauth.UserRecord, error) {
	return s.findOne(ctx, `SELECT id, username, display_username, password_hash, created_at
		FROM users WHERE id = ?`, id)
}

func (s *Store) findOne(ctx context.Context, query, arg string) (credauth.UserRecord, error) {
	var rec credauth.UserRecord
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&rec.ID, &rec.Username, &rec.DisplayUsername, &rec.PasswordHash, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return credauth.UserRecord{}, credauth.ErrUserNotFound
		}
		return credauth.UserRecord{}, unavailable("find user", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT claim_type, claim_value FROM user_claims WHERE user_id = ? ORDER BY rowid`, rec.ID)
	if err != nil {
		return credauth.UserRecord{}, unavailable("load claims", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c credauth.Claim
		if err := rows.Scan(&c.Type, &c.Value); err != nil {
			return credauth.UserRecord{}, unavailable("scan claim", err)
		}
		rec.Claims = append(rec.Claims, c)
	}
	if err := rows.Err(); err != nil {
		return credauth.UserRecord{}, unavailable("iterate claims", err)
	}
	return rec, nil
}

// Insert writes rec and its claims in one transaction. The NOCASE unique
// constraint on username decides concurrent registrations.
func (s *Store) Insert(ctx context.Context, rec credauth.UserRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `INSERT INTO users (id, username, display_username, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.ID, strings.ToLower(rec.Username), rec.DisplayUsername, rec.PasswordHash, rec.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return credauth.ErrDuplicateUsername
		}
		return unavailable("insert user", err)
	}

	for _, c := range rec.Claims {
		if _, err := tx.ExecContext(ctx, `INSERT INTO user_claims (user_id, claim_type, claim_value) VALUES (?, ?, ?)`,
			rec.ID, c.Type, c.Value); err != nil {
			return unavailable("insert claim", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit transaction", err)
	}
	return nil
}

func (s *Store) AddClaim(ctx context.Context, id string, claim credauth.Claim) error {
	res, err := s.db.ExecContext(ctx, `INSERT INTO user_claims (user_id, claim_type, claim_value)
		SELECT id, ?, ? FROM users WHERE id = ?`, claim.Type, claim.Value, id)
	if err != nil {
		return unavailable("add claim", err)
	}
	return requireRow(res)
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id string, hash []byte) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
	if err != nil {
		return unavailable("update password hash", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("rows affected", err)
	}
	if n == 0 {
		return credauth.ErrUserNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func unavailable(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", credauth.ErrStoreUnavailable, op, err)
}
