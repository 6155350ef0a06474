// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PookieTalk Contributors

// Package postgres implements auth.UserDirectory on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/pookietalk/authcore/internal/auth"
	"github.com/pookietalk/authcore/internal/store"
)

// Pool is the subset of *pgxpool.Pool used by UserDirectory.
type Pool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserDirectory implements auth.UserDirectory using PostgreSQL. Uniqueness of
// usernames and emails is enforced by the case-insensitive unique indexes on
// the users table.
type UserDirectory struct {
	pool Pool
	now  func() time.Time
}

// NewUserDirectory creates a UserDirectory on pool.
func NewUserDirectory(pool Pool) *UserDirectory {
	return &UserDirectory{pool: pool, now: time.Now}
}

const selectUser = `
	SELECT id, username, password_hash, email, role, created_at
	FROM users
`

// FindByUsername retrieves a credential by username (case-insensitive).
func (d *UserDirectory) FindByUsername(ctx context.Context, username string) (*auth.Credential, error) {
	row := d.pool.QueryRow(ctx, selectUser+`WHERE lower(username) = lower($1)`, username)

	cred, err := scanCredential(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_QUERY_FAILED").
			With("operation", "get user by username").
			With("username", username).
			Wrap(err)
	}
	return cred, nil
}

// FindByID retrieves a credential by ID.
func (d *UserDirectory) FindByID(ctx context.Context, id ulid.ULID) (*auth.Credential, error) {
	row := d.pool.QueryRow(ctx, selectUser+`WHERE id = $1`, id.String())

	cred, err := scanCredential(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_QUERY_FAILED").
			With("operation", "get user by id").
			With("id", id.String()).
			Wrap(err)
	}
	return cred, nil
}

// Save inserts a new credential with a fresh ID and returns the stored row.
func (d *UserDirectory) Save(ctx context.Context, credential *auth.Credential) (*auth.Credential, error) {
	if credential == nil {
		return nil, oops.Code("USER_SAVE_FAILED").Errorf("credential is nil")
	}
	role := credential.Role
	if role == "" {
		role = auth.RoleUser
	}

	row := d.pool.QueryRow(ctx, `
		INSERT INTO users (id, username, password_hash, email, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, username, password_hash, email, role, created_at
	`,
		ulid.Make().String(),
		credential.Username,
		credential.PasswordHash,
		credential.Email,
		string(role),
		d.now().UTC().Truncate(time.Microsecond),
	)

	saved, err := scanCredential(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			if dup := duplicate(pgErr, credential.Username); dup != nil {
				return nil, dup
			}
		}
		return nil, oops.Code("USER_SAVE_FAILED").
			With("operation", "insert user").
			With("username", credential.Username).
			Wrap(err)
	}
	return saved, nil
}

// duplicate maps a unique violation on one of the users indexes to the
// matching directory error. Violations of other constraints return nil.
func duplicate(pgErr *pgconn.PgError, username string) error {
	switch pgErr.ConstraintName {
	case store.UsernameConstraint:
		return oops.Code("USER_DUPLICATE").
			With("constraint", pgErr.ConstraintName).
			With("username", username).
			Wrap(auth.ErrDuplicateUsername)
	case store.EmailConstraint:
		return oops.Code("USER_DUPLICATE").
			With("constraint", pgErr.ConstraintName).
			Wrap(auth.ErrDuplicateEmail)
	default:
		return nil
	}
}

func scanCredential(row pgx.Row) (*auth.Credential, error) {
	var (
		cred auth.Credential
		id   string
		role string
	)
	if err := row.Scan(&id, &cred.Username, &cred.PasswordHash, &cred.Email, &role, &cred.CreatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers classify pgx.ErrNoRows
	}

	parsed, err := ulid.Parse(id)
	if err != nil {
		return nil, oops.Code("USER_ID_INVALID").With("id", id).Wrap(err)
	}
	cred.ID = parsed
	cred.Role = auth.Role(role)
	return &cred, nil
}

var _ auth.UserDirectory = (*UserDirectory)(nil)
