// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

// Package sqlite provides an auth.UserRepository on an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/bruth/bruth/internal/auth"
)

// Timestamps are stored as RFC 3339 text in UTC.
const timeFormat = time.RFC3339Nano

const selectUser = `
	SELECT id, username, email, password_hash, role, verified, created_at, updated_at
	FROM users
`

// UserRepository implements auth.UserRepository using SQLite.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create stores a new user. The NOCASE username index and email index map
// duplicates to auth.ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, username, email, password_hash, role, verified, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID.String(),
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Verified,
		user.CreatedAt.UTC().Format(timeFormat),
		user.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code("USER_EXISTS").
				With("username", user.Username).
				Wrap(auth.ErrConflict)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", user.Username).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+`WHERE id = ?`, id.String())
	return getOne(row, "id", id.String())
}

// GetByUsername retrieves a user by username (case-insensitive).
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+`WHERE username = ? COLLATE NOCASE`, username)
	return getOne(row, "username", username)
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := r.db.QueryRowContext(ctx, selectUser+`WHERE email = ?`, email)
	return getOne(row, "email", email)
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, updated_at = ?
		WHERE id = ?
	`, passwordHash, time.Now().UTC().Format(timeFormat), id.String())
	if err != nil {
		return oops.Code("USER_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("id", id.String()).
			Wrap(err)
	}
	return requireRow(result, id)
}

// MarkVerified sets the verified flag.
func (r *UserRepository) MarkVerified(ctx context.Context, id ulid.ULID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE users SET verified = 1, updated_at = ?
		WHERE id = ?
	`, time.Now().UTC().Format(timeFormat), id.String())
	if err != nil {
		return oops.Code("USER_MARK_VERIFIED_FAILED").
			With("operation", "mark verified").
			With("id", id.String()).
			Wrap(err)
	}
	return requireRow(result, id)
}

func requireRow(result sql.Result, id ulid.ULID) error {
	n, err := result.RowsAffected()
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "rows affected").
			Wrap(err)
	}
	if n == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

func getOne(row *sql.Row, key, value string) (*auth.User, error) {
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With(key, value).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by "+key).
			With(key, value).
			Wrap(err)
	}
	return user, nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling sql.ErrNoRows.
func scanUser(row *sql.Row) (*auth.User, error) {
	var (
		idStr, createdAt, updatedAt string
		user                        auth.User
	)
	err := row.Scan(
		&idStr,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Verified,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	if user.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}
	if user.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, oops.Code("USER_INVALID_TIMESTAMP").
			With("column", "created_at").
			Wrap(err)
	}
	if user.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, oops.Code("USER_INVALID_TIMESTAMP").
			With("column", "updated_at").
			Wrap(err)
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch code := sqliteErr.Code(); code {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// primary code only when extended result codes are off
		return strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
	default:
		return false
	}
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)
