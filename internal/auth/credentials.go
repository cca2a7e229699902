// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// dummyPassword is hashed once per store so lookups for unknown logins still
// pay for a verification with the configured algorithm and parameters.
const dummyPassword = "bruth-timing-equalizer"

// CredentialStore owns user records and their password credentials.
// It is the single writer of record for users; callers never mutate
// user fields directly.
type CredentialStore struct {
	users     UserRepository
	hasher    PasswordHasher
	logger    *slog.Logger
	dummyHash string
}

// NewCredentialStore creates a CredentialStore using the default logger.
func NewCredentialStore(users UserRepository, hasher PasswordHasher) (*CredentialStore, error) {
	return NewCredentialStoreWithLogger(users, hasher, slog.Default())
}

// NewCredentialStoreWithLogger creates a CredentialStore with an explicit logger.
func NewCredentialStoreWithLogger(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*CredentialStore, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("logger is required")
	}

	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, oops.Code("AUTH_INIT_FAILED").
			With("operation", "hash timing equalizer").
			Wrap(err)
	}

	return &CredentialStore{
		users:     users,
		hasher:    hasher,
		logger:    logger,
		dummyHash: dummyHash,
	}, nil
}

// Create registers a new user. Returns ErrInvalidInput for malformed fields
// and ErrConflict if the username or email is taken. The repository enforces
// uniqueness itself, so a registration that loses a race with a concurrent
// duplicate also receives ErrConflict.
func (s *CredentialStore) Create(ctx context.Context, username, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	if err := s.ensureAvailable(ctx, username, email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_HASH_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, email, hash)
	if err != nil {
		return nil, oops.Code("AUTH_CREATE_FAILED").
			With("operation", "build user").
			Wrap(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, oops.Code("AUTH_CONFLICT").
				With("username", username).
				Wrap(err)
		}
		return nil, oops.Code("AUTH_CREATE_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}
	return user, nil
}

func (s *CredentialStore) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return oops.Code("AUTH_CONFLICT").
			With("field", "username").
			Wrap(ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return oops.Code("AUTH_CREATE_FAILED").
			With("operation", "check username").
			Wrap(err)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return oops.Code("AUTH_CONFLICT").
			With("field", "email").
			Wrap(ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return oops.Code("AUTH_CREATE_FAILED").
			With("operation", "check email").
			Wrap(err)
	}
	return nil
}

// FindByID returns the user with the given ID or ErrNotFound.
func (s *CredentialStore) FindByID(ctx context.Context, id ulid.ULID) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, wrapLookup(err, "id", id.String())
	}
	return user, nil
}

// FindByUsername returns the user with the given username or ErrNotFound.
func (s *CredentialStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, wrapLookup(err, "username", username)
	}
	return user, nil
}

// FindByEmail returns the user with the given email or ErrNotFound.
func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, wrapLookup(err, "email", email)
	}
	return user, nil
}

// FindByLogin resolves a login string. Usernames cannot contain '@', so a
// login containing one is looked up as an email and anything else as a username.
func (s *CredentialStore) FindByLogin(ctx context.Context, login string) (*User, error) {
	if strings.Contains(login, "@") {
		return s.FindByEmail(ctx, login)
	}
	return s.FindByUsername(ctx, login)
}

// VerifyCredentials returns the user when login resolves and password matches.
// Every mismatch yields ErrInvalidCredentials; only storage faults differ.
func (s *CredentialStore) VerifyCredentials(ctx context.Context, login, password string) (*User, error) {
	user, lookupErr := s.FindByLogin(ctx, login)

	var targetHash string
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "find user by login").
				Wrap(lookupErr)
		}
		targetHash = s.dummyHash
	} else {
		targetHash = user.PasswordHash
	}

	// Always verify so unknown logins cost the same as wrong passwords.
	valid := s.hasher.Verify(password, targetHash)
	if lookupErr != nil || !valid {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}
	return user, nil
}

// upgradeHash re-hashes with the configured algorithm. Failures are logged and
// the login proceeds.
func (s *CredentialStore) upgradeHash(ctx context.Context, user *User, password string) {
	newHash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.WarnContext(ctx, "best-effort hash upgrade failed",
			"operation", "hash_upgrade",
			"user_id", user.ID.String(),
			"error", err.Error())
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
		s.logger.WarnContext(ctx, "best-effort hash upgrade failed",
			"operation", "update_password",
			"user_id", user.ID.String(),
			"error", err.Error())
		return
	}
	user.PasswordHash = newHash
}

// MarkVerified sets the verified flag for the user. Returns ErrNotFound if
// the user does not exist.
func (s *CredentialStore) MarkVerified(ctx context.Context, id ulid.ULID) error {
	if err := s.users.MarkVerified(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("USER_NOT_FOUND").With("id", id.String()).Wrap(err)
		}
		return oops.Code("AUTH_VERIFY_FAILED").
			With("operation", "mark verified").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}

func wrapLookup(err error, key, value string) error {
	if errors.Is(err, ErrNotFound) {
		return oops.Code("USER_NOT_FOUND").With(key, value).Wrap(err)
	}
	return oops.Code("USER_LOOKUP_FAILED").
		With("operation", "get user by "+key).
		With(key, value).
		Wrap(err)
}
