// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// Operation names used for metrics and logs.
const (
	opRegister = "register"
	opLogin    = "login"
	opWhoAmI   = "whoami"
	opLogout   = "logout"
	opVerify   = "mark_verified"
)

// Session is the result of a successful register or login.
type Session struct {
	Token string
	User  *User
}

// Service provides authentication use cases.
type Service struct {
	credentials *CredentialStore
	tokens      TokenAuthority
	logger      *slog.Logger
}

// NewService creates a new Service using the default logger.
func NewService(credentials *CredentialStore, tokens TokenAuthority) (*Service, error) {
	return NewServiceWithLogger(credentials, tokens, slog.Default())
}

// NewServiceWithLogger creates a new Service with an explicit logger.
func NewServiceWithLogger(credentials *CredentialStore, tokens TokenAuthority, logger *slog.Logger) (*Service, error) {
	if credentials == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("credential store is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("token authority is required")
	}
	if logger == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("logger is required")
	}
	return &Service{
		credentials: credentials,
		tokens:      tokens,
		logger:      logger,
	}, nil
}

// Strategy returns the configured token strategy.
func (s *Service) Strategy() string {
	return s.tokens.Strategy()
}

// Register creates a user and issues a token for it.
// Returns ErrConflict if the username or email is taken. If issuing the token
// fails the user is kept: the error is Internal and a later Login succeeds.
func (s *Service) Register(ctx context.Context, username, email, password string) (session *Session, err error) {
	defer func() { recordOperation(opRegister, err) }()

	user, err := s.credentials.Create(ctx, username, email, password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		// The user row is committed and stays; the account can still log in.
		s.logger.WarnContext(ctx, "user created without a session",
			"operation", "issue token",
			"user_id", user.ID.String(),
			"username", user.Username,
			"error", err)
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "issue token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
		"username", user.Username)
	return &Session{Token: token, User: user}, nil
}

// Login verifies credentials and issues a token.
// Any credential mismatch returns ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, login, password string) (session *Session, err error) {
	defer func() { recordOperation(opLogin, err) }()

	user, err := s.credentials.VerifyCredentials(ctx, login, password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue token").
			With("user_id", user.ID.String()).
			Wrap(err)
	}
	return &Session{Token: token, User: user}, nil
}

// WhoAmI validates the token and returns its user.
// Returns ErrUnauthorized for an invalid token and ErrNotFound if the user
// no longer exists.
func (s *Service) WhoAmI(ctx context.Context, token string) (user *User, err error) {
	defer func() { recordOperation(opWhoAmI, err) }()

	userID, err := s.tokens.Validate(ctx, token)
	recordValidation(s.tokens.Strategy(), err)
	if err != nil {
		return nil, err
	}

	return s.credentials.FindByID(ctx, userID)
}

// Logout revokes the token. Signed tokens cannot be revoked; for them Logout
// only checks the token is valid and the token keeps working until it expires.
func (s *Service) Logout(ctx context.Context, token string) (err error) {
	defer func() { recordOperation(opLogout, err) }()

	revoker, ok := s.tokens.(Revoker)
	if !ok {
		_, err := s.tokens.Validate(ctx, token)
		recordValidation(s.tokens.Strategy(), err)
		if err != nil {
			return err
		}
		s.logger.DebugContext(ctx, "logout is a no-op for signed tokens")
		return nil
	}

	if err := revoker.Revoke(ctx, token); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "revoke token").
			Wrap(err)
	}
	return nil
}

// MarkVerified flags the user identified by login as verified.
func (s *Service) MarkVerified(ctx context.Context, login string) (user *User, err error) {
	defer func() { recordOperation(opVerify, err) }()

	user, err = s.credentials.FindByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if err := s.credentials.MarkVerified(ctx, user.ID); err != nil {
		return nil, err
	}
	user.Verified = true

	s.logger.InfoContext(ctx, "user verified", "user_id", user.ID.String())
	return user, nil
}
