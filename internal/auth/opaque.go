// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package auth

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// OpaqueTokenAuthority issues random tokens recorded in a TokenTable.
// Tokens are active from Issue until Revoke or TTL expiry; revocation is
// irreversible.
type OpaqueTokenAuthority struct {
	table TokenTable
	ttl   time.Duration
}

// NewOpaqueTokenAuthority creates an OpaqueTokenAuthority. A zero ttl issues
// tokens that live until revoked.
func NewOpaqueTokenAuthority(table TokenTable, ttl time.Duration) (*OpaqueTokenAuthority, error) {
	if table == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("token table is required")
	}
	if ttl < 0 {
		return nil, oops.Code("TOKEN_INVALID_DURATION").
			With("ttl", ttl.String()).
			Errorf("token ttl cannot be negative")
	}
	return &OpaqueTokenAuthority{table: table, ttl: ttl}, nil
}

// Strategy implements TokenAuthority.
func (a *OpaqueTokenAuthority) Strategy() string { return StrategyOpaque }

// Issue generates a token and records its digest for userID.
func (a *OpaqueTokenAuthority) Issue(ctx context.Context, userID ulid.ULID) (string, error) {
	token, digest, err := GenerateSessionToken()
	if err != nil {
		return "", oops.Code("TOKEN_ISSUE_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	if err := a.table.Put(ctx, digest, userID, a.ttl); err != nil {
		return "", oops.Code("TOKEN_ISSUE_FAILED").
			With("operation", "store token").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return token, nil
}

// Validate looks the token up without mutating the table.
func (a *OpaqueTokenAuthority) Validate(ctx context.Context, token string) (ulid.ULID, error) {
	if token == "" {
		return ulid.ULID{}, oops.Code("TOKEN_EMPTY").Wrapf(ErrUnauthorized, "token cannot be empty")
	}

	userID, err := a.table.Get(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ulid.ULID{}, oops.Code("TOKEN_INVALID").Wrap(ErrUnauthorized)
		}
		return ulid.ULID{}, oops.Code("TOKEN_VALIDATE_FAILED").
			With("operation", "lookup token").
			Wrap(err)
	}
	return userID, nil
}

// Revoke removes the token. A second Revoke of the same token returns ErrNotFound.
func (a *OpaqueTokenAuthority) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return oops.Code("TOKEN_NOT_FOUND").Wrapf(ErrNotFound, "token cannot be empty")
	}

	if err := a.table.Delete(ctx, HashSessionToken(token)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("TOKEN_NOT_FOUND").Wrap(err)
		}
		return oops.Code("TOKEN_REVOKE_FAILED").
			With("operation", "delete token").
			Wrap(err)
	}
	return nil
}

// Compile-time interface checks.
var (
	_ TokenAuthority = (*OpaqueTokenAuthority)(nil)
	_ Revoker        = (*OpaqueTokenAuthority)(nil)
)
