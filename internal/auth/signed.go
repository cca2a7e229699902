// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinSigningSecretLength is the minimum HS256 key size in bytes.
const MinSigningSecretLength = 32

// DefaultSignedTokenDuration is the signed token lifetime when unset.
const DefaultSignedTokenDuration = time.Hour

// SignedTokenAuthority issues stateless HS256 JWTs. Tokens cannot be revoked;
// they stay valid until exp.
type SignedTokenAuthority struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

// NewSignedTokenAuthority creates a SignedTokenAuthority.
func NewSignedTokenAuthority(secret []byte, duration time.Duration, opts ...Option) (*SignedTokenAuthority, error) {
	if len(secret) < MinSigningSecretLength {
		return nil, oops.Code("TOKEN_INVALID_SECRET").
			With("min_length", MinSigningSecretLength).
			Errorf("signing secret must be at least %d bytes", MinSigningSecretLength)
	}
	if duration <= 0 {
		return nil, oops.Code("TOKEN_INVALID_DURATION").
			With("duration", duration.String()).
			Errorf("token duration must be positive")
	}

	o := buildOptions(opts)
	return &SignedTokenAuthority{
		secret:   secret,
		duration: duration,
		now:      o.now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithStrictDecoding(),
			jwt.WithTimeFunc(o.now),
		),
	}, nil
}

// Strategy implements TokenAuthority.
func (a *SignedTokenAuthority) Strategy() string { return StrategySigned }

// Issue signs a token for userID expiring after the configured duration.
func (a *SignedTokenAuthority) Issue(_ context.Context, userID ulid.ULID) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.duration)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return signed, nil
}

// Validate checks the signature and expiry and returns the subject.
func (a *SignedTokenAuthority) Validate(_ context.Context, token string) (ulid.ULID, error) {
	if token == "" {
		return ulid.ULID{}, oops.Code("TOKEN_EMPTY").Wrapf(ErrUnauthorized, "token cannot be empty")
	}

	claims := &jwt.RegisteredClaims{}
	if _, err := a.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}); err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_INVALID").
			With("reason", err.Error()).
			Wrap(ErrUnauthorized)
	}

	userID, err := ulid.Parse(claims.Subject)
	if err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_INVALID").
			With("reason", "subject is not a user id").
			Wrap(ErrUnauthorized)
	}
	return userID, nil
}

// Compile-time interface check.
var _ TokenAuthority = (*SignedTokenAuthority)(nil)
