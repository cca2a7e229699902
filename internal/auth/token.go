// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Token strategy names.
const (
	StrategySigned = "signed"
	StrategyOpaque = "opaque"
)

// Opaque token configuration.
const (
	SessionTokenBytes = 32             // 32 bytes = 64 hex chars
	DefaultTokenTTL   = 24 * time.Hour // opaque token lifetime when unset
)

// TokenAuthority issues and validates session tokens identifying a user.
type TokenAuthority interface {
	// Issue returns a new token for the user.
	Issue(ctx context.Context, userID ulid.ULID) (string, error)

	// Validate returns the user ID the token was issued for.
	// Returns ErrUnauthorized if the token is malformed, expired or revoked.
	Validate(ctx context.Context, token string) (ulid.ULID, error)

	// Strategy names the implementation (StrategySigned or StrategyOpaque).
	Strategy() string
}

// Revoker is implemented by authorities that can invalidate a token before
// it expires.
type Revoker interface {
	// Revoke invalidates the token. Returns ErrNotFound if it is not active.
	Revoke(ctx context.Context, token string) error
}

// TokenTable stores opaque token digests. Every method is atomic with respect
// to the others for the same digest.
type TokenTable interface {
	// Put inserts digest→userID unless digest is present (ErrConflict).
	// A zero ttl stores the entry without expiry.
	Put(ctx context.Context, digest string, userID ulid.ULID, ttl time.Duration) error

	// Get returns the user for an unexpired digest or ErrNotFound.
	Get(ctx context.Context, digest string) (ulid.ULID, error)

	// Delete removes the digest. Returns ErrNotFound if absent or expired.
	Delete(ctx context.Context, digest string) error
}

// Option configures a token authority.
type Option func(*authorityOptions)

type authorityOptions struct {
	now func() time.Time
}

// WithClock overrides the time source. Useful for testing expiry.
func WithClock(now func() time.Time) Option {
	return func(o *authorityOptions) {
		o.now = now
	}
}

func buildOptions(opts []Option) authorityOptions {
	o := authorityOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// GenerateSessionToken creates a secure random token and its digest.
// Returns (plaintext_token, sha256_hash, error).
// The plaintext token is sent to the client; only the digest is stored.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(tokenBytes)
	hash = HashSessionToken(token)

	return token, hash, nil
}

// HashSessionToken computes the SHA256 hash of a session token.
func HashSessionToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
