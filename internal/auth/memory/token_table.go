// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

// Package memory provides a process-local auth.TokenTable.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/bruth/bruth/internal/auth"
)

type entry struct {
	userID    ulid.ULID
	expiresAt time.Time // zero means no expiry
}

func (e entry) expiredAt(t time.Time) bool {
	return !e.expiresAt.IsZero() && !t.Before(e.expiresAt)
}

// Option configures a TokenTable.
type Option func(*TokenTable)

// WithClock overrides the time source. Useful for testing expiry.
func WithClock(now func() time.Time) Option {
	return func(t *TokenTable) {
		t.now = now
	}
}

// TokenTable implements auth.TokenTable with a mutex-guarded map. It suits
// single-process deployments; use the redis table when several instances
// share sessions.
type TokenTable struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
}

// NewTokenTable creates an empty TokenTable.
func NewTokenTable(opts ...Option) *TokenTable {
	t := &TokenTable{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Put implements auth.TokenTable. An expired entry under the same digest is
// replaced.
func (t *TokenTable) Put(_ context.Context, digest string, userID ulid.ULID, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if existing, ok := t.entries[digest]; ok && !existing.expiredAt(now) {
		return oops.Code("TOKEN_DUPLICATE").Wrap(auth.ErrConflict)
	}

	e := entry{userID: userID}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	t.entries[digest] = e
	return nil
}

// Get implements auth.TokenTable. Expired entries are reported as absent but
// left for Sweep so lookups never mutate the table.
func (t *TokenTable) Get(_ context.Context, digest string) (ulid.ULID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[digest]
	if !ok || e.expiredAt(t.now()) {
		return ulid.ULID{}, auth.ErrNotFound
	}
	return e.userID, nil
}

// Delete implements auth.TokenTable.
func (t *TokenTable) Delete(_ context.Context, digest string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[digest]
	if !ok {
		return auth.ErrNotFound
	}
	delete(t.entries, digest)
	if e.expiredAt(t.now()) {
		return auth.ErrNotFound
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (t *TokenTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Sweep removes expired entries and returns how many were deleted.
func (t *TokenTable) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for digest, e := range t.entries {
		if e.expiredAt(now) {
			delete(t.entries, digest)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (t *TokenTable) RunSweeper(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := t.Sweep(); n > 0 {
				logger.DebugContext(ctx, "swept expired tokens", "count", n)
			}
		}
	}
}

// Compile-time interface check.
var _ auth.TokenTable = (*TokenTable)(nil)
