// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

// Package mocks provides testify mocks for the auth interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/bruth/bruth/internal/auth"
)

// testingT is the subset of *testing.T the constructors need.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository is a mock auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock that asserts its expectations on cleanup.
func NewMockUserRepository(t testingT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	args := m.Called(ctx, id)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	args := m.Called(ctx, username)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) MarkVerified(ctx context.Context, id ulid.ULID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func userArg(args mock.Arguments, i int) *auth.User {
	if u, ok := args.Get(i).(*auth.User); ok {
		return u
	}
	return nil
}

// MockPasswordHasher is a mock auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) bool {
	args := m.Called(password, hash)
	return args.Bool(0)
}

func (m *MockPasswordHasher) NeedsUpgrade(hash string) bool {
	args := m.Called(hash)
	return args.Bool(0)
}

// MockTokenAuthority is a mock auth.TokenAuthority without revocation.
type MockTokenAuthority struct {
	mock.Mock
}

// NewMockTokenAuthority creates a mock that asserts its expectations on cleanup.
func NewMockTokenAuthority(t testingT) *MockTokenAuthority {
	m := &MockTokenAuthority{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTokenAuthority) Issue(ctx context.Context, userID ulid.ULID) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockTokenAuthority) Validate(ctx context.Context, token string) (ulid.ULID, error) {
	args := m.Called(ctx, token)
	id, _ := args.Get(0).(ulid.ULID)
	return id, args.Error(1)
}

func (m *MockTokenAuthority) Strategy() string {
	return auth.StrategySigned
}

// MockRevokingTokenAuthority is a mock auth.TokenAuthority that also
// implements auth.Revoker.
type MockRevokingTokenAuthority struct {
	MockTokenAuthority
}

// NewMockRevokingTokenAuthority creates a mock that asserts its expectations on cleanup.
func NewMockRevokingTokenAuthority(t testingT) *MockRevokingTokenAuthority {
	m := &MockRevokingTokenAuthority{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRevokingTokenAuthority) Revoke(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockRevokingTokenAuthority) Strategy() string {
	return auth.StrategyOpaque
}

// MockTokenTable is a mock auth.TokenTable.
type MockTokenTable struct {
	mock.Mock
}

// NewMockTokenTable creates a mock that asserts its expectations on cleanup.
func NewMockTokenTable(t testingT) *MockTokenTable {
	m := &MockTokenTable{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTokenTable) Put(ctx context.Context, digest string, userID ulid.ULID, ttl time.Duration) error {
	args := m.Called(ctx, digest, userID, ttl)
	return args.Error(0)
}

func (m *MockTokenTable) Get(ctx context.Context, digest string) (ulid.ULID, error) {
	args := m.Called(ctx, digest)
	id, _ := args.Get(0).(ulid.ULID)
	return id, args.Error(1)
}

func (m *MockTokenTable) Delete(ctx context.Context, digest string) error {
	args := m.Called(ctx, digest)
	return args.Error(0)
}

// Compile-time interface checks.
var (
	_ auth.UserRepository = (*MockUserRepository)(nil)
	_ auth.PasswordHasher = (*MockPasswordHasher)(nil)
	_ auth.TokenAuthority = (*MockTokenAuthority)(nil)
	_ auth.TokenAuthority = (*MockRevokingTokenAuthority)(nil)
	_ auth.Revoker        = (*MockRevokingTokenAuthority)(nil)
	_ auth.TokenTable     = (*MockTokenTable)(nil)
)
