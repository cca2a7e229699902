// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package auth_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bruth/bruth/internal/auth"
	"github.com/bruth/bruth/internal/auth/memory"
	"github.com/bruth/bruth/internal/auth/mocks"
	"github.com/bruth/bruth/internal/auth/sqlite"
	"github.com/bruth/bruth/internal/store"
	"github.com/bruth/bruth/pkg/errutil"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// newCredentialStore wires a CredentialStore over a migrated SQLite file.
func newCredentialStore(t *testing.T) *auth.CredentialStore {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bruth.db")

	m, err := store.NewMigrator(store.DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	db, err := store.OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	hasher, err := auth.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)

	credentials, err := auth.NewCredentialStoreWithLogger(sqlite.NewUserRepository(db), hasher, discardLogger)
	require.NoError(t, err)
	return credentials
}

func newServices(t *testing.T) map[string]*auth.Service {
	t.Helper()

	opaque, err := auth.NewOpaqueTokenAuthority(memory.NewTokenTable(), time.Hour)
	require.NoError(t, err)
	signed, err := auth.NewSignedTokenAuthority(testSecret, time.Hour)
	require.NoError(t, err)

	services := map[string]*auth.Service{}
	for _, tokens := range []auth.TokenAuthority{opaque, signed} {
		svc, err := auth.NewServiceWithLogger(newCredentialStore(t), tokens, discardLogger)
		require.NoError(t, err)
		services[tokens.Strategy()] = svc
	}
	return services
}

func TestService_RegisterLoginWhoAmI(t *testing.T) {
	ctx := context.Background()

	for strategy, svc := range newServices(t) {
		t.Run(strategy, func(t *testing.T) {
			assert.Equal(t, strategy, svc.Strategy())

			registered, err := svc.Register(ctx, "alice", "alice@example.com", "correct horse")
			require.NoError(t, err)
			require.NotEmpty(t, registered.Token)

			who, err := svc.WhoAmI(ctx, registered.Token)
			require.NoError(t, err)
			assert.Equal(t, registered.User.ID, who.ID)
			assert.Equal(t, "alice", who.Username)
			assert.Equal(t, "alice@example.com", who.Email)
			assert.Equal(t, auth.DefaultRole, who.Role)
			assert.False(t, who.Verified)

			for _, login := range []string{"alice", "ALICE", "alice@example.com", "Alice@Example.com"} {
				session, err := svc.Login(ctx, login, "correct horse")
				require.NoError(t, err, login)
				assert.Equal(t, registered.User.ID, session.User.ID)

				who, err := svc.WhoAmI(ctx, session.Token)
				require.NoError(t, err)
				assert.Equal(t, registered.User.ID, who.ID)
			}
		})
	}
}

func TestService_RegisterConflicts(t *testing.T) {
	ctx := context.Background()

	for strategy, svc := range newServices(t) {
		t.Run(strategy, func(t *testing.T) {
			_, err := svc.Register(ctx, "alice", "alice@example.com", "pw-one")
			require.NoError(t, err)

			_, err = svc.Register(ctx, "Alice", "other@example.com", "pw-two")
			assert.ErrorIs(t, err, auth.ErrConflict)

			_, err = svc.Register(ctx, "bob", "ALICE@example.com", "pw-two")
			assert.ErrorIs(t, err, auth.ErrConflict)

			session, err := svc.Login(ctx, "alice", "pw-one")
			require.NoError(t, err, "original credentials are unchanged")
			assert.NotEmpty(t, session.Token)
		})
	}
}

func TestService_LoginFailures(t *testing.T) {
	ctx := context.Background()

	for strategy, svc := range newServices(t) {
		t.Run(strategy, func(t *testing.T) {
			_, err := svc.Register(ctx, "alice", "alice@example.com", "right")
			require.NoError(t, err)

			_, wrongPassword := svc.Login(ctx, "alice", "wrong")
			_, unknownUser := svc.Login(ctx, "nobody", "right")

			assert.ErrorIs(t, wrongPassword, auth.ErrUnauthorized)
			assert.ErrorIs(t, unknownUser, auth.ErrUnauthorized)
			assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
		})
	}
}

func TestService_LogoutOpaque(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t)[auth.StrategyOpaque]

	first, err := svc.Register(ctx, "alice", "alice@example.com", "pw")
	require.NoError(t, err)
	second, err := svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, first.Token))

	_, err = svc.WhoAmI(ctx, first.Token)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)

	err = svc.Logout(ctx, first.Token)
	assert.ErrorIs(t, err, auth.ErrNotFound, "second logout reports the token as gone")

	_, err = svc.WhoAmI(ctx, second.Token)
	assert.NoError(t, err, "other sessions survive")
}

func TestService_LogoutSigned(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t)[auth.StrategySigned]

	session, err := svc.Register(ctx, "alice", "alice@example.com", "pw")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, session.Token))
	require.NoError(t, svc.Logout(ctx, session.Token), "signed logout is repeatable")

	_, err = svc.WhoAmI(ctx, session.Token)
	assert.NoError(t, err, "signed tokens remain valid until expiry")

	assert.ErrorIs(t, svc.Logout(ctx, "garbage"), auth.ErrUnauthorized)
}

func TestService_WhoAmIDeletedUser(t *testing.T) {
	ctx := context.Background()
	users := mocks.NewMockUserRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	hasher.On("Hash", mock.Anything).Return(dummyHash, nil).Once()
	credentials, err := auth.NewCredentialStore(users, hasher)
	require.NoError(t, err)

	tokens := mocks.NewMockTokenAuthority(t)
	svc, err := auth.NewServiceWithLogger(credentials, tokens, discardLogger)
	require.NoError(t, err)

	id := ulid.Make()
	tokens.On("Validate", ctx, "tok").Return(id, nil)
	users.On("GetByID", ctx, id).Return(nil, auth.ErrNotFound)

	_, err = svc.WhoAmI(ctx, "tok")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestService_InternalFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("backend down")

	newSvc := func(t *testing.T, tokens auth.TokenAuthority) (*auth.Service, *mocks.MockUserRepository, *mocks.MockPasswordHasher) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		hasher.On("Hash", mock.Anything).Return(dummyHash, nil).Once()
		credentials, err := auth.NewCredentialStore(users, hasher)
		require.NoError(t, err)
		svc, err := auth.NewServiceWithLogger(credentials, tokens, discardLogger)
		require.NoError(t, err)
		return svc, users, hasher
	}

	t.Run("register token issue fails", func(t *testing.T) {
		tokens := mocks.NewMockTokenAuthority(t)
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		hasher.On("Hash", mock.Anything).Return(dummyHash, nil).Once()
		credentials, err := auth.NewCredentialStore(users, hasher)
		require.NoError(t, err)
		var logs bytes.Buffer
		svc, err := auth.NewServiceWithLogger(credentials, tokens, slog.New(slog.NewJSONHandler(&logs, nil)))
		require.NoError(t, err)

		users.On("GetByUsername", ctx, "alice").Return(nil, auth.ErrNotFound)
		users.On("GetByEmail", ctx, "alice@example.com").Return(nil, auth.ErrNotFound)
		hasher.On("Hash", "pw").Return("hashed", nil).Once()

		var created *auth.User
		users.On("Create", ctx, mock.Anything).Run(func(args mock.Arguments) {
			created = args.Get(1).(*auth.User)
		}).Return(nil)
		tokens.On("Issue", ctx, mock.Anything).Return("", boom)

		_, err = svc.Register(ctx, "alice", "alice@example.com", "pw")
		require.ErrorIs(t, err, boom)
		assert.True(t, auth.IsInternal(err))
		errutil.AssertErrorCode(t, err, "AUTH_REGISTER_FAILED")

		require.NotNil(t, created)
		assert.Contains(t, logs.String(), `"level":"WARN"`)
		assert.Contains(t, logs.String(), `"msg":"user created without a session"`)
		assert.Contains(t, logs.String(), created.ID.String())
	})

	t.Run("login token issue fails", func(t *testing.T) {
		tokens := mocks.NewMockTokenAuthority(t)
		svc, users, hasher := newSvc(t, tokens)
		user := existingUser(t)
		users.On("GetByUsername", ctx, "alice").Return(user, nil)
		hasher.On("Verify", "pw", "stored-hash").Return(true)
		hasher.On("NeedsUpgrade", "stored-hash").Return(false)
		tokens.On("Issue", ctx, user.ID).Return("", boom)

		_, err := svc.Login(ctx, "alice", "pw")
		require.ErrorIs(t, err, boom)
		assert.True(t, auth.IsInternal(err))
	})

	t.Run("revoke fails", func(t *testing.T) {
		tokens := mocks.NewMockRevokingTokenAuthority(t)
		svc, _, _ := newSvc(t, tokens)
		tokens.On("Revoke", ctx, "tok").Return(boom)

		err := svc.Logout(ctx, "tok")
		require.ErrorIs(t, err, boom)
		assert.True(t, auth.IsInternal(err))
		errutil.AssertErrorCode(t, err, "AUTH_LOGOUT_FAILED")
	})
}

func TestService_MarkVerified(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t)[auth.StrategyOpaque]

	session, err := svc.Register(ctx, "alice", "alice@example.com", "pw")
	require.NoError(t, err)

	user, err := svc.MarkVerified(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.True(t, user.Verified)

	who, err := svc.WhoAmI(ctx, session.Token)
	require.NoError(t, err)
	assert.True(t, who.Verified)

	_, err = svc.MarkVerified(ctx, "ghost")
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestService_RecordsMetrics(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t)[auth.StrategySigned]

	registered := testutil.ToFloat64(auth.AuthOperations.WithLabelValues("register", auth.OutcomeSuccess))
	conflicts := testutil.ToFloat64(auth.AuthOperations.WithLabelValues("register", auth.OutcomeConflict))
	invalid := testutil.ToFloat64(auth.TokenValidations.WithLabelValues(auth.StrategySigned, auth.OutcomeUnauthorized))

	_, err := svc.Register(ctx, "metric", "metric@example.com", "pw")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "metric", "metric2@example.com", "pw")
	require.Error(t, err)
	_, err = svc.WhoAmI(ctx, "not-a-token")
	require.Error(t, err)

	assert.InDelta(t, registered+1, testutil.ToFloat64(auth.AuthOperations.WithLabelValues("register", auth.OutcomeSuccess)), 0)
	assert.InDelta(t, conflicts+1, testutil.ToFloat64(auth.AuthOperations.WithLabelValues("register", auth.OutcomeConflict)), 0)
	assert.InDelta(t, invalid+1, testutil.ToFloat64(auth.TokenValidations.WithLabelValues(auth.StrategySigned, auth.OutcomeUnauthorized)), 0)
}

func TestService_LogoutSignedRecordsValidation(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t)[auth.StrategySigned]

	session, err := svc.Register(ctx, "validated", "validated@example.com", "pw")
	require.NoError(t, err)

	valid := testutil.ToFloat64(auth.TokenValidations.WithLabelValues(auth.StrategySigned, "valid"))
	invalid := testutil.ToFloat64(auth.TokenValidations.WithLabelValues(auth.StrategySigned, auth.OutcomeUnauthorized))

	require.NoError(t, svc.Logout(ctx, session.Token))
	require.Error(t, svc.Logout(ctx, "not-a-token"))

	assert.InDelta(t, valid+1, testutil.ToFloat64(auth.TokenValidations.WithLabelValues(auth.StrategySigned, "valid")), 0)
	assert.InDelta(t, invalid+1, testutil.ToFloat64(auth.TokenValidations.WithLabelValues(auth.StrategySigned, auth.OutcomeUnauthorized)), 0)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, auth.OutcomeSuccess, auth.OutcomeOf(nil))
	assert.Equal(t, auth.OutcomeConflict, auth.OutcomeOf(auth.ErrConflict))
	assert.Equal(t, auth.OutcomeUnauthorized, auth.OutcomeOf(auth.ErrInvalidCredentials))
	assert.Equal(t, auth.OutcomeNotFound, auth.OutcomeOf(auth.ErrNotFound))
	assert.Equal(t, auth.OutcomeInvalid, auth.OutcomeOf(auth.ErrInvalidInput))
	assert.Equal(t, auth.OutcomeError, auth.OutcomeOf(errors.New("boom")))
}

func TestNewService_Dependencies(t *testing.T) {
	_, err := auth.NewService(nil, mocks.NewMockTokenAuthority(t))
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_DEPENDENCY")

	_, err = auth.NewService(newCredentialStore(t), nil)
	errutil.AssertErrorCode(t, err, "AUTH_INVALID_DEPENDENCY")
}
