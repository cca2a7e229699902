// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite_CreatesDirectoryAndAppliesPragmas(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "bruth.db")

	db, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpenSQLite_SchemaViaMigrator(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bruth.db")

	m, err := NewMigrator(DriverSQLite, path)
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	db, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	insert := `INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, 'x', '', '')`
	_, err = db.ExecContext(ctx, insert, "a", "Alice", "a@example.com")
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, insert, "b", "ALICE", "b@example.com")
	assert.Error(t, err, "usernames are unique regardless of case")
	_, err = db.ExecContext(ctx, insert, "c", "bob", "a@example.com")
	assert.Error(t, err, "emails are unique")
}

func TestEnsureSQLiteDir(t *testing.T) {
	base := t.TempDir()
	tests := []struct {
		name    string
		path    string
		wantDir string
	}{
		{name: "plain path", path: filepath.Join(base, "a", "bruth.db"), wantDir: filepath.Join(base, "a")},
		{name: "sqlite scheme with query", path: "sqlite://" + filepath.Join(base, "b", "bruth.db") + "?x-no-tx-wrap=true", wantDir: filepath.Join(base, "b")},
		{name: "bare file name", path: "bruth.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, ensureSQLiteDir(tt.path))
			if tt.wantDir != "" {
				assert.DirExists(t, tt.wantDir)
			}
		})
	}
}
