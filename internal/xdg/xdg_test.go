// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bruth/bruth/pkg/errutil"
)

func TestConfigDir(t *testing.T) {
	t.Run("env var", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		got, err := ConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/custom/config/bruth", got)
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", "/home/testuser")
		got, err := ConfigDir()
		require.NoError(t, err)
		assert.Equal(t, "/home/testuser/.config/bruth", got)
	})
}

func TestDataDir(t *testing.T) {
	t.Run("env var", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/custom/data")
		got, err := DataDir()
		require.NoError(t, err)
		assert.Equal(t, "/custom/data/bruth", got)
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "")
		t.Setenv("HOME", "/home/testuser")
		got, err := DataDir()
		require.NoError(t, err)
		assert.Equal(t, "/home/testuser/.local/share/bruth", got)
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		got, err := FindConfigFile()
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("present file", func(t *testing.T) {
		base := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", base)
		dir := filepath.Join(base, "bruth")
		require.NoError(t, EnsureDir(dir))
		path := filepath.Join(dir, ConfigFileName)
		require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

		got, err := FindConfigFile()
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("directory in place of file", func(t *testing.T) {
		base := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", base)
		require.NoError(t, EnsureDir(filepath.Join(base, "bruth", ConfigFileName)))

		_, err := FindConfigFile()
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "XDG_STAT_FAILED")
	})
}

func TestEnsureDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}

func TestEnsureDir_Failure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	err := EnsureDir(filepath.Join(file, "child"))
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "XDG_MKDIR_FAILED")
}
