// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bruth Contributors

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/bruth/bruth/internal/auth"
	"github.com/bruth/bruth/internal/config"
	"github.com/bruth/bruth/internal/observability"
)

// mockMigrator implements AutoMigrator for testing.
type mockMigrator struct {
	upFunc    func() error
	closeFunc func() error
	upCalled  bool
	closed    bool
}

func (m *mockMigrator) Up() error {
	m.upCalled = true
	if m.upFunc != nil {
		return m.upFunc()
	}
	return nil
}

func (m *mockMigrator) Close() error {
	m.closed = true
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

// mockObservabilityServer implements ObservabilityServer for testing.
type mockObservabilityServer struct {
	startFunc func() (<-chan error, error)
	stopFunc  func(ctx context.Context) error
	metrics   *observability.Metrics
	stopped   bool
}

func (m *mockObservabilityServer) Start() (<-chan error, error) {
	if m.startFunc != nil {
		return m.startFunc()
	}
	return make(chan error, 1), nil
}

func (m *mockObservabilityServer) Stop(ctx context.Context) error {
	m.stopped = true
	if m.stopFunc != nil {
		return m.stopFunc(ctx)
	}
	return nil
}

func (m *mockObservabilityServer) Addr() string {
	return "127.0.0.1:9100"
}

func (m *mockObservabilityServer) Metrics() *observability.Metrics {
	return m.metrics
}

// mockAPIServer implements APIServer for testing.
type mockAPIServer struct {
	startFunc func() (<-chan error, error)
	stopped   bool
}

func (m *mockAPIServer) Start() (<-chan error, error) {
	if m.startFunc != nil {
		return m.startFunc()
	}
	return make(chan error, 1), nil
}

func (m *mockAPIServer) Stop(_ context.Context) error {
	m.stopped = true
	return nil
}

func (m *mockAPIServer) Addr() string {
	return "127.0.0.1:8080"
}

// newMockCmd returns a command whose output is captured.
func newMockCmd() (*cobra.Command, *bytes.Buffer) {
	cmd := &cobra.Command{}
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	return cmd, buf
}

// testConfig returns a valid configuration backed by a sqlite file in a temp
// dir, the memory token table and the cheapest bcrypt cost.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(config.Options{
		Flags:     config.NewFlagSet(),
		LookupEnv: func(string) (string, bool) { return "", false },
	})
	require.NoError(t, err)

	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Metrics.Addr = ""
	cfg.Log.Level = "error"
	cfg.Storage.Path = filepath.Join(t.TempDir(), "bruth.db")
	cfg.Hash.Algorithm = auth.AlgorithmBcrypt
	cfg.Hash.Cost = 4
	require.NoError(t, cfg.Validate())
	return cfg
}

// resetGlobals restores the root command's flag globals.
func resetGlobals(t *testing.T) {
	t.Helper()
	configFile = ""
	envFiles = nil
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Cleanup(func() {
		configFile = ""
		envFiles = nil
	})
}
