// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mnemon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_FileAndDefaults(t *testing.T) {
	path := writeConfigFile(t, `
store_dsn: postgres://localhost:5432/mnemon
`)

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost:5432/mnemon", cfg.StoreDSN)
	assert.Equal(t, "memoryd", cfg.ServerBinary)
	assert.Equal(t, []string{"alembic", "upgrade", "head"}, cfg.MigrateCommand)
	assert.Equal(t, 12, cfg.DependencyWait.MaxAttempts)
	assert.Equal(t, 5.0, cfg.DependencyWait.IntervalSeconds)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("MNEMON_STORE_DSN", "postgres://db:5432/mnemon")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))

	require.NoError(t, err)
	assert.Equal(t, "postgres://db:5432/mnemon", cfg.StoreDSN)
	assert.Equal(t, "memoryd", cfg.ServerBinary)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
store_dsn: postgres://file:5432/mnemon
server_binary: memoryd-file
dependency_wait:
  max_attempts: 7
  interval_seconds: 2.5
launch:
  environment: local
`)
	t.Setenv("MNEMON_STORE_DSN", "postgres://env:5432/mnemon")
	t.Setenv("MNEMON_DB_WAIT_MAX_ATTEMPTS", "20")
	t.Setenv("MNEMON_ENVIRONMENT", "dev")
	t.Setenv("MNEMON_DEBUG", "true")
	t.Setenv("MNEMON_DEBUG_PORT", "4040")
	t.Setenv("MNEMON_HTTP_PORT", "9000")

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, "postgres://env:5432/mnemon", cfg.StoreDSN)
	assert.Equal(t, "memoryd-file", cfg.ServerBinary, "untouched file values survive")
	assert.Equal(t, 20, cfg.DependencyWait.MaxAttempts)
	assert.Equal(t, 2.5, cfg.DependencyWait.IntervalSeconds)
	assert.Equal(t, "dev", cfg.Launch.Environment)
	assert.True(t, cfg.Launch.DebugEnabled)
	assert.Equal(t, 4040, cfg.Launch.DebugPort)
	assert.Equal(t, 9000, cfg.Launch.HTTPPort)
}

func TestLoadConfig_MigrateCommandFromEnv(t *testing.T) {
	t.Setenv("MNEMON_STORE_DSN", "postgres://db:5432/mnemon")
	t.Setenv("MNEMON_MIGRATE_COMMAND", "atlas migrate apply --env prod")

	cfg, err := LoadConfig("")

	require.NoError(t, err)
	assert.Equal(t, []string{"atlas", "migrate", "apply", "--env", "prod"}, cfg.MigrateCommand)
}

func TestLoadConfig_MissingDSNFailsValidation(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "store_dsn: [unclosed")

	_, err := LoadConfig(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestConfig_ProbePolicy(t *testing.T) {
	cfg := &Config{DependencyWait: DependencyWaitConfig{MaxAttempts: 12, IntervalSeconds: 5}}

	policy := cfg.ProbePolicy()

	assert.Equal(t, 12, policy.MaxAttempts)
	assert.Equal(t, 5*time.Second, policy.Interval)
}

func TestConfig_ProbePolicyFractionalInterval(t *testing.T) {
	cfg := &Config{DependencyWait: DependencyWaitConfig{MaxAttempts: 3, IntervalSeconds: 0.25}}

	assert.Equal(t, 250*time.Millisecond, cfg.ProbePolicy().Interval)
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "yes", "on"} {
		assert.True(t, isTruthy(v), v)
	}
	for _, v := range []string{"0", "false", "no", "off", "", "maybe"} {
		assert.False(t, isTruthy(v), v)
	}
}
