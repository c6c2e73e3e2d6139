// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full bring-up configuration.
//
// Loaded from an optional YAML file, then overridden by environment
// variables, then validated. Constructed once at process start and
// treated as immutable afterwards.
type Config struct {
	// StoreDSN is the relational store connection string.
	StoreDSN string `yaml:"store_dsn" validate:"required"`

	// ServerBinary is the application-server executable handed off to.
	ServerBinary string `yaml:"server_binary" validate:"required"`

	// MigrateCommand is the external migration tool argv.
	MigrateCommand []string `yaml:"migrate_command" validate:"required,min=1"`

	// DependencyWait bounds the relational-store readiness probe.
	DependencyWait DependencyWaitConfig `yaml:"dependency_wait"`

	// Launch holds the raw launch-profile inputs.
	Launch LaunchSettings `yaml:"launch"`
}

// DependencyWaitConfig is the configurable probe policy.
type DependencyWaitConfig struct {
	MaxAttempts     int     `yaml:"max_attempts" validate:"min=1"`
	IntervalSeconds float64 `yaml:"interval_seconds" validate:"min=0"`
}

// ProbePolicy converts the wait config to a probe policy.
func (c *Config) ProbePolicy() ProbePolicy {
	return ProbePolicy{
		MaxAttempts: c.DependencyWait.MaxAttempts,
		Interval:    time.Duration(c.DependencyWait.IntervalSeconds * float64(time.Second)),
	}
}

// defaultConfig returns the baseline before file and env overrides.
func defaultConfig() *Config {
	return &Config{
		ServerBinary:   "memoryd",
		MigrateCommand: []string{"alembic", "upgrade", "head"},
		DependencyWait: DependencyWaitConfig{
			MaxAttempts:     12,
			IntervalSeconds: 5,
		},
	}
}

// LoadConfig builds the configuration from file and environment.
//
// # Description
//
// Precedence, lowest to highest: built-in defaults, the YAML file at
// path (missing file is not an error), MNEMON_* environment variables.
// The merged result is validated; a config that fails validation is a
// startup error, never a silent fallback.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides layers MNEMON_* environment variables onto cfg.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MNEMON_STORE_DSN"); v != "" {
		cfg.StoreDSN = v
	}
	if v := os.Getenv("MNEMON_SERVER_BINARY"); v != "" {
		cfg.ServerBinary = v
	}
	if v := os.Getenv("MNEMON_MIGRATE_COMMAND"); v != "" {
		cfg.MigrateCommand = strings.Fields(v)
	}
	if v, ok := envInt("MNEMON_DB_WAIT_MAX_ATTEMPTS"); ok {
		cfg.DependencyWait.MaxAttempts = v
	}
	if v := os.Getenv("MNEMON_DB_WAIT_INTERVAL_SECONDS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.DependencyWait.IntervalSeconds = f
		}
	}
	if v := os.Getenv("MNEMON_ENVIRONMENT"); v != "" {
		cfg.Launch.Environment = v
	}
	if v := os.Getenv("MNEMON_DEBUG"); v != "" {
		cfg.Launch.DebugEnabled = isTruthy(v)
	}
	if v := os.Getenv("MNEMON_DEBUG_HOST"); v != "" {
		cfg.Launch.DebugHost = v
	}
	if v, ok := envInt("MNEMON_DEBUG_PORT"); ok {
		cfg.Launch.DebugPort = v
	}
	if v, ok := envInt("MNEMON_HTTP_PORT"); ok {
		cfg.Launch.HTTPPort = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
