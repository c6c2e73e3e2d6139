// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strconv"
)

// EnvironmentMode selects how the application server is launched.
type EnvironmentMode string

const (
	ModeDev   EnvironmentMode = "dev"
	ModeLocal EnvironmentMode = "local"
	ModeProd  EnvironmentMode = "prod"
)

// Launch defaults. The loopback debug host is a deliberate security
// choice: a debugger must never listen on all interfaces unless an
// operator explicitly asks for it.
const (
	defaultHTTPPort  = 8000
	defaultDebugPort = 5678
	defaultDebugHost = "127.0.0.1"
)

// LaunchProfile is the resolved set of process-launch parameters.
//
// # Description
//
// Derived exactly once from environment configuration at startup and
// immutable afterwards. Dev and local modes enable auto-reload and
// verbose logging; prod disables both. Worker concurrency is fixed at
// one: the server owns its own internal concurrency.
type LaunchProfile struct {
	Mode         EnvironmentMode
	DebugEnabled bool
	DebugHost    string
	DebugPort    int
	HTTPPort     int
	AutoReload   bool
	Verbose      bool
	Workers      int
}

// LaunchSettings are the raw inputs to profile selection.
type LaunchSettings struct {
	// Environment is the raw mode string. Unrecognized values fall back
	// to prod so a typo can never accidentally enable debug behavior.
	Environment string

	DebugEnabled bool
	DebugHost    string
	DebugPort    int
	HTTPPort     int
}

// SelectLaunchProfile maps settings to a concrete launch profile.
//
// Pure function: no I/O, no environment reads, always succeeds.
func SelectLaunchProfile(settings LaunchSettings) LaunchProfile {
	mode := ModeProd
	switch EnvironmentMode(settings.Environment) {
	case ModeDev:
		mode = ModeDev
	case ModeLocal:
		mode = ModeLocal
	}

	profile := LaunchProfile{
		Mode:         mode,
		DebugEnabled: settings.DebugEnabled,
		DebugHost:    settings.DebugHost,
		DebugPort:    settings.DebugPort,
		HTTPPort:     settings.HTTPPort,
		Workers:      1,
	}
	if profile.HTTPPort == 0 {
		profile.HTTPPort = defaultHTTPPort
	}
	if profile.DebugPort == 0 {
		profile.DebugPort = defaultDebugPort
	}
	if profile.DebugHost == "" {
		profile.DebugHost = defaultDebugHost
	}
	if mode == ModeDev || mode == ModeLocal {
		profile.AutoReload = true
		profile.Verbose = true
	}
	return profile
}

// LaunchPlan is the concrete command line the hand-off will run.
//
// The orchestrator produces a plan; only the outermost entry point turns
// it into a real process (exec replacement or supervised child), keeping
// the orchestration logic exec-free and testable.
type LaunchPlan struct {
	// Name is the executable to launch.
	Name string

	// Args are the executable's arguments.
	Args []string

	// Env is the full environment for the new process, KEY=VALUE form.
	Env []string

	// Supervise is true when the launcher must spawn and watch the child
	// (dev auto-reload) instead of exec-replacing itself.
	Supervise bool
}

// BuildLaunchPlan turns a profile into the server command line.
//
// # Description
//
// serverBinary is the application-server executable. baseEnv is the
// inherited environment. When debugging is enabled the plan wraps the
// server in a headless Delve listener bound to the profile's debug
// host/port so a client can attach before serving begins.
func BuildLaunchPlan(profile LaunchProfile, serverBinary string, baseEnv []string) LaunchPlan {
	env := append([]string{}, baseEnv...)
	env = append(env,
		"MEMORYD_PORT="+strconv.Itoa(profile.HTTPPort),
		"MEMORYD_MODE="+string(profile.Mode),
	)
	if profile.Verbose {
		env = append(env, "MEMORYD_LOG_LEVEL=debug")
	}

	serverArgs := []string{}

	if profile.DebugEnabled {
		listen := fmt.Sprintf("%s:%d", profile.DebugHost, profile.DebugPort)
		return LaunchPlan{
			Name: "dlv",
			Args: append([]string{
				"exec", serverBinary,
				"--headless",
				"--listen", listen,
				"--accept-multiclient",
				"--api-version", "2",
				"--",
			}, serverArgs...),
			Env:       env,
			Supervise: profile.AutoReload,
		}
	}

	return LaunchPlan{
		Name:      serverBinary,
		Args:      serverArgs,
		Env:       env,
		Supervise: profile.AutoReload,
	}
}
