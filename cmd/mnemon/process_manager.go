// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package main provides ProcessManager for abstracting external process
execution during bring-up.

All exec calls in the orchestration code go through this interface so
startup sequencing can be unit tested without real processes. The three
operations map to the three ways bring-up touches the OS:

  - Run: the blocking migration subprocess (exit code + combined output)
  - Exec: the irreversible hand-off to the application server
  - StartSupervised: a restartable child for the dev reload supervisor
*/
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// ProcessManager handles external process operations for bring-up.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use, although bring-up
// itself is strictly sequential.
type ProcessManager interface {
	// Run executes a command to completion and returns its combined
	// stdout/stderr and exit code.
	//
	// # Description
	//
	// A nonzero exit is NOT an error here: the caller classifies the
	// exit code and output. The returned error is non-nil only when the
	// process could not run at all (binary missing, context cancelled).
	//
	// # Examples
	//
	//	output, code, err := pm.Run(ctx, "alembic", "upgrade", "head")
	//	if err != nil {
	//	    return fmt.Errorf("migration tool did not run: %w", err)
	//	}
	Run(ctx context.Context, name string, args ...string) ([]byte, int, error)

	// Exec replaces the current process image with the given command.
	//
	// # Description
	//
	// On success this call never returns. A returned error means the
	// replacement itself failed and the caller must exit non-zero.
	// env is the full environment for the new image, in KEY=VALUE form.
	Exec(name string, args []string, env []string) error

	// StartSupervised starts a child process wired to the parent's
	// stdout/stderr and returns a handle for waiting and stopping.
	StartSupervised(ctx context.Context, name string, args []string, env []string) (SupervisedProcess, error)
}

// SupervisedProcess is a running child owned by the reload supervisor.
type SupervisedProcess interface {
	// Wait blocks until the child exits and returns its exit code.
	Wait() (int, error)

	// Stop terminates the child (SIGTERM).
	Stop() error

	// Pid returns the child's process ID.
	Pid() int
}

// -----------------------------------------------------------------------------
// Implementation
// -----------------------------------------------------------------------------

// DefaultProcessManager implements ProcessManager using os/exec and syscall.
type DefaultProcessManager struct{}

// NewDefaultProcessManager creates the production process manager.
func NewDefaultProcessManager() *DefaultProcessManager {
	return &DefaultProcessManager{}
}

// Run executes a command to completion, capturing combined output.
func (pm *DefaultProcessManager) Run(ctx context.Context, name string, args ...string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined

	err := cmd.Run()
	if err == nil {
		return combined.Bytes(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The tool ran and failed; that's a result, not an error.
		return combined.Bytes(), exitErr.ExitCode(), nil
	}
	if ctx.Err() != nil {
		return combined.Bytes(), -1, fmt.Errorf("command %s cancelled: %w", name, ctx.Err())
	}
	return combined.Bytes(), -1, fmt.Errorf("failed to run %s: %w", name, err)
}

// Exec replaces the current process image.
func (pm *DefaultProcessManager) Exec(name string, args []string, env []string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("exec %s: %w", name, err)
	}
	argv := append([]string{path}, args...)
	if err := syscall.Exec(path, argv, env); err != nil {
		return fmt.Errorf("exec %s: %w", name, err)
	}
	// Unreachable: Exec does not return on success.
	return nil
}

// StartSupervised starts a restartable child process.
func (pm *DefaultProcessManager) StartSupervised(ctx context.Context, name string, args []string, env []string) (SupervisedProcess, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = env
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}
	return &supervisedCmd{cmd: cmd}, nil
}

// supervisedCmd wraps exec.Cmd as a SupervisedProcess.
type supervisedCmd struct {
	cmd *exec.Cmd
}

func (s *supervisedCmd) Wait() (int, error) {
	err := s.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func (s *supervisedCmd) Stop() error {
	if s.cmd.Process == nil {
		return nil
	}
	return s.cmd.Process.Signal(syscall.SIGTERM)
}

func (s *supervisedCmd) Pid() int {
	if s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockProcessManager is a test double for ProcessManager.
//
// Configure the mock by setting function fields before use. If a function
// field is nil and the corresponding method is called, it panics.
type MockProcessManager struct {
	// RunFunc is called when Run is invoked.
	RunFunc func(ctx context.Context, name string, args ...string) ([]byte, int, error)

	// ExecFunc is called when Exec is invoked.
	ExecFunc func(name string, args []string, env []string) error

	// StartSupervisedFunc is called when StartSupervised is invoked.
	StartSupervisedFunc func(ctx context.Context, name string, args []string, env []string) (SupervisedProcess, error)

	// Calls records all method invocations for verification.
	Calls []ProcessCall

	mu sync.Mutex
}

// ProcessCall records a single method invocation.
type ProcessCall struct {
	Method string
	Name   string
	Args   []string
	Env    []string
}

// Run delegates to RunFunc and records the call.
func (m *MockProcessManager) Run(ctx context.Context, name string, args ...string) ([]byte, int, error) {
	m.record(ProcessCall{Method: "Run", Name: name, Args: args})
	if m.RunFunc == nil {
		panic("MockProcessManager.RunFunc not set")
	}
	return m.RunFunc(ctx, name, args...)
}

// Exec delegates to ExecFunc and records the call.
func (m *MockProcessManager) Exec(name string, args []string, env []string) error {
	m.record(ProcessCall{Method: "Exec", Name: name, Args: args, Env: env})
	if m.ExecFunc == nil {
		panic("MockProcessManager.ExecFunc not set")
	}
	return m.ExecFunc(name, args, env)
}

// StartSupervised delegates to StartSupervisedFunc and records the call.
func (m *MockProcessManager) StartSupervised(ctx context.Context, name string, args []string, env []string) (SupervisedProcess, error) {
	m.record(ProcessCall{Method: "StartSupervised", Name: name, Args: args, Env: env})
	if m.StartSupervisedFunc == nil {
		panic("MockProcessManager.StartSupervisedFunc not set")
	}
	return m.StartSupervisedFunc(ctx, name, args, env)
}

func (m *MockProcessManager) record(call ProcessCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// GetCalls returns a copy of all recorded calls.
func (m *MockProcessManager) GetCalls() []ProcessCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ProcessCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// Compile-time interface compliance check.
var (
	_ ProcessManager = (*DefaultProcessManager)(nil)
	_ ProcessManager = (*MockProcessManager)(nil)
)
