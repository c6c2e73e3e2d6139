// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package main contains migration.go which runs the external schema migration
tool and classifies its outcome.

# Problem Statement

The migration tool is an external CLI that assumes the base tables already
exist. Re-running it against an already-migrated database fails with a
conflict on the default bootstrap user, which is not an error: it means a
previous run completed. Every other nonzero exit must stop the bring-up,
because a half-applied schema is worse than no server.

# Classification Rule

	exit 0                          -> MigrationSuccess
	exit != 0, known benign marker  -> MigrationBenignConflict (warn, proceed)
	exit != 0, anything else        -> MigrationFatal (abort with full output)

The benign markers are an enumerated, auditable set of case-sensitive
substrings. Unknown failure text is never silently ignored.
*/
package main

import (
	"context"
	"strings"
)

// MigrationDisposition is the classified outcome of one migration run.
type MigrationDisposition int

const (
	// MigrationSuccess means the tool exited zero.
	MigrationSuccess MigrationDisposition = iota

	// MigrationBenignConflict means the tool failed only because a prior
	// run already created the default bootstrap record.
	MigrationBenignConflict

	// MigrationFatal means any other failure. Startup must abort.
	MigrationFatal
)

// String returns the disposition name for logging.
func (d MigrationDisposition) String() string {
	switch d {
	case MigrationSuccess:
		return "success"
	case MigrationBenignConflict:
		return "benign_conflict"
	case MigrationFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// benignConflictMarkers are the recognized "already migrated" signatures.
//
// Matching is a case-sensitive substring test against the full combined
// output. Both markers come from the default-user bootstrap record the
// migration tool seeds on first run. Extend this list only with signatures
// that provably indicate prior successful completion.
var benignConflictMarkers = []string{
	"UserAlreadyExists",
	"User default_user@example.com already exists",
}

// MigrationResult captures one migration run.
type MigrationResult struct {
	// ExitCode is the tool's process exit code.
	ExitCode int

	// Output is the combined stdout and stderr of the run.
	Output string
}

// Classify maps a migration result to a disposition.
//
// # Description
//
// Implements the classification rule documented in the package comment.
// The fatal default is deliberate: output that merely resembles a conflict
// but doesn't match a known marker still aborts startup.
func (r MigrationResult) Classify() MigrationDisposition {
	if r.ExitCode == 0 {
		return MigrationSuccess
	}
	for _, marker := range benignConflictMarkers {
		if strings.Contains(r.Output, marker) {
			return MigrationBenignConflict
		}
	}
	return MigrationFatal
}

// MigrationRunner executes the external migration tool.
type MigrationRunner interface {
	// RunMigrations runs the tool to completion and returns its result.
	// The returned error is non-nil only when the tool could not be
	// executed at all (missing binary, context cancelled); a nonzero
	// exit is reported through MigrationResult, not the error.
	RunMigrations(ctx context.Context) (MigrationResult, error)
}

// commandMigrationRunner runs a configured argv via a ProcessManager.
type commandMigrationRunner struct {
	proc ProcessManager
	argv []string
}

// NewCommandMigrationRunner creates a runner for the given command line.
//
// The first argv element is the executable, the rest are its arguments,
// e.g. ["alembic", "upgrade", "head"].
func NewCommandMigrationRunner(proc ProcessManager, argv []string) MigrationRunner {
	return &commandMigrationRunner{proc: proc, argv: argv}
}

// RunMigrations implements MigrationRunner.
func (r *commandMigrationRunner) RunMigrations(ctx context.Context) (MigrationResult, error) {
	output, exitCode, err := r.proc.Run(ctx, r.argv[0], r.argv[1:]...)
	if err != nil {
		return MigrationResult{}, err
	}
	return MigrationResult{ExitCode: exitCode, Output: string(output)}, nil
}

var _ MigrationRunner = (*commandMigrationRunner)(nil)
