// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package main contains orchestrator.go which sequences service bring-up.

# Startup Sequence

	┌──────────────────────────────────────────────────────────┐
	│                       mnemon up                          │
	├──────────────────────────────────────────────────────────┤
	│                                                          │
	│  1. WaitingForDependency   bounded ping of the store     │
	│  2. BootstrappingSchema    idempotent base tables        │
	│  3. Migrating              external tool, classified     │
	│  4. SelectingLaunchProfile pure env -> profile mapping   │
	│  5. HandingOff             exec or supervised child      │
	│                                                          │
	└──────────────────────────────────────────────────────────┘

The orchestrator itself never execs: Run returns a LaunchPlan and the
command in main.go performs the hand-off as its final explicit action.
That keeps every transition unit-testable.

Only the dependency wait retries. Schema bootstrap and migration run
exactly once per process; restarting the whole process is the retry
mechanism for those stages.
*/
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/AleutianAI/Mnemon/pkg/logging"
)

// startupState names the orchestrator's states for logging.
type startupState string

const (
	stateInit              startupState = "init"
	stateWaitingDependency startupState = "waiting_for_dependency"
	stateBootstrapping     startupState = "bootstrapping_schema"
	stateMigrating         startupState = "migrating"
	stateSelectingProfile  startupState = "selecting_launch_profile"
	stateHandingOff        startupState = "handing_off"
	stateFailed            startupState = "failed"
)

// Orchestrator runs the bring-up sequence to a terminal state.
//
// One instance per process; the sequence is intrinsically serial so no
// locking is needed.
type Orchestrator struct {
	cfg       *Config
	openStore func(dsn string) (StoreGateway, error)
	migrator  MigrationRunner
	logger    *logging.Logger

	state startupState
}

// NewOrchestrator wires an orchestrator from its collaborators.
func NewOrchestrator(cfg *Config, openStore func(dsn string) (StoreGateway, error), migrator MigrationRunner, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		openStore: openStore,
		migrator:  migrator,
		logger:    logger,
		state:     stateInit,
	}
}

// Run executes the sequence and returns the launch plan for hand-off.
//
// # Description
//
// Blocks through every stage. On any failure the orchestrator is in its
// terminal failed state and the returned error carries the diagnostic
// text (including the migration tool's full output for fatal runs); the
// caller must exit non-zero.
func (o *Orchestrator) Run(ctx context.Context) (LaunchPlan, error) {
	if err := o.waitForDependency(ctx); err != nil {
		return o.fail(err)
	}
	if err := o.bootstrapSchema(ctx); err != nil {
		return o.fail(err)
	}
	if err := o.migrate(ctx); err != nil {
		return o.fail(err)
	}

	o.transition(stateSelectingProfile)
	profile := SelectLaunchProfile(o.cfg.Launch)
	o.logger.Info("launch profile selected",
		"mode", string(profile.Mode),
		"http_port", profile.HTTPPort,
		"debug_enabled", profile.DebugEnabled,
		"auto_reload", profile.AutoReload,
	)

	o.transition(stateHandingOff)
	return BuildLaunchPlan(profile, o.cfg.ServerBinary, os.Environ()), nil
}

// State returns the current state; useful for diagnostics and tests.
func (o *Orchestrator) State() string {
	return string(o.state)
}

func (o *Orchestrator) transition(next startupState) {
	o.logger.Info("startup state transition", "from", string(o.state), "to", string(next))
	o.state = next
}

func (o *Orchestrator) fail(err error) (LaunchPlan, error) {
	o.transition(stateFailed)
	return LaunchPlan{}, err
}

// waitForDependency probes the relational store until it answers.
//
// The probe connection is short-lived and closed before bootstrap; the
// bootstrap and migration stages open their own connections.
func (o *Orchestrator) waitForDependency(ctx context.Context) error {
	o.transition(stateWaitingDependency)

	store, err := o.openStore(o.cfg.StoreDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	outcome, err := Probe(ctx, o.cfg.ProbePolicy(), store.Ping, o.logger)
	if err != nil {
		return fmt.Errorf("relational store never became ready: %w", err)
	}
	o.logger.Info("relational store ready", "attempts", outcome.Attempts)
	return nil
}

// bootstrapSchema creates the base tables the migration tool assumes.
// Runs exactly once; any error is fatal with no local recovery.
func (o *Orchestrator) bootstrapSchema(ctx context.Context) error {
	o.transition(stateBootstrapping)

	store, err := o.openStore(o.cfg.StoreDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureBaseTables(ctx); err != nil {
		return fmt.Errorf("schema bootstrap failed: %w", err)
	}
	o.logger.Info("base tables ensured")
	return nil
}

// migrate runs the external migration tool and classifies the result.
func (o *Orchestrator) migrate(ctx context.Context) error {
	o.transition(stateMigrating)

	result, err := o.migrator.RunMigrations(ctx)
	if err != nil {
		return fmt.Errorf("migration tool could not run: %w", err)
	}

	switch result.Classify() {
	case MigrationSuccess:
		o.logger.Info("migrations applied", "exit_code", result.ExitCode)
		return nil
	case MigrationBenignConflict:
		// A prior run already seeded the default record. Warn, proceed.
		o.logger.Warn("migration reported a benign conflict; continuing",
			"exit_code", result.ExitCode,
		)
		return nil
	default:
		return fmt.Errorf("migration failed (exit %d):\n%s", result.ExitCode, result.Output)
	}
}
