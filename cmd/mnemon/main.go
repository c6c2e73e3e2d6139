// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command mnemon brings up the memory-engine backend.
//
// `mnemon up` waits for the relational store, bootstraps the base schema,
// applies migrations, then becomes the application server. Exit code 0 is
// only ever produced through process replacement; any bring-up failure
// exits 1 with diagnostics on stderr.
//
// # Environment Variables
//
//   - MNEMON_STORE_DSN: Postgres connection string (required)
//   - MNEMON_SERVER_BINARY: application server executable (default: memoryd)
//   - MNEMON_MIGRATE_COMMAND: migration tool argv (default: alembic upgrade head)
//   - MNEMON_ENVIRONMENT: dev, local or prod (default: prod)
//   - MNEMON_DEBUG / MNEMON_DEBUG_HOST / MNEMON_DEBUG_PORT: debugger attach
//   - MNEMON_HTTP_PORT: server port (default: 8000)
//   - MNEMON_DB_WAIT_MAX_ATTEMPTS / MNEMON_DB_WAIT_INTERVAL_SECONDS
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/Mnemon/pkg/logging"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mnemon",
	Short: "Memory-engine backend launcher",
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Run bring-up and hand off to the application server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUp()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "mnemon.yaml", "path to the configuration file")
	rootCmd.AddCommand(upCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runUp is the outermost bring-up entry point. All orchestration below it
// is exec-free; the hand-off happens here, last, explicitly.
func runUp() error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{Service: "mnemon"})
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	proc := NewDefaultProcessManager()
	migrator := NewCommandMigrationRunner(proc, cfg.MigrateCommand)
	orch := NewOrchestrator(cfg, OpenStoreGateway, migrator, logger)

	plan, err := orch.Run(ctx)
	if err != nil {
		logger.Error("bring-up failed", "state", orch.State(), "error", err.Error())
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if plan.Supervise {
		supervisor := NewReloadSupervisor(proc, logger)
		code, err := supervisor.Run(ctx, plan, []string{cfg.ServerBinary, configPath})
		if err != nil && ctx.Err() == nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(code)
	}

	// Irreversible: on success control never returns.
	if err := proc.Exec(plan.Name, plan.Args, plan.Env); err != nil {
		logger.Error("hand-off failed", "error", err.Error())
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return nil
}
