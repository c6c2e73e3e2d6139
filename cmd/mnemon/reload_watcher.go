// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/AleutianAI/Mnemon/pkg/logging"
	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces bursts of filesystem events (editors and
// build tools often touch a file several times in quick succession).
const reloadDebounce = 500 * time.Millisecond

// ReloadSupervisor runs the server as a child and restarts it when a
// watched path changes. Only dev and local launch profiles use it; prod
// hand-off is an exec replacement and never comes back here.
type ReloadSupervisor struct {
	proc   ProcessManager
	logger *logging.Logger
}

// NewReloadSupervisor creates a supervisor over the given process manager.
func NewReloadSupervisor(proc ProcessManager, logger *logging.Logger) *ReloadSupervisor {
	return &ReloadSupervisor{proc: proc, logger: logger}
}

// Run supervises the plan until the child exits on its own or the
// context is cancelled. Returns the child's final exit code.
func (s *ReloadSupervisor) Run(ctx context.Context, plan LaunchPlan, watchPaths []string) (int, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return -1, fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, path := range watchPaths {
		if err := watcher.Add(path); err != nil {
			s.logger.Warn("cannot watch path", "path", path, "error", err.Error())
		}
	}

	for {
		child, err := s.proc.StartSupervised(ctx, plan.Name, plan.Args, plan.Env)
		if err != nil {
			return -1, err
		}
		s.logger.Info("server started", "pid", child.Pid())

		exitCh := make(chan int, 1)
		go func() {
			code, _ := child.Wait()
			exitCh <- code
		}()

		restart, code, err := s.superviseOnce(ctx, watcher, child, exitCh)
		if !restart {
			return code, err
		}
	}
}

// superviseOnce watches one child generation. Returns restart=true when
// a filesystem change asked for a fresh child.
func (s *ReloadSupervisor) superviseOnce(ctx context.Context, watcher *fsnotify.Watcher, child SupervisedProcess, exitCh <-chan int) (restart bool, code int, err error) {
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			_ = child.Stop()
			<-exitCh
			return false, 0, ctx.Err()

		case code := <-exitCh:
			return false, code, nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.logger.Info("change detected, scheduling restart", "path", event.Name)
			pending = time.After(reloadDebounce)

		case <-pending:
			_ = child.Stop()
			<-exitCh
			return true, 0, nil

		case watchErr := <-watcher.Errors:
			s.logger.Warn("watcher error", "error", watchErr.Error())
		}
	}
}
