// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package client

import (
	"context"
	"net/http"
	"time"
)

// Liveness probing is deliberately rigid: a fixed attempt budget and a
// fixed delay, not configurable at runtime. The point is a predictable
// upper bound on how long the client tier waits before declaring a
// service unusable.
const (
	healthMaxAttempts = 5
	healthDelay       = 1000 * time.Millisecond
	healthPath        = "/health"
)

// WaitForBackend polls the primary backend's liveness path until it
// answers 200 or the attempt budget is spent.
//
// # Description
//
// Attempts are strictly sequential with a fixed delay between them.
// Returns nil on the first success; after exhaustion returns an
// *UnresponsiveError naming the target and the attempts used. Never
// blocks indefinitely: the budget or the context always ends it.
func (c *Client) WaitForBackend(ctx context.Context) error {
	return c.waitForTarget(ctx, "backend", c.cfg.BaseURL+healthPath)
}

// WaitForCompanion polls the companion service's liveness path with the
// same policy as WaitForBackend. The two targets are never probed in
// parallel; callers sequence them explicitly.
func (c *Client) WaitForCompanion(ctx context.Context) error {
	return c.waitForTarget(ctx, "companion", c.cfg.CompanionURL+healthPath)
}

func (c *Client) waitForTarget(ctx context.Context, name, url string) error {
	for attempt := 1; attempt <= healthMaxAttempts; attempt++ {
		if ok := c.probeOnce(ctx, url); ok {
			c.log.Info("liveness probe succeeded", "target", name, "attempt", attempt)
			return nil
		}
		c.log.Info("liveness probe failed", "target", name,
			"attempt", attempt, "max_attempts", healthMaxAttempts)

		if attempt < healthMaxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(healthDelay):
			}
		}
	}
	return &UnresponsiveError{Target: name, Attempts: healthMaxAttempts}
}

// probeOnce performs a single GET against the liveness path.
func (c *Client) probeOnce(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer drainAndClose(resp.Body)
	return resp.StatusCode == http.StatusOK
}
