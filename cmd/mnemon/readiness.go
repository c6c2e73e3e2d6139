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
)

// ErrProbeExhausted is returned when every probe attempt has failed.
var ErrProbeExhausted = fmt.Errorf("readiness probe exhausted")

// ProbePolicy is the bounded-retry contract for a readiness probe.
//
// # Description
//
// A probe runs a blocking check up to MaxAttempts times with a fixed
// Interval between attempts (linear backoff, never exponential). The
// policy is built once from configuration and is immutable afterwards.
//
// # Examples
//
//	policy := ProbePolicy{MaxAttempts: 12, Interval: 5 * time.Second}
//	outcome, err := Probe(ctx, policy, store.Ping, logger)
//
// # Limitations
//
//   - Attempts are strictly sequential; there is no concurrent probing
//   - Interval applies between attempts, not before the first one
type ProbePolicy struct {
	// MaxAttempts is the total attempt budget. Must be >= 1.
	MaxAttempts int

	// Interval is the fixed sleep between attempts. May be zero.
	Interval time.Duration
}

// Validate checks the policy invariants.
func (p ProbePolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("probe policy: max attempts must be >= 1, got %d", p.MaxAttempts)
	}
	if p.Interval < 0 {
		return fmt.Errorf("probe policy: interval must be >= 0, got %v", p.Interval)
	}
	return nil
}

// ProbeOutcome reports how a probe sequence ended.
type ProbeOutcome struct {
	// Attempts is the number of checks actually performed.
	Attempts int

	// Succeeded is true if any attempt returned nil.
	Succeeded bool
}

// Probe runs check until it succeeds or the policy is exhausted.
//
// # Description
//
// Invokes check up to policy.MaxAttempts times, sleeping policy.Interval
// between attempts. Returns on the first nil result. After exhaustion the
// returned error wraps ErrProbeExhausted and the last check error.
//
// Each attempt is logged at info level so operators can watch a slow
// dependency come up.
//
// # Inputs
//
//   - ctx: cancels the wait between attempts; a cancelled context ends
//     the probe with the context error
//   - policy: attempt budget and interval; must pass Validate
//   - check: one synchronous, blocking readiness check
//   - logger: attempt logging; must not be nil
//
// # Outputs
//
//   - ProbeOutcome: attempts used and whether the probe succeeded
//   - error: nil on success; ErrProbeExhausted-wrapping error otherwise
func Probe(ctx context.Context, policy ProbePolicy, check func(ctx context.Context) error, logger *logging.Logger) (ProbeOutcome, error) {
	if err := policy.Validate(); err != nil {
		return ProbeOutcome{}, err
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = check(ctx)
		if lastErr == nil {
			logger.Info("readiness probe succeeded",
				"attempt", attempt,
				"max_attempts", policy.MaxAttempts,
			)
			return ProbeOutcome{Attempts: attempt, Succeeded: true}, nil
		}

		logger.Info("readiness probe attempt failed",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"error", lastErr.Error(),
		)

		if attempt < policy.MaxAttempts {
			if err := sleepWithContext(ctx, policy.Interval); err != nil {
				return ProbeOutcome{Attempts: attempt, Succeeded: false}, err
			}
		}
	}

	return ProbeOutcome{Attempts: policy.MaxAttempts, Succeeded: false},
		fmt.Errorf("%w after %d attempts: %v", ErrProbeExhausted, policy.MaxAttempts, lastErr)
}

// sleepWithContext sleeps for duration or until the context is done.
func sleepWithContext(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		// Still honor cancellation between zero-interval attempts.
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(duration):
		return nil
	}
}
