// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingDoer fails a fixed number of probes before answering 200.
type countingDoer struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (d *countingDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.calls <= d.failures {
		return nil, errors.New("dial tcp: connection refused")
	}
	return jsonResponse(http.StatusOK, `{"status":"ok"}`), nil
}

func (d *countingDoer) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func TestWaitForBackend_SucceedsImmediately(t *testing.T) {
	doer := &countingDoer{}
	c := newTestClient(t, doer)

	start := time.Now()
	err := c.WaitForBackend(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, doer.callCount())
	assert.Less(t, time.Since(start), 500*time.Millisecond, "no delay before the first attempt")
}

func TestWaitForBackend_SucceedsAfterFailures(t *testing.T) {
	doer := &countingDoer{failures: 2}
	c := newTestClient(t, doer)

	err := c.WaitForBackend(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, doer.callCount(), "probing stops on the first success")
}

func TestWaitForBackend_ExhaustsFixedBudget(t *testing.T) {
	if testing.Short() {
		t.Skip("fixed probe delays make exhaustion slow")
	}
	doer := &countingDoer{failures: 100}
	c := newTestClient(t, doer)

	err := c.WaitForBackend(context.Background())

	require.Error(t, err)
	var unresponsive *UnresponsiveError
	require.ErrorAs(t, err, &unresponsive)
	assert.Equal(t, "backend", unresponsive.Target)
	assert.Equal(t, 5, unresponsive.Attempts)
	assert.Equal(t, 5, doer.callCount(), "exactly five probes, regardless of failure cause")
}

func TestWaitForBackend_NonOKIsFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("fixed probe delays make exhaustion slow")
	}
	doer := &recordingDoer{responses: []doerStep{
		{resp: jsonResponse(http.StatusServiceUnavailable, `{}`)},
		{resp: jsonResponse(http.StatusServiceUnavailable, `{}`)},
		{resp: jsonResponse(http.StatusServiceUnavailable, `{}`)},
		{resp: jsonResponse(http.StatusServiceUnavailable, `{}`)},
		{resp: jsonResponse(http.StatusServiceUnavailable, `{}`)},
	}}
	c := newTestClient(t, doer)

	err := c.WaitForBackend(context.Background())

	var unresponsive *UnresponsiveError
	require.ErrorAs(t, err, &unresponsive)
	assert.Len(t, doer.recorded(), 5)
}

func TestWaitForCompanion_NamesTarget(t *testing.T) {
	if testing.Short() {
		t.Skip("fixed probe delays make exhaustion slow")
	}
	doer := &countingDoer{failures: 100}
	c := newTestClient(t, doer)

	err := c.WaitForCompanion(context.Background())

	var unresponsive *UnresponsiveError
	require.ErrorAs(t, err, &unresponsive)
	assert.Equal(t, "companion", unresponsive.Target)
	assert.Contains(t, err.Error(), "companion is unresponsive after 5 attempts")
}

func TestWaitForBackend_ContextCancelled(t *testing.T) {
	doer := &countingDoer{failures: 100}
	c := newTestClient(t, doer)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	err := c.WaitForBackend(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, doer.callCount(), "cancellation ends the wait between attempts")
}
