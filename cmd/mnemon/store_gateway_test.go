// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStoreGateway_LazyOpen(t *testing.T) {
	// sql.Open does not dial; a gateway for an unreachable DSN must still
	// construct and close cleanly. Connectivity surfaces at Ping.
	gw, err := OpenStoreGateway("postgres://nobody@localhost:1/none")
	require.NoError(t, err)
	require.NotNil(t, gw)
	assert.NoError(t, gw.Close())
}

func TestMockStoreGateway_Defaults(t *testing.T) {
	mock := &MockStoreGateway{}
	ctx := context.Background()

	assert.NoError(t, mock.Ping(ctx))
	assert.NoError(t, mock.EnsureBaseTables(ctx))
	assert.NoError(t, mock.Close())
	assert.Equal(t, 1, mock.PingCalls)
	assert.Equal(t, 1, mock.BootstrapCalls)
	assert.True(t, mock.Closed)
}

func TestMockStoreGateway_ConfiguredFailure(t *testing.T) {
	mock := &MockStoreGateway{
		PingFunc: func(ctx context.Context) error {
			return errors.New("connection refused")
		},
	}

	err := mock.Ping(context.Background())

	require.Error(t, err)
	assert.Equal(t, 1, mock.PingCalls)
}
