// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProcessManager_RunCapturesOutput(t *testing.T) {
	pm := NewDefaultProcessManager()

	output, code, err := pm.Run(context.Background(), "sh", "-c", "echo out; echo err >&2")

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Contains(t, string(output), "out")
	assert.Contains(t, string(output), "err", "stderr must be captured alongside stdout")
}

func TestDefaultProcessManager_RunNonzeroExitIsNotError(t *testing.T) {
	pm := NewDefaultProcessManager()

	output, code, err := pm.Run(context.Background(), "sh", "-c", "echo conflict; exit 3")

	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Contains(t, string(output), "conflict")
}

func TestDefaultProcessManager_RunMissingBinary(t *testing.T) {
	pm := NewDefaultProcessManager()

	_, code, err := pm.Run(context.Background(), "definitely-not-a-real-binary-xyz")

	require.Error(t, err)
	assert.Equal(t, -1, code)
}

func TestDefaultProcessManager_RunCancelledContext(t *testing.T) {
	pm := NewDefaultProcessManager()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := pm.Run(ctx, "sleep", "10")

	require.Error(t, err)
}

func TestDefaultProcessManager_StartSupervised(t *testing.T) {
	pm := NewDefaultProcessManager()

	child, err := pm.StartSupervised(context.Background(), "sh", []string{"-c", "exit 0"}, nil)
	require.NoError(t, err)
	assert.Greater(t, child.Pid(), 0)

	code, err := child.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestDefaultProcessManager_SupervisedStop(t *testing.T) {
	pm := NewDefaultProcessManager()

	child, err := pm.StartSupervised(context.Background(), "sleep", []string{"30"}, nil)
	require.NoError(t, err)

	require.NoError(t, child.Stop())

	code, err := child.Wait()
	require.NoError(t, err)
	assert.NotEqual(t, 0, code, "a terminated child reports a nonzero exit")
}

func TestMockProcessManager_RecordsCalls(t *testing.T) {
	mock := &MockProcessManager{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, int, error) {
			return []byte("ok"), 0, nil
		},
		ExecFunc: func(name string, args []string, env []string) error {
			return nil
		},
	}

	_, _, err := mock.Run(context.Background(), "alembic", "upgrade", "head")
	require.NoError(t, err)
	require.NoError(t, mock.Exec("memoryd", nil, []string{"MEMORYD_PORT=8000"}))

	calls := mock.GetCalls()
	require.Len(t, calls, 2)
	assert.Equal(t, "Run", calls[0].Method)
	assert.Equal(t, "alembic", calls[0].Name)
	assert.Equal(t, "Exec", calls[1].Method)
	assert.Equal(t, []string{"MEMORYD_PORT=8000"}, calls[1].Env)
}

func TestMockProcessManager_PanicsWithoutFunc(t *testing.T) {
	mock := &MockProcessManager{}

	assert.Panics(t, func() {
		_, _, _ = mock.Run(context.Background(), "anything")
	})
}
