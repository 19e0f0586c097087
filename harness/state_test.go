// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package harness

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/android-tools/logstress/fatalerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateMachineHappyPaths(t *testing.T) {
	for _, wait := range []State{WaitingOnMonitor, Sleeping} {
		m := newStateMachine()
		for _, s := range []State{ChannelCleared, Forked, wait, GeneratorKilled, Done} {
			require.NoError(t, m.transition(s))
			assert.Equal(t, s, m.current())
		}
		assert.Len(t, m.describe(), 6)
	}
}

func TestStateMachineRejectsSkips(t *testing.T) {
	m := newStateMachine()
	assert.True(t, errors.Is(m.transition(Forked), ErrNotAllowed))
	assert.Equal(t, Start, m.current())

	require.NoError(t, m.transition(ChannelCleared))
	require.NoError(t, m.transition(Forked))
	assert.True(t, errors.Is(m.transition(GeneratorKilled), ErrNotAllowed))

	require.NoError(t, m.transition(Sleeping))
	assert.True(t, errors.Is(m.transition(WaitingOnMonitor), ErrNotAllowed))
	require.NoError(t, m.transition(GeneratorKilled))
	assert.True(t, errors.Is(m.transition(GeneratorKilled), ErrNotAllowed))
	require.NoError(t, m.transition(Done))

	// Done is terminal
	for _, s := range []State{Start, ChannelCleared, Forked, Sleeping, Done} {
		assert.True(t, errors.Is(m.transition(s), ErrNotAllowed))
	}
}

func TestPrepareLogDirIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logcattest")
	require.NoError(t, PrepareLogDir(dir))
	require.NoError(t, PrepareLogDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm()&0700)
}

func TestPrepareLogDirFailure(t *testing.T) {
	err := PrepareLogDir(filepath.Join(t.TempDir(), "a", "b"))
	require.Error(t, err)
	assert.Equal(t, fatalerror.LogDirError, fatalerror.TypeOf(err))
}
