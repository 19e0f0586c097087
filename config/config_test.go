// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/android-tools/logstress/fatalerror"
	"github.com/android-tools/logstress/logd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgsDefaults(t *testing.T) {
	opts, err := ParseArgs(nil)
	require.NoError(t, err)

	cfg, err := Resolve(opts)
	require.NoError(t, err)

	assert.Equal(t, time.Millisecond, cfg.Interval)
	assert.Equal(t, 1024, cfg.MessageSize)
	assert.Equal(t, "system", cfg.Buffer)
	assert.Equal(t, logd.System, cfg.LogID)
	assert.Equal(t, logd.Verbose, cfg.Priority)
	assert.Equal(t, "threadtimelid", cfg.Format)
	assert.Equal(t, 1024, cfg.RotateSizeKB)
	assert.Equal(t, 100, cfg.RotateCount)
	assert.Equal(t, 1024, cfg.AbortLines)
	assert.Equal(t, 60*time.Second, cfg.TestDuration)
	assert.False(t, cfg.Monitor)
	assert.Equal(t, "/sdcard/logcattest/logcat.log", cfg.LogFile)
	assert.Equal(t, "logcat", cfg.LogcatPath)
	assert.Equal(t, logd.DefaultSocketPath, cfg.LogdSocket)
	assert.Equal(t, Tag, cfg.Tag)
}

func TestParseArgsShortFlags(t *testing.T) {
	opts, err := ParseArgs([]string{"-i", "250", "-s", "16", "-n", "3", "-r", "64", "-v", "brief", "-b", "radio", "-m", "-t", "5", "-a", "10"})
	require.NoError(t, err)

	cfg, err := Resolve(opts)
	require.NoError(t, err)

	assert.Equal(t, 250*time.Microsecond, cfg.Interval)
	assert.Equal(t, 16, cfg.MessageSize)
	assert.Equal(t, 3, cfg.RotateCount)
	assert.Equal(t, 64, cfg.RotateSizeKB)
	assert.Equal(t, "brief", cfg.Format)
	assert.Equal(t, logd.Radio, cfg.LogID)
	assert.True(t, cfg.Monitor)
	assert.Equal(t, 5*time.Second, cfg.TestDuration)
	assert.Equal(t, 10, cfg.AbortLines)
}

func TestParseArgsHelp(t *testing.T) {
	_, err := ParseArgs([]string{"-h"})
	require.Error(t, err)
	assert.True(t, IsHelp(err))
	assert.Contains(t, err.Error(), "--interval")
}

func TestParseArgsUnknownFlag(t *testing.T) {
	_, err := ParseArgs([]string{"-x"})
	require.Error(t, err)
	assert.False(t, IsHelp(err))
}

func TestParseArgsRejectsPositionalArguments(t *testing.T) {
	_, err := ParseArgs([]string{"-b", "main", "extra"})
	assert.Equal(t, fatalerror.InvalidValue, fatalerror.TypeOf(err))
}

func TestResolveUnknownBuffer(t *testing.T) {
	opts, err := ParseArgs([]string{"-b", "kernel"})
	require.NoError(t, err)

	_, err = Resolve(opts)
	require.Error(t, err)
	assert.Equal(t, fatalerror.InvalidBuffer, fatalerror.TypeOf(err))
}

func TestResolveRejectsBadValues(t *testing.T) {
	for _, args := range [][]string{
		{"--size=0"},
		{"--size=-5"},
		{"--interval=-1"},
		{"--duration=-1"},
		{"--priority", "loud"},
	} {
		opts, err := ParseArgs(args)
		require.NoError(t, err, args)
		_, err = Resolve(opts)
		assert.Equal(t, fatalerror.InvalidValue, fatalerror.TypeOf(err), args)
	}
}

func TestDescribe(t *testing.T) {
	opts, err := ParseArgs([]string{"-b", "main", "-t", "2"})
	require.NoError(t, err)
	cfg, err := Resolve(opts)
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	cfg.Describe(buf)
	out := buf.String()
	assert.Contains(t, out, "Test duration:               2 sec.")
	assert.Contains(t, out, "Buffer:                      main.")
	assert.NotContains(t, out, "Abort lines")

	cfg.Monitor = true
	buf.Reset()
	cfg.Describe(buf)
	out = buf.String()
	assert.Contains(t, out, "Abort lines:                 1024.")
	assert.Contains(t, out, "Log file:                    /sdcard/logcattest/logcat.log.")
	assert.NotContains(t, out, "Test duration")
}
