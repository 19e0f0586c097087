// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package logcat

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLogcat writes an executable shell script standing in for logcat.
func fakeLogcat(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "logcat")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, ioutil.WriteFile(path, []byte(script), 0755))
	return path
}

func TestWatchArgs(t *testing.T) {
	args := WatchArgs(WatchRequest{
		Format:       "threadtimelid",
		File:         "/sdcard/logcattest/logcat.log",
		RotateSizeKB: 1024,
		RotateCount:  100,
		AbortLines:   1024,
		Buffer:       "system",
	})
	assert.Equal(t, "-v threadtimelid -f /sdcard/logcattest/logcat.log -r 1024 -n 100 -a 1024 -b system", strings.Join(args, " "))
}

func TestClearArgs(t *testing.T) {
	assert.Equal(t, []string{"-c", "-b", "radio"}, ClearArgs("radio"))
}

func TestClearInvokesToolWithBuffer(t *testing.T) {
	out := filepath.Join(t.TempDir(), "args")
	c := NewClient(fakeLogcat(t, `echo "$@" > `+out))

	require.NoError(t, c.Clear(context.Background(), "events"))

	got, err := ioutil.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "-c -b events\n", string(got))
}

func TestClearReportsFailure(t *testing.T) {
	c := NewClient(fakeLogcat(t, "exit 1"))
	assert.Error(t, c.Clear(context.Background(), "main"))
}

func TestWatchSelfExit(t *testing.T) {
	stderr := new(bytes.Buffer)
	c := NewClient(fakeLogcat(t, `echo "too many missing lines" >&2; sleep 0.1; exit 4`))
	c.Stderr = stderr

	res := c.Watch(context.Background(), WatchRequest{Format: "brief", Buffer: "main"})

	assert.Equal(t, Exited, res.Cause)
	assert.Equal(t, 4, res.ExitStatus)
	assert.True(t, res.Elapsed() >= 100*time.Millisecond)
	assert.Contains(t, stderr.String(), "too many missing lines")
	assert.Equal(t, "exit status 4", res.String())
}

func TestWatchCleanExit(t *testing.T) {
	c := NewClient(fakeLogcat(t, "exit 0"))
	res := c.Watch(context.Background(), WatchRequest{})
	assert.Equal(t, Exited, res.Cause)
	assert.Equal(t, 0, res.ExitStatus)
	assert.NoError(t, res.Err)
}

func TestWatchCrash(t *testing.T) {
	c := NewClient(fakeLogcat(t, "kill -SEGV $$"))
	res := c.Watch(context.Background(), WatchRequest{})
	assert.Equal(t, Signaled, res.Cause)
	assert.Equal(t, syscall.SIGSEGV, res.Signo)
}

func TestWatchLaunchFailure(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing"))
	res := c.Watch(context.Background(), WatchRequest{})
	assert.Equal(t, LaunchFailed, res.Cause)
	assert.Error(t, res.Err)
	assert.False(t, res.Finished.Before(res.Started))
}

func TestWatchCanceled(t *testing.T) {
	c := NewClient(fakeLogcat(t, "exec sleep 10"))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res := c.Watch(ctx, WatchRequest{})
	assert.Equal(t, Canceled, res.Cause)
	assert.True(t, res.Elapsed() < 5*time.Second)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("")
	assert.Equal(t, DefaultPath, c.Path)
	assert.Equal(t, os.Stderr, c.Stdout)
}
