// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package logcat drives the external log reader: clearing a buffer and
// running a rotating reader until it gives up.
package logcat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultPath = "logcat"

// Cause tells why a watched logcat stopped.
type Cause string

const (
	// logcat exited on its own, e.g. after exceeding the missing lines threshold
	Exited Cause = "exited"
	// logcat was killed by a signal
	Signaled Cause = "signaled"
	// logcat could not be started
	LaunchFailed Cause = "launch_failed"
	// the watch was abandoned because the context ended
	Canceled Cause = "canceled"
)

// WatchRequest carries everything the rotating reader is invoked with.
type WatchRequest struct {
	Format       string
	File         string
	RotateSizeKB int
	RotateCount  int
	AbortLines   int
	Buffer       string
}

// WatchResult describes one run of the rotating reader.
type WatchResult struct {
	Started    time.Time
	Finished   time.Time
	Cause      Cause
	ExitStatus int
	Signo      syscall.Signal
	Err        error
}

func (r WatchResult) Elapsed() time.Duration {
	return r.Finished.Sub(r.Started)
}

func (r WatchResult) String() string {
	switch r.Cause {
	case Exited:
		return fmt.Sprintf("exit status %d", r.ExitStatus)
	case Signaled:
		return fmt.Sprintf("signal: %s", r.Signo)
	default:
		if r.Err != nil {
			return fmt.Sprintf("%s: %s", r.Cause, r.Err)
		}
		return string(r.Cause)
	}
}

func ClearArgs(buffer string) []string {
	return []string{"-c", "-b", buffer}
}

func WatchArgs(req WatchRequest) []string {
	return []string{
		"-v", req.Format,
		"-f", req.File,
		"-r", strconv.Itoa(req.RotateSizeKB),
		"-n", strconv.Itoa(req.RotateCount),
		"-a", strconv.Itoa(req.AbortLines),
		"-b", req.Buffer,
	}
}

// Client invokes the logcat binary at Path. Its output is forwarded to
// Stdout and Stderr.
type Client struct {
	Path   string
	Stdout io.Writer
	Stderr io.Writer
}

func NewClient(path string) *Client {
	if path == "" {
		path = DefaultPath
	}
	return &Client{Path: path, Stdout: os.Stderr, Stderr: os.Stderr}
}

func (c *Client) command(ctx context.Context, args []string) *exec.Cmd {
	log.Infof("%s %s", c.Path, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, c.Path, args...)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	return cmd
}

// Clear empties buffer.
func (c *Client) Clear(ctx context.Context, buffer string) error {
	if err := c.command(ctx, ClearArgs(buffer)).Run(); err != nil {
		return fmt.Errorf("failed to clear buffer %s: %w", buffer, err)
	}
	return nil
}

// Watch runs the rotating reader and blocks until it stops for any reason.
// Every stop is reported through the result, never as an error.
func (c *Client) Watch(ctx context.Context, req WatchRequest) WatchResult {
	cmd := c.command(ctx, WatchArgs(req))

	result := WatchResult{Started: time.Now()}
	if err := cmd.Start(); err != nil {
		result.Finished = time.Now()
		result.Cause = LaunchFailed
		result.Err = err
		return result
	}

	err := cmd.Wait()
	result.Finished = time.Now()
	result.Err = err

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		result.Cause = Canceled
		result.Err = ctx.Err()
	case err == nil:
		result.Cause = Exited
	case errors.As(err, &exitErr):
		status, ok := exitErr.Sys().(syscall.WaitStatus)
		if ok && status.Signaled() {
			result.Cause = Signaled
			result.Signo = status.Signal()
		} else {
			result.Cause = Exited
			result.ExitStatus = exitErr.ExitCode()
		}
	default:
		result.Cause = Exited
		result.ExitStatus = -1
	}
	return result
}
