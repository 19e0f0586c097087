// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package model

import (
	"context"
	"fmt"
	"io"
	"syscall"
	"time"
)

type ProcessSupervisor interface {
	Exec(context.Context, *ExecRequest) error
	Kill(context.Context, *KillRequest) error
	Events(context.Context) (<-chan Event, error)
}

type ExecRequest struct {
	// Identifier the supervisor assigns to the spawned process. Only one
	// live process may hold a given name.
	Name string
	Path string
	Args []string
	// If nil, the working directory of the supervisor
	Cwd *string
	// If nil, the environment of the supervisor is inherited
	Env          *map[string]string
	StdoutWriter io.Writer
	StderrWriter io.Writer
}

// Send SIGTERM asynchronously to a process group
// Force terminate a process group (SIGKILL).
// Blocks until the process is reaped or the deadline passes.
// A process is signalled at most once, however often Kill is called.
type KillRequest struct {
	Name     string
	Deadline time.Time
}

type Event struct {
	Time  int64     `json:"timestamp_millis"`
	Event EventData `json:"event"`
}

type EventData struct {
	Name       string `json:"name"`
	Pid        int    `json:"pid"`
	Signo      *int32 `json:"signo"`
	ExitStatus *int32 `json:"exit_status"`
}

// Returns a ProcessTermination struct that describes the process
// which terminated, or nil if the event is not a termination.
func (d EventData) ProcessTerminated() *ProcessTermination {
	if d.Signo != nil || d.ExitStatus != nil {
		return &ProcessTermination{
			Name:       d.Name,
			Pid:        d.Pid,
			Signo:      d.Signo,
			ExitStatus: d.ExitStatus,
		}
	}
	return nil
}

type ProcessTermination struct {
	Name       string
	Pid        int
	Signo      *int32
	ExitStatus *int32
}

// If not nil, the process was terminated by an unhandled signal.
func (t ProcessTermination) Signaled() *int32 {
	return t.Signo
}

// If not nil, the process exited on its own with this status.
func (t ProcessTermination) Exited() *int32 {
	return t.ExitStatus
}

func (t ProcessTermination) Success() bool {
	return t.ExitStatus != nil && *t.ExitStatus == 0
}

// String matches the text of exec.ExitError.Error().
func (t ProcessTermination) String() string {
	if t.ExitStatus != nil {
		return fmt.Sprintf("exit status %d", *t.ExitStatus)
	}
	sig := syscall.Signal(*t.Signo)
	return fmt.Sprintf("signal: %s", sig.String())
}

type ErrorKind string

const (
	// operation on an unknown process name
	NoSuchEntity ErrorKind = "no_such_entity"
	// operation not allowed in the current state (e.g. exec of a name that is still running)
	InvalidState ErrorKind = "invalid_state"
	// process could not be started
	Failure ErrorKind = "failure"
)

type SupervisorError struct {
	Kind    ErrorKind
	Message *string
	Err     error
}

func (e *SupervisorError) Error() string {
	if e.Message != nil {
		return fmt.Sprintf("%s: %s", e.Kind, *e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *SupervisorError) Unwrap() error {
	return e.Err
}
