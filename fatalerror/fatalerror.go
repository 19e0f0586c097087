// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package fatalerror

import (
	"errors"
	"fmt"
)

// ErrorType classifies the conditions that end a stress run.
type ErrorType string

const (
	InvalidBuffer      ErrorType = "Config.InvalidBuffer" // unrecognized log buffer name
	InvalidValue       ErrorType = "Config.InvalidValue"  // option out of range
	LogDirError        ErrorType = "Setup.LogDir"         // output directory could not be created
	SinkOpenError      ErrorType = "Sink.OpenError"       // log sink could not be opened
	LaunchError        ErrorType = "Process.LaunchError"  // generator process could not be started
	TimerError         ErrorType = "Generator.TimerError" // generator sleep failed
	GeneratorExitError ErrorType = "Generator.ExitError"  // generator process terminated before the harness killed it
	Unknown            ErrorType = "Unknown"
)

// ExitCode is the process status used for every fatal condition.
const ExitCode = 255

// Error attaches an ErrorType to an underlying error.
type Error struct {
	Type ErrorType
	Err  error
}

func New(t ErrorType, err error) *Error {
	return &Error{Type: t, Err: err}
}

func Errorf(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Type)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// TypeOf returns the ErrorType carried anywhere in err's chain, or Unknown.
func TypeOf(err error) ErrorType {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Type
	}
	return Unknown
}
