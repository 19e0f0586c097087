// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package fatalerror

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeOf(t *testing.T) {
	type test struct {
		input    error
		expected ErrorType
	}

	var tests = []test{
		{nil, Unknown},
		{errors.New("plain"), Unknown},
		{New(InvalidBuffer, errors.New("bad")), InvalidBuffer},
		{fmt.Errorf("wrapped: %w", Errorf(TimerError, "nanosleep: %v", "EFAULT")), TimerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, TypeOf(tt.input))
	}
}

func TestErrorUnwrap(t *testing.T) {
	err := New(LogDirError, os.ErrPermission)
	assert.True(t, errors.Is(err, os.ErrPermission))
	assert.Equal(t, "Setup.LogDir: permission denied", err.Error())
	assert.Equal(t, "Process.LaunchError", New(LaunchError, nil).Error())
}
