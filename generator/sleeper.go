// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package generator

import (
	"time"

	"golang.org/x/sys/unix"
)

// Sleeper suspends the calling goroutine between two writes.
type Sleeper interface {
	Sleep(d time.Duration) error
}

// NanoSleeper sleeps with nanosleep(2). An interrupted sleep resumes with
// the remaining time; any other errno is returned.
type NanoSleeper struct{}

func (NanoSleeper) Sleep(d time.Duration) error {
	ts := unix.NsecToTimespec(d.Nanoseconds())
	for {
		err := unix.Nanosleep(&ts, &ts)
		if err != unix.EINTR {
			return err
		}
	}
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(d time.Duration) error

func (f SleeperFunc) Sleep(d time.Duration) error {
	return f(d)
}
