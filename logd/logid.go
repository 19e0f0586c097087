// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package logd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/android-tools/logstress/fatalerror"
)

// LogID identifies a log buffer (channel) inside logd.
type LogID uint8

const (
	Main   LogID = 0
	Radio  LogID = 1
	Events LogID = 2
	System LogID = 3
)

var buffersByName = map[string]LogID{
	"main":   Main,
	"radio":  Radio,
	"events": Events,
	"system": System,
}

// ParseBuffer maps a buffer name to its LogID. There is no fallback buffer.
func ParseBuffer(name string) (LogID, error) {
	id, ok := buffersByName[name]
	if !ok {
		return 0, fatalerror.Errorf(fatalerror.InvalidBuffer, "unknown buffer: %s (valid: %s)", name, strings.Join(BufferNames(), ", "))
	}
	return id, nil
}

// BufferNames lists the accepted buffer names in sorted order.
func BufferNames() []string {
	names := make([]string, 0, len(buffersByName))
	for name := range buffersByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (id LogID) String() string {
	for name, v := range buffersByName {
		if v == id {
			return name
		}
	}
	return fmt.Sprintf("LogID(%d)", uint8(id))
}

// Priority is the android log priority of a record.
type Priority uint8

const (
	Verbose Priority = iota + 2
	Debug
	Info
	Warn
	Error
	Fatal
)

var priorityNames = []string{"verbose", "debug", "info", "warn", "error", "fatal"}

func ParsePriority(name string) (Priority, error) {
	for i, n := range priorityNames {
		if strings.EqualFold(n, name) {
			return Verbose + Priority(i), nil
		}
	}
	return 0, fatalerror.Errorf(fatalerror.InvalidValue, "unknown priority: %s", name)
}

func (p Priority) String() string {
	if p < Verbose || p > Fatal {
		return fmt.Sprintf("Priority(%d)", uint8(p))
	}
	return priorityNames[p-Verbose]
}

// Letter is the single character logcat prints for the priority.
func (p Priority) Letter() byte {
	if p < Verbose || p > Fatal {
		return '?'
	}
	return "VDIWEF"[p-Verbose]
}
