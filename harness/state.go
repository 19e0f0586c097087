// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package harness

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/android-tools/logstress/metrics"
)

// State of a stress run as seen by the orchestrator.
type State string

const (
	Start            State = "Start"
	ChannelCleared   State = "ChannelCleared"
	Forked           State = "Forked"
	WaitingOnMonitor State = "WaitingOnMonitor"
	Sleeping         State = "Sleeping"
	GeneratorKilled  State = "GeneratorKilled"
	Done             State = "Done"
)

// ErrNotAllowed returned on illegal state transition
var ErrNotAllowed = errors.New("State transition is not allowed")

var transitions = map[State][]State{
	Start:            {ChannelCleared},
	ChannelCleared:   {Forked},
	Forked:           {WaitingOnMonitor, Sleeping},
	WaitingOnMonitor: {GeneratorKilled},
	Sleeping:         {GeneratorKilled},
	GeneratorKilled:  {Done},
}

// StateDescription ...
type StateDescription struct {
	Name         State `json:"name"`
	LastModified int64 `json:"lastModified"`
}

type stateMachine struct {
	mu      sync.Mutex
	history []StateDescription
	now     func() time.Time
}

func newStateMachine() *stateMachine {
	m := &stateMachine{now: time.Now}
	m.history = []StateDescription{{Name: Start, LastModified: m.now().UnixMilli()}}
	return m
}

func (m *stateMachine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history[len(m.history)-1].Name
}

func (m *stateMachine) transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.history[len(m.history)-1].Name
	for _, next := range transitions[from] {
		if next == to {
			m.history = append(m.history, StateDescription{Name: to, LastModified: m.now().UnixMilli()})
			metrics.StateTransitions.WithLabelValues(string(to)).Inc()
			return nil
		}
	}
	return fmt.Errorf("%s -> %s: %w", from, to, ErrNotAllowed)
}

func (m *stateMachine) describe() []StateDescription {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StateDescription, len(m.history))
	copy(out, m.history)
	return out
}
