// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/android-tools/logstress/supervisor/model"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// typecheck interface compliance
var _ model.ProcessSupervisor = (*LocalSupervisor)(nil)

const eventBufferSize = 16

type process struct {
	// pid of the running process
	pid int
	// closed once the process has been reaped
	termination chan struct{}
	// guards the single SIGKILL a process may receive
	killOnce sync.Once
}

// Signaler delivers sig to the process group of pid.
type Signaler func(pid int, sig unix.Signal) error

type LocalSupervisor struct {
	events         chan model.Event
	processMapLock sync.Mutex
	processMap     map[string]*process
	signal         Signaler
}

type Option func(*LocalSupervisor)

// WithSignaler replaces the function used to deliver SIGKILL.
func WithSignaler(s Signaler) Option {
	return func(ls *LocalSupervisor) {
		ls.signal = s
	}
}

func NewLocalSupervisor(opts ...Option) *LocalSupervisor {
	ls := &LocalSupervisor{
		events:     make(chan model.Event, eventBufferSize),
		processMap: make(map[string]*process),
		signal:     signalGroup,
	}
	for _, opt := range opts {
		opt(ls)
	}
	return ls
}

// signalGroup signals the whole process group, falling back to the single pid.
func signalGroup(pid int, sig unix.Signal) error {
	pgid, err := unix.Getpgid(pid)
	if err == nil {
		// Negative pid sends signal to all in process group
		return unix.Kill(-pgid, sig)
	}
	return unix.Kill(pid, sig)
}

func (s *LocalSupervisor) Exec(ctx context.Context, req *model.ExecRequest) error {
	s.processMapLock.Lock()
	if p, ok := s.processMap[req.Name]; ok && !terminated(p) {
		s.processMapLock.Unlock()
		msg := fmt.Sprintf("process %s is still running (pid %d)", req.Name, p.pid)
		return &model.SupervisorError{Kind: model.InvalidState, Message: &msg}
	}
	s.processMapLock.Unlock()

	command := exec.Command(req.Path, req.Args...)

	if req.Env != nil {
		envStrings := make([]string, 0, len(*req.Env))
		for key, value := range *req.Env {
			envStrings = append(envStrings, key+"="+value)
		}
		sort.Strings(envStrings)
		command.Env = envStrings
	}

	if req.Cwd != nil && *req.Cwd != "" {
		command.Dir = *req.Cwd
	}

	command.Stdout = req.StdoutWriter
	command.Stderr = req.StderrWriter

	command.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := command.Start(); err != nil {
		return &model.SupervisorError{Kind: model.Failure, Err: fmt.Errorf("failed to start %s: %w", req.Path, err)}
	}

	pid := command.Process.Pid
	p := &process{
		pid:         pid,
		termination: make(chan struct{}),
	}
	s.processMapLock.Lock()
	s.processMap[req.Name] = p
	s.processMapLock.Unlock()

	log.WithFields(log.Fields{"name": req.Name, "pid": pid, "path": command.Path}).Info("LocalSupervisor.Exec")

	go s.reap(command, req.Name, p)

	return nil
}

func (s *LocalSupervisor) reap(command *exec.Cmd, name string, p *process) {
	err := command.Wait()
	// unblock whoever waits in kill
	close(p.termination)

	var cell int32
	var exitStatus *int32
	var signo *int32
	var exitErr *exec.ExitError

	if err == nil {
		exitStatus = &cell
	} else if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if code := status.ExitStatus(); code >= 0 {
				cell = int32(code)
				exitStatus = &cell
			} else {
				cell = int32(status.Signal())
				signo = &cell
			}
		}
	}

	if signo == nil && exitStatus == nil {
		log.Error("Cannot convert process exit status to unix WaitStatus. This is unexpected. Assuming ExitStatus 1")
		cell = 1
		exitStatus = &cell
	}

	ev := model.Event{
		Time: time.Now().UnixMilli(),
		Event: model.EventData{
			Name:       name,
			Pid:        p.pid,
			Signo:      signo,
			ExitStatus: exitStatus,
		},
	}
	select {
	case s.events <- ev:
	default:
		log.Warnf("Dropping termination event of %s(%d): no reader", name, p.pid)
	}
}

func terminated(p *process) bool {
	select {
	case <-p.termination:
		return true
	default:
		return false
	}
}

func (s *LocalSupervisor) kill(p *process, name string, deadline time.Time) error {
	// kill reports success if the process terminated by the time
	// the request arrives
	if terminated(p) {
		log.Debugf("Process %s already terminated.", name)
		return nil
	}

	if time.Until(deadline) <= 0 {
		return fmt.Errorf("invalid deadline while killing %s", name)
	}

	sent := false
	p.killOnce.Do(func() {
		sent = true
		log.Infof("Sending SIGKILL to %s(%d).", name, p.pid)
		// the process may exit between the check above and here
		if err := s.signal(p.pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
			log.WithError(err).Warnf("Failed to SIGKILL %s(%d)", name, p.pid)
		}
	})
	if !sent {
		log.Debugf("SIGKILL already sent to %s(%d).", name, p.pid)
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	// block until the process is reaped or the deadline passes
	select {
	case <-p.termination:
		return nil
	case <-timer.C:
		return fmt.Errorf("timed out while trying to SIGKILL %s", name)
	}
}

func (s *LocalSupervisor) lookup(name string) (*process, error) {
	s.processMapLock.Lock()
	p, ok := s.processMap[name]
	s.processMapLock.Unlock()
	if !ok {
		msg := "Unknown process"
		return nil, &model.SupervisorError{Kind: model.NoSuchEntity, Message: &msg}
	}
	return p, nil
}

func (s *LocalSupervisor) Kill(ctx context.Context, req *model.KillRequest) error {
	p, err := s.lookup(req.Name)
	if err != nil {
		return err
	}
	return s.kill(p, req.Name, req.Deadline)
}

// StopAll kills every known process concurrently and forgets them.
func (s *LocalSupervisor) StopAll(ctx context.Context, deadline time.Time) error {
	s.processMapLock.Lock()
	procs := s.processMap
	s.processMap = make(map[string]*process)
	s.processMapLock.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for name, p := range procs {
		name, p := name, p
		g.Go(func() error {
			log.Debugf("Killing %s", name)
			return s.kill(p, name, deadline)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (s *LocalSupervisor) Events(ctx context.Context) (<-chan model.Event, error) {
	return s.events, nil
}
