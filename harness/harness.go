// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/android-tools/logstress/config"
	"github.com/android-tools/logstress/fatalerror"
	"github.com/android-tools/logstress/logcat"
	"github.com/android-tools/logstress/metrics"
	"github.com/android-tools/logstress/supervisor/model"
	"github.com/google/uuid"

	log "github.com/sirupsen/logrus"
)

const (
	// RoleEnv marks a re-executed harness binary as the generator process.
	RoleEnv       = "LOGCATTEST_ROLE"
	RoleGenerator = "generator"

	generatorName = "generator"
	killTimeout   = 5 * time.Second
)

// LogTool is the external log reader the harness clears and watches.
type LogTool interface {
	Clear(ctx context.Context, buffer string) error
	Watch(ctx context.Context, req logcat.WatchRequest) logcat.WatchResult
}

// GeneratorCommand is how the generator process is started.
type GeneratorCommand struct {
	Path string
	Args []string
	Env  map[string]string
}

// SelfGeneratorCommand re-executes the running binary with args and the
// generator role set in its environment.
func SelfGeneratorCommand(args []string) (GeneratorCommand, error) {
	exe, err := os.Executable()
	if err != nil {
		return GeneratorCommand{}, fatalerror.New(fatalerror.LaunchError, fmt.Errorf("failed to locate executable: %w", err))
	}
	return GeneratorCommand{Path: exe, Args: args, Env: generatorEnv(os.Environ())}, nil
}

func generatorEnv(environ []string) map[string]string {
	env := make(map[string]string, len(environ)+1)
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	env[RoleEnv] = RoleGenerator
	return env
}

// MonitorOutcome tells how the monitor task ended.
type MonitorOutcome string

const (
	// fixed-duration mode, no crash timing applies
	OutcomeSlept MonitorOutcome = "slept"
	// logcat stopped; Report.Watch holds the details
	OutcomeObserved MonitorOutcome = "observed"
	// the run was cancelled before the monitor task completed
	OutcomeInterrupted MonitorOutcome = "interrupted"
	// the generator terminated on its own; Report.GeneratorErr is set
	OutcomeGeneratorExited MonitorOutcome = "generator_exited"
)

// Report is the result of one run.
type Report struct {
	RunID        string
	Outcome      MonitorOutcome
	Start        time.Time
	End          time.Time
	Watch        *logcat.WatchResult
	// how the generator was reaped, nil if no termination was seen
	GeneratorExit *model.ProcessTermination
	GeneratorErr  error
}

func (r *Report) Elapsed() time.Duration {
	return r.End.Sub(r.Start)
}

// ElapsedSeconds is the elapsed time truncated to whole seconds.
func (r *Report) ElapsedSeconds() int64 {
	return int64(r.Elapsed() / time.Second)
}

// StatusDescription describes a run for debugging purposes
type StatusDescription struct {
	RunID     string             `json:"runId"`
	State     StateDescription   `json:"state"`
	History   []StateDescription `json:"history"`
	Buffer    string             `json:"buffer"`
	Monitor   bool               `json:"monitor"`
	ElapsedMs int64              `json:"elapsedMs"`
	Outcome   MonitorOutcome     `json:"outcome,omitempty"`
	Generator string             `json:"generator,omitempty"`
}

type Option func(*Harness)

// WithSleep replaces the fixed-duration wait.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(h *Harness) {
		h.sleep = sleep
	}
}

// WithGeneratorOutput sets where the generator's stdout and stderr go.
func WithGeneratorOutput(w io.Writer) Option {
	return func(h *Harness) {
		h.generatorOutput = w
	}
}

// Harness runs one generator process against one monitor task.
type Harness struct {
	cfg             config.Config
	tool            LogTool
	supervisor      model.ProcessSupervisor
	generator       GeneratorCommand
	generatorOutput io.Writer
	sleep           func(ctx context.Context, d time.Duration) error
	runID           string

	ran   int32
	state *stateMachine

	mu     sync.Mutex
	start  time.Time
	report *Report
}

func New(cfg config.Config, tool LogTool, supervisor model.ProcessSupervisor, generator GeneratorCommand, opts ...Option) *Harness {
	h := &Harness{
		cfg:             cfg,
		tool:            tool,
		supervisor:      supervisor,
		generator:       generator,
		generatorOutput: os.Stderr,
		sleep:           sleepContext,
		runID:           uuid.New().String(),
		state:           newStateMachine(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Harness) RunID() string {
	return h.runID
}

func (h *Harness) State() State {
	return h.state.current()
}

func (h *Harness) mustTransition(to State) {
	if err := h.state.transition(to); err != nil {
		log.Panicf("Harness %s: %s", h.runID, err)
	}
}

// Run executes the whole stress run. It may be called once. Cancelling ctx
// ends the monitor task early, and so does the generator terminating on its
// own, which is reported through Report.GeneratorErr. The generator is
// killed in every case once it has been started.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	if !atomic.CompareAndSwapInt32(&h.ran, 0, 1) {
		return nil, errors.New("harness already ran")
	}
	logger := log.WithFields(log.Fields{"run": h.runID, "buffer": h.cfg.Buffer})

	if err := PrepareLogDir(h.cfg.LogDir); err != nil {
		return nil, err
	}

	if err := h.tool.Clear(ctx, h.cfg.Buffer); err != nil {
		metrics.ChannelClears.WithLabelValues(h.cfg.Buffer, "failed").Inc()
		logger.WithError(err).Warn("Buffer clear failed, continuing")
	} else {
		metrics.ChannelClears.WithLabelValues(h.cfg.Buffer, "ok").Inc()
	}
	h.mustTransition(ChannelCleared)

	events, err := h.supervisor.Events(context.Background())
	if err != nil {
		return nil, fatalerror.New(fatalerror.LaunchError, err)
	}

	start := time.Now()
	env := h.generator.Env
	err = h.supervisor.Exec(ctx, &model.ExecRequest{
		Name:         generatorName,
		Path:         h.generator.Path,
		Args:         h.generator.Args,
		Env:          &env,
		StdoutWriter: h.generatorOutput,
		StderrWriter: h.generatorOutput,
	})
	if err != nil {
		return nil, fatalerror.New(fatalerror.LaunchError, err)
	}
	h.mu.Lock()
	h.start = start
	h.mu.Unlock()
	h.mustTransition(Forked)

	// a generator that dies on its own ends the monitor task early
	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	exited := make(chan model.ProcessTermination, 1)
	stopWatch := make(chan struct{})
	defer close(stopWatch)
	go watchGenerator(events, stopWatch, exited, stopMonitor)

	report := &Report{RunID: h.runID, Start: start}
	if h.cfg.Monitor {
		h.mustTransition(WaitingOnMonitor)
		logger.Info("Waiting for logcat to abort...")
		res := h.tool.Watch(monitorCtx, logcat.WatchRequest{
			Format:       h.cfg.Format,
			File:         h.cfg.LogFile,
			RotateSizeKB: h.cfg.RotateSizeKB,
			RotateCount:  h.cfg.RotateCount,
			AbortLines:   h.cfg.AbortLines,
			Buffer:       h.cfg.Buffer,
		})
		report.End = time.Now()
		report.Watch = &res
		metrics.LogcatExits.WithLabelValues(string(res.Cause)).Inc()

		if res.Cause == logcat.Canceled {
			report.Outcome = OutcomeInterrupted
		} else {
			report.Outcome = OutcomeObserved
			metrics.TimeToCrash.Set(report.Elapsed().Seconds())
			logger.WithField("logcat", res.String()).Infof("It took %d seconds for logcat to crash.", report.ElapsedSeconds())
		}
	} else {
		h.mustTransition(Sleeping)
		logger.Infof("Waiting %s...", h.cfg.TestDuration)
		if err := h.sleep(monitorCtx, h.cfg.TestDuration); err != nil {
			report.Outcome = OutcomeInterrupted
		} else {
			report.Outcome = OutcomeSlept
		}
		report.End = time.Now()
	}

	var early *model.ProcessTermination
	select {
	case term := <-exited:
		early = &term
	default:
	}

	logger.Info("Finished. Killing generator...")
	// the run context may already be cancelled; the kill must still happen
	err = h.supervisor.Kill(context.Background(), &model.KillRequest{
		Name:     generatorName,
		Deadline: time.Now().Add(killTimeout),
	})
	if err != nil {
		report.GeneratorErr = err
		logger.WithError(err).Warn("Failed to kill generator")
	}
	metrics.GeneratorKills.Inc()

	report.GeneratorExit = early
	if early == nil && err == nil && events != nil {
		report.GeneratorExit = awaitTermination(exited, killTimeout)
	}
	if term := report.GeneratorExit; term != nil && (early != nil || !killedBy(term, syscall.SIGKILL)) {
		report.Outcome = OutcomeGeneratorExited
		report.GeneratorErr = fatalerror.Errorf(fatalerror.GeneratorExitError, "generator stopped before it was killed: %s", term)
		logger.WithError(report.GeneratorErr).Error("Generator failed")
	}
	h.mustTransition(GeneratorKilled)

	h.mu.Lock()
	h.report = report
	h.mu.Unlock()
	h.mustTransition(Done)

	return report, nil
}

// watchGenerator forwards the generator's termination to exited and calls
// onExit, or returns once stop is closed.
func watchGenerator(events <-chan model.Event, stop <-chan struct{}, exited chan<- model.ProcessTermination, onExit func()) {
	for {
		select {
		case <-stop:
			return
		case ev := <-events:
			if ev.Event.Name != generatorName {
				continue
			}
			term := ev.Event.ProcessTerminated()
			if term == nil {
				continue
			}
			exited <- *term
			onExit()
			return
		}
	}
}

func awaitTermination(exited <-chan model.ProcessTermination, timeout time.Duration) *model.ProcessTermination {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case term := <-exited:
		return &term
	case <-timer.C:
		return nil
	}
}

func killedBy(term *model.ProcessTermination, sig syscall.Signal) bool {
	return term.Signo != nil && *term.Signo == int32(sig)
}

// Status returns a snapshot of the run for the status API.
func (h *Harness) Status() *StatusDescription {
	history := h.state.describe()

	h.mu.Lock()
	defer h.mu.Unlock()

	desc := &StatusDescription{
		RunID:   h.runID,
		State:   history[len(history)-1],
		History: history,
		Buffer:  h.cfg.Buffer,
		Monitor: h.cfg.Monitor,
	}
	switch {
	case h.report != nil:
		desc.ElapsedMs = h.report.Elapsed().Milliseconds()
		desc.Outcome = h.report.Outcome
		if h.report.GeneratorExit != nil {
			desc.Generator = h.report.GeneratorExit.String()
		}
	case !h.start.IsZero():
		desc.ElapsedMs = time.Since(h.start).Milliseconds()
	}
	return desc
}
