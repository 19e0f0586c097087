// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package generator

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"

	"github.com/android-tools/logstress/config"
	"github.com/android-tools/logstress/fatalerror"
	"github.com/android-tools/logstress/logd"

	log "github.com/sirupsen/logrus"
)

const failureLogEvery = 1000

// NewMessage returns size bytes of filler whose last byte is NUL.
func NewMessage(size int) []byte {
	if size < 1 {
		return nil
	}
	msg := bytes.Repeat([]byte{'X'}, size)
	msg[size-1] = 0
	return msg
}

// Generator writes the same fixed-size record into one buffer at a fixed cadence.
type Generator struct {
	cfg     config.Config
	sink    logd.Writer
	sleeper Sleeper
	msg     []byte

	written uint64
	failed  uint64
}

func New(cfg config.Config, sink logd.Writer, sleeper Sleeper) *Generator {
	return &Generator{
		cfg:     cfg,
		sink:    sink,
		sleeper: sleeper,
		msg:     NewMessage(cfg.MessageSize),
	}
}

// Run writes records until ctx is done or a sleep fails. Sink errors are
// counted and otherwise ignored. A failed sleep is returned as a TimerError.
func (g *Generator) Run(ctx context.Context) error {
	log.WithFields(log.Fields{
		"buffer":   g.cfg.Buffer,
		"size":     len(g.msg),
		"interval": g.cfg.Interval,
	}).Info("Stress test running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		atomic.AddUint64(&g.written, 1)
		if err := g.sink.Write(g.cfg.LogID, g.cfg.Priority, g.cfg.Tag, g.msg); err != nil {
			if n := atomic.AddUint64(&g.failed, 1); n == 1 || n%failureLogEvery == 0 {
				log.WithError(err).Debugf("Record write failed (%d failures so far)", n)
			}
		}

		if err := g.sleeper.Sleep(g.cfg.Interval); err != nil {
			return fatalerror.New(fatalerror.TimerError, fmt.Errorf("sleep %s: %w", g.cfg.Interval, err))
		}
	}
}

// Written is the number of write attempts, including rejected ones.
func (g *Generator) Written() uint64 {
	return atomic.LoadUint64(&g.written)
}

// Failed is the number of write attempts the sink rejected.
func (g *Generator) Failed() uint64 {
	return atomic.LoadUint64(&g.failed)
}
