// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package kmsg relays kernel ring buffer messages into a log buffer.
package kmsg

import (
	"context"
	"strings"

	"github.com/android-tools/logstress/logd"
	"github.com/android-tools/logstress/metrics"
	"github.com/euank/go-kmsg-parser/kmsgparser"

	log "github.com/sirupsen/logrus"
)

const Tag = "KernelPrintk"

// Normalize drops the line terminator, including a stray carriage return.
func Normalize(line string) string {
	return strings.TrimRight(line, "\r\n")
}

type Forwarder struct {
	sink logd.Writer
	id   logd.LogID
	prio logd.Priority
}

func NewForwarder(sink logd.Writer, id logd.LogID, prio logd.Priority) *Forwarder {
	return &Forwarder{sink: sink, id: id, prio: prio}
}

// Forward writes each message to the sink until msgs is closed or ctx is
// done. Sink errors are counted and skipped.
func (f *Forwarder) Forward(ctx context.Context, msgs <-chan kmsgparser.Message) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			line := Normalize(msg.Message)
			if err := f.sink.Write(f.id, f.prio, Tag, []byte(line)); err != nil {
				metrics.KmsgSinkErrors.Inc()
				log.WithError(err).Debug("Failed to forward kernel message")
				continue
			}
			metrics.KmsgForwarded.Inc()
			log.Tracef("forwarded kmsg seq=%d prio=%d %s", msg.SequenceNumber, msg.Priority, line)
		}
	}
}
