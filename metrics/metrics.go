// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Harness metrics
	StateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logstress_state_transitions_total",
			Help: "Harness state machine transitions by target state",
		},
		[]string{"state"},
	)

	ChannelClears = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logstress_channel_clears_total",
			Help: "Buffer clear invocations by buffer and result",
		},
		[]string{"buffer", "result"},
	)

	GeneratorKills = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "logstress_generator_kills_total",
			Help: "Generator processes terminated by the harness",
		},
	)

	LogcatExits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logstress_logcat_exits_total",
			Help: "Watched logcat terminations by cause",
		},
		[]string{"cause"},
	)

	TimeToCrash = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "logstress_time_to_crash_seconds",
			Help: "Seconds between generator launch and logcat termination in the last monitored run",
		},
	)

	// Kernel message forwarder metrics
	KmsgForwarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kmsgd_lines_forwarded_total",
			Help: "Kernel log lines written to the log buffer",
		},
	)

	KmsgSinkErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kmsgd_sink_errors_total",
			Help: "Kernel log lines the log buffer rejected",
		},
	)
)
