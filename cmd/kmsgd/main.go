// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/android-tools/logstress/fatalerror"
	"github.com/android-tools/logstress/kmsg"
	"github.com/android-tools/logstress/logd"
	"github.com/android-tools/logstress/logging"
	"github.com/android-tools/logstress/statusapi"
	"github.com/euank/go-kmsg-parser/kmsgparser"
	"github.com/jessevdk/go-flags"

	log "github.com/sirupsen/logrus"
)

type options struct {
	Buffer      string `short:"b" long:"buffer" default:"main" description:"Log buffer to forward into"`
	Priority    string `long:"priority" default:"debug" description:"Priority of forwarded records"`
	SeekEnd     bool   `long:"seek-end" description:"Skip messages already in the kernel ring buffer"`
	LogdSocket  string `long:"logd-socket" default:"/dev/socket/logdw" description:"logd datagram socket"`
	SinkFile    string `long:"sink-file" description:"Write records as text to this file instead of logd"`
	MetricsAddr string `long:"metrics-addr" description:"Serve metrics on this address"`
	LogLevel    string `long:"log-level" default:"info" description:"log level"`
}

func main() {
	opts := getCLIArgs()
	logging.SetLogLevel(opts.LogLevel)

	id, err := logd.ParseBuffer(opts.Buffer)
	if err != nil {
		log.WithError(err).Fatal("Invalid buffer")
	}
	prio, err := logd.ParsePriority(opts.Priority)
	if err != nil {
		log.WithError(err).Fatal("Invalid priority")
	}

	sink, err := logd.Open(opts.LogdSocket, opts.SinkFile)
	if err != nil {
		log.WithError(fatalerror.New(fatalerror.SinkOpenError, err)).Fatal("Failed to open log sink")
	}
	defer sink.Close()

	parser, err := kmsgparser.NewParser()
	if err != nil {
		log.WithError(err).Fatal("Failed to open kernel log")
	}
	parser.SetLogger(log.WithField("component", "kmsgparser"))
	if opts.SeekEnd {
		if err := parser.SeekEnd(); err != nil {
			log.WithError(err).Fatal("Failed to seek kernel log")
		}
	}

	if opts.MetricsAddr != "" {
		go func() {
			log.Infof("Metrics listening on %s", opts.MetricsAddr)
			if err := http.ListenAndServe(opts.MetricsAddr, statusapi.NewMetricsRouter()); err != nil {
				log.WithError(err).Error("Metrics server stopped")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		parser.Close()
	}()

	log.WithFields(log.Fields{"buffer": opts.Buffer, "priority": prio}).Info("Forwarding kernel messages")
	if err := kmsg.NewForwarder(sink, id, prio).Forward(ctx, parser.Parse()); err != nil && err != context.Canceled {
		log.WithError(err).Error("Forwarding stopped")
		sink.Close()
		os.Exit(fatalerror.ExitCode)
	}
}

func getCLIArgs() options {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		if fe, ok := err.(*flags.Error); ok && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}
	return opts
}
