// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/android-tools/logstress/fatalerror"
	"github.com/android-tools/logstress/logd"
	"github.com/jessevdk/go-flags"
)

const (
	DefaultLogDir = "/sdcard/logcattest"
	LogFileName   = "logcat.log"
	Tag           = "LogcatTest"
)

// Options are the raw command line values of logcattest.
type Options struct {
	Interval    int64  `short:"i" long:"interval" default:"1000" description:"Set log interval in microseconds"`
	Size        int    `short:"s" long:"size" default:"1024" description:"Set log message size in bytes"`
	RotateCount int    `short:"n" long:"rotate-count" default:"100" description:"Set logcat rotation count"`
	RotateKB    int    `short:"r" long:"rotate-kbytes" default:"1024" description:"Set logcat rotation size in KB"`
	Format      string `short:"v" long:"format" default:"threadtimelid" description:"Set logcat format"`
	Buffer      string `short:"b" long:"buffer" default:"system" description:"Set log buffer (main, system, radio, events)"`
	Monitor     bool   `short:"m" long:"monitor" description:"Monitor logcat status"`
	Duration    int    `short:"t" long:"duration" default:"60" description:"Set test duration in seconds, ignored with -m"`
	AbortLines  int    `short:"a" long:"abort-lines" default:"1024" description:"Missing lines threshold before logcat aborts"`
	PrintParams bool   `short:"p" long:"print-params" description:"Print parameters and exit"`

	Priority   string `long:"priority" default:"verbose" description:"Priority of generated records"`
	LogDir     string `long:"log-dir" default:"/sdcard/logcattest" description:"Directory for logcat output"`
	Logcat     string `long:"logcat" default:"logcat" description:"Path of the logcat binary"`
	LogdSocket string `long:"logd-socket" default:"/dev/socket/logdw" description:"logd datagram socket"`
	SinkFile   string `long:"sink-file" description:"Write records as text to this file instead of logd"`
	StatusAddr string `long:"status-addr" description:"Serve run status on this address"`
	LogLevel   string `long:"log-level" default:"info" description:"log level"`
}

// ParseArgs parses args, which must not include the program name.
func ParseArgs(args []string) (Options, error) {
	var opts Options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "logcattest"

	rest, err := parser.ParseArgs(args)
	if err != nil {
		return opts, err
	}
	if len(rest) > 0 {
		return opts, fatalerror.Errorf(fatalerror.InvalidValue, "unexpected arguments: %v", rest)
	}
	return opts, nil
}

// IsHelp reports whether err is the usage text produced for -h.
func IsHelp(err error) bool {
	fe, ok := err.(*flags.Error)
	return ok && fe.Type == flags.ErrHelp
}

// Config is resolved once at startup and then only passed by value.
type Config struct {
	Interval     time.Duration
	MessageSize  int
	Buffer       string
	LogID        logd.LogID
	Priority     logd.Priority
	Tag          string
	RotateSizeKB int
	RotateCount  int
	Format       string
	LogDir       string
	LogFile      string
	Monitor      bool
	TestDuration time.Duration
	AbortLines   int
	LogcatPath   string
	LogdSocket   string
	SinkFile     string
	StatusAddr   string
}

// Resolve validates opts and builds the Config.
func Resolve(opts Options) (Config, error) {
	id, err := logd.ParseBuffer(opts.Buffer)
	if err != nil {
		return Config{}, err
	}

	prio, err := logd.ParsePriority(opts.Priority)
	if err != nil {
		return Config{}, err
	}

	switch {
	case opts.Size < 1:
		return Config{}, fatalerror.Errorf(fatalerror.InvalidValue, "message size must be positive, got %d", opts.Size)
	case opts.Interval < 0:
		return Config{}, fatalerror.Errorf(fatalerror.InvalidValue, "interval must not be negative, got %d", opts.Interval)
	case opts.Duration < 0:
		return Config{}, fatalerror.Errorf(fatalerror.InvalidValue, "duration must not be negative, got %d", opts.Duration)
	}

	return Config{
		Interval:     time.Duration(opts.Interval) * time.Microsecond,
		MessageSize:  opts.Size,
		Buffer:       opts.Buffer,
		LogID:        id,
		Priority:     prio,
		Tag:          Tag,
		RotateSizeKB: opts.RotateKB,
		RotateCount:  opts.RotateCount,
		Format:       opts.Format,
		LogDir:       opts.LogDir,
		LogFile:      filepath.Join(opts.LogDir, LogFileName),
		Monitor:      opts.Monitor,
		TestDuration: time.Duration(opts.Duration) * time.Second,
		AbortLines:   opts.AbortLines,
		LogcatPath:   opts.Logcat,
		LogdSocket:   opts.LogdSocket,
		SinkFile:     opts.SinkFile,
		StatusAddr:   opts.StatusAddr,
	}, nil
}

const rule = "==========================================================="

// Describe prints the parameter block shown before a run and for -p.
func (c Config) Describe(w io.Writer) {
	line := func(name string, format string, args ...interface{}) {
		fmt.Fprintf(w, "%-29s"+format+"\n", append([]interface{}{name + ":"}, args...)...)
	}

	fmt.Fprintln(w, rule)
	line("Log interval", "%d usec.", c.Interval.Microseconds())
	line("Log message size", "%d bytes.", c.MessageSize)
	line("Log priority", "%s.", c.Priority)
	if c.Monitor {
		line("Monitor", "%t.", c.Monitor)
		line("Rotation count", "%d.", c.RotateCount)
		line("Rotation size", "%d KB.", c.RotateSizeKB)
		line("Log format", "%s.", c.Format)
		line("Log file", "%s.", c.LogFile)
		line("Abort lines", "%d.", c.AbortLines)
	} else {
		line("Test duration", "%d sec.", int64(c.TestDuration/time.Second))
	}
	line("Buffer", "%s.", c.Buffer)
	fmt.Fprintln(w, rule)
}
