// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/android-tools/logstress/config"
	"github.com/android-tools/logstress/fatalerror"
	"github.com/android-tools/logstress/generator"
	"github.com/android-tools/logstress/harness"
	"github.com/android-tools/logstress/logcat"
	"github.com/android-tools/logstress/logd"
	"github.com/android-tools/logstress/logging"
	"github.com/android-tools/logstress/statusapi"
	"github.com/android-tools/logstress/supervisor"
	"golang.org/x/sync/errgroup"

	log "github.com/sirupsen/logrus"
)

const (
	exitUsage   = 2
	stopTimeout = 5 * time.Second
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := config.ParseArgs(args)
	if err != nil {
		if config.IsHelp(err) {
			fmt.Fprintln(stdout, err)
			return 0
		}
		fmt.Fprintln(stderr, err)
		if fatalerror.TypeOf(err) != fatalerror.Unknown {
			return fatalerror.ExitCode
		}
		return exitUsage
	}

	logging.SetOutput(stderr)
	logging.SetLogLevel(opts.LogLevel)

	cfg, err := config.Resolve(opts)
	if err != nil {
		log.WithError(err).Error("Invalid configuration")
		return fatalerror.ExitCode
	}

	if os.Getenv(harness.RoleEnv) == harness.RoleGenerator {
		return runGenerator(cfg)
	}

	cfg.Describe(stderr)
	if opts.PrintParams {
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return runHarness(ctx, cfg, args)
}

// runGenerator only returns on failure; the harness ends it with SIGKILL.
func runGenerator(cfg config.Config) int {
	sink, err := logd.Open(cfg.LogdSocket, cfg.SinkFile)
	if err != nil {
		log.WithError(fatalerror.New(fatalerror.SinkOpenError, err)).Error("Failed to open log sink")
		return fatalerror.ExitCode
	}
	defer sink.Close()

	gen := generator.New(cfg, sink, generator.NanoSleeper{})
	err = gen.Run(context.Background())
	log.WithError(err).WithFields(log.Fields{
		"written": gen.Written(),
		"failed":  gen.Failed(),
	}).Error("Generator stopped")
	return fatalerror.ExitCode
}

func runHarness(ctx context.Context, cfg config.Config, args []string) int {
	gen, err := harness.SelfGeneratorCommand(args)
	if err != nil {
		log.WithError(err).Error("Failed to prepare generator")
		return fatalerror.ExitCode
	}

	supv := supervisor.NewLocalSupervisor()
	h := harness.New(cfg, logcat.NewClient(cfg.LogcatPath), supv, gen)
	logger := log.WithField("run", h.RunID())
	defer func() {
		if err := supv.StopAll(context.Background(), time.Now().Add(stopTimeout)); err != nil {
			logger.WithError(err).Warn("Failed to stop child processes")
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	runDone := make(chan struct{})
	var report *harness.Report
	g.Go(func() error {
		defer close(runDone)
		var err error
		report, err = h.Run(gctx)
		return err
	})

	if cfg.StatusAddr != "" {
		srv := &http.Server{Addr: cfg.StatusAddr, Handler: statusapi.NewRouter(h)}
		g.Go(func() error {
			logger.Infof("Status API listening on %s", cfg.StatusAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("status API: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-runDone
			return srv.Shutdown(context.Background())
		})
	}

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Stress test failed")
		return fatalerror.ExitCode
	}

	logger = logger.WithFields(log.Fields{
		"outcome": report.Outcome,
		"elapsed": report.Elapsed(),
	})
	if report.GeneratorErr != nil {
		logger.WithError(report.GeneratorErr).Error("Stress test failed")
		return fatalerror.ExitCode
	}
	logger.Info("Stress test finished")
	return 0
}
