// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"flag"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/coughcap/capture"
	"github.com/ik5/coughcap/recording"
	"github.com/ik5/coughcap/server"
)

func runServe(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	addr := fs.String("addr", e.cfg.Server.Addr, "listen address")

	if err := fs.Parse(args); err != nil {
		return err
	}

	a := newApp(e, deviceSpec{realtime: true})

	opts := server.Options{
		Addr:            *addr,
		Recorder:        a.ctrl,
		Previews:        a.previews,
		AllowedOrigins:  e.cfg.Server.AllowedOrigins,
		MaxUploadBytes:  int64(e.cfg.Ingest.MaxBytes) + 1<<20,
		StopTimeout:     e.cfg.Capture.StopTimeout,
		ReadTimeout:     e.cfg.Server.ReadTimeout,
		WriteTimeout:    e.cfg.Server.WriteTimeout,
		ShutdownTimeout: e.cfg.Server.ShutdownTimeout,
		Log:             e.log.Named("server"),
	}
	if a.submitter != nil {
		opts.Submitter = a.submitter
	}
	if e.cfg.Metrics.Enabled {
		opts.Gatherer = a.registry
		opts.MetricsPath = e.cfg.Metrics.Path
	}

	srv := server.New(opts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		releaseDevice(e, a)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// releaseDevice stops an in-flight recording so the device is closed
// before the process exits.
func releaseDevice(e *env, a *app) {
	if a.ctrl.Snapshot().Phase != recording.PhaseRecording {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Capture.StopTimeout)
	defer cancel()

	if err := a.ctrl.Stop(ctx); err != nil && !errors.Is(err, capture.ErrNotRecording) {
		e.log.Warn("stop recording on shutdown", zap.Error(err))
	}
}
