// SPDX-License-Identifier: EPL-2.0

package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/ik5/coughcap/capture"
	"github.com/ik5/coughcap/capture/filedev"
	"github.com/ik5/coughcap/capture/micdev"
	"github.com/ik5/coughcap/capture/opusrec"
	"github.com/ik5/coughcap/inference"
	"github.com/ik5/coughcap/ingest"
	"github.com/ik5/coughcap/metrics"
	"github.com/ik5/coughcap/preview"
	"github.com/ik5/coughcap/recording"
	"github.com/ik5/coughcap/transcode"
)

// app is the wired object graph shared by record and serve.
type app struct {
	registry  *prometheus.Registry
	metrics   *metrics.Metrics
	device    capture.Device
	session   *capture.Session
	previews  *preview.Store
	submitter *inference.Submitter
	ctrl      *recording.Controller
}

// deviceSpec overrides the configured capture device.
type deviceSpec struct {
	mic      bool
	input    string
	realtime bool
}

func newApp(e *env, dev deviceSpec) *app {
	cfg := e.cfg

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	a := &app{
		registry: reg,
		metrics:  m,
		previews: preview.NewStore(),
	}

	useMic := dev.mic || (dev.input == "" && cfg.Capture.Device == "mic")
	if useMic {
		a.device = &micdev.Device{Log: e.log.Named("micdev"), Metrics: m}
	} else {
		path := dev.input
		if path == "" {
			path = cfg.Capture.InputFile
		}
		a.device = &filedev.Device{Path: path, Realtime: dev.realtime, Log: e.log.Named("filedev")}
	}

	a.session = capture.NewSession(a.device, opusrec.Factory{Log: e.log.Named("opusrec")},
		capture.WithLogger(e.log.Named("capture")),
		capture.WithMetrics(m),
		capture.WithTimeslice(cfg.Capture.Timeslice),
		capture.WithMIMEPreferences(cfg.Capture.MIMEPreferences...),
		capture.WithConstraints(cfg.Capture.Constraints()),
	)

	tr := transcode.New(transcode.Options{
		Log:              e.log.Named("transcode"),
		Metrics:          m,
		DecodeTimeout:    cfg.Transcode.DecodeTimeout,
		TargetSampleRate: cfg.Transcode.TargetSampleRate,
		MaxDuration:      cfg.Transcode.MaxDuration,
	})

	opts := []recording.Option{recording.WithLogger(e.log.Named("recording"))}
	if sub, err := newSubmitter(e, m); err == nil {
		a.submitter = sub
		opts = append(opts, recording.WithSubmitter(sub))
	} else {
		e.log.Debug("submission disabled", zap.Error(err))
	}

	a.ctrl = recording.New(a.session, tr, a.previews, opts...)

	return a
}

func newValidator(e *env) *ingest.Validator {
	return ingest.NewValidator(
		ingest.WithMaxBytes(e.cfg.Ingest.MaxBytes),
		ingest.WithMIMETypes(e.cfg.Ingest.MIMETypes...),
		ingest.WithExtensions(e.cfg.Ingest.Extensions...),
	)
}

func newSubmitter(e *env, m *metrics.Metrics) (*inference.Submitter, error) {
	client, err := inference.NewClient(inference.Options{
		Endpoint: e.cfg.Inference.Endpoint,
		Path:     e.cfg.Inference.Path,
		Timeout:  e.cfg.Inference.Timeout,
		Log:      e.log.Named("inference"),
		Metrics:  m,
	})
	if err != nil {
		return nil, err
	}

	return inference.NewSubmitter(newValidator(e), client, e.log.Named("ingest"), m), nil
}
