// SPDX-License-Identifier: EPL-2.0

// Package metrics holds the Prometheus collectors of coughcap. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Capture
	CapturesStarted prometheus.Counter
	CaptureOutcomes *prometheus.CounterVec
	CaptureDuration prometheus.Histogram
	ChunksReceived  prometheus.Counter
	ChunkBytes      prometheus.Counter
	FramesDropped   prometheus.Counter

	// Transcode
	TranscodeOutcomes *prometheus.CounterVec
	TranscodeDuration prometheus.Histogram

	// Ingest
	IngestRejections *prometheus.CounterVec

	// Inference
	InferenceRequests *prometheus.CounterVec
	InferenceLatency  prometheus.Histogram
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		CapturesStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "coughcap_captures_started_total",
			Help: "Total number of capture sessions started",
		}),
		CaptureOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coughcap_capture_outcomes_total",
			Help: "Capture sessions by final state",
		}, []string{"outcome"}),
		CaptureDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "coughcap_capture_duration_seconds",
			Help:    "Duration of finished recordings",
			Buckets: prometheus.LinearBuckets(1, 2, 10), // 1s to 19s
		}),
		ChunksReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "coughcap_capture_chunks_total",
			Help: "Encoded chunks appended to capture buffers",
		}),
		ChunkBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "coughcap_capture_chunk_bytes_total",
			Help: "Bytes appended to capture buffers",
		}),
		FramesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "coughcap_device_frames_dropped_total",
			Help: "PCM blocks dropped because the consumer was too slow",
		}),

		TranscodeOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coughcap_transcode_outcomes_total",
			Help: "Transcode calls by outcome",
		}, []string{"outcome"}),
		TranscodeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "coughcap_transcode_duration_seconds",
			Help:    "Time spent transcoding one artifact",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}),

		IngestRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coughcap_ingest_rejections_total",
			Help: "Files rejected before analysis by reason",
		}, []string{"reason"}),

		InferenceRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "coughcap_inference_requests_total",
			Help: "Inference requests by result",
		}, []string{"result"}),
		InferenceLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "coughcap_inference_latency_seconds",
			Help:    "Inference round trip time",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		}),
	}
}

func (m *Metrics) CaptureStarted() {
	if m == nil {
		return
	}
	m.CapturesStarted.Inc()
}

func (m *Metrics) CaptureFinished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.CaptureOutcomes.WithLabelValues(outcome).Inc()
	if d > 0 {
		m.CaptureDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) ChunkAppended(size int) {
	if m == nil {
		return
	}
	m.ChunksReceived.Inc()
	m.ChunkBytes.Add(float64(size))
}

func (m *Metrics) FrameDropped() {
	if m == nil {
		return
	}
	m.FramesDropped.Inc()
}

func (m *Metrics) Transcoded(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.TranscodeOutcomes.WithLabelValues(outcome).Inc()
	m.TranscodeDuration.Observe(d.Seconds())
}

func (m *Metrics) Rejected(reason string) {
	if m == nil {
		return
	}
	m.IngestRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) InferenceDone(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.InferenceRequests.WithLabelValues(result).Inc()
	m.InferenceLatency.Observe(d.Seconds())
}
