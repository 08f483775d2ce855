// SPDX-License-Identifier: EPL-2.0

// Package transcode normalizes captured audio into 16-bit PCM WAV.
//
// Uncompressed input passes through untouched. Compressed input is decoded
// through an audio.Registry and re-encoded with wav.Encode. When decoding
// fails or stalls the original bytes are kept, so a caller always gets a
// usable file.
package transcode

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ik5/coughcap/audio"
	"github.com/ik5/coughcap/capture"
	"github.com/ik5/coughcap/formats/mp3"
	"github.com/ik5/coughcap/formats/ogg"
	"github.com/ik5/coughcap/formats/wav"
	"github.com/ik5/coughcap/formats/webm"
	"github.com/ik5/coughcap/media"
	"github.com/ik5/coughcap/metrics"
)

// DefaultDecodeTimeout bounds a single decode.
const DefaultDecodeTimeout = 5 * time.Second

type Outcome int

const (
	Encoded Outcome = iota
	PassThrough
	Fallback
)

func (o Outcome) String() string {
	switch o {
	case Encoded:
		return "encoded"
	case PassThrough:
		return "pass_through"
	case Fallback:
		return "fallback"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result of Transcode. Err is set only for Fallback.
type Result struct {
	File    media.File
	Outcome Outcome
	Err     error
}

// DefaultRegistry knows every container a recorder or upload may produce.
func DefaultRegistry() *audio.Registry {
	r := audio.NewRegistry()
	r.Register("webm", webm.Decoder{})
	r.Register("ogg", ogg.Decoder{})
	r.Register("mp3", mp3.Decoder{})
	r.Register("wav", wav.Decoder{})
	return r
}

type Options struct {
	Registry      *audio.Registry
	Log           *zap.Logger
	Metrics       *metrics.Metrics
	DecodeTimeout time.Duration
	// TargetSampleRate resamples decoded audio; zero keeps the source rate.
	TargetSampleRate int
	// MaxDuration rejects longer decodes; zero means unlimited.
	MaxDuration time.Duration
	Clock       func() time.Time
}

type Transcoder struct {
	registry      *audio.Registry
	log           *zap.Logger
	metrics       *metrics.Metrics
	decodeTimeout time.Duration
	targetRate    int
	maxDuration   time.Duration
	clock         func() time.Time
}

func New(opts Options) *Transcoder {
	t := &Transcoder{
		registry:      opts.Registry,
		log:           opts.Log,
		metrics:       opts.Metrics,
		decodeTimeout: opts.DecodeTimeout,
		targetRate:    opts.TargetSampleRate,
		maxDuration:   opts.MaxDuration,
		clock:         opts.Clock,
	}

	if t.registry == nil {
		t.registry = DefaultRegistry()
	}
	if t.log == nil {
		t.log = zap.NewNop()
	}
	if t.decodeTimeout <= 0 {
		t.decodeTimeout = DefaultDecodeTimeout
	}
	if t.clock == nil {
		t.clock = time.Now
	}

	return t
}

// Transcode never fails: decode problems produce a Fallback result that
// carries the original bytes.
func (t *Transcoder) Transcode(ctx context.Context, art capture.Artifact) Result {
	start := t.clock()
	created := art.CreatedAt
	if created.IsZero() {
		created = start
	}

	res := t.transcode(ctx, art, created)
	t.metrics.Transcoded(res.Outcome.String(), t.clock().Sub(start))

	return res
}

func (t *Transcoder) transcode(ctx context.Context, art capture.Artifact, created time.Time) Result {
	if !media.IsCompressed(art.MIMEType) {
		return Result{
			File: media.File{
				Name:     media.RecordingName(created, "wav"),
				MIMEType: wav.MIMEType,
				Data:     art.Data,
			},
			Outcome: PassThrough,
		}
	}

	data, err := t.decode(ctx, art)
	if err != nil {
		t.log.Warn("transcode failed, keeping original audio",
			zap.String("mime_type", art.MIMEType),
			zap.Int("bytes", len(art.Data)),
			zap.Error(err))

		return Result{
			File: media.File{
				Name:     media.RecordingName(created, media.Extension(art.MIMEType)),
				MIMEType: art.MIMEType,
				Data:     art.Data,
			},
			Outcome: Fallback,
			Err:     err,
		}
	}

	return Result{
		File: media.File{
			Name:     media.RecordingName(created, "wav"),
			MIMEType: wav.MIMEType,
			Data:     data,
		},
		Outcome: Encoded,
	}
}

type decoded struct {
	data []byte
	err  error
}

// decode runs the decoder in its own goroutine so a stalled decoder only
// costs DecodeTimeout.
func (t *Transcoder) decode(ctx context.Context, art capture.Artifact) ([]byte, error) {
	container := media.Container(art.MIMEType)
	dec, ok := t.registry.Get(container)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoDecoder, art.MIMEType)
	}

	ctx, cancel := context.WithTimeout(ctx, t.decodeTimeout)
	defer cancel()

	ch := make(chan decoded, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- decoded{err: fmt.Errorf("%w: %v", ErrDecodePanic, r)}
			}
		}()

		data, err := t.encode(dec, art.Data)
		ch <- decoded{data: data, err: err}
	}()

	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrDecodeTimeout, ctx.Err())
	}
}

func (t *Transcoder) encode(dec audio.Decoder, data []byte) ([]byte, error) {
	src, err := dec.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	defer src.Close()

	if src.Channels() > 2 {
		src = audio.NewMonoMixer(src)
	}

	if t.targetRate > 0 && t.targetRate != src.SampleRate() {
		rs, err := audio.NewResampler(src, t.targetRate)
		if err != nil {
			return nil, fmt.Errorf("resample: %w", err)
		}
		src = rs
	}

	maxFrames := 0
	if t.maxDuration > 0 {
		maxFrames = int(t.maxDuration.Seconds() * float64(src.SampleRate()))
	}

	w, err := audio.ReadWaveform(src, maxFrames)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if w.SampleCount() == 0 {
		return nil, ErrNoAudio
	}

	return wav.Encode(w), nil
}
