// SPDX-License-Identifier: EPL-2.0

// Package opusrec records a capture stream as Ogg Opus, emitting the bytes
// written since the previous chunk once per timeslice.
package opusrec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"go.uber.org/zap"

	"github.com/ik5/coughcap/audio"
	"github.com/ik5/coughcap/capture"
	"github.com/ik5/coughcap/formats/opus"
	"github.com/ik5/coughcap/utils"
)

var supported = map[string]struct{}{
	"audio/ogg":             {},
	"audio/ogg;codecs=opus": {},
}

// Factory creates Ogg Opus recorders.
type Factory struct {
	Log *zap.Logger
}

func normalize(mimeType string) string {
	return strings.ToLower(strings.ReplaceAll(mimeType, " ", ""))
}

func (Factory) IsTypeSupported(mimeType string) bool {
	_, ok := supported[normalize(mimeType)]
	return ok
}

func (f Factory) NewRecorder(s capture.Stream, mimeType string) (capture.Recorder, error) {
	if !f.IsTypeSupported(mimeType) {
		return nil, fmt.Errorf("%w: %s", capture.ErrNoSupportedType, mimeType)
	}

	log := f.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &Recorder{
		stream: s,
		log:    log,
		stop:   make(chan struct{}),
	}, nil
}

// pageBuffer collects oggwriter output between chunks.
type pageBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *pageBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// take returns and clears everything written so far.
func (b *pageBuffer) take() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buf.Len() == 0 {
		return nil
	}

	out := bytes.Clone(b.buf.Bytes())
	b.buf.Reset()

	return out
}

// Recorder encodes 20 ms Opus frames at 48 kHz into Ogg pages.
type Recorder struct {
	stream capture.Stream
	log    *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
	started  bool

	pages pageBuffer

	mu  sync.Mutex
	err error
}

func (r *Recorder) Start(timeslice time.Duration) (<-chan []byte, error) {
	if r.started {
		return nil, errors.New("opusrec: already started")
	}
	r.started = true

	format := r.stream.Format()
	var src audio.Source = audio.NewStreamSource(r.stream.Frames(), r.stop, format.SampleRate, format.Channels)

	channels := format.Channels
	if channels > 2 {
		src = audio.NewMonoMixer(src)
		channels = 1
	}

	if format.SampleRate != opus.SampleRate {
		rs, err := audio.NewResampler(src, opus.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("opusrec: %w", err)
		}
		src = rs
	}

	enc, err := opus.NewEncoder(channels)
	if err != nil {
		return nil, fmt.Errorf("opusrec: %w", err)
	}

	w, err := oggwriter.NewWith(&r.pages, opus.SampleRate, uint16(channels))
	if err != nil {
		return nil, fmt.Errorf("opusrec: ogg writer: %w", err)
	}

	out := make(chan []byte, 16)
	encoded := make(chan struct{})

	go r.encode(src, enc, w, encoded)
	go r.emit(timeslice, out, encoded)

	return out, nil
}

func (r *Recorder) encode(src audio.Source, enc *opus.Encoder, w *oggwriter.OggWriter, done chan<- struct{}) {
	defer close(done)
	defer func() {
		if err := w.Close(); err != nil {
			r.log.Warn("close ogg writer", zap.Error(err))
		}
	}()

	frame := make([]float32, opus.FrameSize*enc.Channels())
	pcm := make([]int16, len(frame))
	filled := 0
	var granule uint32

	write := func() error {
		for i, v := range frame {
			pcm[i] = utils.Float32ToInt16(v)
		}

		pkt, err := enc.Encode(pcm)
		if err != nil {
			return err
		}

		err = w.WriteRTP(&rtp.Packet{
			Header:  rtp.Header{Timestamp: granule},
			Payload: pkt,
		})
		if err != nil {
			return fmt.Errorf("opusrec: write page: %w", err)
		}

		granule += opus.FrameSize
		return nil
	}

	for {
		n, err := src.ReadSamples(frame[filled:])
		filled += n

		if filled == len(frame) {
			if werr := write(); werr != nil {
				r.setErr(werr)
				return
			}
			filled = 0
		}

		if errors.Is(err, io.EOF) {
			if filled > 0 {
				clear(frame[filled:])
				if werr := write(); werr != nil {
					r.setErr(werr)
				}
			}
			return
		}

		if err != nil {
			r.setErr(err)
			return
		}
	}
}

func (r *Recorder) emit(timeslice time.Duration, out chan<- []byte, encoded <-chan struct{}) {
	defer close(out)

	ticker := time.NewTicker(timeslice)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if chunk := r.pages.take(); chunk != nil {
				out <- chunk
			}
		case <-encoded:
			if chunk := r.pages.take(); chunk != nil {
				out <- chunk
			}
			return
		}
	}
}

// Stop asks the encoder to drain the stream and flush the final frame.
// The chunk channel closes once that is done.
func (r *Recorder) Stop() error {
	r.stopOnce.Do(func() { close(r.stop) })
	return nil
}

func (r *Recorder) setErr(err error) {
	r.log.Warn("opus recorder failed", zap.Error(err))

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
