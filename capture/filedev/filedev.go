// SPDX-License-Identifier: EPL-2.0

// Package filedev plays a WAV file into a capture stream, standing in for a
// microphone on machines without one and in end-to-end tests.
package filedev

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ik5/coughcap/audio"
	"github.com/ik5/coughcap/capture"
	"github.com/ik5/coughcap/formats/wav"
	"github.com/ik5/coughcap/utils"
)

// DefaultBlock is the amount of audio per delivered block.
const DefaultBlock = 10 * time.Millisecond

// Device opens Path for every stream.
type Device struct {
	Path string
	// Realtime paces blocks at the speed of the audio.
	Realtime bool
	Block    time.Duration
	Log      *zap.Logger

	mu   sync.Mutex
	last *Stream
}

func (d *Device) Open(_ context.Context, c capture.Constraints) (capture.Stream, error) {
	f, err := os.Open(d.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", capture.ErrNoDevice, d.Path)
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%w: %s", capture.ErrPermissionDenied, d.Path)
	case err != nil:
		return nil, fmt.Errorf("open %s: %w", d.Path, err)
	}

	src, err := wav.Decoder{}.Decode(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("filedev: %w", err)
	}

	if c.ChannelCount == 1 && src.Channels() > 1 {
		src = audio.NewMonoMixer(src)
	}

	block := d.Block
	if block <= 0 {
		block = DefaultBlock
	}

	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	s := &Stream{
		format:  capture.Format{SampleRate: src.SampleRate(), Channels: src.Channels()},
		frames:  make(chan []int16, 64),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
		drained: make(chan struct{}),
	}

	d.mu.Lock()
	d.last = s
	d.mu.Unlock()

	go s.play(src, f, block, d.Realtime, log)

	return s, nil
}

// Wait blocks until the most recent stream has delivered the whole file.
func (d *Device) Wait(ctx context.Context) error {
	d.mu.Lock()
	s := d.last
	d.mu.Unlock()

	if s == nil {
		return capture.ErrNotRecording
	}

	select {
	case <-s.drained:
		return nil
	default:
	}

	select {
	case <-s.drained:
		return nil
	case <-s.stop:
		return capture.ErrStreamClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stream delivers file audio. Frames stays open after the file ends, like
// a silent microphone, until Close.
type Stream struct {
	format  capture.Format
	frames  chan []int16
	stop    chan struct{}
	stopped chan struct{}
	drained chan struct{}

	once   sync.Once
	mu     sync.Mutex
	closed bool
}

func (s *Stream) Format() capture.Format { return s.format }
func (s *Stream) Frames() <-chan []int16 { return s.frames }

func (s *Stream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *Stream) Close() error {
	s.once.Do(func() {
		close(s.stop)
		<-s.stopped

		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		close(s.frames)
	})

	return nil
}

func (s *Stream) play(src audio.Source, f io.Closer, block time.Duration, realtime bool, log *zap.Logger) {
	defer close(s.stopped)
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn("close wav input", zap.Error(err))
		}
	}()

	frames := max(1, int(time.Duration(s.format.SampleRate)*block/time.Second))
	buf := make([]float32, frames*s.format.Channels)

	var tick <-chan time.Time
	if realtime {
		t := time.NewTicker(block)
		defer t.Stop()
		tick = t.C
	}

	for {
		n, err := src.ReadSamples(buf)
		if n > 0 {
			out := make([]int16, n)
			for i, v := range buf[:n] {
				out[i] = utils.Float32ToInt16(v)
			}

			if tick != nil {
				select {
				case <-tick:
				case <-s.stop:
					return
				}
			}

			select {
			case s.frames <- out:
			case <-s.stop:
				return
			}
		}

		if errors.Is(err, io.EOF) {
			close(s.drained)
			return
		}
		if err != nil {
			log.Warn("read wav input", zap.Error(err))
			close(s.drained)
			return
		}
	}
}
