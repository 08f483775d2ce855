// SPDX-License-Identifier: EPL-2.0

// Package micdev captures from the default system microphone via malgo.
package micdev

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/ik5/coughcap/capture"
	"github.com/ik5/coughcap/metrics"
)

// DefaultBufferBlocks is how many device callbacks may queue before blocks
// are dropped.
const DefaultBufferBlocks = 256

type Device struct {
	Log          *zap.Logger
	Metrics      *metrics.Metrics
	BufferBlocks int
}

func (d *Device) Open(_ context.Context, c capture.Constraints) (capture.Stream, error) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	channels := c.ChannelCount
	if channels <= 0 {
		channels = 1
	}
	rate := c.SampleRate
	if rate <= 0 {
		rate = 44100
	}
	buffer := d.BufferBlocks
	if buffer <= 0 {
		buffer = DefaultBufferBlocks
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		log.Debug("malgo", zap.String("message", strings.TrimSpace(msg)))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", capture.ErrNoDevice, err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = uint32(channels)
	cfg.SampleRate = uint32(rate)
	cfg.Alsa.NoMMap = 1

	s := &Stream{
		format:  capture.Format{SampleRate: rate, Channels: channels},
		frames:  make(chan []int16, buffer),
		log:     log,
		metrics: d.Metrics,
		ctx:     mctx,
	}

	dev, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{Data: s.onData})
	if err != nil {
		s.freeContext()
		return nil, deviceError(err)
	}
	s.dev = dev

	if err := dev.Start(); err != nil {
		dev.Uninit()
		s.freeContext()
		return nil, deviceError(err)
	}

	log.Info("microphone opened", zap.Int("sample_rate", rate), zap.Int("channels", channels))

	return s, nil
}

func deviceError(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "permission") {
		return fmt.Errorf("%w: %w", capture.ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %w", capture.ErrNoDevice, err)
}

type Stream struct {
	format  capture.Format
	frames  chan []int16
	log     *zap.Logger
	metrics *metrics.Metrics

	ctx *malgo.AllocatedContext
	dev *malgo.Device

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

func (s *Stream) onData(_, in []byte, _ uint32) {
	block := decodeS16(in)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.frames <- block:
	default:
		s.metrics.FrameDropped()
	}
}

func decodeS16(in []byte) []int16 {
	out := make([]int16, len(in)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(in[i*2:]))
	}
	return out
}

func (s *Stream) freeContext() {
	if err := s.ctx.Uninit(); err != nil {
		s.log.Warn("uninit malgo context", zap.Error(err))
	}
	s.ctx.Free()
}

func (s *Stream) Close() error {
	s.once.Do(func() {
		s.dev.Uninit()
		s.freeContext()

		s.mu.Lock()
		s.closed = true
		close(s.frames)
		s.mu.Unlock()
	})

	return nil
}
