// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"

	"github.com/ik5/coughcap/utils"
)

// StreamSource adapts a push channel of interleaved int16 blocks into a
// Source. ReadSamples blocks until a block arrives. After stop is closed,
// blocks already queued on frames are still delivered, then io.EOF.
// A closed frames channel also ends the stream.
type StreamSource struct {
	frames   <-chan []int16
	stop     <-chan struct{}
	rate     int
	channels int

	pending []int16
	stopped bool
	eof     bool
}

func NewStreamSource(frames <-chan []int16, stop <-chan struct{}, sampleRate, channels int) *StreamSource {
	return &StreamSource{
		frames:   frames,
		stop:     stop,
		rate:     sampleRate,
		channels: channels,
	}
}

func (s *StreamSource) SampleRate() int { return s.rate }
func (s *StreamSource) Channels() int   { return s.channels }
func (s *StreamSource) BufSize() int    { return s.rate / 50 * s.channels }
func (s *StreamSource) Close() error    { return nil }

func (s *StreamSource) ReadSamples(dst []float32) (int, error) {
	if len(dst) < s.channels {
		return 0, ErrInvalidDstSize
	}

	for len(s.pending) == 0 {
		if s.eof {
			return 0, io.EOF
		}

		if !s.fill() {
			s.eof = true
			return 0, io.EOF
		}
	}

	n := min(len(dst)-len(dst)%s.channels, len(s.pending))
	for i := range n {
		dst[i] = utils.Int16ToFloat32(s.pending[i])
	}
	s.pending = s.pending[n:]

	return n, nil
}

// fill loads the next block into pending. It returns false when the stream
// has ended.
func (s *StreamSource) fill() bool {
	if s.stopped {
		select {
		case block, ok := <-s.frames:
			if !ok {
				return false
			}
			s.pending = block
			return true
		default:
			return false
		}
	}

	select {
	case block, ok := <-s.frames:
		if !ok {
			return false
		}
		s.pending = block
		return true
	case <-s.stop:
		s.stopped = true
		return s.fill()
	}
}
