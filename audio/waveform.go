// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// maxEmptyReads bounds how many consecutive (0, nil) reads ReadWaveform
// tolerates before giving up on a source.
const maxEmptyReads = 64

// Waveform is fully decoded audio held as one float32 slice per channel.
// Every channel has the same length.
type Waveform struct {
	SampleRate int
	Channels   [][]float32
}

func (w Waveform) ChannelCount() int { return len(w.Channels) }

// SampleCount is the number of samples per channel.
func (w Waveform) SampleCount() int {
	if len(w.Channels) == 0 {
		return 0
	}

	return len(w.Channels[0])
}

func (w Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}

	return time.Duration(w.SampleCount()) * time.Second / time.Duration(w.SampleRate)
}

// Validate reports whether w can be encoded as mono or stereo PCM.
func (w Waveform) Validate() error {
	if w.SampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSampleRate, w.SampleRate)
	}

	if n := len(w.Channels); n != 1 && n != 2 {
		return fmt.Errorf("%w: %d", ErrInvalidChannelCount, n)
	}

	count := len(w.Channels[0])
	for i, ch := range w.Channels[1:] {
		if len(ch) != count {
			return fmt.Errorf("%w: channel %d has %d samples, channel 0 has %d",
				ErrChannelLengthMismatch, i+1, len(ch), count)
		}
	}

	return nil
}

// ReadWaveform drains src and de-interleaves it into a Waveform.
// maxFrames limits the number of frames read; zero means unlimited.
// A trailing partial frame is discarded. src is not closed.
func ReadWaveform(src Source, maxFrames int) (Waveform, error) {
	channels := src.Channels()
	if channels < 1 {
		return Waveform{}, fmt.Errorf("%w: %d", ErrInvalidChannelCount, channels)
	}

	rate := src.SampleRate()
	if rate <= 0 {
		return Waveform{}, fmt.Errorf("%w: %d", ErrInvalidSampleRate, rate)
	}

	size := src.BufSize()
	if size < channels {
		size = 4096
	}
	size -= size % channels

	buf := make([]float32, size)
	interleaved := make([]float32, 0, size*4)
	empty := 0

	for {
		n, err := src.ReadSamples(buf)
		interleaved = append(interleaved, buf[:n]...)

		if maxFrames > 0 && len(interleaved)/channels > maxFrames {
			return Waveform{}, fmt.Errorf("%w: more than %d frames", ErrTooLong, maxFrames)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return Waveform{}, fmt.Errorf("read samples: %w", err)
		}

		if n == 0 {
			empty++
			if empty > maxEmptyReads {
				return Waveform{}, ErrNoProgress
			}

			continue
		}
		empty = 0
	}

	frames := len(interleaved) / channels
	w := Waveform{
		SampleRate: rate,
		Channels:   make([][]float32, channels),
	}

	for c := range channels {
		w.Channels[c] = make([]float32, frames)
	}

	for f := range frames {
		base := f * channels
		for c := range channels {
			w.Channels[c][f] = interleaved[base+c]
		}
	}

	return w, nil
}
