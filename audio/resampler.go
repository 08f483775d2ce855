// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
)

// Resampler converts src to a different sample rate with Catmull-Rom cubic
// interpolation. Channel count is preserved. When downsampling, a one-pole
// low-pass at the destination Nyquist frequency is applied before
// interpolation.
type Resampler struct {
	src      Source
	dstRate  int
	ratio    float64
	channels int

	// hist[1] and hist[2] bracket the output position; real marks frames
	// that came from src rather than edge padding.
	hist [4][]float32
	real [4]bool
	pos  float64

	buf    []float32
	bufPos int
	bufLen int
	srcErr error

	useFilter   bool
	filterAlpha float32
	filterState []float32
	filterInit  bool

	primed bool
	done   bool
}

func NewResampler(src Source, dstRate int) (*Resampler, error) {
	if dstRate <= 0 || src.SampleRate() <= 0 {
		return nil, ErrInvalidSampleRate
	}

	channels := src.Channels()
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannelCount, channels)
	}

	size := src.BufSize()
	if size < channels {
		size = 4096
	}
	size -= size % channels

	r := &Resampler{
		src:         src,
		dstRate:     dstRate,
		ratio:       float64(src.SampleRate()) / float64(dstRate),
		channels:    channels,
		buf:         make([]float32, size),
		filterState: make([]float32, channels),
	}

	if r.ratio > 1 {
		rc := 1 / (2 * math.Pi * float64(dstRate) / 2)
		dt := 1 / float64(src.SampleRate())
		r.useFilter = true
		r.filterAlpha = float32(dt / (rc + dt))
	}

	for i := range r.hist {
		r.hist[i] = make([]float32, channels)
	}

	return r, nil
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return len(r.buf) }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("close resampler source: %w", err)
	}

	return nil
}

// nextFrame copies the next source frame into dst. It returns false once the
// source is exhausted; a non-EOF source error is returned as is.
func (r *Resampler) nextFrame(dst []float32) (bool, error) {
	empty := 0
	for r.bufPos >= r.bufLen {
		if r.srcErr != nil {
			if errors.Is(r.srcErr, io.EOF) {
				return false, nil
			}
			return false, r.srcErr
		}

		n, err := r.src.ReadSamples(r.buf)
		r.bufPos = 0
		r.bufLen = n - n%r.channels
		r.srcErr = err

		if n == 0 && err == nil {
			empty++
			if empty > maxEmptyReads {
				r.srcErr = ErrNoProgress
			}
		}
	}

	copy(dst, r.buf[r.bufPos:r.bufPos+r.channels])
	r.bufPos += r.channels

	if r.useFilter {
		if !r.filterInit {
			copy(r.filterState, dst)
			r.filterInit = true
		}
		for c := range r.channels {
			dst[c] = r.filterAlpha*dst[c] + (1-r.filterAlpha)*r.filterState[c]
			r.filterState[c] = dst[c]
		}
	}

	return true, nil
}

func (r *Resampler) prime() error {
	ok, err := r.nextFrame(r.hist[1])
	if err != nil {
		return err
	}
	if !ok {
		r.done = true
		return nil
	}

	copy(r.hist[0], r.hist[1])
	r.real[0], r.real[1] = true, true

	for i := 2; i < 4; i++ {
		ok, err := r.nextFrame(r.hist[i])
		if err != nil {
			return err
		}
		if !ok {
			copy(r.hist[i], r.hist[i-1])
		}
		r.real[i] = ok
	}

	r.primed = true

	return nil
}

func (r *Resampler) advance() error {
	r.hist[0], r.hist[1], r.hist[2], r.hist[3] = r.hist[1], r.hist[2], r.hist[3], r.hist[0]
	r.real[0], r.real[1], r.real[2] = r.real[1], r.real[2], r.real[3]

	ok, err := r.nextFrame(r.hist[3])
	if err != nil {
		return err
	}
	if !ok {
		copy(r.hist[3], r.hist[2])
	}
	r.real[3] = ok

	return nil
}

// ReadSamples fills dst with interleaved samples at the destination rate.
// len(dst) must be a multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed && !r.done {
		if err := r.prime(); err != nil {
			return 0, fmt.Errorf("resampler: %w", err)
		}
	}

	written := 0
	for !r.done && written+r.channels <= len(dst) {
		for r.pos >= 1 {
			r.pos--
			if err := r.advance(); err != nil {
				return written, fmt.Errorf("resampler: %w", err)
			}
		}

		if !r.real[1] {
			r.done = true
			break
		}

		t := float32(r.pos)
		for c := range r.channels {
			dst[written+c] = catmullRom(r.hist[0][c], r.hist[1][c], r.hist[2][c], r.hist[3][c], t)
		}

		written += r.channels
		r.pos += r.ratio
	}

	if r.done && written == 0 {
		return 0, io.EOF
	}

	return written, nil
}

// catmullRom interpolates between y1 and y2 at t in [0,1).
func catmullRom(y0, y1, y2, y3, t float32) float32 {
	t2 := t * t
	t3 := t2 * t

	return 0.5 * (2*y1 +
		(-y0+y2)*t +
		(2*y0-5*y1+4*y2-y3)*t2 +
		(-y0+3*y1-3*y2+y3)*t3)
}
