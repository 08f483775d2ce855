// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/ik5/coughcap/audio"
)

const pcmFormat = 1

// Info describes a WAV stream without decoding its samples.
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

type source struct {
	dec      *gowav.Decoder
	buf      *goaudio.IntBuffer
	rate     int
	channels int
	scale    float32
	offset   int
	done     bool
}

func (s *source) SampleRate() int { return s.rate }
func (s *source) Channels() int   { return s.channels }
func (s *source) BufSize() int    { return len(s.buf.Data) }
func (s *source) Close() error    { return nil }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if s.done {
		return 0, io.EOF
	}

	want := len(dst) - len(dst)%s.channels
	if want == 0 {
		return 0, nil
	}

	if cap(s.buf.Data) < want {
		s.buf.Data = make([]int, want)
	}
	s.buf.Data = s.buf.Data[:want]

	n, err := s.dec.PCMBuffer(s.buf)
	n -= n % s.channels
	for i := range n {
		dst[i] = float32(s.buf.Data[i]-s.offset) * s.scale
	}

	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("read wav pcm: %w", err)
	}

	if n == 0 || err != nil {
		s.done = true
		if n == 0 {
			return 0, io.EOF
		}
	}

	return n, nil
}

// Decoder decodes integer PCM WAV at 8, 16, 24 or 32 bits.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := open(r)
	if err != nil {
		return nil, err
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotWavFile, err)
	}

	bits := int(dec.BitDepth)
	s := &source{
		dec:      dec,
		rate:     int(dec.SampleRate),
		channels: int(dec.NumChans),
		scale:    1 / float32(int64(1)<<(bits-1)),
		buf: &goaudio.IntBuffer{
			Format:         dec.Format(),
			Data:           make([]int, 4096*int(dec.NumChans)),
			SourceBitDepth: bits,
		},
	}

	// 8-bit WAV is unsigned.
	if bits == 8 {
		s.offset = 128
	}

	return s, nil
}

// ReadInfo reports the format of a WAV stream.
func ReadInfo(r io.Reader) (Info, error) {
	dec, err := open(r)
	if err != nil {
		return Info{}, err
	}

	d, err := dec.Duration()
	if err != nil {
		return Info{}, fmt.Errorf("wav duration: %w", err)
	}

	return Info{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Duration:   d,
	}, nil
}

func open(r io.Reader) (*gowav.Decoder, error) {
	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read wav: %w", err)
		}
		rs = bytes.NewReader(data)
	}

	dec := gowav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWavFile
	}

	if dec.WavAudioFormat != pcmFormat {
		return nil, fmt.Errorf("%w: format tag %d", ErrOnlyPCMSupported, dec.WavAudioFormat)
	}

	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, dec.BitDepth)
	}

	if dec.SampleRate == 0 {
		return nil, fmt.Errorf("%w: zero sample rate", ErrNotWavFile)
	}

	return dec, nil
}
