// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

// chunkedMP3 serves PCM bytes in fixed-size reads, which may split frames.
type chunkedMP3 struct {
	data  []byte
	step  int
	rate  int
	fail  error
	reads int
}

func (m *chunkedMP3) SampleRate() int { return m.rate }

func (m *chunkedMP3) Read(p []byte) (int, error) {
	m.reads++
	if m.fail != nil {
		return 0, m.fail
	}
	if len(m.data) == 0 {
		return 0, io.EOF
	}

	n := copy(p[:min(len(p), m.step)], m.data)
	m.data = m.data[n:]

	return n, nil
}

func pcmBytes(samples ...int16) []byte {
	b := make([]byte, 0, len(samples)*2)
	for _, s := range samples {
		b = binary.LittleEndian.AppendUint16(b, uint16(s))
	}
	return b
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := Decoder{}.Decode(bytes.NewReader([]byte("not an mp3 stream")))
	if err == nil {
		t.Error("Decode() error = nil, want error")
	}
}

func TestSource_Metadata(t *testing.T) {
	t.Parallel()

	s := &source{dec: &chunkedMP3{rate: 22050}, rate: 22050}
	if s.SampleRate() != 22050 {
		t.Errorf("SampleRate() = %d, want 22050", s.SampleRate())
	}
	if s.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", s.Channels())
	}
}

func TestSource_ReadSamples_SplitFrames(t *testing.T) {
	t.Parallel()

	want := []int16{16384, -16384, 8192, -8192, 0, 32767}
	// Three-byte reads split samples and frames.
	s := &source{dec: &chunkedMP3{data: pcmBytes(want...), step: 3, rate: 44100}, rate: 44100}

	var got []float32
	buf := make([]float32, 8)
	for range 50 {
		n, err := s.ReadSamples(buf)
		got = append(got, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}

	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i, v := range want {
		if got[i] != float32(v)/32768 {
			t.Errorf("sample %d = %v, want %v", i, got[i], float32(v)/32768)
		}
	}
}

func TestSource_ReadSamples_OddDst(t *testing.T) {
	t.Parallel()

	s := &source{dec: &chunkedMP3{data: pcmBytes(1, 2, 3, 4), step: 64}, rate: 8000}

	n, err := s.ReadSamples(make([]float32, 3))
	if err != nil {
		t.Fatalf("ReadSamples() error = %v", err)
	}
	if n != 2 {
		t.Errorf("ReadSamples() = %d, want 2 (one stereo frame)", n)
	}
}

func TestSource_ReadSamples_Error(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	s := &source{dec: &chunkedMP3{fail: boom}, rate: 8000}

	_, err := s.ReadSamples(make([]float32, 16))
	if !errors.Is(err, boom) {
		t.Errorf("ReadSamples() error = %v, want %v", err, boom)
	}
}

func BenchmarkSource_ReadSamples(b *testing.B) {
	data := pcmBytes(make([]int16, 44100*2)...)
	buf := make([]float32, 4096)

	for b.Loop() {
		s := &source{dec: &chunkedMP3{data: data, step: 4096}, rate: 44100}
		for {
			if _, err := s.ReadSamples(buf); err != nil {
				break
			}
		}
	}
}
