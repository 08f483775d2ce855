// SPDX-License-Identifier: EPL-2.0

package ogg

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/ik5/coughcap/audio"
	"github.com/ik5/coughcap/internal/audiotest"
)

// buildPage assembles a page with a correct checksum around body and the
// given lacing values.
func buildPage(flags byte, serial, seq uint32, lacing, body []byte) []byte {
	h := make([]byte, headerSize)
	copy(h, "OggS")
	h[5] = flags
	binary.LittleEndian.PutUint32(h[14:], serial)
	binary.LittleEndian.PutUint32(h[18:], seq)
	h[26] = byte(len(lacing))

	sum := crc(crc(crc(0, h), lacing), body)
	binary.LittleEndian.PutUint32(h[22:], sum)

	return append(append(h, lacing...), body...)
}

func TestReadPage_Checksum(t *testing.T) {
	t.Parallel()

	page := buildPage(flagBOS, 7, 0, []byte{3}, []byte("abc"))

	p, err := ReadPage(bytes.NewReader(page))
	if err != nil {
		t.Fatalf("ReadPage() error = %v", err)
	}
	if !p.BOS() || p.Serial != 7 || string(p.Body) != "abc" {
		t.Errorf("ReadPage() = %+v", p)
	}

	page[len(page)-1] ^= 0xFF
	if _, err := ReadPage(bytes.NewReader(page)); !errors.Is(err, ErrBadChecksum) {
		t.Errorf("ReadPage(corrupt) error = %v, want %v", err, ErrBadChecksum)
	}
}

func TestReadPage_BadCapture(t *testing.T) {
	t.Parallel()

	_, err := ReadPage(bytes.NewReader(bytes.Repeat([]byte{'x'}, 40)))
	if !errors.Is(err, ErrBadCapture) {
		t.Errorf("ReadPage() error = %v, want %v", err, ErrBadCapture)
	}
}

func TestPacketReader_LacingAcrossPages(t *testing.T) {
	t.Parallel()

	long := bytes.Repeat([]byte{'L'}, 300)

	var stream []byte
	// Packet "a", then the first 255 bytes of the long packet.
	stream = append(stream, buildPage(flagBOS, 1, 0, []byte{1, 255}, append([]byte("a"), long[:255]...))...)
	// A page from another logical stream is ignored.
	stream = append(stream, buildPage(flagBOS, 2, 0, []byte{1}, []byte("z"))...)
	// Remaining 45 bytes, then an empty packet and "bc".
	stream = append(stream, buildPage(flagContinued|flagEOS, 1, 1, []byte{45, 0, 2}, append(long[255:], 'b', 'c'))...)

	pr := NewPacketReader(bytes.NewReader(stream))

	want := [][]byte{[]byte("a"), long, {}, []byte("bc")}
	for i, w := range want {
		got, err := pr.NextPacket()
		if err != nil {
			t.Fatalf("packet %d: NextPacket() error = %v", i, err)
		}
		if !bytes.Equal(got, w) {
			t.Errorf("packet %d = %q (len %d), want len %d", i, got, len(got), len(w))
		}
	}

	if _, err := pr.NextPacket(); !errors.Is(err, io.EOF) {
		t.Errorf("NextPacket() after EOS error = %v, want io.EOF", err)
	}
}

func TestPacketReader_Empty(t *testing.T) {
	t.Parallel()

	_, err := NewPacketReader(bytes.NewReader(nil)).NextPacket()
	if !errors.Is(err, ErrNoStream) {
		t.Errorf("NextPacket() error = %v, want %v", err, ErrNoStream)
	}
}

func TestDecoder_OggOpus(t *testing.T) {
	t.Parallel()

	pcm := audiotest.SineInt16(48000, 2, 48000/2, 300, 0.5)
	data, err := audiotest.OggOpus(2, pcm)
	if err != nil {
		t.Fatalf("OggOpus() error = %v", err)
	}

	if codec, err := Sniff(data); err != nil || codec != CodecOpus {
		t.Errorf("Sniff() = (%q, %v), want (%q, nil)", codec, err, CodecOpus)
	}

	src, err := Decoder{}.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	w, err := audio.ReadWaveform(src, 0)
	if err != nil {
		t.Fatalf("ReadWaveform() error = %v", err)
	}

	if w.SampleRate != 48000 || w.ChannelCount() != 2 {
		t.Errorf("waveform = %d Hz x %d ch, want 48000 x 2", w.SampleRate, w.ChannelCount())
	}
	if w.SampleCount() == 0 || w.SampleCount() > 48000/2 {
		t.Errorf("SampleCount() = %d, want (0, 24000]", w.SampleCount())
	}
}

func TestDecoder_UnknownCodec(t *testing.T) {
	t.Parallel()

	data := buildPage(flagBOS|flagEOS, 1, 0, []byte{8}, []byte("Speex   "))

	_, err := Decoder{}.Decode(bytes.NewReader(data))
	if !errors.Is(err, ErrUnsupportedCodec) {
		t.Errorf("Decode() error = %v, want %v", err, ErrUnsupportedCodec)
	}
}

func TestDecoder_Garbage(t *testing.T) {
	t.Parallel()

	if _, err := (Decoder{}).Decode(bytes.NewReader([]byte("garbage garbage garbage garbage"))); err == nil {
		t.Error("Decode() error = nil, want error")
	}
}
