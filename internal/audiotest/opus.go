// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
	"layeh.com/gopus"
)

// OpusFrameSize is 20 ms at 48 kHz.
const OpusFrameSize = 960

// OpusHead builds an OpusHead identification header with channel mapping 0.
func OpusHead(channels int, preSkip uint16, inputRate uint32) []byte {
	h := make([]byte, 19)
	copy(h, "OpusHead")
	h[8] = 1
	h[9] = byte(channels)
	binary.LittleEndian.PutUint16(h[10:], preSkip)
	binary.LittleEndian.PutUint32(h[12:], inputRate)
	return h
}

// OpusPackets encodes interleaved 48 kHz pcm into 20 ms Opus packets,
// zero-padding the last frame.
func OpusPackets(channels int, pcm []int16) ([][]byte, error) {
	enc, err := gopus.NewEncoder(48000, channels, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("new opus encoder: %w", err)
	}

	step := OpusFrameSize * channels
	var packets [][]byte
	for off := 0; off < len(pcm); off += step {
		frame := make([]int16, step)
		copy(frame, pcm[off:min(off+step, len(pcm))])

		pkt, err := enc.Encode(frame, OpusFrameSize, 4000)
		if err != nil {
			return nil, fmt.Errorf("encode opus frame: %w", err)
		}
		packets = append(packets, pkt)
	}

	return packets, nil
}

// OggOpus encodes pcm and muxes it into an Ogg Opus stream.
func OggOpus(channels int, pcm []int16) ([]byte, error) {
	packets, err := OpusPackets(channels, pcm)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w, err := oggwriter.NewWith(&buf, 48000, uint16(channels))
	if err != nil {
		return nil, fmt.Errorf("new ogg writer: %w", err)
	}

	for i, pkt := range packets {
		err := w.WriteRTP(&rtp.Packet{
			Header:  rtp.Header{Timestamp: uint32(i * OpusFrameSize)},
			Payload: pkt,
		})
		if err != nil {
			return nil, fmt.Errorf("write ogg page: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close ogg writer: %w", err)
	}

	return buf.Bytes(), nil
}

// WebMOpus encodes pcm and muxes it into a minimal WebM file with one
// A_OPUS track. The Segment and Cluster use unknown sizes the way live
// browser recordings do.
func WebMOpus(channels int, pcm []int16) ([]byte, error) {
	packets, err := OpusPackets(channels, pcm)
	if err != nil {
		return nil, err
	}

	var blocks [][]byte
	for i, pkt := range packets {
		blocks = append(blocks, EBMLElement(0xA3, SimpleBlock(1, int16(i*20), pkt)))
	}

	return WebM(channels, blocks...), nil
}

// WebM wraps cluster children into an EBML document with an Opus track.
func WebM(channels int, clusterChildren ...[]byte) []byte {
	header := EBMLElement(0x1A45DFA3, concat(
		EBMLElement(0x4282, []byte("webm")),
		EBMLElement(0x4287, []byte{4}),
	))

	audioSettings := EBMLElement(0xE1, concat(
		EBMLElement(0xB5, float64Bytes(48000)),
		EBMLElement(0x9F, []byte{byte(channels)}),
	))

	track := EBMLElement(0xAE, concat(
		EBMLElement(0xD7, []byte{1}),
		EBMLElement(0x83, []byte{2}),
		EBMLElement(0x86, []byte("A_OPUS")),
		EBMLElement(0x63A2, OpusHead(channels, 312, 48000)),
		audioSettings,
	))

	tracks := EBMLElement(0x1654AE6B, track)

	cluster := EBMLUnknownSize(0x1F43B675, concat(
		append([][]byte{EBMLElement(0xE7, []byte{0})}, clusterChildren...)...,
	))

	segment := EBMLUnknownSize(0x18538067, concat(tracks, cluster))

	return concat(header, segment)
}

// SimpleBlock builds an unlaced SimpleBlock payload.
func SimpleBlock(track int, timecode int16, frame []byte) []byte {
	b := []byte{0x80 | byte(track), byte(uint16(timecode) >> 8), byte(timecode), 0x80}
	return append(b, frame...)
}

// XiphLacedBlock builds a SimpleBlock payload holding several frames with
// Xiph lacing.
func XiphLacedBlock(track int, frames ...[]byte) []byte {
	b := []byte{0x80 | byte(track), 0, 0, 0x80 | 0x02, byte(len(frames) - 1)}
	for _, f := range frames[:len(frames)-1] {
		n := len(f)
		for n >= 255 {
			b = append(b, 255)
			n -= 255
		}
		b = append(b, byte(n))
	}

	for _, f := range frames {
		b = append(b, f...)
	}

	return b
}

// EBMLElement encodes id (with its marker bits) and a sized payload.
func EBMLElement(id uint32, payload []byte) []byte {
	return concat(idBytes(id), sizeBytes(uint64(len(payload))), payload)
}

// EBMLUnknownSize encodes id with the reserved unknown size marker.
func EBMLUnknownSize(id uint32, payload []byte) []byte {
	return concat(idBytes(id), []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, payload)
}

func idBytes(id uint32) []byte {
	switch {
	case id > 0xFFFFFF:
		return []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	case id > 0xFFFF:
		return []byte{byte(id >> 16), byte(id >> 8), byte(id)}
	case id > 0xFF:
		return []byte{byte(id >> 8), byte(id)}
	default:
		return []byte{byte(id)}
	}
}

// sizeBytes always uses the 8-byte vint form.
func sizeBytes(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	b[0] = 0x01
	return b
}

func float64Bytes(v float64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, math.Float64bits(v))
	return b
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
