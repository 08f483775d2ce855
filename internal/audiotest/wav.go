// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// SineInt16 returns interleaved int16 samples of a sine at amp (0..1)
// duplicated on every channel.
func SineInt16(sampleRate, channels, frames int, freq, amp float64) []int16 {
	out := make([]int16, frames*channels)
	for f := range frames {
		v := int16(amp * 32767 * math.Sin(2*math.Pi*freq*float64(f)/float64(sampleRate)))
		for c := range channels {
			out[f*channels+c] = v
		}
	}

	return out
}

// WAV16 builds a canonical 16-bit PCM WAV file around samples.
func WAV16(sampleRate, channels int, samples []int16) []byte {
	return WAV(sampleRate, channels, 16, 1, pcm16(samples), nil)
}

// WAV builds a WAV file with an arbitrary fmt chunk and raw data. Extra
// chunks are written between fmt and data as id/payload pairs.
func WAV(sampleRate, channels, bits, format int, data []byte, extra map[string][]byte) []byte {
	var body bytes.Buffer
	body.WriteString("WAVE")

	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:], uint16(format))
	binary.LittleEndian.PutUint16(fmtChunk[2:], uint16(channels))
	binary.LittleEndian.PutUint32(fmtChunk[4:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(fmtChunk[8:], uint32(sampleRate*channels*bits/8))
	binary.LittleEndian.PutUint16(fmtChunk[12:], uint16(channels*bits/8))
	binary.LittleEndian.PutUint16(fmtChunk[14:], uint16(bits))
	writeChunk(&body, "fmt ", fmtChunk)

	for id, payload := range extra {
		writeChunk(&body, id, payload)
	}

	writeChunk(&body, "data", data)

	var out bytes.Buffer
	out.WriteString("RIFF")
	_ = binary.Write(&out, binary.LittleEndian, uint32(body.Len()))
	out.Write(body.Bytes())

	return out.Bytes()
}

func writeChunk(b *bytes.Buffer, id string, payload []byte) {
	b.WriteString(id)
	_ = binary.Write(b, binary.LittleEndian, uint32(len(payload)))
	b.Write(payload)
	if len(payload)%2 == 1 {
		b.WriteByte(0)
	}
}

func pcm16(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}

	return out
}
