// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ik5/coughcap/audio"
	"github.com/ik5/coughcap/utils"
)

const (
	// HeaderSize of the canonical PCM header written by Encode.
	HeaderSize = 44
	MIMEType   = "audio/wav"

	writeBlock = 8192
)

// Encode renders w as a 16-bit PCM WAV file. Output is a pure function of
// the input. It panics when w is not valid mono or stereo audio.
func Encode(w audio.Waveform) []byte {
	if err := w.Validate(); err != nil {
		panic(fmt.Sprintf("wav: encode: %v", err))
	}

	var buf bytes.Buffer
	buf.Grow(HeaderSize + w.SampleCount()*w.ChannelCount()*2)

	// bytes.Buffer writes do not fail.
	_ = write(&buf, w)

	return buf.Bytes()
}

// WriteWaveform streams the same bytes Encode produces to out.
func WriteWaveform(out io.Writer, w audio.Waveform) error {
	if err := w.Validate(); err != nil {
		return fmt.Errorf("wav: %w", err)
	}

	return write(out, w)
}

func write(out io.Writer, w audio.Waveform) error {
	channels := w.ChannelCount()
	frames := w.SampleCount()

	if _, err := out.Write(header(w.SampleRate, channels, frames)); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}

	frameBytes := channels * 2
	block := make([]byte, 0, writeBlock-writeBlock%frameBytes)

	for f := range frames {
		for c := range channels {
			block = binary.LittleEndian.AppendUint16(block, uint16(utils.Float32ToInt16(w.Channels[c][f])))
		}

		if len(block) == cap(block) {
			if _, err := out.Write(block); err != nil {
				return fmt.Errorf("write wav data: %w", err)
			}
			block = block[:0]
		}
	}

	if len(block) > 0 {
		if _, err := out.Write(block); err != nil {
			return fmt.Errorf("write wav data: %w", err)
		}
	}

	return nil
}

func header(sampleRate, channels, frames int) []byte {
	const bitsPerSample = 16

	blockAlign := channels * bitsPerSample / 8
	dataSize := uint32(frames * blockAlign)

	h := make([]byte, HeaderSize)

	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], 36+dataSize)
	copy(h[8:12], "WAVE")

	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], pcmFormat)
	binary.LittleEndian.PutUint16(h[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(h[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(h[34:36], bitsPerSample)

	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], dataSize)

	return h
}
