// SPDX-License-Identifier: EPL-2.0

package opus

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// SampleRate is the rate every Opus stream decodes at.
const SampleRate = 48000

// HeadMagic starts the identification header in Ogg and in WebM
// CodecPrivate.
var HeadMagic = []byte("OpusHead")

// Head is the parsed OpusHead identification header.
type Head struct {
	Version       uint8
	Channels      int
	PreSkip       int
	InputRate     uint32
	OutputGain    int16
	MappingFamily uint8
}

// ParseHead parses an OpusHead packet. Only mono and stereo streams with
// channel mapping family 0 are supported.
func ParseHead(b []byte) (Head, error) {
	if len(b) < 19 || !bytes.HasPrefix(b, HeadMagic) {
		return Head{}, ErrInvalidHead
	}

	h := Head{
		Version:       b[8],
		Channels:      int(b[9]),
		PreSkip:       int(binary.LittleEndian.Uint16(b[10:12])),
		InputRate:     binary.LittleEndian.Uint32(b[12:16]),
		OutputGain:    int16(binary.LittleEndian.Uint16(b[16:18])),
		MappingFamily: b[18],
	}

	if h.Version>>4 != 0 {
		return Head{}, fmt.Errorf("%w: version %d", ErrInvalidHead, h.Version)
	}

	if h.MappingFamily != 0 || h.Channels < 1 || h.Channels > 2 {
		return Head{}, fmt.Errorf("%w: family %d with %d channels",
			ErrUnsupportedMapping, h.MappingFamily, h.Channels)
	}

	return h, nil
}
