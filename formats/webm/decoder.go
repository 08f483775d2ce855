// SPDX-License-Identifier: EPL-2.0

package webm

import (
	"fmt"
	"io"

	"github.com/ik5/coughcap/audio"
	"github.com/ik5/coughcap/formats/opus"
)

const codecOpus = "A_OPUS"

type framePackets struct {
	frames [][]byte
}

func (p *framePackets) NextPacket() ([]byte, error) {
	if len(p.frames) == 0 {
		return nil, io.EOF
	}

	f := p.frames[0]
	p.frames = p.frames[1:]

	return f, nil
}

// Decoder decodes the first audio track of a WebM file. Only Opus is
// supported, which is what browsers record into WebM.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("webm: read: %w", err)
	}

	f, err := Demux(data)
	if err != nil {
		return nil, err
	}

	track, ok := f.AudioTrack()
	if !ok {
		return nil, ErrNoAudioTrack
	}

	if track.CodecID != codecOpus {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCodec, track.CodecID)
	}

	channels, preSkip := track.Channels, 0
	if len(track.CodecPrivate) > 0 {
		head, err := opus.ParseHead(track.CodecPrivate)
		if err != nil {
			return nil, fmt.Errorf("webm: %w", err)
		}
		channels, preSkip = head.Channels, head.PreSkip
	}
	if channels == 0 {
		channels = 1
	}

	return opus.NewPacketSource(&framePackets{frames: f.Frames[track.Number]}, channels, preSkip)
}
