// SPDX-License-Identifier: EPL-2.0

package opus

import (
	"fmt"

	"layeh.com/gopus"
)

const (
	// FrameSize is the number of samples per channel in a 20 ms frame.
	FrameSize = SampleRate / 50

	maxPacketBytes = 4000
)

// Encoder produces 20 ms Opus packets tuned for voice.
type Encoder struct {
	enc      *gopus.Encoder
	channels int
}

func NewEncoder(channels int) (*Encoder, error) {
	enc, err := gopus.NewEncoder(SampleRate, channels, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("opus: new encoder: %w", err)
	}

	return &Encoder{enc: enc, channels: channels}, nil
}

func (e *Encoder) Channels() int { return e.channels }

// Encode compresses exactly one frame of interleaved pcm.
func (e *Encoder) Encode(pcm []int16) ([]byte, error) {
	if len(pcm) != FrameSize*e.channels {
		return nil, fmt.Errorf("%w: %d samples", ErrUnsupportedFrameSize, len(pcm))
	}

	pkt, err := e.enc.Encode(pcm, FrameSize, maxPacketBytes)
	if err != nil {
		return nil, fmt.Errorf("opus: encode: %w", err)
	}

	return pkt, nil
}
