// SPDX-License-Identifier: EPL-2.0

package opus

import (
	"errors"
	"fmt"
	"io"

	"layeh.com/gopus"

	"github.com/ik5/coughcap/utils"
)

// maxFrameSize is 120 ms at 48 kHz, the longest Opus packet.
const maxFrameSize = 5760

// PacketReader yields Opus packets in stream order and io.EOF at the end.
type PacketReader interface {
	NextPacket() ([]byte, error)
}

// PacketSource decodes packets from a PacketReader into an audio.Source
// at 48 kHz, dropping the first preSkip samples per channel.
type PacketSource struct {
	packets  PacketReader
	dec      *gopus.Decoder
	channels int
	skip     int

	pending []int16
	done    bool
}

func NewPacketSource(packets PacketReader, channels, preSkip int) (*PacketSource, error) {
	dec, err := gopus.NewDecoder(SampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("opus: new decoder: %w", err)
	}

	return &PacketSource{
		packets:  packets,
		dec:      dec,
		channels: channels,
		skip:     preSkip * channels,
	}, nil
}

func (s *PacketSource) SampleRate() int { return SampleRate }
func (s *PacketSource) Channels() int   { return s.channels }
func (s *PacketSource) BufSize() int    { return 960 * s.channels }
func (s *PacketSource) Close() error    { return nil }

func (s *PacketSource) ReadSamples(dst []float32) (int, error) {
	dst = dst[:len(dst)-len(dst)%s.channels]
	if len(dst) == 0 {
		return 0, nil
	}

	for len(s.pending) == 0 {
		if s.done {
			return 0, io.EOF
		}

		if err := s.decodeNext(); err != nil {
			return 0, err
		}
	}

	n := min(len(dst), len(s.pending))
	for i := range n {
		dst[i] = utils.Int16ToFloat32(s.pending[i])
	}
	s.pending = s.pending[n:]

	return n, nil
}

func (s *PacketSource) decodeNext() error {
	pkt, err := s.packets.NextPacket()
	if errors.Is(err, io.EOF) {
		s.done = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("opus: read packet: %w", err)
	}

	// Zero-length packets signal a dropped frame in some muxers.
	if len(pkt) == 0 {
		return nil
	}

	pcm, err := s.dec.Decode(pkt, maxFrameSize, false)
	if err != nil {
		return fmt.Errorf("opus: decode packet: %w", err)
	}

	if s.skip > 0 {
		drop := min(s.skip, len(pcm))
		pcm = pcm[drop:]
		s.skip -= drop
	}
	s.pending = pcm

	return nil
}
