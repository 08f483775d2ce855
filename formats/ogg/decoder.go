// SPDX-License-Identifier: EPL-2.0

package ogg

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ik5/coughcap/audio"
	"github.com/ik5/coughcap/formats/opus"
	"github.com/ik5/coughcap/formats/vorbis"
)

const (
	CodecOpus   = "opus"
	CodecVorbis = "vorbis"
)

var (
	opusTagsMagic    = []byte("OpusTags")
	vorbisIdentMagic = []byte("\x01vorbis")
)

// Sniff reports the codec of the first logical stream in data.
func Sniff(data []byte) (string, error) {
	first, err := NewPacketReader(bytes.NewReader(data)).NextPacket()
	if err != nil {
		return "", err
	}

	return codecOf(first)
}

func codecOf(first []byte) (string, error) {
	switch {
	case bytes.HasPrefix(first, opus.HeadMagic):
		return CodecOpus, nil
	case bytes.HasPrefix(first, vorbisIdentMagic):
		return CodecVorbis, nil
	default:
		return "", ErrUnsupportedCodec
	}
}

// Decoder decodes Ogg Opus and Ogg Vorbis.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("ogg: read: %w", err)
	}

	packets := NewPacketReader(bytes.NewReader(data))
	first, err := packets.NextPacket()
	if err != nil {
		return nil, err
	}

	codec, err := codecOf(first)
	if err != nil {
		return nil, err
	}

	if codec == CodecVorbis {
		return vorbis.Decoder{}.Decode(bytes.NewReader(data))
	}

	head, err := opus.ParseHead(first)
	if err != nil {
		return nil, fmt.Errorf("ogg: %w", err)
	}

	tags, err := packets.NextPacket()
	if err != nil {
		return nil, fmt.Errorf("ogg: read OpusTags: %w", err)
	}
	if !bytes.HasPrefix(tags, opusTagsMagic) {
		return nil, fmt.Errorf("%w: missing OpusTags", opus.ErrInvalidHead)
	}

	return opus.NewPacketSource(packets, head.Channels, head.PreSkip)
}
