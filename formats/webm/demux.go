// SPDX-License-Identifier: EPL-2.0

package webm

import (
	"errors"
	"fmt"
)

const (
	idEBML              = 0x1A45DFA3
	idDocType           = 0x4282
	idSegment           = 0x18538067
	idTracks            = 0x1654AE6B
	idTrackEntry        = 0xAE
	idTrackNumber       = 0xD7
	idTrackType         = 0x83
	idCodecID           = 0x86
	idCodecPrivate      = 0x63A2
	idAudio             = 0xE1
	idSamplingFrequency = 0xB5
	idChannels          = 0x9F
	idCluster           = 0x1F43B675
	idSimpleBlock       = 0xA3
	idBlockGroup        = 0xA0
	idBlock             = 0xA1

	trackTypeAudio = 2
)

// Track is one TrackEntry with the audio settings the decoder needs.
type Track struct {
	Number            uint64
	Type              uint64
	CodecID           string
	CodecPrivate      []byte
	SamplingFrequency float64
	Channels          int
}

// File is a demuxed WebM document. Frames holds the frames of every track
// keyed by track number, in file order.
type File struct {
	DocType string
	Tracks  []Track
	Frames  map[uint64][][]byte
	// Truncated reports that the input ended inside an element, which is
	// common for recordings cut off mid-cluster.
	Truncated bool
}

// AudioTrack returns the first audio track.
func (f *File) AudioTrack() (Track, bool) {
	for _, t := range f.Tracks {
		if t.Type == trackTypeAudio {
			return t, true
		}
	}
	return Track{}, false
}

func isMaster(id uint32) bool {
	switch id {
	case idEBML, idSegment, idTracks, idTrackEntry, idAudio, idCluster, idBlockGroup:
		return true
	}
	return false
}

// Demux walks data as a flat stream of elements, descending into the
// masters it understands and skipping everything else.
func Demux(data []byte) (*File, error) {
	id, _, _, err := header(data)
	if err != nil || id != idEBML {
		return nil, ErrNotEBML
	}

	f := &File{Frames: make(map[uint64][][]byte)}
	var track *Track

	off := 0
	for off < len(data) {
		id, size, n, err := header(data[off:])
		if err != nil {
			if errors.Is(err, ErrTruncated) {
				f.Truncated = true
				break
			}
			return nil, fmt.Errorf("webm: at offset %d: %w", off, err)
		}
		off += n

		if isMaster(id) {
			switch id {
			case idTrackEntry:
				f.Tracks = append(f.Tracks, Track{})
				track = &f.Tracks[len(f.Tracks)-1]
			case idCluster:
				track = nil
			}
			continue
		}

		if size == unknownSize {
			return nil, fmt.Errorf("webm: element %#x has unknown size", id)
		}
		if size > uint64(len(data)-off) {
			f.Truncated = true
			break
		}

		payload := data[off : off+int(size)]
		off += int(size)

		switch id {
		case idDocType:
			f.DocType = string(payload)
		case idSimpleBlock, idBlock:
			num, frames, err := parseBlock(payload)
			if err != nil {
				return nil, fmt.Errorf("webm: at offset %d: %w", off, err)
			}
			f.Frames[num] = append(f.Frames[num], frames...)
		default:
			if track != nil {
				setTrackField(track, id, payload)
			}
		}
	}

	return f, nil
}

func setTrackField(t *Track, id uint32, payload []byte) {
	switch id {
	case idTrackNumber:
		t.Number = readUint(payload)
	case idTrackType:
		t.Type = readUint(payload)
	case idCodecID:
		t.CodecID = string(payload)
	case idCodecPrivate:
		t.CodecPrivate = payload
	case idSamplingFrequency:
		t.SamplingFrequency = readFloat(payload)
	case idChannels:
		t.Channels = int(readUint(payload))
	}
}

// parseBlock splits a (Simple)Block into its track number and frames.
func parseBlock(b []byte) (uint64, [][]byte, error) {
	num, n, err := vint(b, false)
	if err != nil {
		return 0, nil, fmt.Errorf("block track: %w", err)
	}
	if len(b) < n+3 {
		return 0, nil, ErrTruncated
	}

	flags := b[n+2]
	body := b[n+3:]

	switch (flags >> 1) & 0x03 {
	case 0:
		return num, [][]byte{body}, nil
	case 1:
		frames, err := xiphLacing(body)
		return num, frames, err
	case 2:
		frames, err := fixedLacing(body)
		return num, frames, err
	default:
		frames, err := ebmlLacing(body)
		return num, frames, err
	}
}

func xiphLacing(b []byte) ([][]byte, error) {
	if len(b) == 0 {
		return nil, ErrInvalidLacing
	}

	count := int(b[0]) + 1
	pos := 1
	sizes := make([]int, count)
	for i := range count - 1 {
		for {
			if pos >= len(b) {
				return nil, ErrInvalidLacing
			}
			v := int(b[pos])
			pos++
			sizes[i] += v
			if v < 255 {
				break
			}
		}
	}

	return splitFrames(b[pos:], sizes)
}

func fixedLacing(b []byte) ([][]byte, error) {
	if len(b) == 0 {
		return nil, ErrInvalidLacing
	}

	count := int(b[0]) + 1
	body := b[1:]
	if len(body)%count != 0 {
		return nil, fmt.Errorf("%w: %d bytes in %d frames", ErrInvalidLacing, len(body), count)
	}

	sizes := make([]int, count)
	for i := range count - 1 {
		sizes[i] = len(body) / count
	}

	return splitFrames(body, sizes)
}

func ebmlLacing(b []byte) ([][]byte, error) {
	if len(b) == 0 {
		return nil, ErrInvalidLacing
	}

	count := int(b[0]) + 1
	pos := 1
	sizes := make([]int, count)

	if count > 1 {
		first, n, err := vint(b[pos:], false)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidLacing, err)
		}
		pos += n
		sizes[0] = int(first)

		for i := 1; i < count-1; i++ {
			raw, n, err := vint(b[pos:], false)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidLacing, err)
			}
			pos += n

			// Signed difference: subtract the bias for an n-byte vint.
			bias := int64(1)<<(7*n-1) - 1
			sizes[i] = sizes[i-1] + int(int64(raw)-bias)
			if sizes[i] < 0 {
				return nil, ErrInvalidLacing
			}
		}
	}

	return splitFrames(b[pos:], sizes)
}

// splitFrames cuts body by sizes; the last frame takes the remainder.
func splitFrames(body []byte, sizes []int) ([][]byte, error) {
	frames := make([][]byte, len(sizes))
	pos := 0
	for i := range len(sizes) - 1 {
		if sizes[i] > len(body)-pos {
			return nil, ErrInvalidLacing
		}
		frames[i] = body[pos : pos+sizes[i]]
		pos += sizes[i]
	}
	frames[len(sizes)-1] = body[pos:]

	return frames, nil
}
