// SPDX-License-Identifier: EPL-2.0

package ogg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	headerSize = 27

	flagContinued = 0x01
	flagBOS       = 0x02
	flagEOS       = 0x04
)

// Page is one Ogg page with its segment table expanded into sizes.
type Page struct {
	Flags    byte
	Granule  int64
	Serial   uint32
	Sequence uint32
	Segments []byte
	Body     []byte
}

func (p Page) Continued() bool { return p.Flags&flagContinued != 0 }
func (p Page) BOS() bool       { return p.Flags&flagBOS != 0 }
func (p Page) EOS() bool       { return p.Flags&flagEOS != 0 }

var crcTable = func() [256]uint32 {
	var t [256]uint32
	for i := range t {
		r := uint32(i) << 24
		for range 8 {
			if r&0x80000000 != 0 {
				r = r<<1 ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		t[i] = r
	}
	return t
}()

func crc(c uint32, b []byte) uint32 {
	for _, v := range b {
		c = c<<8 ^ crcTable[byte(c>>24)^v]
	}
	return c
}

// ReadPage reads and verifies the next page. It returns io.EOF at a clean
// end of input.
func ReadPage(r io.Reader) (Page, error) {
	var h [headerSize]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Page{}, io.EOF
		}
		return Page{}, fmt.Errorf("ogg: read page header: %w", err)
	}

	if string(h[:4]) != "OggS" {
		return Page{}, ErrBadCapture
	}

	segments := make([]byte, h[26])
	if _, err := io.ReadFull(r, segments); err != nil {
		return Page{}, fmt.Errorf("ogg: read segment table: %w", err)
	}

	size := 0
	for _, s := range segments {
		size += int(s)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return Page{}, fmt.Errorf("ogg: read page body: %w", err)
	}

	want := binary.LittleEndian.Uint32(h[22:26])
	clear(h[22:26])
	sum := crc(0, h[:])
	sum = crc(sum, segments)
	sum = crc(sum, body)
	if sum != want {
		return Page{}, fmt.Errorf("%w: sequence %d", ErrBadChecksum, binary.LittleEndian.Uint32(h[18:22]))
	}

	return Page{
		Flags:    h[5],
		Granule:  int64(binary.LittleEndian.Uint64(h[6:14])),
		Serial:   binary.LittleEndian.Uint32(h[14:18]),
		Sequence: binary.LittleEndian.Uint32(h[18:22]),
		Segments: segments,
		Body:     body,
	}, nil
}
