// SPDX-License-Identifier: EPL-2.0

package ogg

import (
	"io"
)

// PacketReader reassembles packets of the first logical stream in an Ogg
// file. Pages of other streams are skipped.
type PacketReader struct {
	r       io.Reader
	serial  uint32
	locked  bool
	queue   [][]byte
	partial []byte
	eos     bool
}

func NewPacketReader(r io.Reader) *PacketReader {
	return &PacketReader{r: r}
}

// NextPacket returns the next complete packet or io.EOF. A packet left
// unterminated at the end of input is dropped.
func (p *PacketReader) NextPacket() ([]byte, error) {
	for len(p.queue) == 0 {
		if p.eos {
			return nil, io.EOF
		}

		page, err := ReadPage(p.r)
		if err != nil {
			if err == io.EOF && !p.locked {
				return nil, ErrNoStream
			}
			return nil, err
		}

		if !p.locked {
			p.serial = page.Serial
			p.locked = true
		}
		if page.Serial != p.serial {
			continue
		}

		p.split(page)
		if page.EOS() {
			p.eos = true
		}
	}

	pkt := p.queue[0]
	p.queue = p.queue[1:]

	return pkt, nil
}

func (p *PacketReader) split(page Page) {
	if !page.Continued() {
		p.partial = nil
	}

	off := 0
	for _, size := range page.Segments {
		p.partial = append(p.partial, page.Body[off:off+int(size)]...)
		off += int(size)

		// A lacing value below 255 terminates the packet.
		if size < 255 {
			p.queue = append(p.queue, p.partial)
			p.partial = nil
		}
	}
}
