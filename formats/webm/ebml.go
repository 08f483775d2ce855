// SPDX-License-Identifier: EPL-2.0

package webm

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/bits"
)

const unknownSize = math.MaxUint64

// vint decodes an EBML variable-length integer at the start of b. When
// keepMarker is set the length marker bit stays in the value, which is how
// element IDs are written.
func vint(b []byte, keepMarker bool) (uint64, int, error) {
	if len(b) == 0 || b[0] == 0 {
		return 0, 0, ErrInvalidVint
	}

	n := bits.LeadingZeros8(b[0]) + 1
	if len(b) < n {
		return 0, 0, ErrTruncated
	}

	v := uint64(b[0])
	if !keepMarker {
		v &= 0xFF >> n
	}

	allOnes := v == uint64(0xFF>>n)
	for _, c := range b[1:n] {
		v = v<<8 | uint64(c)
		allOnes = allOnes && c == 0xFF
	}

	if !keepMarker && allOnes {
		return unknownSize, n, nil
	}

	return v, n, nil
}

// header reads an element ID and size.
func header(b []byte) (id uint32, size uint64, n int, err error) {
	rawID, idLen, err := vint(b, true)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("element id: %w", err)
	}
	if idLen > 4 {
		return 0, 0, 0, fmt.Errorf("%w: id of %d bytes", ErrInvalidVint, idLen)
	}

	size, sizeLen, err := vint(b[idLen:], false)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("element %#x size: %w", rawID, err)
	}

	return uint32(rawID), size, idLen + sizeLen, nil
}

func readUint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

func readFloat(b []byte) float64 {
	switch len(b) {
	case 4:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(b)))
	case 8:
		return math.Float64frombits(binary.BigEndian.Uint64(b))
	default:
		return 0
	}
}
