// SPDX-License-Identifier: EPL-2.0

package webm

import "errors"

var (
	ErrNotEBML          = errors.New("webm: missing EBML header")
	ErrInvalidVint      = errors.New("webm: invalid variable-length integer")
	ErrTruncated        = errors.New("webm: element exceeds input")
	ErrInvalidLacing    = errors.New("webm: invalid block lacing")
	ErrNoAudioTrack     = errors.New("webm: no audio track")
	ErrUnsupportedCodec = errors.New("webm: unsupported codec")
)
