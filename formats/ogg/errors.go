// SPDX-License-Identifier: EPL-2.0

package ogg

import "errors"

var (
	ErrBadCapture       = errors.New("ogg: missing OggS capture pattern")
	ErrBadChecksum      = errors.New("ogg: page checksum mismatch")
	ErrUnsupportedCodec = errors.New("ogg: unsupported codec")
	ErrNoStream         = errors.New("ogg: no logical stream")
)
