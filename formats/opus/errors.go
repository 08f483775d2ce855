// SPDX-License-Identifier: EPL-2.0

package opus

import "errors"

var (
	ErrInvalidHead          = errors.New("invalid OpusHead header")
	ErrUnsupportedMapping   = errors.New("unsupported Opus channel mapping")
	ErrUnsupportedFrameSize = errors.New("unsupported Opus frame size")
)
