// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize        = errors.New("dst size must be multiple of channels")
	ErrInvalidSampleRate     = errors.New("sample rate must be positive")
	ErrInvalidChannelCount   = errors.New("unsupported channel count")
	ErrChannelLengthMismatch = errors.New("channel sample counts differ")
	ErrTooLong               = errors.New("audio exceeds maximum length")
	ErrNoProgress            = errors.New("source returned no samples")
)
