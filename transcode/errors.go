// SPDX-License-Identifier: EPL-2.0

package transcode

import "errors"

var (
	ErrNoDecoder     = errors.New("transcode: no decoder for type")
	ErrDecodeTimeout = errors.New("transcode: decode timed out")
	ErrDecodePanic   = errors.New("transcode: decoder panicked")
	ErrNoAudio       = errors.New("transcode: decoded stream has no samples")
)
