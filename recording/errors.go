// SPDX-License-Identifier: EPL-2.0

package recording

import "errors"

var (
	ErrNoArtifact  = errors.New("no recording to submit")
	ErrNoSubmitter = errors.New("submission is not configured")
)
