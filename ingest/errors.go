// SPDX-License-Identifier: EPL-2.0

package ingest

import (
	"errors"
	"fmt"
)

var (
	ErrEmpty           = errors.New("empty file")
	ErrTooLarge        = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
)

// RejectedError carries the verdict of a file that failed validation.
type RejectedError struct {
	Name    string
	Verdict Verdict
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected %q: %s", e.Name, e.Verdict.Reason)
}

func (e *RejectedError) Unwrap() error { return e.Verdict.Err }
