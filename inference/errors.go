// SPDX-License-Identifier: EPL-2.0

package inference

import (
	"errors"
	"fmt"
)

var (
	ErrNoEndpoint    = errors.New("inference endpoint is not configured")
	ErrEmptyResponse = errors.New("inference service returned an empty response")
	ErrRequestFailed = errors.New("inference service unreachable")
)

// APIError is a non-2xx answer from the inference service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("inference service: status %d", e.StatusCode)
	}
	return fmt.Sprintf("inference service: status %d: %s", e.StatusCode, e.Message)
}
