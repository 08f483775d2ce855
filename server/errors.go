// SPDX-License-Identifier: EPL-2.0

package server

import (
	"errors"
	"net/http"

	"github.com/ik5/coughcap/capture"
	"github.com/ik5/coughcap/inference"
	"github.com/ik5/coughcap/ingest"
	"github.com/ik5/coughcap/recording"
)

var (
	ErrMissingFile = errors.New("multipart field \"file\" is required")
	ErrNoRecorder  = errors.New("recording is not available")
)

// statusOf maps a domain error to an HTTP status. Anything from the
// inference service that is not a validation failure is a bad gateway.
func statusOf(err error) int {
	var apiErr *inference.APIError

	switch {
	case errors.Is(err, capture.ErrAlreadyRecording),
		errors.Is(err, capture.ErrBusy),
		errors.Is(err, capture.ErrNotRecording),
		errors.Is(err, recording.ErrNoArtifact):
		return http.StatusConflict
	case errors.Is(err, ingest.ErrEmpty), errors.Is(err, ErrMissingFile):
		return http.StatusBadRequest
	case errors.Is(err, ingest.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ingest.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, capture.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, capture.ErrNoDevice),
		errors.Is(err, capture.ErrNoSupportedType),
		errors.Is(err, recording.ErrNoSubmitter),
		errors.Is(err, ErrNoRecorder):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr),
		errors.Is(err, inference.ErrEmptyResponse),
		errors.Is(err, inference.ErrRequestFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// message is what a client sees. Capture failures get the same wording the
// UI shows next to the record button.
func message(err error) string {
	switch {
	case errors.Is(err, capture.ErrPermissionDenied),
		errors.Is(err, capture.ErrNoDevice),
		errors.Is(err, capture.ErrNoSupportedType),
		errors.Is(err, capture.ErrDeviceLost),
		errors.Is(err, capture.ErrAlreadyRecording):
		return capture.UserMessage(err)
	default:
		return err.Error()
	}
}
