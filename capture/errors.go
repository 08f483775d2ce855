// SPDX-License-Identifier: EPL-2.0

package capture

import "errors"

var (
	ErrPermissionDenied = errors.New("capture: microphone permission denied")
	ErrNoDevice         = errors.New("capture: no input device")
	ErrAlreadyRecording = errors.New("capture: a recording is already in progress")
	ErrNotRecording     = errors.New("capture: not recording")
	ErrBusy             = errors.New("capture: session is busy")
	ErrNoSupportedType  = errors.New("capture: no supported recording format")
	ErrDeviceLost       = errors.New("capture: input stream ended unexpectedly")
	ErrStreamClosed     = errors.New("capture: stream closed")
)

// UserMessage turns a capture error into text fit for the person
// recording.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "Microphone access was denied. Allow microphone access and try again."
	case errors.Is(err, ErrNoDevice):
		return "No microphone was found. Connect one and try again."
	case errors.Is(err, ErrNoSupportedType):
		return "This device cannot record in a supported audio format."
	case errors.Is(err, ErrDeviceLost):
		return "The microphone stopped unexpectedly. Please record again."
	case errors.Is(err, ErrAlreadyRecording):
		return "A recording is already in progress."
	default:
		return "Recording failed. Please try again."
	}
}
