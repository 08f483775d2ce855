// SPDX-License-Identifier: EPL-2.0

// Package capture records a single audio sample from an input device.
//
// A Session moves through Idle, Requesting, Recording, Stopping and then
// Ready or Error:
//
//	s := capture.NewSession(device, opusrec.Factory{})
//	if err := s.Start(ctx); err != nil {
//	    fmt.Println(capture.UserMessage(err))
//	}
//	...
//	err := s.Stop(ctx)
//	art, ok := s.Artifact()
//
// Only one device stream is held at a time. Start during an active capture
// returns ErrAlreadyRecording without touching the device. The stream is
// released on every path out of Stopping and on every failed Start.
//
// Recorders deliver encoded chunks on a channel once per timeslice; the
// session copies each chunk and concatenates them in arrival order when
// the recorder closes the channel.
package capture
