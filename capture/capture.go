// SPDX-License-Identifier: EPL-2.0

package capture

import (
	"context"
	"time"
)

// Constraints requested from an input device.
type Constraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	ChannelCount     int
	SampleRate       int
}

// DefaultConstraints asks for mono 44.1 kHz with echo cancellation and
// noise suppression.
func DefaultConstraints() Constraints {
	return Constraints{
		EchoCancellation: true,
		NoiseSuppression: true,
		ChannelCount:     1,
		SampleRate:       44100,
	}
}

// Format of the PCM a Stream delivers.
type Format struct {
	SampleRate int
	Channels   int
}

// Device grants input streams.
type Device interface {
	// Open returns ErrPermissionDenied or ErrNoDevice (possibly wrapped)
	// when no stream can be granted.
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is a live device stream delivering interleaved int16 blocks.
type Stream interface {
	Format() Format
	// Frames is closed by Close.
	Frames() <-chan []int16
	Active() bool
	Close() error
}

// RecorderFactory creates encoders for a given MIME type.
type RecorderFactory interface {
	IsTypeSupported(mimeType string) bool
	NewRecorder(s Stream, mimeType string) (Recorder, error)
}

// Recorder turns a Stream into encoded chunks.
type Recorder interface {
	// Start begins encoding and emits a chunk roughly every timeslice.
	// The channel is closed after Stop has flushed the final chunk, or
	// when the recorder fails.
	Start(timeslice time.Duration) (<-chan []byte, error)
	Stop() error
	// Err reports why the chunk channel closed early, if it did.
	Err() error
}

// Artifact is a finalized recording.
type Artifact struct {
	Data      []byte
	MIMEType  string
	Duration  time.Duration
	CreatedAt time.Time
}

func (a Artifact) DurationMs() int64 {
	if a.Duration < 0 {
		return 0
	}
	return a.Duration.Milliseconds()
}
