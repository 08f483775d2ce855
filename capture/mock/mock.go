// SPDX-License-Identifier: EPL-2.0

// Package mock provides scripted capture devices and recorders for tests.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/ik5/coughcap/capture"
)

// Device hands out Streams and counts them.
type Device struct {
	// OpenErr is returned by Open when set.
	OpenErr error
	// StreamFormat defaults to 48 kHz mono.
	StreamFormat capture.Format

	mu          sync.Mutex
	streams     []*Stream
	constraints []capture.Constraints
}

func (d *Device) Open(_ context.Context, c capture.Constraints) (capture.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.constraints = append(d.constraints, c)
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}

	f := d.StreamFormat
	if f.SampleRate == 0 {
		f = capture.Format{SampleRate: 48000, Channels: 1}
	}

	s := NewStream(f)
	d.streams = append(d.streams, s)

	return s, nil
}

// OpenCalls counts every Open, failed ones included.
func (d *Device) OpenCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.constraints)
}

// LastConstraints returns the constraints of the latest Open call.
func (d *Device) LastConstraints() capture.Constraints {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.constraints) == 0 {
		return capture.Constraints{}
	}
	return d.constraints[len(d.constraints)-1]
}

// ActiveStreams counts granted streams not yet closed.
func (d *Device) ActiveStreams() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, s := range d.streams {
		if s.Active() {
			n++
		}
	}
	return n
}

func (d *Device) Streams() []*Stream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Stream(nil), d.streams...)
}

// Stream is an in-memory capture.Stream.
type Stream struct {
	format capture.Format
	frames chan []int16

	mu         sync.Mutex
	closed     bool
	closeCalls int
}

func NewStream(f capture.Format) *Stream {
	return &Stream{format: f, frames: make(chan []int16, 1024)}
}

func (s *Stream) Format() capture.Format { return s.format }
func (s *Stream) Frames() <-chan []int16 { return s.frames }

func (s *Stream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeCalls++
	if !s.closed {
		s.closed = true
		close(s.frames)
	}
	return nil
}

func (s *Stream) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}

// Push queues a block unless the stream is closed or its buffer is full.
func (s *Stream) Push(block []int16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.frames <- block:
		return true
	default:
		return false
	}
}

// RecorderFactory builds Recorders that replay a script.
type RecorderFactory struct {
	// Supported lists accepted MIME types; nil accepts everything.
	Supported []string
	// Chunks are emitted right after Start, in order.
	Chunks [][]byte
	// FinalChunk is emitted by Stop before the channel closes.
	FinalChunk []byte

	NewErr   error
	StartErr error
	StopErr  error
	// HoldOnStop keeps the chunk channel open after Stop.
	HoldOnStop bool

	mu        sync.Mutex
	recorders []*Recorder
}

func (f *RecorderFactory) IsTypeSupported(mimeType string) bool {
	if f.Supported == nil {
		return true
	}
	for _, m := range f.Supported {
		if m == mimeType {
			return true
		}
	}
	return false
}

func (f *RecorderFactory) NewRecorder(s capture.Stream, mimeType string) (capture.Recorder, error) {
	if f.NewErr != nil {
		return nil, f.NewErr
	}

	r := &Recorder{
		MIMEType: mimeType,
		Stream:   s,
		script:   f.Chunks,
		final:    f.FinalChunk,
		startErr: f.StartErr,
		stopErr:  f.StopErr,
		hold:     f.HoldOnStop,
	}

	f.mu.Lock()
	f.recorders = append(f.recorders, r)
	f.mu.Unlock()

	return r, nil
}

// Last returns the most recently created Recorder.
func (f *RecorderFactory) Last() *Recorder {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.recorders) == 0 {
		return nil
	}
	return f.recorders[len(f.recorders)-1]
}

// Recorder is a scripted capture.Recorder.
type Recorder struct {
	MIMEType string
	Stream   capture.Stream

	script   [][]byte
	final    []byte
	startErr error
	stopErr  error
	hold     bool

	mu        sync.Mutex
	out       chan []byte
	once      sync.Once
	err       error
	timeslice time.Duration
	stops     int
}

func (r *Recorder) Start(timeslice time.Duration) (<-chan []byte, error) {
	if r.startErr != nil {
		return nil, r.startErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.timeslice = timeslice
	r.out = make(chan []byte, len(r.script)+1024)
	for _, c := range r.script {
		r.out <- c
	}

	return r.out, nil
}

// Emit sends one more chunk as if a timeslice elapsed.
func (r *Recorder) Emit(chunk []byte) {
	r.mu.Lock()
	out := r.out
	r.mu.Unlock()

	out <- chunk
}

func (r *Recorder) Stop() error {
	r.mu.Lock()
	r.stops++
	r.mu.Unlock()

	if r.stopErr != nil {
		return r.stopErr
	}
	if r.hold {
		return nil
	}

	r.once.Do(func() {
		if r.final != nil {
			r.out <- r.final
		}
		close(r.out)
	})

	return nil
}

// Fail closes the chunk channel with err, as a lost device would.
func (r *Recorder) Fail(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()

	r.once.Do(func() { close(r.out) })
}

func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) Timeslice() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeslice
}

func (r *Recorder) StopCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops
}
