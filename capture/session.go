// SPDX-License-Identifier: EPL-2.0

package capture

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ik5/coughcap/metrics"
)

// DefaultTimeslice between recorder chunks.
const DefaultTimeslice = 100 * time.Millisecond

// Session owns one device stream at a time and accumulates the chunks of
// its recorder into an Artifact. Methods are safe for concurrent use; a
// second capture is rejected by the state machine, not by blocking.
type Session struct {
	device      Device
	recorders   RecorderFactory
	prefs       []string
	constraints Constraints
	timeslice   time.Duration
	clock       func() time.Time
	log         *zap.Logger
	metrics     *metrics.Metrics
	listeners   []func(from, to State)

	mu        sync.Mutex
	state     State
	err       error
	gen       uint64
	rec       Recorder
	release   func() error
	collected chan struct{}
	mimeType  string
	chunks    [][]byte
	startedAt time.Time
	stoppedAt time.Time
	artifact  *Artifact
}

// Option configures a Session.
type Option func(*Session)

// WithClock replaces time.Now for start and stop stamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Session) { s.clock = clock }
}

// WithTimeslice sets how often the recorder emits a chunk.
func WithTimeslice(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeslice = d
		}
	}
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithMetrics records capture outcomes and chunk sizes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithMIMEPreferences replaces DefaultMIMEPreferences, most preferred first.
func WithMIMEPreferences(prefs ...string) Option {
	return func(s *Session) { s.prefs = prefs }
}

// WithConstraints replaces DefaultConstraints.
func WithConstraints(c Constraints) Option {
	return func(s *Session) { s.constraints = c }
}

// WithStateListener registers fn to run on every transition. fn runs with
// the session lock held and must neither block nor call the session.
func WithStateListener(fn func(from, to State)) Option {
	return func(s *Session) { s.listeners = append(s.listeners, fn) }
}

// NewSession returns an idle Session recording from device with recorders.
func NewSession(device Device, recorders RecorderFactory, opts ...Option) *Session {
	s := &Session{
		device:      device,
		recorders:   recorders,
		prefs:       DefaultMIMEPreferences,
		constraints: DefaultConstraints(),
		timeslice:   DefaultTimeslice,
		clock:       time.Now,
		log:         zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// setState must be called with mu held. An illegal transition is a bug in
// this package and panics.
func (s *Session) setState(to State) {
	from := s.state
	if !CanTransition(from, to) {
		panic(fmt.Sprintf("capture: illegal transition %s -> %s", from, to))
	}

	s.state = to
	s.log.Debug("capture state", zap.Stringer("from", from), zap.Stringer("to", to))

	for _, fn := range s.listeners {
		fn(from, to)
	}
}

// fail must be called with mu held.
func (s *Session) fail(err error) {
	s.err = err
	s.setState(Error)
	s.metrics.CaptureFinished("error", s.durationLocked())
	s.log.Warn("capture failed", zap.Error(err))
}

// Start acquires a device stream and begins recording.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state.Active() {
		s.mu.Unlock()
		return ErrAlreadyRecording
	}

	s.gen++
	gen := s.gen
	s.artifact = nil
	s.chunks = nil
	s.err = nil
	s.mimeType = ""
	s.startedAt, s.stoppedAt = time.Time{}, time.Time{}
	s.setState(Requesting)
	s.mu.Unlock()

	s.metrics.CaptureStarted()

	stream, err := s.device.Open(ctx, s.constraints)
	if err != nil {
		return s.abort(fmt.Errorf("open device: %w", err), nil)
	}

	mimeType, err := SelectMIMEType(s.prefs, s.recorders.IsTypeSupported)
	if err != nil {
		return s.abort(err, stream)
	}

	rec, err := s.recorders.NewRecorder(stream, mimeType)
	if err != nil {
		return s.abort(fmt.Errorf("create recorder: %w", err), stream)
	}

	chunks, err := rec.Start(s.timeslice)
	if err != nil {
		return s.abort(fmt.Errorf("start recorder: %w", err), stream)
	}

	done := make(chan struct{})

	s.mu.Lock()
	s.rec = rec
	s.release = sync.OnceValue(stream.Close)
	s.collected = done
	s.mimeType = mimeType
	s.startedAt = s.clock()
	s.setState(Recording)
	s.mu.Unlock()

	s.log.Info("recording started", zap.String("mime_type", mimeType),
		zap.Int("sample_rate", stream.Format().SampleRate))

	go s.collect(gen, chunks, done)

	return nil
}

// abort closes stream, if any, and moves a Requesting session to Error.
func (s *Session) abort(err error, stream Stream) error {
	if stream != nil {
		if cerr := stream.Close(); cerr != nil {
			s.log.Warn("close stream", zap.Error(cerr))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.fail(err)

	return err
}

// collect appends copies of chunks in arrival order until the recorder
// closes the channel.
func (s *Session) collect(gen uint64, chunks <-chan []byte, done chan<- struct{}) {
	defer close(done)

	for chunk := range chunks {
		if len(chunk) == 0 {
			continue
		}

		c := bytes.Clone(chunk)

		s.mu.Lock()
		if s.gen == gen {
			s.chunks = append(s.chunks, c)
		}
		s.mu.Unlock()

		s.metrics.ChunkAppended(len(c))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.state != Recording {
		return
	}

	// The recorder gave up without being stopped.
	s.stoppedAt = s.clock()
	err := ErrDeviceLost
	if rerr := s.rec.Err(); rerr != nil {
		err = fmt.Errorf("%w: %w", ErrDeviceLost, rerr)
	}
	s.releaseLocked()
	s.fail(err)
}

func (s *Session) releaseLocked() {
	if s.release == nil {
		return
	}
	if err := s.release(); err != nil {
		s.log.Warn("close stream", zap.Error(err))
	}
}

// Stop finalizes the recording. The device stream is released whether or
// not finalization succeeds.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Recording {
		s.mu.Unlock()
		return ErrNotRecording
	}

	s.stoppedAt = s.clock()
	s.setState(Stopping)
	rec, release, done := s.rec, s.release, s.collected
	s.mu.Unlock()

	defer func() { _ = release() }()

	err := rec.Stop()
	if err == nil {
		select {
		case <-done:
			err = rec.Err()
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	if cerr := release(); cerr != nil {
		s.log.Warn("close stream", zap.Error(cerr))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		err = fmt.Errorf("stop recorder: %w", err)
		s.fail(err)
		return err
	}

	s.artifact = &Artifact{
		Data:      bytes.Join(s.chunks, nil),
		MIMEType:  s.mimeType,
		Duration:  s.stoppedAt.Sub(s.startedAt),
		CreatedAt: s.stoppedAt,
	}
	s.chunks = nil
	s.setState(Ready)
	s.metrics.CaptureFinished("ready", s.artifact.Duration)

	s.log.Info("recording finished",
		zap.Int("bytes", len(s.artifact.Data)),
		zap.Duration("duration", s.artifact.Duration))

	return nil
}

// Clear discards the artifact or error and returns to Idle.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Active() {
		return ErrBusy
	}
	if s.state == Idle {
		return nil
	}

	s.artifact = nil
	s.chunks = nil
	s.err = nil
	s.mimeType = ""
	s.startedAt, s.stoppedAt = time.Time{}, time.Time{}
	s.setState(Idle)

	return nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err is the error that moved the session to Error, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) MIMEType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mimeType
}

// Artifact returns the finalized recording while the session is Ready.
func (s *Session) Artifact() (Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.artifact == nil {
		return Artifact{}, false
	}
	return *s.artifact, true
}

// Duration is live while recording and frozen once stopped.
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.durationLocked()
}

func (s *Session) durationLocked() time.Duration {
	switch {
	case s.startedAt.IsZero():
		return 0
	case s.stoppedAt.IsZero():
		return s.clock().Sub(s.startedAt)
	default:
		return s.stoppedAt.Sub(s.startedAt)
	}
}
