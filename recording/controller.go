// SPDX-License-Identifier: EPL-2.0

// Package recording exposes a capture session to a UI as four phases and
// turns a finished capture into a playable, submittable file.
package recording

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ik5/coughcap/capture"
	"github.com/ik5/coughcap/inference"
	"github.com/ik5/coughcap/media"
	"github.com/ik5/coughcap/transcode"
)

// DefaultTick is how often a live duration is pushed while recording.
const DefaultTick = 100 * time.Millisecond

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRecording Phase = "recording"
	PhaseReady     Phase = "ready"
	PhaseError     Phase = "error"
)

// Session is the part of *capture.Session the controller drives.
type Session interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Clear() error
	State() capture.State
	Err() error
	Artifact() (capture.Artifact, bool)
	Duration() time.Duration
}

type Transcoder interface {
	Transcode(ctx context.Context, art capture.Artifact) transcode.Result
}

// HandleIssuer hands out display handles; preview.Store implements it.
type HandleIssuer interface {
	Create(f media.File) string
	Revoke(handle string)
}

type Submitter interface {
	Submit(ctx context.Context, f media.File) (*inference.Prediction, error)
}

// Snapshot is what a UI renders.
type Snapshot struct {
	Phase      Phase
	Duration   time.Duration
	DurationMs int64
	Error      string
	Artifact   *media.File
	Handle     string
	Fallback   bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithSubmitter enables Submit.
func WithSubmitter(s Submitter) Option {
	return func(c *Controller) { c.submitter = s }
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithTick sets how often snapshots are pushed while recording.
func WithTick(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.tick = d
		}
	}
}

// Controller drives one capture session for a UI and keeps the resulting
// artifact and its display handle. It is safe for concurrent use.
type Controller struct {
	session    Session
	transcoder Transcoder
	handles    HandleIssuer
	submitter  Submitter
	log        *zap.Logger
	tick       time.Duration

	mu       sync.Mutex
	phase    Phase
	err      error
	artifact *media.File
	handle   string
	fallback bool
	ticking  chan struct{}
	stopping bool
	subs     map[chan Snapshot]struct{}
}

// New returns an idle Controller over session.
func New(session Session, transcoder Transcoder, handles HandleIssuer, opts ...Option) *Controller {
	c := &Controller{
		session:    session,
		transcoder: transcoder,
		handles:    handles,
		log:        zap.NewNop(),
		tick:       DefaultTick,
		phase:      PhaseIdle,
		subs:       make(map[chan Snapshot]struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start begins a new recording. A ready recording and its handle are
// discarded first. A second Start while recording returns
// capture.ErrAlreadyRecording.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.phase == PhaseRecording {
		c.mu.Unlock()
		return capture.ErrAlreadyRecording
	}
	c.dropLocked()
	c.mu.Unlock()

	if err := c.session.Start(ctx); err != nil {
		if errors.Is(err, capture.ErrAlreadyRecording) {
			return err
		}

		c.mu.Lock()
		c.failLocked(err)
		c.mu.Unlock()
		c.publish()

		return err
	}

	c.mu.Lock()
	c.phase = PhaseRecording
	c.err = nil
	stop := make(chan struct{})
	c.ticking = stop
	c.mu.Unlock()

	go c.watch(stop)
	c.publish()

	return nil
}

// Stop finalizes the capture, transcodes it and issues a display handle.
// A transcode failure is not an error: the original bytes are kept and
// Snapshot.Fallback is set.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseRecording || c.stopping {
		c.mu.Unlock()
		return capture.ErrNotRecording
	}
	c.stopping = true
	c.stopTickerLocked()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.stopping = false
		c.mu.Unlock()
	}()

	if err := c.session.Stop(ctx); err != nil {
		// The session may have failed on its own between ticks.
		if errors.Is(err, capture.ErrNotRecording) {
			if serr := c.session.Err(); serr != nil {
				err = serr
			}
		}

		c.mu.Lock()
		c.failLocked(err)
		c.mu.Unlock()
		c.publish()

		return err
	}

	art, ok := c.session.Artifact()
	if !ok {
		c.mu.Lock()
		c.failLocked(ErrNoArtifact)
		c.mu.Unlock()
		c.publish()

		return ErrNoArtifact
	}

	res := c.transcoder.Transcode(ctx, art)
	handle := c.handles.Create(res.File)

	c.mu.Lock()
	c.artifact = &res.File
	c.handle = handle
	c.fallback = res.Outcome == transcode.Fallback
	c.err = nil
	c.phase = PhaseReady
	c.mu.Unlock()

	c.log.Info("recording ready",
		zap.String("name", res.File.Name),
		zap.Stringer("outcome", res.Outcome),
		zap.Int64("duration_ms", art.DurationMs()))

	c.publish()

	return nil
}

// Clear revokes the handle, drops the artifact and returns to idle.
func (c *Controller) Clear() error {
	if err := c.session.Clear(); err != nil {
		return err
	}

	c.mu.Lock()
	c.dropLocked()
	c.err = nil
	c.phase = PhaseIdle
	c.mu.Unlock()

	c.publish()

	return nil
}

// Submit sends the current artifact for analysis.
func (c *Controller) Submit(ctx context.Context) (*inference.Prediction, error) {
	if c.submitter == nil {
		return nil, ErrNoSubmitter
	}

	c.mu.Lock()
	if c.artifact == nil {
		c.mu.Unlock()
		return nil, ErrNoArtifact
	}
	f := *c.artifact
	c.mu.Unlock()

	return c.submitter.Submit(ctx, f)
}

// Snapshot returns the current phase, duration and artifact.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	d := c.session.Duration()
	s := Snapshot{
		Phase:      c.phase,
		Duration:   d,
		DurationMs: d.Milliseconds(),
		Handle:     c.handle,
		Fallback:   c.fallback,
	}

	if c.err != nil {
		s.Error = capture.UserMessage(c.err)
	}
	if c.artifact != nil {
		f := *c.artifact
		s.Artifact = &f
	}

	return s
}

// Subscribe returns a channel receiving a snapshot on every phase change and
// every tick while recording. Slow subscribers miss snapshots rather than
// block the controller. cancel closes the channel.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, ch)
			c.mu.Unlock()
			close(ch)
		})
	}

	return ch, cancel
}

func (c *Controller) publish() {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.snapshotLocked()
	for ch := range c.subs {
		select {
		case ch <- s:
		default:
		}
	}
}

// watch pushes live durations and notices a session that failed on its own,
// such as a lost device.
func (c *Controller) watch(stop chan struct{}) {
	t := time.NewTicker(c.tick)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}

		if c.session.State() == capture.Error {
			c.mu.Lock()
			if c.ticking == stop {
				c.stopTickerLocked()
				c.failLocked(c.session.Err())
			}
			c.mu.Unlock()
			c.publish()

			return
		}

		c.publish()
	}
}

func (c *Controller) stopTickerLocked() {
	if c.ticking != nil {
		close(c.ticking)
		c.ticking = nil
	}
}

func (c *Controller) failLocked(err error) {
	c.phase = PhaseError
	c.err = err
	c.log.Warn("recording failed", zap.Error(err))
}

func (c *Controller) dropLocked() {
	c.handles.Revoke(c.handle)
	c.handle = ""
	c.artifact = nil
	c.fallback = false
}
