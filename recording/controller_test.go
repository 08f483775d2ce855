// SPDX-License-Identifier: EPL-2.0

package recording_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/coughcap/capture"
	"github.com/ik5/coughcap/capture/mock"
	"github.com/ik5/coughcap/inference"
	"github.com/ik5/coughcap/internal/audiotest"
	"github.com/ik5/coughcap/media"
	"github.com/ik5/coughcap/preview"
	"github.com/ik5/coughcap/recording"
	"github.com/ik5/coughcap/transcode"
)

type fakeSubmitter struct {
	mu    sync.Mutex
	files []media.File
	err   error
}

func (s *fakeSubmitter) Submit(_ context.Context, f media.File) (*inference.Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.files = append(s.files, f)
	if s.err != nil {
		return nil, s.err
	}
	return &inference.Prediction{HealthStatus: "healthy"}, nil
}

type fixture struct {
	dev     *mock.Device
	recs    *mock.RecorderFactory
	store   *preview.Store
	session *capture.Session
	ctrl    *recording.Controller
}

func newFixture(sessionOpts []capture.Option, opts ...recording.Option) *fixture {
	f := &fixture{
		dev:   &mock.Device{},
		recs:  &mock.RecorderFactory{},
		store: preview.NewStore(),
	}
	f.session = capture.NewSession(f.dev, f.recs, sessionOpts...)
	f.ctrl = recording.New(f.session, transcode.New(transcode.Options{}), f.store, opts...)

	return f
}

func (f *fixture) record(t *testing.T, chunks ...[]byte) {
	t.Helper()

	require.NoError(t, f.ctrl.Start(context.Background()))
	for _, c := range chunks {
		f.recs.Last().Emit(c)
	}
	require.NoError(t, f.ctrl.Stop(context.Background()))
}

func TestController_RecordPassThrough(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	assert.Equal(t, recording.PhaseIdle, f.ctrl.Snapshot().Phase)

	wav := audiotest.WAV16(8000, 1, []int16{1, 2, 3, 4})
	require.NoError(t, f.ctrl.Start(context.Background()))
	assert.Equal(t, recording.PhaseRecording, f.ctrl.Snapshot().Phase)

	f.recs.Last().Emit(wav[:20])
	f.recs.Last().Emit(wav[20:])
	require.NoError(t, f.ctrl.Stop(context.Background()))

	snap := f.ctrl.Snapshot()
	assert.Equal(t, recording.PhaseReady, snap.Phase)
	assert.False(t, snap.Fallback)
	assert.Empty(t, snap.Error)
	require.NotNil(t, snap.Artifact)
	assert.Equal(t, wav, snap.Artifact.Data)
	assert.Equal(t, "audio/wav", snap.Artifact.MIMEType)
	assert.True(t, strings.HasPrefix(snap.Artifact.Name, "recording_"))
	assert.True(t, strings.HasSuffix(snap.Artifact.Name, ".wav"))

	got, ok := f.store.Get(snap.Handle)
	require.True(t, ok)
	assert.Equal(t, *snap.Artifact, got)
	assert.Zero(t, f.dev.ActiveStreams())
}

func TestController_FallbackKeepsCompressedBytes(t *testing.T) {
	t.Parallel()

	f := newFixture([]capture.Option{capture.WithMIMEPreferences("audio/webm;codecs=opus")})
	f.record(t, []byte("not really webm"))

	snap := f.ctrl.Snapshot()
	assert.Equal(t, recording.PhaseReady, snap.Phase)
	assert.True(t, snap.Fallback)
	require.NotNil(t, snap.Artifact)
	assert.Equal(t, "not really webm", string(snap.Artifact.Data))
	assert.Equal(t, "audio/webm;codecs=opus", snap.Artifact.MIMEType)
	assert.True(t, strings.HasSuffix(snap.Artifact.Name, ".webm"))
}

func TestController_SecondStartRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	require.NoError(t, f.ctrl.Start(context.Background()))

	assert.ErrorIs(t, f.ctrl.Start(context.Background()), capture.ErrAlreadyRecording)
	assert.Equal(t, recording.PhaseRecording, f.ctrl.Snapshot().Phase)
	assert.Equal(t, 1, f.dev.OpenCalls())

	require.NoError(t, f.ctrl.Stop(context.Background()))
}

func TestController_ConcurrentStarts(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.ctrl.Start(context.Background()); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, capture.ErrAlreadyRecording)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, f.dev.ActiveStreams())
	require.NoError(t, f.ctrl.Stop(context.Background()))
}

func TestController_RestartRevokesHandle(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	f.record(t, []byte("first"))
	first := f.ctrl.Snapshot().Handle

	f.record(t, []byte("second"))
	second := f.ctrl.Snapshot().Handle

	assert.NotEqual(t, first, second)
	_, ok := f.store.Get(first)
	assert.False(t, ok, "previous handle must be revoked")
	assert.Equal(t, 1, f.store.Len())
}

func TestController_Clear(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	require.NoError(t, f.ctrl.Start(context.Background()))
	assert.ErrorIs(t, f.ctrl.Clear(), capture.ErrBusy)
	f.recs.Last().Emit([]byte("x"))
	require.NoError(t, f.ctrl.Stop(context.Background()))

	require.NoError(t, f.ctrl.Clear())

	snap := f.ctrl.Snapshot()
	assert.Equal(t, recording.PhaseIdle, snap.Phase)
	assert.Nil(t, snap.Artifact)
	assert.Empty(t, snap.Handle)
	assert.Zero(t, snap.Duration)
	assert.Zero(t, f.store.Len())
	assert.Equal(t, capture.Idle, f.session.State())
}

func TestController_DeviceError(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	f.dev.OpenErr = capture.ErrPermissionDenied

	err := f.ctrl.Start(context.Background())
	require.ErrorIs(t, err, capture.ErrPermissionDenied)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, recording.PhaseError, snap.Phase)
	assert.Equal(t, capture.UserMessage(capture.ErrPermissionDenied), snap.Error)

	f.dev.OpenErr = nil
	f.record(t, []byte("retry"))
	snap = f.ctrl.Snapshot()
	assert.Equal(t, recording.PhaseReady, snap.Phase)
	assert.Empty(t, snap.Error)
}

func TestController_DeviceLostDuringRecording(t *testing.T) {
	t.Parallel()

	f := newFixture(nil, recording.WithTick(2*time.Millisecond))
	require.NoError(t, f.ctrl.Start(context.Background()))

	f.recs.Last().Fail(errors.New("usb unplugged"))

	require.Eventually(t, func() bool {
		return f.ctrl.Snapshot().Phase == recording.PhaseError
	}, time.Second, time.Millisecond)

	assert.Equal(t, capture.UserMessage(capture.ErrDeviceLost), f.ctrl.Snapshot().Error)
	assert.ErrorIs(t, f.ctrl.Stop(context.Background()), capture.ErrNotRecording)
}

func TestController_DeviceLostBetweenTicks(t *testing.T) {
	t.Parallel()

	f := newFixture(nil, recording.WithTick(time.Hour))
	require.NoError(t, f.ctrl.Start(context.Background()))

	f.recs.Last().Fail(errors.New("usb unplugged"))
	require.Eventually(t, func() bool {
		return f.session.State() == capture.Error
	}, time.Second, time.Millisecond)

	err := f.ctrl.Stop(context.Background())
	assert.ErrorIs(t, err, capture.ErrDeviceLost)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, recording.PhaseError, snap.Phase)
	assert.Equal(t, capture.UserMessage(capture.ErrDeviceLost), snap.Error)
}

func TestController_ConcurrentStop(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	f.recs.HoldOnStop = true

	require.NoError(t, f.ctrl.Start(context.Background()))
	f.recs.Last().Emit([]byte("chunk"))

	first := make(chan error, 1)
	go func() { first <- f.ctrl.Stop(context.Background()) }()

	require.Eventually(t, func() bool {
		return f.session.State() == capture.Stopping
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, f.ctrl.Stop(context.Background()), capture.ErrNotRecording)
	assert.Equal(t, recording.PhaseRecording, f.ctrl.Snapshot().Phase)
	assert.Empty(t, f.ctrl.Snapshot().Error)

	f.recs.Last().Fail(nil)
	require.NoError(t, <-first)

	snap := f.ctrl.Snapshot()
	assert.Equal(t, recording.PhaseReady, snap.Phase)
	assert.Empty(t, snap.Error)
	require.NotNil(t, snap.Artifact)
	assert.Equal(t, "chunk", string(snap.Artifact.Data))
}

func TestController_SubscribePushesTicks(t *testing.T) {
	t.Parallel()

	f := newFixture(nil, recording.WithTick(2*time.Millisecond))

	ch, cancel := f.ctrl.Subscribe()
	defer cancel()

	first := <-ch
	assert.Equal(t, recording.PhaseIdle, first.Phase)

	require.NoError(t, f.ctrl.Start(context.Background()))

	recordingSnaps := 0
	timeout := time.After(time.Second)
	for recordingSnaps < 3 {
		select {
		case s := <-ch:
			if s.Phase == recording.PhaseRecording {
				recordingSnaps++
			}
		case <-timeout:
			t.Fatalf("got %d recording snapshots, want 3", recordingSnaps)
		}
	}

	require.NoError(t, f.ctrl.Stop(context.Background()))

	for {
		select {
		case s := <-ch:
			if s.Phase == recording.PhaseReady {
				assert.NotEmpty(t, s.Handle)
				return
			}
		case <-timeout:
			t.Fatal("no ready snapshot")
		}
	}
}

func TestController_CancelClosesSubscription(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	ch, cancel := f.ctrl.Subscribe()
	<-ch

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)

	f.record(t, []byte("x"))
}

func TestController_Submit(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{}
	f := newFixture(nil, recording.WithSubmitter(sub))

	_, err := f.ctrl.Submit(context.Background())
	assert.ErrorIs(t, err, recording.ErrNoArtifact)

	f.record(t, []byte("payload"))

	pred, err := f.ctrl.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", pred.HealthStatus)
	require.Len(t, sub.files, 1)
	assert.Equal(t, "payload", string(sub.files[0].Data))
}

func TestController_SubmitWithoutSubmitter(t *testing.T) {
	t.Parallel()

	f := newFixture(nil)
	f.record(t, []byte("payload"))

	_, err := f.ctrl.Submit(context.Background())
	assert.ErrorIs(t, err, recording.ErrNoSubmitter)
}
