// SPDX-License-Identifier: EPL-2.0

package filedev

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/coughcap/capture"
	"github.com/ik5/coughcap/internal/audiotest"
)

func writeWAV(t *testing.T, rate, channels int, samples []int16) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "in.wav")
	require.NoError(t, os.WriteFile(path, audiotest.WAV16(rate, channels, samples), 0o600))

	return path
}

func TestDevice_MissingFile(t *testing.T) {
	d := &Device{Path: filepath.Join(t.TempDir(), "nope.wav")}

	_, err := d.Open(context.Background(), capture.DefaultConstraints())
	assert.ErrorIs(t, err, capture.ErrNoDevice)
}

func TestDevice_NotWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.wav")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	_, err := (&Device{Path: path}).Open(context.Background(), capture.DefaultConstraints())
	assert.Error(t, err)
}

func TestDevice_DeliversWholeFileAsMono(t *testing.T) {
	samples := audiotest.SineInt16(8000, 2, 1000, 200, 0.5)
	d := &Device{Path: writeWAV(t, 8000, 2, samples)}

	s, err := d.Open(context.Background(), capture.Constraints{ChannelCount: 1})
	require.NoError(t, err)
	assert.Equal(t, capture.Format{SampleRate: 8000, Channels: 1}, s.Format())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	total := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		for b := range s.Frames() {
			total += len(b)
		}
	}()

	require.NoError(t, d.Wait(ctx))
	assert.True(t, s.Active())
	require.NoError(t, s.Close())
	<-done

	assert.Equal(t, 1000, total)
	assert.False(t, s.Active())
}

func TestDevice_KeepsStereo(t *testing.T) {
	d := &Device{Path: writeWAV(t, 16000, 2, make([]int16, 64))}

	s, err := d.Open(context.Background(), capture.Constraints{ChannelCount: 2})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 2, s.Format().Channels)
}

func TestDevice_CloseBeforeDrain(t *testing.T) {
	d := &Device{Path: writeWAV(t, 8000, 1, make([]int16, 80000)), Realtime: true}

	s, err := d.Open(context.Background(), capture.DefaultConstraints())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, d.Wait(context.Background()), capture.ErrStreamClosed)
}
