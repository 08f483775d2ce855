// SPDX-License-Identifier: EPL-2.0

package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ik5/coughcap/audio"
	"github.com/ik5/coughcap/capture"
	"github.com/ik5/coughcap/formats/wav"
	"github.com/ik5/coughcap/internal/audiotest"
)

var created = time.UnixMilli(1700000000123)

type stubDecoder struct {
	src   audio.Source
	err   error
	block chan struct{}
	panic bool
}

func (d stubDecoder) Decode(io.Reader) (audio.Source, error) {
	if d.block != nil {
		<-d.block
	}
	if d.panic {
		panic("decoder exploded")
	}
	return d.src, d.err
}

func registryWith(key string, d audio.Decoder) *audio.Registry {
	r := audio.NewRegistry()
	r.Register(key, d)
	return r
}

func TestTranscode_PassThrough(t *testing.T) {
	t.Parallel()

	data := audiotest.WAV16(8000, 1, []int16{1, 2, 3})
	res := New(Options{}).Transcode(context.Background(), capture.Artifact{
		Data: data, MIMEType: "audio/wav", CreatedAt: created,
	})

	if res.Outcome != PassThrough {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, PassThrough)
	}
	if !bytes.Equal(res.File.Data, data) {
		t.Error("pass-through changed the bytes")
	}
	if res.File.MIMEType != "audio/wav" {
		t.Errorf("MIMEType = %q, want audio/wav", res.File.MIMEType)
	}
	if res.File.Name != "recording_1700000000123.wav" {
		t.Errorf("Name = %q", res.File.Name)
	}
	if res.Err != nil {
		t.Errorf("Err = %v, want nil", res.Err)
	}
}

func TestTranscode_WebMOpus(t *testing.T) {
	t.Parallel()

	webmData, err := audiotest.WebMOpus(1, audiotest.SineInt16(48000, 1, 48000, 440, 0.5))
	if err != nil {
		t.Fatalf("WebMOpus() error = %v", err)
	}

	res := New(Options{}).Transcode(context.Background(), capture.Artifact{
		Data: webmData, MIMEType: "audio/webm;codecs=opus", CreatedAt: created,
	})

	if res.Outcome != Encoded {
		t.Fatalf("Outcome = %v (err %v), want %v", res.Outcome, res.Err, Encoded)
	}
	if res.File.MIMEType != wav.MIMEType || res.File.Name != "recording_1700000000123.wav" {
		t.Errorf("File = %q %q", res.File.Name, res.File.MIMEType)
	}

	data := res.File.Data
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("output is not a WAV file")
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 48000 {
		t.Errorf("sample rate = %d, want 48000", rate)
	}
	if want := uint32(len(data) - wav.HeaderSize); binary.LittleEndian.Uint32(data[40:44]) != want {
		t.Errorf("data size = %d, want %d", binary.LittleEndian.Uint32(data[40:44]), want)
	}
}

func TestTranscode_OggOpusResampled(t *testing.T) {
	t.Parallel()

	oggData, err := audiotest.OggOpus(2, audiotest.SineInt16(48000, 2, 24000, 440, 0.5))
	if err != nil {
		t.Fatalf("OggOpus() error = %v", err)
	}

	res := New(Options{TargetSampleRate: 16000}).Transcode(context.Background(), capture.Artifact{
		Data: oggData, MIMEType: "audio/ogg;codecs=opus", CreatedAt: created,
	})

	if res.Outcome != Encoded {
		t.Fatalf("Outcome = %v (err %v), want %v", res.Outcome, res.Err, Encoded)
	}
	if rate := binary.LittleEndian.Uint32(res.File.Data[24:28]); rate != 16000 {
		t.Errorf("sample rate = %d, want 16000", rate)
	}
	if ch := binary.LittleEndian.Uint16(res.File.Data[22:24]); ch != 2 {
		t.Errorf("channels = %d, want 2", ch)
	}
}

func TestTranscode_FallbackOnCorruptInput(t *testing.T) {
	t.Parallel()

	garbage := []byte("this is not a webm file at all")
	res := New(Options{}).Transcode(context.Background(), capture.Artifact{
		Data: garbage, MIMEType: "audio/webm;codecs=opus", CreatedAt: created,
	})

	if res.Outcome != Fallback {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, Fallback)
	}
	if !bytes.Equal(res.File.Data, garbage) {
		t.Error("fallback changed the bytes")
	}
	if res.File.MIMEType != "audio/webm;codecs=opus" {
		t.Errorf("MIMEType = %q", res.File.MIMEType)
	}
	if res.File.Name != "recording_1700000000123.webm" {
		t.Errorf("Name = %q, want recording_1700000000123.webm", res.File.Name)
	}
	if res.Err == nil {
		t.Error("Err = nil, want decode error")
	}
}

func TestTranscode_FallbackCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    Options
		mime    string
		wantErr error
	}{
		{
			name:    "no decoder",
			opts:    Options{Registry: audio.NewRegistry()},
			mime:    "audio/ogg",
			wantErr: ErrNoDecoder,
		},
		{
			name: "stalled decoder",
			opts: Options{
				Registry:      registryWith("webm", stubDecoder{block: make(chan struct{})}),
				DecodeTimeout: 20 * time.Millisecond,
			},
			mime:    "audio/webm",
			wantErr: ErrDecodeTimeout,
		},
		{
			name:    "panicking decoder",
			opts:    Options{Registry: registryWith("mp3", stubDecoder{panic: true})},
			mime:    "audio/mpeg",
			wantErr: ErrDecodePanic,
		},
		{
			name:    "empty stream",
			opts:    Options{Registry: registryWith("ogg", stubDecoder{src: audiotest.NewSilentSource(48000, 1, 0)})},
			mime:    "audio/ogg",
			wantErr: ErrNoAudio,
		},
		{
			name:    "too long",
			opts:    Options{Registry: registryWith("ogg", stubDecoder{src: audiotest.NewSilentSource(1000, 1, 5000)}), MaxDuration: 2 * time.Second},
			mime:    "audio/ogg",
			wantErr: audio.ErrTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := New(tt.opts).Transcode(context.Background(), capture.Artifact{
				Data: []byte{1, 2, 3}, MIMEType: tt.mime, CreatedAt: created,
			})

			if res.Outcome != Fallback {
				t.Fatalf("Outcome = %v, want %v", res.Outcome, Fallback)
			}
			if !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", res.Err, tt.wantErr)
			}
			if !bytes.Equal(res.File.Data, []byte{1, 2, 3}) {
				t.Error("fallback changed the bytes")
			}
		})
	}
}

func TestTranscode_DownmixesSurround(t *testing.T) {
	t.Parallel()

	src := audiotest.NewConstantSource(8000, 6, 800, 0.5)
	tr := New(Options{Registry: registryWith("ogg", stubDecoder{src: src})})

	res := tr.Transcode(context.Background(), capture.Artifact{Data: []byte{0}, MIMEType: "audio/ogg", CreatedAt: created})
	if res.Outcome != Encoded {
		t.Fatalf("Outcome = %v (err %v), want %v", res.Outcome, res.Err, Encoded)
	}

	if ch := binary.LittleEndian.Uint16(res.File.Data[22:24]); ch != 1 {
		t.Errorf("channels = %d, want 1", ch)
	}
	if got := len(res.File.Data) - wav.HeaderSize; got != 1600 {
		t.Errorf("data bytes = %d, want 1600", got)
	}
	if !src.Closed {
		t.Error("decoder source was not closed")
	}
}

func TestTranscode_DefaultsCreatedAt(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(42)
	res := New(Options{Clock: func() time.Time { return now }}).Transcode(context.Background(),
		capture.Artifact{Data: []byte{1}, MIMEType: "audio/wav"})

	if res.File.Name != "recording_42.wav" {
		t.Errorf("Name = %q, want recording_42.wav", res.File.Name)
	}
}

func TestOutcome_String(t *testing.T) {
	t.Parallel()

	for o, want := range map[Outcome]string{Encoded: "encoded", PassThrough: "pass_through", Fallback: "fallback", 9: "Outcome(9)"} {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(o), got, want)
		}
	}
}
