// SPDX-License-Identifier: EPL-2.0

package media

import (
	"testing"
	"time"
)

func TestIsCompressed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mime string
		want bool
	}{
		{"audio/webm;codecs=opus", true},
		{"audio/webm", true},
		{"audio/ogg;codecs=opus", true},
		{"audio/ogg", true},
		{"AUDIO/MPEG", true},
		{"audio/mp3", true},
		{"audio/ogg; codecs=vorbis", true},
		{"audio/wav", false},
		{"audio/x-wav", false},
		{"audio/flac", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsCompressed(tt.mime); got != tt.want {
			t.Errorf("IsCompressed(%q) = %v, want %v", tt.mime, got, tt.want)
		}
	}
}

func TestBaseType(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"audio/webm;codecs=opus":   "audio/webm",
		"Audio/WAV":                "audio/wav",
		" audio/ogg ; codecs=opus": "audio/ogg",
		"audio/webm;codecs=\"opus": "audio/webm",
		"":                         "",
	}

	for in, want := range tests {
		if got := BaseType(in); got != want {
			t.Errorf("BaseType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContainerAndExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mime      string
		container string
		ext       string
	}{
		{"audio/webm;codecs=opus", "webm", "webm"},
		{"audio/ogg;codecs=opus", "ogg", "ogg"},
		{"audio/mpeg", "mp3", "mp3"},
		{"audio/x-wav", "wav", "wav"},
		{"audio/flac", "", "flac"},
		{"audio/mp4", "", "m4a"},
		{"text/plain", "", "bin"},
	}

	for _, tt := range tests {
		if got := Container(tt.mime); got != tt.container {
			t.Errorf("Container(%q) = %q, want %q", tt.mime, got, tt.container)
		}
		if got := Extension(tt.mime); got != tt.ext {
			t.Errorf("Extension(%q) = %q, want %q", tt.mime, got, tt.ext)
		}
	}
}

func TestTypeByExtension(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"cough.WAV":   "audio/wav",
		"a/b/c.mp3":   "audio/mpeg",
		"x.webm":      "audio/webm",
		"noext":       "",
		"archive.tar": "",
	}

	for in, want := range tests {
		if got := TypeByExtension(in); got != want {
			t.Errorf("TypeByExtension(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRecordingName(t *testing.T) {
	t.Parallel()

	ts := time.UnixMilli(1700000000123)
	if got := RecordingName(ts, "wav"); got != "recording_1700000000123.wav" {
		t.Errorf("RecordingName() = %q", got)
	}
}
