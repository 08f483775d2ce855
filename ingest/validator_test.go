// SPDX-License-Identifier: EPL-2.0

package ingest

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ik5/coughcap/media"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	v := NewValidator()
	data := []byte{1, 2, 3}

	tests := []struct {
		name   string
		file   media.File
		reason string
		err    error
	}{
		{"wav", media.File{Name: "a.wav", MIMEType: "audio/wav", Data: data}, "", nil},
		{"uppercase with params", media.File{Name: "a", MIMEType: "Audio/WebM; codecs=opus", Data: data}, "", nil},
		{"x-wav alias", media.File{Name: "a", MIMEType: "audio/x-wav", Data: data}, "", nil},
		{"mp4", media.File{Name: "a.m4a", MIMEType: "audio/mp4", Data: data}, "", nil},
		{"empty", media.File{Name: "a.wav", MIMEType: "audio/wav"}, "empty file", ErrEmpty},
		{"text", media.File{Name: "a.txt", MIMEType: "text/plain", Data: data}, "unsupported file type", ErrUnsupportedType},
		{"declared type wins over name", media.File{Name: "a.wav", MIMEType: "video/mp4", Data: data}, "unsupported file type", ErrUnsupportedType},
		{"no type, known extension", media.File{Name: "COUGH.OGG", Data: data}, "", nil},
		{"no type, unknown extension", media.File{Name: "cough.aiff", Data: data}, "unsupported file type", ErrUnsupportedType},
		{"no type, no extension", media.File{Name: "cough", Data: data}, "unsupported file type", ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := v.Validate(tt.file)
			if got.Valid != (tt.err == nil) {
				t.Errorf("Valid = %v, want %v", got.Valid, tt.err == nil)
			}
			if got.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.reason)
			}
			if !errors.Is(got.Err, tt.err) {
				t.Errorf("Err = %v, want %v", got.Err, tt.err)
			}
		})
	}
}

func TestValidate_SizeBoundary(t *testing.T) {
	t.Parallel()

	v := NewValidator()

	atLimit := media.File{Name: "a.wav", MIMEType: "audio/wav", Data: make([]byte, 10485760)}
	if got := v.Validate(atLimit); !got.Valid {
		t.Errorf("Validate(10485760 bytes) = %+v, want valid", got)
	}

	over := media.File{Name: "a.wav", MIMEType: "audio/wav", Data: make([]byte, 10485761)}
	got := v.Validate(over)
	if got.Valid || got.Reason != "file too large" || !errors.Is(got.Err, ErrTooLarge) {
		t.Errorf("Validate(10485761 bytes) = %+v, want file too large", got)
	}
}

func TestValidate_DoesNotMutate(t *testing.T) {
	t.Parallel()

	data := []byte("RIFF")
	f := media.File{Name: "x.wav", MIMEType: "Audio/WAV", Data: data}

	NewValidator().Validate(f)

	if f.MIMEType != "Audio/WAV" || f.Name != "x.wav" || !bytes.Equal(f.Data, []byte("RIFF")) {
		t.Errorf("Validate() mutated its input: %+v", f)
	}
}

func TestValidator_Options(t *testing.T) {
	t.Parallel()

	v := NewValidator(WithMaxBytes(4), WithMIMETypes("audio/flac"), WithExtensions("flac"))

	if got := v.Validate(media.File{MIMEType: "audio/wav", Data: []byte{1}}); got.Valid {
		t.Error("audio/wav accepted after WithMIMETypes(audio/flac)")
	}
	if got := v.Validate(media.File{MIMEType: "audio/flac", Data: make([]byte, 5)}); !errors.Is(got.Err, ErrTooLarge) {
		t.Errorf("Err = %v, want %v", got.Err, ErrTooLarge)
	}
	if v.MaxBytes() != 4 {
		t.Errorf("MaxBytes() = %d, want 4", v.MaxBytes())
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	v := NewValidator()

	if err := v.Check(media.File{Name: "a.wav", MIMEType: "audio/wav", Data: []byte{1}}); err != nil {
		t.Errorf("Check(valid) = %v, want nil", err)
	}

	err := v.Check(media.File{Name: "a.wav", MIMEType: "audio/wav"})

	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("Check() error = %T, want *RejectedError", err)
	}
	if !errors.Is(err, ErrEmpty) {
		t.Errorf("errors.Is(err, ErrEmpty) = false for %v", err)
	}
	if rejected.Verdict.Reason != "empty file" {
		t.Errorf("Reason = %q", rejected.Verdict.Reason)
	}
}
