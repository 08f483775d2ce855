// SPDX-License-Identifier: EPL-2.0

// Package media describes audio payloads by MIME type and file name.
package media

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"
)

// File is an audio payload with its declared type.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

func (f File) Size() int { return len(f.Data) }

var compressedMarkers = []string{"webm", "ogg", "opus", "vorbis", "mpeg", "mp3"}

// BaseType lowercases mimeType and strips any parameters.
func BaseType(mimeType string) string {
	t, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		t, _, _ = strings.Cut(mimeType, ";")
	}

	return strings.ToLower(strings.TrimSpace(t))
}

// IsCompressed reports whether mimeType names a compressed container or
// codec that must be decoded before it can become PCM WAV.
func IsCompressed(mimeType string) bool {
	m := strings.ToLower(mimeType)
	for _, marker := range compressedMarkers {
		if strings.Contains(m, marker) {
			return true
		}
	}

	return false
}

// Container maps a MIME type to the decoder registry key, or "" when no
// decoder handles it.
func Container(mimeType string) string {
	switch BaseType(mimeType) {
	case "audio/webm", "video/webm":
		return "webm"
	case "audio/ogg", "audio/opus", "application/ogg":
		return "ogg"
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return "wav"
	}

	return ""
}

// Extension is the file extension, without dot, used for a payload of
// mimeType. Unknown types map to "bin".
func Extension(mimeType string) string {
	switch BaseType(mimeType) {
	case "audio/webm", "video/webm":
		return "webm"
	case "audio/ogg", "audio/opus", "application/ogg":
		return "ogg"
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return "wav"
	case "audio/flac":
		return "flac"
	case "audio/x-m4a", "audio/mp4":
		return "m4a"
	}

	return "bin"
}

// ExtensionOf returns the lowercased extension of name including the dot.
func ExtensionOf(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// TypeByExtension guesses a MIME type from a file name.
func TypeByExtension(name string) string {
	switch ExtensionOf(name) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg", ".opus":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	case ".flac":
		return "audio/flac"
	case ".m4a":
		return "audio/x-m4a"
	}

	return ""
}

// RecordingName is recording_<unix milliseconds>.<ext>.
func RecordingName(t time.Time, ext string) string {
	return fmt.Sprintf("recording_%d.%s", t.UnixMilli(), ext)
}
