// SPDX-License-Identifier: EPL-2.0

// Package ingest decides whether an uploaded or recorded file may be sent
// for analysis.
package ingest

import (
	"fmt"
	"strings"

	"github.com/ik5/coughcap/media"
)

// DefaultMaxBytes is 10 MiB.
const DefaultMaxBytes = 10 * 1024 * 1024

var (
	// DefaultMIMETypes are the declared types accepted for analysis.
	DefaultMIMETypes = []string{
		"audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave",
		"audio/mpeg", "audio/mp3",
		"audio/flac",
		"audio/ogg",
		"audio/x-m4a", "audio/mp4",
		"audio/webm",
	}

	// DefaultExtensions are consulted only when no type is declared.
	DefaultExtensions = []string{".wav", ".mp3", ".flac", ".ogg", ".m4a", ".webm"}
)

// Verdict is the outcome of Validate. Reason is empty for valid files.
type Verdict struct {
	Valid  bool
	Reason string
	Err    error
}

func reject(err error) Verdict {
	return Verdict{Reason: err.Error(), Err: err}
}

// Validator checks size and declared type. The zero value is not usable;
// build one with NewValidator.
type Validator struct {
	maxBytes   int
	mimeTypes  map[string]struct{}
	extensions map[string]struct{}
}

type Option func(*Validator)

func WithMaxBytes(n int) Option {
	return func(v *Validator) { v.maxBytes = n }
}

func WithMIMETypes(types ...string) Option {
	return func(v *Validator) { v.mimeTypes = set(types, media.BaseType) }
}

func WithExtensions(exts ...string) Option {
	return func(v *Validator) { v.extensions = set(exts, normExt) }
}

func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		maxBytes:   DefaultMaxBytes,
		mimeTypes:  set(DefaultMIMETypes, media.BaseType),
		extensions: set(DefaultExtensions, normExt),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

func normExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func set(values []string, norm func(string) string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[norm(v)] = struct{}{}
	}
	return m
}

func (v *Validator) MaxBytes() int { return v.maxBytes }

// Validate checks emptiness, then size, then type. A declared type decides
// on its own; the file name is only consulted when the type is empty.
func (v *Validator) Validate(f media.File) Verdict {
	switch {
	case len(f.Data) == 0:
		return reject(ErrEmpty)
	case len(f.Data) > v.maxBytes:
		return reject(ErrTooLarge)
	}

	if f.MIMEType != "" {
		if _, ok := v.mimeTypes[media.BaseType(f.MIMEType)]; !ok {
			return reject(ErrUnsupportedType)
		}
		return Verdict{Valid: true}
	}

	if _, ok := v.extensions[media.ExtensionOf(f.Name)]; !ok {
		return reject(ErrUnsupportedType)
	}

	return Verdict{Valid: true}
}

// Check is Validate returning a *RejectedError for invalid files.
func (v *Validator) Check(f media.File) error {
	verdict := v.Validate(f)
	if verdict.Valid {
		return nil
	}

	return &RejectedError{Name: f.Name, Verdict: verdict}
}

func (v *Validator) String() string {
	return fmt.Sprintf("ingest.Validator{max=%d types=%d exts=%d}", v.maxBytes, len(v.mimeTypes), len(v.extensions))
}
