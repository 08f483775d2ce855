// SPDX-License-Identifier: EPL-2.0

// Package coughcap records short cough samples, normalizes them to 16-bit
// PCM WAV and submits them to a remote classification service.
//
// The repository is a set of small packages wired together by cmd/coughcap.
//
// # Capture
//
// capture.Session owns one device stream at a time and accumulates the
// chunks of a recorder into a capture.Artifact:
//
//	session := capture.NewSession(&filedev.Device{Path: "cough.wav"}, opusrec.Factory{})
//	_ = session.Start(ctx)
//	// ...
//	_ = session.Stop(ctx)
//	art, _ := session.Artifact()
//
// Devices live in capture/micdev (system microphone) and capture/filedev
// (a WAV file played as a microphone). capture/opusrec turns a stream into
// Ogg Opus chunks at a fixed timeslice.
//
// # Transcoding
//
// transcode.Transcoder turns an artifact into a media.File. Compressed
// containers (WebM, Ogg, MP3) are decoded through an audio.Registry and
// written with wav.Encode. Anything that fails to decode is kept as is:
//
//	res := transcode.New(transcode.Options{}).Transcode(ctx, art)
//	if res.Outcome == transcode.Fallback {
//		// res.File still holds the original bytes
//	}
//
// # Format Decoders
//
// Every decoder returns an audio.Source of interleaved float32 samples:
//
//	formats/wav     PCM WAV through go-audio/wav
//	formats/mp3     MPEG layer 3 through go-mp3
//	formats/vorbis  Ogg Vorbis through oggvorbis
//	formats/opus    Opus packets through gopus
//	formats/ogg     Ogg pages, Opus or Vorbis
//	formats/webm    WebM/Matroska with an Opus track
//
// audio.MonoMixer, audio.Resampler and audio.ReadWaveform build on Source.
//
// # Submission
//
// ingest.Validator decides whether a file may be sent. inference.Submitter
// validates and then uploads through inference.Client. recording.Controller
// ties a session, a transcoder and a preview.Store together for a UI, and
// server exposes it over HTTP and WebSocket.
package coughcap
