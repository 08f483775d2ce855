// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis through github.com/jfreymuth/oggvorbis.
//
// The ogg package sniffs the first packet of a stream and hands Vorbis
// streams to this decoder; Opus streams go to the opus package instead.
// Use this package directly only when the stream is known to be Vorbis:
//
//	src, err := vorbis.Decoder{}.Decode(r)
//	if err != nil {
//	    // Handle error
//	}
//	defer src.Close()
//
//	buf := make([]float32, src.BufSize())
//	n, err := src.ReadSamples(buf)
//
// Samples come out interleaved at the stream's own rate and channel count.
package vorbis
