// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MP3 uploads through github.com/hajimehoshi/go-mp3.
//
// The decoder always reports two channels; mono files come out duplicated.
// The transcoder down-mixes only above two channels, so MP3 input is encoded
// as stereo WAV.
//
//	src, err := mp3.Decoder{}.Decode(r)
//	if err != nil {
//	    // Handle error
//	}
//	defer src.Close()
//
//	wf, err := audio.ReadWaveform(src, 0)
//
// Decoder errors are wrapped with an "mp3:" prefix and keep the go-mp3
// cause for errors.Is.
package mp3
