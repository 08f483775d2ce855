// SPDX-License-Identifier: EPL-2.0

// Package wav reads integer PCM WAV files and writes the canonical 16-bit
// PCM form used for every artifact handed to the inference service.
//
// # Supported Formats
//
// Decoding accepts:
//   - Integer PCM at 8, 16, 24 and 32 bits
//   - Any channel count and sample rate
//   - Extra chunks such as LIST, which are skipped
//
// Encoding always produces 16-bit PCM, mono or stereo.
//
// # Decoding WAV Files
//
// Decoder wraps github.com/go-audio/wav and yields an audio.Source of
// float32 samples in [-1, 1]:
//
//	f, _ := os.Open("cough.wav")
//	defer f.Close()
//
//	src, err := wav.Decoder{}.Decode(f)
//	if err != nil {
//	    // Handle error
//	}
//	defer src.Close()
//
//	buf := make([]float32, src.BufSize())
//	n, err := src.ReadSamples(buf)
//
// To pull the whole file into memory use audio.ReadWaveform:
//
//	wf, err := audio.ReadWaveform(src, 0)
//
// ReadInfo returns the format without decoding samples:
//
//	info, err := wav.ReadInfo(f)
//	fmt.Println(info.SampleRate, info.Channels, info.BitDepth)
//
// # Encoding
//
// Encode turns an audio.Waveform into bytes: a 44-byte RIFF header followed
// by interleaved little-endian int16 frames:
//
//	mono := []float32{0, 0.5, -0.5, 1}
//	data := wav.Encode(audio.Waveform{SampleRate: 44100, Channels: [][]float32{mono}})
//	err := os.WriteFile("out.wav", data, 0o644)
//
// Samples are clamped to [-1, 1], scaled by 32767 and truncated toward zero,
// so 0.5 becomes 16383 and -1.2 becomes -32767. The output depends only on
// the waveform; encoding the same input twice gives identical bytes.
//
// Encode panics when the waveform is not valid: a rate of zero or less, a
// channel count other than 1 or 2, or channels of different lengths. These
// are caller bugs, not data errors; use Waveform.Validate first when the
// waveform comes from outside.
//
// WriteWaveform streams the identical bytes to an io.Writer in 8 KiB blocks
// and returns validation problems as errors instead:
//
//	err := wav.WriteWaveform(w, wf)
//
// # Error Handling
//
// The decoder returns:
//   - ErrNotWavFile: the input has no RIFF/WAVE header
//   - ErrOnlyPCMSupported: the format tag is not integer PCM
//   - ErrUnsupportedBitDepth: PCM at a bit depth other than 8, 16, 24 or 32
//
// Example:
//
//	src, err := wav.Decoder{}.Decode(r)
//	if errors.Is(err, wav.ErrNotWavFile) {
//	    fmt.Println("not a WAV file")
//	}
//
// # File Format
//
// The encoded layout is:
//   - RIFF header (12 bytes): "RIFF", 36 + data size, "WAVE"
//   - fmt chunk (24 bytes): PCM tag 1, channels, rate, byte rate, block align, 16 bits
//   - data chunk (8 bytes + data): "data", frames × channels × 2, samples
package wav
