// SPDX-License-Identifier: EPL-2.0

// Package audio provides the PCM primitives shared by the decoders, the
// capture recorders and the transcoder.
//
// # Source Interface
//
// Every decoder and processor implements Source:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// Samples are interleaved float32 in [-1, 1]. ReadSamples returns the number
// of values written, not frames, and io.EOF once the stream is finished.
//
// # Waveforms
//
// ReadWaveform drains a Source into a Waveform, which holds one slice per
// channel with equal lengths:
//
//	w, err := audio.ReadWaveform(src, 0)
//	fmt.Println(w.SampleRate, w.ChannelCount(), w.SampleCount())
//
// # Processing
//
// MonoMixer averages all channels of a frame. Resampler changes the sample
// rate with Catmull-Rom interpolation:
//
//	r, err := audio.NewResampler(audio.NewMonoMixer(src), 16000)
//
// StreamSource turns a channel of int16 blocks, as delivered by a capture
// device, into a Source.
//
// # Format Registry
//
// Registry maps a container key to a Decoder:
//
//	reg := audio.NewRegistry()
//	reg.Register("wav", wav.Decoder{})
//	dec, ok := reg.Get("wav")
package audio
