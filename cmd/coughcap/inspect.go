// SPDX-License-Identifier: EPL-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ik5/coughcap/audio"
	"github.com/ik5/coughcap/formats/ogg"
	"github.com/ik5/coughcap/formats/wav"
	"github.com/ik5/coughcap/formats/webm"
	"github.com/ik5/coughcap/ingest"
	"github.com/ik5/coughcap/media"
	"github.com/ik5/coughcap/transcode"
)

var errUnknownFormat = errors.New("unrecognized audio format")

func runInspect(_ context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(e.stderr)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(e.stderr, "usage: coughcap inspect <file>")
		return errUsage
	}

	f, err := readMediaFile(fs.Arg(0), "")
	if err != nil {
		return err
	}

	return inspect(e.stdout, f, newValidator(e), transcode.DefaultRegistry())
}

// sniff detects the container from magic bytes, falling back to the
// declared type for MP3, which has no reliable signature.
func sniff(f media.File) string {
	switch {
	case bytes.HasPrefix(f.Data, []byte("RIFF")):
		return "wav"
	case bytes.HasPrefix(f.Data, []byte("OggS")):
		return "ogg"
	case bytes.HasPrefix(f.Data, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return "webm"
	case bytes.HasPrefix(f.Data, []byte("ID3")), len(f.Data) > 1 && f.Data[0] == 0xFF && f.Data[1]&0xE0 == 0xE0:
		return "mp3"
	}

	return media.Container(f.MIMEType)
}

func inspect(w io.Writer, f media.File, v *ingest.Validator, reg *audio.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "file:\t%s\n", f.Name)
	fmt.Fprintf(tw, "size:\t%d bytes\n", f.Size())
	fmt.Fprintf(tw, "type:\t%s\n", f.MIMEType)

	if verdict := v.Validate(f); verdict.Valid {
		fmt.Fprintf(tw, "upload:\taccepted\n")
	} else {
		fmt.Fprintf(tw, "upload:\trejected (%s)\n", verdict.Reason)
	}

	container := sniff(f)
	if container == "" {
		return errUnknownFormat
	}
	fmt.Fprintf(tw, "container:\t%s\n", container)

	switch container {
	case "wav":
		info, err := wav.ReadInfo(bytes.NewReader(f.Data))
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "codec:\tpcm %d-bit\n", info.BitDepth)
	case "ogg":
		codec, err := ogg.Sniff(f.Data)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "codec:\t%s\n", codec)
	case "webm":
		doc, err := webm.Demux(f.Data)
		if err != nil {
			return err
		}
		if t, ok := doc.AudioTrack(); ok {
			fmt.Fprintf(tw, "codec:\t%s\n", t.CodecID)
			fmt.Fprintf(tw, "frames:\t%d\n", len(doc.Frames[t.Number]))
		}
		if doc.Truncated {
			fmt.Fprintf(tw, "note:\ttruncated cluster\n")
		}
	case "mp3":
		fmt.Fprintf(tw, "codec:\tmpeg layer 3\n")
	}

	dec, ok := reg.Get(container)
	if !ok {
		return fmt.Errorf("%w: %s", transcode.ErrNoDecoder, container)
	}

	src, err := dec.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	defer src.Close()

	wf, err := audio.ReadWaveform(src, 0)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	fmt.Fprintf(tw, "sample rate:\t%d Hz\n", wf.SampleRate)
	fmt.Fprintf(tw, "channels:\t%d\n", wf.ChannelCount())
	fmt.Fprintf(tw, "duration:\t%s\n", wf.Duration().Round(time.Millisecond))

	return nil
}
