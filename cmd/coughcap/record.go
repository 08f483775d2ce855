// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ik5/coughcap/capture/filedev"
	"github.com/ik5/coughcap/recording"
)

func runRecord(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("record", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	input := fs.String("input", "", "WAV file to use as the microphone")
	mic := fs.Bool("mic", false, "record from the default microphone")
	duration := fs.Duration("duration", 5*time.Second, "recording length; with -input, the upper bound")
	realtime := fs.Bool("realtime", false, "with -input, play the file at its natural speed")
	out := fs.String("out", "", "output path (default: the recording's own name)")
	submit := fs.Bool("submit", false, "submit the recording for analysis")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *mic == (*input != "") {
		fmt.Fprintln(e.stderr, "record: exactly one of -mic or -input is required")
		return errUsage
	}
	if *duration <= 0 {
		return fmt.Errorf("-duration must be positive, got %v", *duration)
	}

	a := newApp(e, deviceSpec{mic: *mic, input: *input, realtime: *realtime})

	if err := a.ctrl.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	fmt.Fprintln(e.stderr, "recording…")

	waitErr := waitForRecording(ctx, a, *duration)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.Capture.StopTimeout)
	defer cancel()

	if err := a.ctrl.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if waitErr != nil {
		e.log.Warn("recording cut short")
	}

	snap := a.ctrl.Snapshot()
	if snap.Artifact == nil {
		return recording.ErrNoArtifact
	}

	path := *out
	if path == "" {
		path = snap.Artifact.Name
	}
	if err := os.WriteFile(path, snap.Artifact.Data, 0o644); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}

	status := "wav"
	if snap.Fallback {
		status = "original format, transcoding failed"
	}
	fmt.Fprintf(e.stdout, "%s\t%d bytes\t%s\t%s\n", path, snap.Artifact.Size(), snap.Duration.Round(time.Millisecond), status)

	if !*submit {
		return nil
	}

	pred, err := a.ctrl.Submit(ctx)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	return printJSON(e, pred)
}

// waitForRecording returns when the file device has played its whole input,
// the duration elapsed or ctx ended.
func waitForRecording(ctx context.Context, a *app, d time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	if fd, ok := a.device.(*filedev.Device); ok {
		err := fd.Wait(ctx)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	}

	<-ctx.Done()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil
	}
	return ctx.Err()
}

func printJSON(e *env, v any) error {
	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
