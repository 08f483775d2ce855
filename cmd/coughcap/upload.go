// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ik5/coughcap/media"
)

func runUpload(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	mimeType := fs.String("type", "", "declared MIME type (default: from the file extension)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(e.stderr, "usage: coughcap upload [-type mime] <file>")
		return errUsage
	}

	f, err := readMediaFile(fs.Arg(0), *mimeType)
	if err != nil {
		return err
	}

	sub, err := newSubmitter(e, nil)
	if err != nil {
		return err
	}

	pred, err := sub.Submit(ctx, f)
	if err != nil {
		return err
	}

	return printJSON(e, pred)
}

func readMediaFile(path, mimeType string) (media.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return media.File{}, fmt.Errorf("read %s: %w", path, err)
	}

	name := filepath.Base(path)
	if mimeType == "" {
		mimeType = media.TypeByExtension(name)
	}

	return media.File{Name: name, MIMEType: mimeType, Data: data}, nil
}
