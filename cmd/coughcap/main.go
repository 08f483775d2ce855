// SPDX-License-Identifier: EPL-2.0

// Command coughcap records, inspects and submits cough recordings.
//
//	coughcap [-config file.yaml] record -input cough.wav -out out.wav [-submit]
//	coughcap [-config file.yaml] record -mic -duration 5s
//	coughcap [-config file.yaml] upload cough.webm
//	coughcap inspect cough.ogg
//	coughcap [-config file.yaml] serve
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ik5/coughcap/config"
	"github.com/ik5/coughcap/logging"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, env *env, args []string) error
}

var commands = []command{
	{"record", "capture a recording from a WAV file or the microphone", runRecord},
	{"upload", "validate a file and submit it for analysis", runUpload},
	{"inspect", "print the format of an audio file", runInspect},
	{"serve", "run the local HTTP API", runServe},
}

// env is what every command shares.
type env struct {
	cfg    *config.Config
	log    *zap.Logger
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("coughcap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to the YAML configuration file")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cmd, ok := lookup(fs.Arg(0))
	if !ok {
		fmt.Fprintf(stderr, "coughcap: unknown command %q\n", fs.Arg(0))
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "coughcap: %v\n", err)
		return 1
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "coughcap: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	e := &env{cfg: cfg, log: log, stdout: stdout, stderr: stderr}
	if err := cmd.run(ctx, e, fs.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if errors.Is(err, errUsage) {
			return 2
		}
		fmt.Fprintf(stderr, "coughcap %s: %v\n", cmd.name, err)
		return 1
	}

	return 0
}

var errUsage = errors.New("usage")

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// loadConfig returns the defaults when no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, config.Validate(cfg)
	}
	return config.Load(path)
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "usage: coughcap [-config file] <command> [flags]")
	fmt.Fprintln(w, "\ncommands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w, "\nglobal flags:")
	fs.PrintDefaults()
}
