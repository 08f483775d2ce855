// SPDX-License-Identifier: EPL-2.0

// Package config loads the coughcap YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ik5/coughcap/capture"
	"github.com/ik5/coughcap/inference"
	"github.com/ik5/coughcap/ingest"
	"github.com/ik5/coughcap/transcode"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Capture   CaptureConfig   `yaml:"capture"`
	Transcode TranscodeConfig `yaml:"transcode"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Inference InferenceConfig `yaml:"inference"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr" validate:"required,hostname_port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	ReadTimeout    time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout   time.Duration `yaml:"write_timeout" validate:"gte=0"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	// File enables rotation through lumberjack; empty logs to stderr.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
	Compress   bool   `yaml:"compress"`
}

type CaptureConfig struct {
	// Device is "mic" or "file".
	Device           string        `yaml:"device" validate:"oneof=mic file"`
	InputFile        string        `yaml:"input_file"`
	SampleRate       int           `yaml:"sample_rate" validate:"gt=0"`
	Channels         int           `yaml:"channels" validate:"oneof=1 2"`
	EchoCancellation bool          `yaml:"echo_cancellation"`
	NoiseSuppression bool          `yaml:"noise_suppression"`
	Timeslice        time.Duration `yaml:"timeslice" validate:"gt=0"`
	MIMEPreferences  []string      `yaml:"mime_preferences" validate:"min=1,dive,required"`
	StopTimeout      time.Duration `yaml:"stop_timeout" validate:"gt=0"`
}

type TranscodeConfig struct {
	DecodeTimeout    time.Duration `yaml:"decode_timeout" validate:"gt=0"`
	TargetSampleRate int           `yaml:"target_sample_rate" validate:"gte=0"`
	MaxDuration      time.Duration `yaml:"max_duration" validate:"gte=0"`
}

type IngestConfig struct {
	MaxBytes   int      `yaml:"max_bytes" validate:"gt=0"`
	MIMETypes  []string `yaml:"mime_types" validate:"min=1,dive,required"`
	Extensions []string `yaml:"extensions" validate:"min=1,dive,required"`
}

type InferenceConfig struct {
	Endpoint string        `yaml:"endpoint" validate:"omitempty,url"`
	Path     string        `yaml:"path" validate:"required,startswith=/"`
	Timeout  time.Duration `yaml:"timeout" validate:"gt=0"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required,startswith=/"`
}

// Default is the configuration used for every key a file leaves out.
func Default() *Config {
	c := capture.DefaultConstraints()

	return &Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Capture: CaptureConfig{
			Device:           "mic",
			SampleRate:       c.SampleRate,
			Channels:         c.ChannelCount,
			EchoCancellation: c.EchoCancellation,
			NoiseSuppression: c.NoiseSuppression,
			Timeslice:        capture.DefaultTimeslice,
			MIMEPreferences:  slices.Clone(capture.DefaultMIMEPreferences),
			StopTimeout:      5 * time.Second,
		},
		Transcode: TranscodeConfig{
			DecodeTimeout: transcode.DefaultDecodeTimeout,
		},
		Ingest: IngestConfig{
			MaxBytes:   ingest.DefaultMaxBytes,
			MIMETypes:  slices.Clone(ingest.DefaultMIMETypes),
			Extensions: slices.Clone(ingest.DefaultExtensions),
		},
		Inference: InferenceConfig{
			Path:    inference.DefaultPath,
			Timeout: inference.DefaultTimeout,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Constraints converts the capture section into device constraints.
func (c CaptureConfig) Constraints() capture.Constraints {
	return capture.Constraints{
		EchoCancellation: c.EchoCancellation,
		NoiseSuppression: c.NoiseSuppression,
		ChannelCount:     c.Channels,
		SampleRate:       c.SampleRate,
	}
}

// Load reads the YAML file at path on top of Default and validates it.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	return cfg, nil
}

// LoadFromReader decodes YAML from r on top of Default. Unknown keys are
// errors. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs the struct tags and the checks that span fields. All
// failures are returned joined.
func Validate(cfg *Config) error {
	var errs []error

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Errorf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
		} else {
			errs = append(errs, err)
		}
	}

	if cfg.Capture.Device == "file" && cfg.Capture.InputFile == "" {
		errs = append(errs, errors.New("capture.input_file is required when capture.device is \"file\""))
	}

	if cfg.Transcode.TargetSampleRate != 0 && (cfg.Transcode.TargetSampleRate < 8000 || cfg.Transcode.TargetSampleRate > 192000) {
		errs = append(errs, fmt.Errorf("transcode.target_sample_rate %d is outside 8000..192000", cfg.Transcode.TargetSampleRate))
	}

	if cfg.Logging.File != "" && cfg.Logging.MaxSizeMB == 0 {
		errs = append(errs, errors.New("logging.max_size_mb must be positive when logging.file is set"))
	}

	return errors.Join(errs...)
}
